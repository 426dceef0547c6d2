package docs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hnrag/hn"
)

// Document is one retrievable text unit with enough metadata for the chunk
// store to trace it back to its source item.
type Document struct {
	ItemID   string
	ItemType string // story, comment, user, article
	Category string
	Author   string
	Text     string
}

// FormatStory renders a story into a structured text document: a metadata
// header, the cleaned text, extracted URLs, and semantic tags.
func FormatStory(it *hn.Item) Document {
	if it == nil {
		return Document{}
	}

	title := strings.TrimSpace(it.Title)
	text := CleanText(it.Text)
	storyType, contentCategory := classifyStory(it, title)

	var b strings.Builder
	fmt.Fprintf(&b, "Metadata: type=story, category=%s\n", contentCategory)
	fmt.Fprintf(&b, "Story ID: %d\n", it.ID)
	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "Description: %s\n", storyType)
	fmt.Fprintf(&b, "Author: %s\n", orUnknown(it.By))
	fmt.Fprintf(&b, "Time: %s\n", formatTime(it.Time))
	fmt.Fprintf(&b, "Score: %d points\n", it.Score)
	fmt.Fprintf(&b, "Comments: %d total\n", len(it.Kids))
	fmt.Fprintf(&b, "Source Endpoint: %s", orUnknown(it.Category))

	if it.URL != "" {
		fmt.Fprintf(&b, "\nLink: %s", it.URL)
	}
	if usableText(text) {
		fmt.Fprintf(&b, "\nText: %s", text)
		writeURLLine(&b, text, it.URL)
	}

	tags := []string{contentCategory, "story"}
	if it.Score > 100 {
		tags = append(tags, "popular")
	}
	if it.Score > 500 {
		tags = append(tags, "highly_popular")
	}
	if len(it.Kids) > 50 {
		tags = append(tags, "discussion_heavy")
	}
	fmt.Fprintf(&b, "\nTags: %s", strings.Join(tags, ", "))

	return Document{
		ItemID:   strconv.Itoa(it.ID),
		ItemType: "story",
		Category: it.Category,
		Author:   it.By,
		Text:     b.String(),
	}
}

// FormatComment renders a comment with its threading context.
func FormatComment(it *hn.Item) Document {
	if it == nil {
		return Document{}
	}

	text := CleanText(it.Text)

	var b strings.Builder
	b.WriteString("Metadata: type=comment, category=discussion\n")
	fmt.Fprintf(&b, "Comment ID: %d\n", it.ID)
	fmt.Fprintf(&b, "Author: %s\n", orUnknown(it.By))
	fmt.Fprintf(&b, "Time: %s\n", formatTime(it.Time))
	fmt.Fprintf(&b, "Source Category: %s\n", orUnknown(it.Category))
	fmt.Fprintf(&b, "Context: %s\n", orUnknown(it.Context))
	fmt.Fprintf(&b, "Comment Depth: %d", it.Depth)

	if it.Parent != 0 {
		fmt.Fprintf(&b, "\nReplying to: %d", it.Parent)
	}
	if usableText(text) {
		fmt.Fprintf(&b, "\nText: %s", text)
		writeURLLine(&b, text, "")
	} else {
		b.WriteString("\nText: [Deleted or empty]")
	}

	tags := []string{orUnknown(it.Category), "comment"}
	if it.Depth == 0 {
		tags = append(tags, "top_level_comment")
	} else {
		tags = append(tags, "reply")
	}
	fmt.Fprintf(&b, "\nTags: %s", strings.Join(tags, ", "))

	return Document{
		ItemID:   strconv.Itoa(it.ID),
		ItemType: "comment",
		Category: it.Category,
		Author:   it.By,
		Text:     b.String(),
	}
}

// FormatUser renders a user profile with karma and role context.
func FormatUser(u *hn.User) Document {
	if u == nil {
		return Document{}
	}

	about := CleanText(u.About)

	var b strings.Builder
	b.WriteString("Metadata: type=user_profile, category=user_info\n")
	fmt.Fprintf(&b, "Username: %s\n", u.ID)
	fmt.Fprintf(&b, "Karma: %d points\n", u.Karma)
	fmt.Fprintf(&b, "Member since: %s\n", formatDate(u.Created))
	fmt.Fprintf(&b, "Context: %s", orUnknown(u.Context))

	if about != "" {
		fmt.Fprintf(&b, "\nAbout: %s", about)
		writeURLLine(&b, about, "")
	}

	tags := []string{"user_profile"}
	if u.Karma > 1000 {
		tags = append(tags, "high_karma_user")
	}
	if strings.Contains(u.Context, "author") {
		tags = append(tags, "content_author")
	}
	if strings.Contains(u.Context, "commenter") {
		tags = append(tags, "active_commenter")
	}
	fmt.Fprintf(&b, "\nTags: %s", strings.Join(tags, ", "))

	return Document{
		ItemID:   u.ID,
		ItemType: "user",
		Author:   u.ID,
		Text:     b.String(),
	}
}

// FormatArticle renders reader-mode text extracted from a story's link as a
// document tied back to the story.
func FormatArticle(story *hn.Item, title, byline, text string) Document {
	if story == nil || strings.TrimSpace(text) == "" {
		return Document{}
	}

	var b strings.Builder
	b.WriteString("Metadata: type=article, category=linked_content\n")
	fmt.Fprintf(&b, "Story ID: %d\n", story.ID)
	fmt.Fprintf(&b, "Story Title: %s\n", strings.TrimSpace(story.Title))
	if title != "" && title != story.Title {
		fmt.Fprintf(&b, "Article Title: %s\n", title)
	}
	if byline != "" {
		fmt.Fprintf(&b, "Byline: %s\n", byline)
	}
	fmt.Fprintf(&b, "Link: %s\n", story.URL)
	fmt.Fprintf(&b, "Text: %s", strings.TrimSpace(text))
	fmt.Fprintf(&b, "\nTags: %s", strings.Join([]string{orUnknown(story.Category), "article", "linked_content"}, ", "))

	return Document{
		ItemID:   strconv.Itoa(story.ID),
		ItemType: "article",
		Category: story.Category,
		Author:   byline,
		Text:     b.String(),
	}
}

func classifyStory(it *hn.Item, title string) (storyType, contentCategory string) {
	switch {
	case it.Category == "askstories" || strings.HasPrefix(title, "Ask HN:"):
		return "Ask HN", "ask_hn"
	case it.Category == "showstories" || strings.HasPrefix(title, "Show HN:"):
		return "Show HN", "show_hn"
	case it.Category == "jobstories":
		return "Job Posting", "jobs"
	case it.Category == "beststories":
		return "Best Story", "best"
	default:
		return "Story", "general"
	}
}

// writeURLLine appends an extracted-URL line, excluding a primary URL that
// would just repeat the Link header.
func writeURLLine(b *strings.Builder, text, exclude string) {
	var urls []string
	for _, u := range ExtractURLs(text) {
		if u != exclude {
			urls = append(urls, u)
		}
	}
	if len(urls) > 0 {
		fmt.Fprintf(b, "\nExtracted URLs: %s", strings.Join(urls, ", "))
	}
}

func usableText(text string) bool {
	return text != "" && text != "[flagged]" && text != "[dead]"
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatTime(unix int64) string {
	if unix == 0 {
		return "Unknown"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func formatDate(unix int64) string {
	if unix == 0 {
		return "Unknown"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}
