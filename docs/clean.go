package docs

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	urlPattern        = regexp.MustCompile(`https?://[^\s\]\)<>"]+`)
)

// CleanText strips HTML tags and entities from Hacker News markup and
// collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	// Paragraph tags become spaces once stripped, which is enough structure
	// for embedding input.
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// ExtractURLs returns the distinct http(s) URLs in text, in first-seen order.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var urls []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
