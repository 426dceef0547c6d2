package hn

import (
	"encoding/json"
)

// Item is a Hacker News item (story, comment, job, ...). Fields the crawler
// interprets are typed; everything else the API returns is preserved in Extra
// so downstream formatting can use fields the crawler never reads.
type Item struct {
	ID          int
	Type        string
	By          string
	Time        int64
	Text        string
	URL         string
	Title       string
	Score       int
	Descendants int
	Kids        []int
	Parent      int
	Dead        bool
	Deleted     bool

	// Extra holds source fields outside the typed header.
	Extra map[string]json.RawMessage

	// Enrichment attached during the crawl.
	Category string
	Context  string
	Depth    int
}

// User is a Hacker News user profile. The id is the username.
type User struct {
	ID        string
	Created   int64
	Karma     int
	About     string
	Submitted []int

	Extra map[string]json.RawMessage

	// Context records the role the user was encountered in
	// (story author, commenter).
	Context string
}

type itemWire struct {
	ID          int    `json:"id"`
	Type        string `json:"type,omitempty"`
	By          string `json:"by,omitempty"`
	Time        int64  `json:"time,omitempty"`
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Score       int    `json:"score,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`

	Category string `json:"hn_category,omitempty"`
	Context  string `json:"hn_context,omitempty"`
	Depth    *int   `json:"hn_depth,omitempty"`
}

var itemKnownKeys = []string{
	"id", "type", "by", "time", "text", "url", "title", "score",
	"descendants", "kids", "parent", "dead", "deleted",
	"hn_category", "hn_context", "hn_depth",
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range itemKnownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*it = Item{
		ID:          w.ID,
		Type:        w.Type,
		By:          w.By,
		Time:        w.Time,
		Text:        w.Text,
		URL:         w.URL,
		Title:       w.Title,
		Score:       w.Score,
		Descendants: w.Descendants,
		Kids:        w.Kids,
		Parent:      w.Parent,
		Dead:        w.Dead,
		Deleted:     w.Deleted,
		Extra:       raw,
		Category:    w.Category,
		Context:     w.Context,
	}
	if w.Depth != nil {
		it.Depth = *w.Depth
	}
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	w := itemWire{
		ID:          it.ID,
		Type:        it.Type,
		By:          it.By,
		Time:        it.Time,
		Text:        it.Text,
		URL:         it.URL,
		Title:       it.Title,
		Score:       it.Score,
		Descendants: it.Descendants,
		Kids:        it.Kids,
		Parent:      it.Parent,
		Dead:        it.Dead,
		Deleted:     it.Deleted,
		Category:    it.Category,
		Context:     it.Context,
	}
	// Depth is only meaningful for comments; stories have no position in a
	// comment tree.
	if it.Type == "comment" {
		d := it.Depth
		w.Depth = &d
	}
	return marshalWithExtra(w, it.Extra)
}

type userWire struct {
	ID        string `json:"id"`
	Created   int64  `json:"created,omitempty"`
	Karma     int    `json:"karma,omitempty"`
	About     string `json:"about,omitempty"`
	Submitted []int  `json:"submitted,omitempty"`

	Context string `json:"hn_context,omitempty"`
}

var userKnownKeys = []string{"id", "created", "karma", "about", "submitted", "hn_context"}

func (u *User) UnmarshalJSON(data []byte) error {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range userKnownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*u = User{
		ID:        w.ID,
		Created:   w.Created,
		Karma:     w.Karma,
		About:     w.About,
		Submitted: w.Submitted,
		Extra:     raw,
		Context:   w.Context,
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	w := userWire{
		ID:        u.ID,
		Created:   u.Created,
		Karma:     u.Karma,
		About:     u.About,
		Submitted: u.Submitted,
		Context:   u.Context,
	}
	return marshalWithExtra(w, u.Extra)
}

// marshalWithExtra merges the typed wire struct with the opaque extra fields.
// Typed fields win on key collisions.
func marshalWithExtra(wire any, extra map[string]json.RawMessage) ([]byte, error) {
	typed, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return typed, nil
	}

	merged := make(map[string]json.RawMessage, len(extra)+16)
	for k, v := range extra {
		merged[k] = v
	}
	var typedMap map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedMap); err != nil {
		return nil, err
	}
	for k, v := range typedMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}
