package crawl

import (
	"fmt"

	"hnrag/hn"
)

// Config bounds a crawl. Every limit maps to a knob the tree expansion
// consults: StoriesPerCategory caps root ids, MaxCommentDepth bounds
// recursion, MaxTopComments / MaxChildComments bound per-node fan-out, and
// BatchSize caps concurrent fetches.
type Config struct {
	Categories         []string
	StoriesPerCategory int
	MaxCommentDepth    int
	MaxTopComments     int
	MaxChildComments   int
	BatchSize          int
}

func DefaultConfig() Config {
	return Config{
		Categories:         hn.Categories,
		StoriesPerCategory: 10,
		MaxCommentDepth:    3,
		MaxTopComments:     5,
		MaxChildComments:   3,
		BatchSize:          20,
	}
}

func (c Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if c.StoriesPerCategory <= 0 {
		return fmt.Errorf("stories per category must be positive, got %d", c.StoriesPerCategory)
	}
	if c.MaxCommentDepth < 0 {
		return fmt.Errorf("max comment depth must be non-negative, got %d", c.MaxCommentDepth)
	}
	if c.MaxTopComments < 0 || c.MaxChildComments < 0 {
		return fmt.Errorf("comment fan-out limits must be non-negative")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}
