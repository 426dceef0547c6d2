package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// Categories is the fixed set of listing endpoints exposed by the API, in the
// order the crawler processes them.
var Categories = []string{
	"topstories",
	"newstories",
	"beststories",
	"askstories",
	"showstories",
	"jobstories",
}

// Client is a thin JSON fetcher for the Hacker News API. It does no retrying
// or caching; transport failures surface as errors and the caller decides
// what to do with them.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient() *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
	}
}

// NewClientWithBaseURL points the client at an alternate API root.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// ListCategoryIDs returns the item ids listed by a category endpoint.
func (c *Client) ListCategoryIDs(ctx context.Context, category string) ([]int, error) {
	if !validCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	var ids []int
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.baseURL, category), &ids)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category, err)
	}
	if !ok {
		return nil, nil
	}
	return ids, nil
}

// GetItem fetches a single item by id. A missing item (the API returns the
// JSON literal null) yields (nil, nil); only transport and decode failures
// are errors.
func (c *Client) GetItem(ctx context.Context, id int) (*Item, error) {
	var item Item
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &item)
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}
	if !ok || item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// GetUser fetches a user profile by username, with the same null-vs-error
// contract as GetItem.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	var user User
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/user/%s.json", c.baseURL, username), &user)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", username, err)
	}
	if !ok || user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// getJSON fetches a URL and decodes the body into v. It returns false when
// the body is the JSON literal null.
func (c *Client) getJSON(ctx context.Context, url string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read body: %w", err)
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return false, nil
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
