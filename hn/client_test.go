package hn_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"hnrag/hn"
)

func newTestServer(t *testing.T) *hn.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	})
	mux.HandleFunc("/item/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "type": "story", "by": "alice", "title": "Hello", "kids": [10, 11]}`))
	})
	mux.HandleFunc("/item/99.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	mux.HandleFunc("/item/500.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/user/alice.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "alice", "karma": 42, "created": 1160418092}`))
	})
	mux.HandleFunc("/user/ghost.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hn.NewClientWithBaseURL(srv.URL)
}

func TestListCategoryIDs(t *testing.T) {
	client := newTestServer(t)

	ids, err := client.ListCategoryIDs(context.Background(), "topstories")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, ids)
}

func TestListCategoryIDsUnknownCategory(t *testing.T) {
	client := newTestServer(t)

	_, err := client.ListCategoryIDs(context.Background(), "weirdstories")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown category")
}

func TestGetItem(t *testing.T) {
	client := newTestServer(t)

	item, err := client.GetItem(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, 1, item.ID)
	require.Equal(t, "story", item.Type)
	require.Equal(t, []int{10, 11}, item.Kids)
}

func TestGetItemMissingReturnsNil(t *testing.T) {
	client := newTestServer(t)

	item, err := client.GetItem(context.Background(), 99)
	require.NoError(t, err)
	require.Nil(t, item)
}

func TestGetItemServerError(t *testing.T) {
	client := newTestServer(t)

	_, err := client.GetItem(context.Background(), 500)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 500")
}

func TestGetUser(t *testing.T) {
	client := newTestServer(t)

	user, err := client.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "alice", user.ID)
	require.Equal(t, 42, user.Karma)
}

func TestGetUserMissingReturnsNil(t *testing.T) {
	client := newTestServer(t)

	user, err := client.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, user)
}
