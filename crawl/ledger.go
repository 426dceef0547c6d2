package crawl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Ledger is the cross-run set of already-processed item ids, persisted as a
// JSON list. Story and comment ids are decimal strings, user ids are
// usernames. A single crawl process owns the file at a time.
type Ledger struct {
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// ItemKey is the ledger key for a story or comment id.
func ItemKey(id int) string {
	return strconv.Itoa(id)
}

// Load reads the persisted id set. A missing or unreadable file degrades to
// an empty set: the cost of losing the ledger is re-fetching, never a crash.
func (l *Ledger) Load() map[string]struct{} {
	ids := make(map[string]struct{})

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("ledger unreadable, treating as empty", "path", l.path, "error", err)
		}
		return ids
	}

	// Older ledgers stored numeric ids as JSON numbers, so decode loosely.
	var entries []any
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("ledger corrupt, treating as empty", "path", l.path, "error", err)
		return ids
	}

	for _, e := range entries {
		switch v := e.(type) {
		case string:
			ids[v] = struct{}{}
		case float64:
			ids[strconv.FormatInt(int64(v), 10)] = struct{}{}
		}
	}
	return ids
}

// Save persists the id set, fully overwriting the prior state. The write is
// atomic so a crash mid-save cannot leave a corrupt ledger behind.
func (l *Ledger) Save(ids map[string]struct{}) error {
	entries := make([]string, 0, len(ids))
	for id := range ids {
		entries = append(entries, id)
	}
	sort.Strings(entries)

	if err := writeJSONAtomic(l.path, entries); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// writeJSONAtomic writes v as indented JSON via a temp file and rename.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
