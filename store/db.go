package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the corpus database and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// WAL mode allows concurrent readers with a single writer.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("database ready", "path", path)
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			id          INTEGER PRIMARY KEY,
			title       TEXT NOT NULL,
			url         TEXT,
			text        TEXT,
			by          TEXT,
			time        INTEGER NOT NULL DEFAULT 0,
			score       INTEGER NOT NULL DEFAULT 0,
			descendants INTEGER NOT NULL DEFAULT 0,
			category    TEXT NOT NULL,
			run_id      TEXT NOT NULL,
			fetched_at  INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER PRIMARY KEY,
			parent_id  INTEGER,
			by         TEXT,
			text       TEXT,
			time       INTEGER NOT NULL DEFAULT 0,
			category   TEXT NOT NULL,
			context    TEXT NOT NULL DEFAULT '',
			depth      INTEGER NOT NULL DEFAULT 0,
			run_id     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);

		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			karma      INTEGER NOT NULL DEFAULT 0,
			created    INTEGER NOT NULL DEFAULT 0,
			about      TEXT,
			context    TEXT NOT NULL DEFAULT '',
			run_id     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chunks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id    TEXT NOT NULL,
			item_type  TEXT NOT NULL,
			category   TEXT,
			author     TEXT,
			seq        INTEGER NOT NULL,
			content    TEXT NOT NULL,
			embedding  BLOB NOT NULL,
			dim        INTEGER NOT NULL,
			run_id     TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_item ON chunks(item_id);
		CREATE INDEX IF NOT EXISTS idx_chunks_run ON chunks(run_id);
	`)
	return err
}
