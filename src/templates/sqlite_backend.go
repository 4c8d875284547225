package templates

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS prompt_templates (
	category   TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const sqliteUpsert = `
INSERT INTO prompt_templates (category, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT(category) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

// SQLiteBackend keeps one row per category in a local SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// a single connection serializes writers at the driver level too.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create prompt_templates: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT category, body FROM prompt_templates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var category, body string
		if err := rows.Scan(&category, &body); err != nil {
			return nil, err
		}
		out[category] = body
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoSnapshot
	}
	return out, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, snapshot map[string]string, changed string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for category, body := range entriesToWrite(snapshot, changed) {
		if _, err := tx.ExecContext(ctx, sqliteUpsert, category, body, now); err != nil {
			return fmt.Errorf("upsert %s: %w", category, err)
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

// entriesToWrite narrows a snapshot to the changed entry when there is one.
func entriesToWrite(snapshot map[string]string, changed string) map[string]string {
	if changed == "" {
		return snapshot
	}
	body, ok := snapshot[changed]
	if !ok {
		return snapshot
	}
	return map[string]string{changed: body}
}
