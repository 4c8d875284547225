package templates

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS prompt_templates (
	category   TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend keeps one row per category in Postgres.
type PostgresBackend struct {
	DB *pgxpool.Pool
}

// NewPostgresBackend connects to connStr and ensures the table exists.
func NewPostgresBackend(ctx context.Context, connStr string) (*PostgresBackend, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping Postgres: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create prompt_templates: %w", err)
	}
	return &PostgresBackend{DB: db}, nil
}

func (b *PostgresBackend) Load(ctx context.Context) (map[string]string, error) {
	rows, err := b.DB.Query(ctx, `SELECT category, body FROM prompt_templates`)
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

func (b *PostgresBackend) Save(ctx context.Context, snapshot map[string]string, changed string) error {
	batch := &pgx.Batch{}
	for category, body := range entriesToWrite(snapshot, changed) {
		batch.Queue(`
                INSERT INTO prompt_templates (category, body, updated_at)
                VALUES ($1, $2, now())
                ON CONFLICT (category) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
        `, category, body)
	}

	return pgx.BeginFunc(ctx, b.DB, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (b *PostgresBackend) Close() error {
	if b.DB != nil {
		b.DB.Close()
	}
	return nil
}
