package session

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresSnapshotter keeps the session mapping in the sessions table.
// Each snapshot replaces the table contents inside a transaction so a
// reader never observes a half-written mapping.
type PostgresSnapshotter struct {
	db *sqlx.DB
}

// NewPostgresSnapshotter wraps an open database handle.
func NewPostgresSnapshotter(db *sqlx.DB) *PostgresSnapshotter {
	return &PostgresSnapshotter{db: db}
}

type sessionRow struct {
	ChatID int64  `db:"chat_id"`
	State  string `db:"state"`
	Args   string `db:"args"`
}

// Save replaces the stored mapping with records.
func (p *PostgresSnapshotter) Save(ctx context.Context, records map[int64]Record) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session snapshot: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("session snapshot: clear: %w", err)
	}
	for id, rec := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (chat_id, state, args) VALUES ($1, $2, $3)`,
			id, string(rec.State), rec.Args,
		); err != nil {
			return fmt.Errorf("session snapshot: insert chat %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session snapshot: commit: %w", err)
	}
	return nil
}

// Load reads the full mapping. An empty table yields an empty mapping.
func (p *PostgresSnapshotter) Load(ctx context.Context) (map[int64]Record, error) {
	var rows []sessionRow
	if err := p.db.SelectContext(ctx, &rows, `SELECT chat_id, state, args FROM sessions`); err != nil {
		return nil, fmt.Errorf("session snapshot: select: %w", err)
	}
	out := make(map[int64]Record, len(rows))
	for _, r := range rows {
		out[r.ChatID] = Record{State: StateTag(r.State), Args: r.Args}
	}
	return out, nil
}
