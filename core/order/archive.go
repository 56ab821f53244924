package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"log/slog"

	"cookbot/core/logger"
)

// Submission captures everything recorded about a confirmed order.
type Submission struct {
	ChatID    int64
	Lines     []Line
	Total     decimal.Decimal
	Address   string
	Contact   string
	CreatedAt time.Time
}

// Archive persists confirmed orders to Postgres. Recording is best-effort:
// a failed insert is logged but never blocks the user-facing flow.
type Archive struct {
	db *sqlx.DB
}

// NewArchive wraps an open database handle.
func NewArchive(db *sqlx.DB) *Archive {
	return &Archive{db: db}
}

type archivedLine struct {
	DishID   string `json:"dish_id"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
	Subtotal string `json:"subtotal"`
}

// Record inserts one submitted order.
func (a *Archive) Record(ctx context.Context, sub Submission) error {
	if a == nil || a.db == nil {
		return nil
	}

	lines := make([]archivedLine, 0, len(sub.Lines))
	for _, l := range sub.Lines {
		lines = append(lines, archivedLine{
			DishID:   l.DishID,
			Quantity: l.Quantity,
			Unit:     l.Unit.StringFixed(2),
			Subtotal: l.Subtotal.StringFixed(2),
		})
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("order archive: marshal lines: %w", err)
	}

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	start := time.Now()
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO orders (chat_id, total, delivery_address, contact_info, lines, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sub.ChatID, sub.Total.StringFixed(2), sub.Address, sub.Contact, payload, createdAt,
	)
	if err != nil {
		logger.Error(ctx, "db", "order.archive",
			slog.Int64("chat_id", sub.ChatID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("order archive: insert: %w", err)
	}
	logger.Debug(ctx, "db", "order.archive",
		slog.Int64("chat_id", sub.ChatID),
		slog.String("total", sub.Total.StringFixed(2)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
