package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/model"
)

// Allocate reserves the next numeric id for the entity type and mints a
// fresh UUID. It must be called inside the transaction that inserts the
// record consuming the identity; a counter may still advance past a failed
// insert, which is fine since ids need only be unique, not contiguous.
func Allocate(ctx context.Context, q db.Querier, entity string) (int64, string, error) {
	var next int64
	err := q.QueryRowContext(ctx,
		`SELECT next_id FROM counters WHERE entity = ?`, entity,
	).Scan(&next)
	if err == sql.ErrNoRows {
		next = 1
	} else if err != nil {
		return 0, "", fmt.Errorf("reading counter for %s: %w", entity, err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO counters (entity, next_id) VALUES (?, ?)
		 ON CONFLICT(entity) DO UPDATE SET next_id = excluded.next_id`,
		entity, next+1,
	)
	if err != nil {
		return 0, "", fmt.Errorf("advancing counter for %s: %w", entity, err)
	}

	return next, uuid.NewString(), nil
}

// ResetCounter overwrites the counter for the entity type. Destroy resets
// to 1; import sets max(observed numeric ids)+1.
func ResetCounter(ctx context.Context, q db.Querier, entity string, next int64) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO counters (entity, next_id) VALUES (?, ?)
		 ON CONFLICT(entity) DO UPDATE SET next_id = excluded.next_id`,
		entity, next,
	)
	if err != nil {
		return fmt.Errorf("resetting counter for %s: %w", entity, err)
	}
	return nil
}

// NextID returns the counter value for the entity type without advancing
// it, defaulting to 1 if no counter record exists.
func NextID(ctx context.Context, q db.Querier, entity string) (int64, error) {
	var next int64
	err := q.QueryRowContext(ctx,
		`SELECT next_id FROM counters WHERE entity = ?`, entity,
	).Scan(&next)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading counter for %s: %w", entity, err)
	}
	return next, nil
}

// ListCounters returns every counter record in entity order.
func ListCounters(ctx context.Context, q db.Querier) ([]model.Counter, error) {
	rows, err := q.QueryContext(ctx, `SELECT entity, next_id FROM counters ORDER BY entity`)
	if err != nil {
		return nil, fmt.Errorf("listing counters: %w", err)
	}
	defer rows.Close()

	var counters []model.Counter
	for rows.Next() {
		var c model.Counter
		if err := rows.Scan(&c.Entity, &c.NextID); err != nil {
			return nil, fmt.Errorf("scanning counter: %w", err)
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}
