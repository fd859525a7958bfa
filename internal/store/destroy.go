package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
)

// DestroySummary reports how many records each collection held before a
// destroy, including attachments.
type DestroySummary struct {
	Removed map[string]int64
}

// Destroy clears every collection and all attachments and resets every
// counter to 1. Irreversible.
func Destroy(ctx context.Context, sqldb *sql.DB) (*DestroySummary, error) {
	summary := &DestroySummary{Removed: make(map[string]int64)}

	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		for _, collection := range kv.Collections {
			n, err := kv.Count(ctx, tx, collection)
			if err != nil {
				return err
			}
			summary.Removed[collection] = n

			if err := kv.Clear(ctx, tx, collection); err != nil {
				return err
			}
			if err := ResetCounter(ctx, tx, collection, 1); err != nil {
				return err
			}
		}

		n, err := CountAttachments(ctx, tx)
		if err != nil {
			return err
		}
		summary.Removed["images"] = n
		return ClearAttachments(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
