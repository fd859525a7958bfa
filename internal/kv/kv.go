// Package kv implements the collection store: generic record access over
// the named JSON-document collections, usable both directly against the
// database and inside a transaction.
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/db"
)

// ErrDuplicateKey reports an insert-only write against a key that already
// exists in the collection.
var ErrDuplicateKey = errors.New("duplicate key")

// Record collections. Collection names are interpolated into SQL, so only
// names from this set are accepted.
const (
	Locations  = "locations"
	Categories = "categories"
	Owners     = "owners"
	Items      = "items"
)

// Collections lists all record collections in a fixed order.
var Collections = []string{Locations, Categories, Owners, Items}

var valid = map[string]bool{
	Locations:  true,
	Categories: true,
	Owners:     true,
	Items:      true,
}

// Row is a single stored record: its numeric key and the raw JSON document.
type Row struct {
	Key  int64
	Data []byte
}

func table(collection string) (string, error) {
	if !valid[collection] {
		return "", fmt.Errorf("unknown collection %q", collection)
	}
	return collection, nil
}

// GetAll returns every record in the collection in ascending key order.
func GetAll(ctx context.Context, q db.Querier, collection string) ([]Row, error) {
	t, err := table(collection)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `SELECT id, data FROM `+t+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Data); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", collection, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Get returns the record stored under key, or nil if absent.
func Get(ctx context.Context, q db.Querier, collection string, key int64) ([]byte, error) {
	t, err := table(collection)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = q.QueryRowContext(ctx, `SELECT data FROM `+t+` WHERE id = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s[%d]: %w", collection, key, err)
	}
	return data, nil
}

// Put inserts or replaces the record under key.
func Put(ctx context.Context, q db.Querier, collection string, key int64, data []byte) error {
	t, err := table(collection)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO `+t+` (id, data) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("putting %s[%d]: %w", collection, key, err)
	}
	return nil
}

// Add inserts the record under key, failing with ErrDuplicateKey if the key
// is already present.
func Add(ctx context.Context, q db.Querier, collection string, key int64, data []byte) error {
	t, err := table(collection)
	if err != nil {
		return err
	}

	// Driver-agnostic insert-only: the SELECT guard makes a duplicate key
	// show up as zero affected rows instead of a constraint error.
	res, err := q.ExecContext(ctx,
		`INSERT INTO `+t+` (id, data)
		 SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM `+t+` WHERE id = ?)`,
		key, data, key,
	)
	if err != nil {
		return fmt.Errorf("adding %s[%d]: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adding %s[%d]: %w", collection, key, err)
	}
	if n == 0 {
		return fmt.Errorf("adding %s[%d]: %w", collection, key, ErrDuplicateKey)
	}
	return nil
}

// Delete removes the record under key. Deleting an absent key is not an
// error.
func Delete(ctx context.Context, q db.Querier, collection string, key int64) error {
	t, err := table(collection)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = ?`, key); err != nil {
		return fmt.Errorf("deleting %s[%d]: %w", collection, key, err)
	}
	return nil
}

// Clear removes every record in the collection.
func Clear(ctx context.Context, q db.Querier, collection string) error {
	t, err := table(collection)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM `+t); err != nil {
		return fmt.Errorf("clearing %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func Count(ctx context.Context, q db.Querier, collection string) (int64, error) {
	t, err := table(collection)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}
