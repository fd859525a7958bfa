package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// Upload is an incoming attachment file.
type Upload struct {
	Data     []byte
	Filename string
	MIME     string
}

// PutAttachment stores (or replaces) the attachment under the owning
// item's numeric id. No history is kept.
func PutAttachment(ctx context.Context, q db.Querier, itemID int64, data []byte, filename, mime string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO images (item_id, data, filename, mime, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
		     data = excluded.data, filename = excluded.filename,
		     mime = excluded.mime, created_at = excluded.created_at`,
		itemID, data, filename, mime, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing attachment for item %d: %w", itemID, err)
	}
	return nil
}

// GetAttachment returns the attachment stored under the item's numeric id,
// or nil if absent.
func GetAttachment(ctx context.Context, q db.Querier, itemID int64) (*model.Image, error) {
	img := &model.Image{ItemID: itemID}
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT data, filename, mime, created_at FROM images WHERE item_id = ?`, itemID,
	).Scan(&img.Data, &img.Filename, &img.MIME, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment for item %d: %w", itemID, err)
	}
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		img.CreatedAt = t
	}
	return img, nil
}

// DeleteAttachment removes the attachment under the item's numeric id.
// Absence is not an error.
func DeleteAttachment(ctx context.Context, q db.Querier, itemID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM images WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("deleting attachment for item %d: %w", itemID, err)
	}
	return nil
}

// ResolveImageByUUID finds the attachment whose owning item carries the
// given image uuid, or nil if no item does. Attachments are keyed by the
// item's numeric id, so resolution is a two-hop lookup: scan items for the
// matching uuid, then fetch under that item's id.
func ResolveImageByUUID(ctx context.Context, q db.Querier, imageUUID string) (*model.Image, error) {
	rows, err := kv.GetAll(ctx, q, kv.Items)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		var item model.Item
		if err := json.Unmarshal(r.Data, &item); err != nil {
			return nil, fmt.Errorf("decoding items[%d]: %w", r.Key, err)
		}
		if item.ImageUUID != nil && *item.ImageUUID == imageUUID {
			return GetAttachment(ctx, q, item.ID)
		}
	}
	return nil, nil
}

// CountAttachments returns the number of stored attachments.
func CountAttachments(ctx context.Context, q db.Querier) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting attachments: %w", err)
	}
	return n, nil
}

// ClearAttachments removes every stored attachment.
func ClearAttachments(ctx context.Context, q db.Querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM images`); err != nil {
		return fmt.Errorf("clearing attachments: %w", err)
	}
	return nil
}
