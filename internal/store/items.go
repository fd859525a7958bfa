package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// ItemFields are the caller-supplied fields of an item. Identity and
// timestamps are store-assigned.
type ItemFields struct {
	Name        string
	Description *string
	LocationID  int64
	CategoryID  int64
	OwnerID     int64
	Price       *float64
}

// checkItemRefs verifies that every referenced entity exists.
func checkItemRefs(ctx context.Context, q db.Querier, f ItemFields) error {
	refs := []struct {
		collection string
		id         int64
	}{
		{kv.Locations, f.LocationID},
		{kv.Categories, f.CategoryID},
		{kv.Owners, f.OwnerID},
	}
	for _, ref := range refs {
		data, err := kv.Get(ctx, q, ref.collection, ref.id)
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("%s[%d]: %w", ref.collection, ref.id, ErrNotFound)
		}
	}
	return nil
}

// CreateItem creates an item with a freshly allocated identity. If an
// upload is supplied, an image uuid is minted and the attachment stored in
// the same transaction; otherwise image_uuid stays null.
func CreateItem(ctx context.Context, sqldb *sql.DB, fields ItemFields, upload *Upload) (*model.Item, error) {
	item := &model.Item{
		Name:        fields.Name,
		Description: fields.Description,
		LocationID:  fields.LocationID,
		CategoryID:  fields.CategoryID,
		OwnerID:     fields.OwnerID,
		Price:       fields.Price,
		CreatedAt:   time.Now().UTC(),
	}

	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		if err := checkItemRefs(ctx, tx, fields); err != nil {
			return err
		}

		id, uid, err := Allocate(ctx, tx, kv.Items)
		if err != nil {
			return err
		}
		item.ID = id
		item.UUID = uid

		if upload != nil {
			imageUUID := uuid.NewString()
			item.ImageUUID = &imageUUID
			if err := PutAttachment(ctx, tx, id, upload.Data, upload.Filename, upload.MIME); err != nil {
				return err
			}
		}

		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding item record: %w", err)
		}
		return kv.Add(ctx, tx, kv.Items, id, data)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns the item by numeric id, or nil if absent.
func GetItem(ctx context.Context, q db.Querier, id int64) (*model.Item, error) {
	data, err := kv.Get(ctx, q, kv.Items, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	item := &model.Item{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("decoding items[%d]: %w", id, err)
	}
	return item, nil
}

// ListItems returns all items in id order.
func ListItems(ctx context.Context, q db.Querier) ([]model.Item, error) {
	rows, err := kv.GetAll(ctx, q, kv.Items)
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		var item model.Item
		if err := json.Unmarshal(r.Data, &item); err != nil {
			return nil, fmt.Errorf("decoding items[%d]: %w", r.Key, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// UpdateItem merges new field values into an existing item. Numeric id,
// UUID and created_at are preserved; updated_at is refreshed. A new upload
// mints a fresh image uuid and unconditionally replaces the attachment;
// removeImage clears the uuid and deletes the attachment; with neither,
// the existing attachment and uuid are untouched.
func UpdateItem(ctx context.Context, sqldb *sql.DB, id int64, fields ItemFields, upload *Upload, removeImage bool) (*model.Item, error) {
	var updated *model.Item

	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		item, err := GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("items[%d]: %w", id, ErrNotFound)
		}

		if err := checkItemRefs(ctx, tx, fields); err != nil {
			return err
		}

		item.Name = fields.Name
		item.Description = fields.Description
		item.LocationID = fields.LocationID
		item.CategoryID = fields.CategoryID
		item.OwnerID = fields.OwnerID
		item.Price = fields.Price
		now := time.Now().UTC()
		item.UpdatedAt = &now

		switch {
		case upload != nil:
			imageUUID := uuid.NewString()
			item.ImageUUID = &imageUUID
			if err := PutAttachment(ctx, tx, id, upload.Data, upload.Filename, upload.MIME); err != nil {
				return err
			}
		case removeImage:
			item.ImageUUID = nil
			if err := DeleteAttachment(ctx, tx, id); err != nil {
				return err
			}
		}

		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding item record: %w", err)
		}
		if err := kv.Put(ctx, tx, kv.Items, id, data); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes an item and its attachment in one transaction. Items
// are leaves in the reference graph, so no integrity guard applies.
func DeleteItem(ctx context.Context, sqldb *sql.DB, id int64) error {
	return db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		existing, err := kv.Get(ctx, tx, kv.Items, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("items[%d]: %w", id, ErrNotFound)
		}

		if err := DeleteAttachment(ctx, tx, id); err != nil {
			return err
		}
		return kv.Delete(ctx, tx, kv.Items, id)
	})
}
