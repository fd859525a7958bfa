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

// itemForeignKey returns the item field referencing the given collection.
func itemForeignKey(collection string, item *model.Item) (int64, error) {
	switch collection {
	case kv.Locations:
		return item.LocationID, nil
	case kv.Categories:
		return item.CategoryID, nil
	case kv.Owners:
		return item.OwnerID, nil
	}
	return 0, fmt.Errorf("collection %q is not referenced by items", collection)
}

// CreateEntity creates a location, category or owner with a freshly
// allocated numeric id and UUID.
func CreateEntity(ctx context.Context, sqldb *sql.DB, collection, name string, description *string) (*model.Entity, error) {
	e := &model.Entity{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		id, uid, err := Allocate(ctx, tx, collection)
		if err != nil {
			return err
		}
		e.ID = id
		e.UUID = uid

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", collection, err)
		}
		return kv.Add(ctx, tx, collection, id, data)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntity returns the entity by numeric id, or nil if absent.
func GetEntity(ctx context.Context, q db.Querier, collection string, id int64) (*model.Entity, error) {
	data, err := kv.Get(ctx, q, collection, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	e := &model.Entity{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding %s[%d]: %w", collection, id, err)
	}
	return e, nil
}

// ListEntities returns all entities in the collection in id order.
func ListEntities(ctx context.Context, q db.Querier, collection string) ([]model.Entity, error) {
	rows, err := kv.GetAll(ctx, q, collection)
	if err != nil {
		return nil, err
	}

	entities := make([]model.Entity, 0, len(rows))
	for _, r := range rows {
		var e model.Entity
		if err := json.Unmarshal(r.Data, &e); err != nil {
			return nil, fmt.Errorf("decoding %s[%d]: %w", collection, r.Key, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// UpdateEntity merges new field values into an existing entity. Numeric id,
// UUID and created_at are preserved; updated_at is refreshed.
func UpdateEntity(ctx context.Context, sqldb *sql.DB, collection string, id int64, name string, description *string) (*model.Entity, error) {
	var updated *model.Entity

	err := db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		e, err := GetEntity(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if e == nil {
			return fmt.Errorf("%s[%d]: %w", collection, id, ErrNotFound)
		}

		e.Name = name
		e.Description = description
		now := time.Now().UTC()
		e.UpdatedAt = &now

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", collection, err)
		}
		if err := kv.Put(ctx, tx, collection, id, data); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEntity removes a location, category or owner. It fails with
// ErrEntityInUse if any item still references the entity, and with
// ErrNotFound if the id is unknown. The reference check is a full item
// scan; dataset sizes are bounded by single-user local usage.
func DeleteEntity(ctx context.Context, sqldb *sql.DB, collection string, id int64) error {
	return db.WithTx(ctx, sqldb, func(ctx context.Context, tx db.Querier) error {
		existing, err := kv.Get(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%s[%d]: %w", collection, id, ErrNotFound)
		}

		items, err := ListItems(ctx, tx)
		if err != nil {
			return err
		}
		for i := range items {
			ref, err := itemForeignKey(collection, &items[i])
			if err != nil {
				return err
			}
			if ref == id {
				return fmt.Errorf("%s[%d] referenced by item %d: %w",
					collection, id, items[i].ID, ErrEntityInUse)
			}
		}

		return kv.Delete(ctx, tx, collection, id)
	})
}
