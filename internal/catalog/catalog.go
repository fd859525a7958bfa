// Package catalog exposes the entity operations the UI calls: CRUD per
// entity type, item image handling and bulk destroy. Storage-layer
// failures are converted into uniform results; callers never receive a raw
// lower-level error.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ErrorCodeEntityInUse marks a delete blocked by the referential guard.
const ErrorCodeEntityInUse = "ENTITY_IN_USE"

// Catalog wraps the store with the UI-facing operation contract.
type Catalog struct {
	db *sql.DB
}

// New returns a Catalog over the given database.
func New(sqldb *sql.DB) *Catalog {
	return &Catalog{db: sqldb}
}

// Result is the uniform outcome of a mutating operation.
type Result struct {
	Success   bool    `json:"success"`
	ID        int64   `json:"id,omitempty"`
	UUID      string  `json:"uuid,omitempty"`
	ImageUUID *string `json:"image_uuid,omitempty"`
	ErrorCode string  `json:"errorCode,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// EntityFields are the caller-supplied fields of a location, category or
// owner.
type EntityFields struct {
	Name        string
	Description *string
}

func failure(err error) Result {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return Result{Reason: "not found"}
	case errors.Is(err, store.ErrEntityInUse):
		return Result{ErrorCode: ErrorCodeEntityInUse, Reason: "entity is referenced by an item"}
	default:
		return Result{Reason: err.Error()}
	}
}

func (c *Catalog) addEntity(ctx context.Context, collection string, f EntityFields) Result {
	if f.Name == "" {
		return Result{Reason: "name required"}
	}
	e, err := store.CreateEntity(ctx, c.db, collection, f.Name, f.Description)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: e.ID, UUID: e.UUID}
}

func (c *Catalog) updateEntity(ctx context.Context, collection string, id int64, f EntityFields) Result {
	if f.Name == "" {
		return Result{Reason: "name required"}
	}
	e, err := store.UpdateEntity(ctx, c.db, collection, id, f.Name, f.Description)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: e.ID, UUID: e.UUID}
}

func (c *Catalog) deleteEntity(ctx context.Context, collection string, id int64) Result {
	if err := store.DeleteEntity(ctx, c.db, collection, id); err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: id}
}

// ListLocations returns all locations.
func (c *Catalog) ListLocations(ctx context.Context) ([]model.Entity, error) {
	return store.ListEntities(ctx, c.db, kv.Locations)
}

// AddLocation creates a location.
func (c *Catalog) AddLocation(ctx context.Context, f EntityFields) Result {
	return c.addEntity(ctx, kv.Locations, f)
}

// UpdateLocation updates a location's fields.
func (c *Catalog) UpdateLocation(ctx context.Context, id int64, f EntityFields) Result {
	return c.updateEntity(ctx, kv.Locations, id, f)
}

// DeleteLocation deletes a location unless an item references it.
func (c *Catalog) DeleteLocation(ctx context.Context, id int64) Result {
	return c.deleteEntity(ctx, kv.Locations, id)
}

// ListCategories returns all categories.
func (c *Catalog) ListCategories(ctx context.Context) ([]model.Entity, error) {
	return store.ListEntities(ctx, c.db, kv.Categories)
}

// AddCategory creates a category.
func (c *Catalog) AddCategory(ctx context.Context, f EntityFields) Result {
	return c.addEntity(ctx, kv.Categories, f)
}

// UpdateCategory updates a category's fields.
func (c *Catalog) UpdateCategory(ctx context.Context, id int64, f EntityFields) Result {
	return c.updateEntity(ctx, kv.Categories, id, f)
}

// DeleteCategory deletes a category unless an item references it.
func (c *Catalog) DeleteCategory(ctx context.Context, id int64) Result {
	return c.deleteEntity(ctx, kv.Categories, id)
}

// ListOwners returns all owners.
func (c *Catalog) ListOwners(ctx context.Context) ([]model.Entity, error) {
	return store.ListEntities(ctx, c.db, kv.Owners)
}

// AddOwner creates an owner.
func (c *Catalog) AddOwner(ctx context.Context, f EntityFields) Result {
	return c.addEntity(ctx, kv.Owners, f)
}

// UpdateOwner updates an owner's fields.
func (c *Catalog) UpdateOwner(ctx context.Context, id int64, f EntityFields) Result {
	return c.updateEntity(ctx, kv.Owners, id, f)
}

// DeleteOwner deletes an owner unless an item references it.
func (c *Catalog) DeleteOwner(ctx context.Context, id int64) Result {
	return c.deleteEntity(ctx, kv.Owners, id)
}
