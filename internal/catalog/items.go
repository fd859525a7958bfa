package catalog

import (
	"context"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ImageUpload is an incoming item image. MIME may be empty; the stored
// type is always the sniffed one.
type ImageUpload struct {
	Data     []byte
	Filename string
}

func toUpload(u *ImageUpload) (*store.Upload, error) {
	if u == nil {
		return nil, nil
	}
	mime, err := imaging.Validate(u.Data)
	if err != nil {
		return nil, err
	}
	return &store.Upload{Data: u.Data, Filename: u.Filename, MIME: mime}, nil
}

// ListItems returns all items.
func (c *Catalog) ListItems(ctx context.Context) ([]model.Item, error) {
	return store.ListItems(ctx, c.db)
}

// AddItem creates an item; with an upload it also stores the attachment
// and returns the minted image uuid.
func (c *Catalog) AddItem(ctx context.Context, f store.ItemFields, upload *ImageUpload) Result {
	if f.Name == "" {
		return Result{Reason: "name required"}
	}
	up, err := toUpload(upload)
	if err != nil {
		return Result{Reason: err.Error()}
	}

	item, err := store.CreateItem(ctx, c.db, f, up)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: item.ID, UUID: item.UUID, ImageUUID: item.ImageUUID}
}

// UpdateItem updates an item's fields. A new upload replaces the
// attachment under a fresh image uuid; removeImage deletes it.
func (c *Catalog) UpdateItem(ctx context.Context, id int64, f store.ItemFields, upload *ImageUpload, removeImage bool) Result {
	if f.Name == "" {
		return Result{Reason: "name required"}
	}
	up, err := toUpload(upload)
	if err != nil {
		return Result{Reason: err.Error()}
	}

	item, err := store.UpdateItem(ctx, c.db, id, f, up, removeImage)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: item.ID, UUID: item.UUID, ImageUUID: item.ImageUUID}
}

// DeleteItem deletes an item and its attachment.
func (c *Catalog) DeleteItem(ctx context.Context, id int64) Result {
	if err := store.DeleteItem(ctx, c.db, id); err != nil {
		return failure(err)
	}
	return Result{Success: true, ID: id}
}

// GetImage returns the attachment bytes and MIME type for an image uuid,
// or nil when no item carries that uuid.
func (c *Catalog) GetImage(ctx context.Context, imageUUID string) ([]byte, string, error) {
	img, err := store.ResolveImageByUUID(ctx, c.db, imageUUID)
	if err != nil {
		return nil, "", err
	}
	if img == nil {
		return nil, "", nil
	}
	return img.Data, img.MIME, nil
}

// GetImageThumbnail returns a JPEG thumbnail of the attachment, no larger
// than maxDim in either dimension. Stored bytes are never modified.
func (c *Catalog) GetImageThumbnail(ctx context.Context, imageUUID string, maxDim int) ([]byte, error) {
	img, err := store.ResolveImageByUUID(ctx, c.db, imageUUID)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	return imaging.Thumbnail(img.Data, maxDim)
}

// Destroy clears all data collections and resets counters to 1. The result
// carries per-collection removal counts.
func (c *Catalog) Destroy(ctx context.Context) (Result, map[string]int64) {
	summary, err := store.Destroy(ctx, c.db)
	if err != nil {
		return failure(err), nil
	}
	return Result{Success: true}, summary.Removed
}
