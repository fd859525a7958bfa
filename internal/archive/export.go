package archive

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/tabular"
)

// Export walks every collection and attachment and writes a complete
// archive to w. Any failure aborts the export; no partial archive is a
// valid result. Reads run outside a write transaction, so concurrent
// writes during export may produce a mixed-state archive.
func Export(ctx context.Context, sqldb *sql.DB, w io.Writer) error {
	zw := zip.NewWriter(w)

	manifest := Manifest{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Source:     manifestSource,
	}
	if err := writeManifest(zw, manifest); err != nil {
		return err
	}

	tables := []struct {
		collection string
		name       string
	}{
		{kv.Locations, locationsTable},
		{kv.Categories, categoriesTable},
		{kv.Owners, ownersTable},
	}
	for _, t := range tables {
		entities, err := store.ListEntities(ctx, sqldb, t.collection)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", t.collection, err)
		}
		if err := writeEntityTable(zw, t.name, entities); err != nil {
			return err
		}
	}

	items, err := store.ListItems(ctx, sqldb)
	if err != nil {
		return fmt.Errorf("exporting items: %w", err)
	}
	if err := writeItems(ctx, sqldb, zw, items); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func writeManifest(zw *zip.Writer, m Manifest) error {
	f, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	if err := json.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return nil
}

func writeTable(zw *zip.Writer, name string, t tabular.Table) error {
	data, err := tabular.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func writeEntityTable(zw *zip.Writer, name string, entities []model.Entity) error {
	t := tabular.Table{Columns: entityColumns}
	for _, e := range entities {
		t.Rows = append(t.Rows, map[string]any{
			"id":          e.ID,
			"uuid":        e.UUID,
			"name":        e.Name,
			"description": nullableString(e.Description),
			"created_at":  e.CreatedAt.Format(time.RFC3339),
			"updated_at":  nullableTime(e.UpdatedAt),
		})
	}
	return writeTable(zw, name, t)
}

// writeItems encodes the item table, the image index table and the staged
// attachment bytes. The within-archive image filename is derived from the
// item's numeric id and the attachment's original extension.
func writeItems(ctx context.Context, sqldb *sql.DB, zw *zip.Writer, items []model.Item) error {
	itemTable := tabular.Table{Columns: itemColumns}
	indexTable := tabular.Table{Columns: imageIndexColumns}

	for i := range items {
		item := &items[i]
		row := map[string]any{
			"id":                      item.ID,
			"uuid":                    item.UUID,
			"name":                    item.Name,
			"description":             nullableString(item.Description),
			"location_id":             item.LocationID,
			"category_id":             item.CategoryID,
			"price":                   nullableFloat(item.Price),
			"owner_id":                item.OwnerID,
			"image_id":                nil,
			"image_uuid":              nullableString(item.ImageUUID),
			"image_archive_filename":  nil,
			"image_original_filename": nil,
			"created_at":              item.CreatedAt.Format(time.RFC3339),
			"updated_at":              nullableTime(item.UpdatedAt),
		}

		if item.ImageUUID != nil {
			att, err := store.GetAttachment(ctx, sqldb, item.ID)
			if err != nil {
				return err
			}
			if att == nil {
				return fmt.Errorf("item %d declares image %s but has no attachment",
					item.ID, *item.ImageUUID)
			}

			archiveName := fmt.Sprintf("%d%s", item.ID, attachmentExt(att))
			f, err := zw.Create(imagesDir + archiveName)
			if err != nil {
				return fmt.Errorf("creating attachment %s: %w", archiveName, err)
			}
			if _, err := f.Write(att.Data); err != nil {
				return fmt.Errorf("writing attachment %s: %w", archiveName, err)
			}

			row["image_id"] = item.ID
			row["image_archive_filename"] = archiveName
			row["image_original_filename"] = att.Filename

			indexTable.Rows = append(indexTable.Rows, map[string]any{
				"image_id":       item.ID,
				"uuid":           *item.ImageUUID,
				"image_mimetype": att.MIME,
				"image_filename": att.Filename,
				"created_at":     att.CreatedAt.Format(time.RFC3339),
			})
		}

		itemTable.Rows = append(itemTable.Rows, row)
	}

	if err := writeTable(zw, itemsTable, itemTable); err != nil {
		return err
	}
	return writeTable(zw, imagesTable, indexTable)
}

// attachmentExt picks a file extension for the staged attachment: the
// original filename's extension if it has one, else one guessed from the
// MIME type, else ".bin".
func attachmentExt(att *model.Image) string {
	if ext := path.Ext(att.Filename); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(att.MIME); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
