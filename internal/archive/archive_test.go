package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/store"
)

func populate(t *testing.T, database *sql.DB) (itemUUID, imageUUID string, imageData []byte) {
	t.Helper()
	ctx := context.Background()

	desc := "hallway closet"
	if _, err := store.CreateEntity(ctx, database, kv.Locations, "Closet", &desc); err != nil {
		t.Fatalf("seeding location: %v", err)
	}
	if _, err := store.CreateEntity(ctx, database, kv.Categories, "Clothes", nil); err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	if _, err := store.CreateEntity(ctx, database, kv.Owners, "Ana", nil); err != nil {
		t.Fatalf("seeding owner: %v", err)
	}

	imageData = []byte("jpeg bytes, allegedly")
	price := 24.90
	item, err := store.CreateItem(ctx, database, store.ItemFields{
		Name: "Shirt", LocationID: 1, CategoryID: 1, OwnerID: 1, Price: &price,
	}, &store.Upload{Data: imageData, Filename: "shirt.jpg", MIME: "image/jpeg"})
	if err != nil {
		t.Fatalf("seeding item: %v", err)
	}

	// A second item without an image.
	if _, err := store.CreateItem(ctx, database, store.ItemFields{
		Name: "Plain, \"odd\" name", LocationID: 1, CategoryID: 1, OwnerID: 1,
	}, nil); err != nil {
		t.Fatalf("seeding second item: %v", err)
	}

	return item.UUID, *item.ImageUUID, imageData
}

func TestExportImportRoundTrip(t *testing.T) {
	source := db.NewTestDB(t)
	ctx := context.Background()
	itemUUID, imageUUID, imageData := populate(t, source)

	var buf bytes.Buffer
	if err := Export(ctx, source, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	target := db.NewTestDB(t)
	summary, err := Import(ctx, target, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(summary.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", summary.Warnings)
	}
	if summary.Locations != 1 || summary.Categories != 1 || summary.Owners != 1 {
		t.Errorf("unexpected entity counts: %+v", summary)
	}
	if summary.Items != 2 || summary.Images != 1 {
		t.Errorf("unexpected item/image counts: %+v", summary)
	}

	items, err := store.ListItems(ctx, target)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	// UUIDs survive, and numeric ids match since the fresh target
	// recomputes counters from observed ids.
	if items[0].UUID != itemUUID || items[0].ID != 1 {
		t.Errorf("expected item identity preserved, got id=%d uuid=%q", items[0].ID, items[0].UUID)
	}
	if items[0].ImageUUID == nil || *items[0].ImageUUID != imageUUID {
		t.Error("expected image uuid preserved")
	}
	if items[0].Price == nil || *items[0].Price != 24.90 {
		t.Errorf("expected price preserved, got %v", items[0].Price)
	}
	if items[1].Name != "Plain, \"odd\" name" {
		t.Errorf("expected quoted name preserved, got %q", items[1].Name)
	}

	att, err := store.GetAttachment(ctx, target, items[0].ID)
	if err != nil {
		t.Fatalf("GetAttachment: %v", err)
	}
	if att == nil || !bytes.Equal(att.Data, imageData) {
		t.Error("expected attachment bytes identical after round trip")
	}
	if att.MIME != "image/jpeg" {
		t.Errorf("expected declared mimetype from image index, got %q", att.MIME)
	}

	// Counters continue after the highest replayed id.
	next, err := store.NextID(ctx, target, kv.Items)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 3 {
		t.Errorf("expected next item id 3, got %d", next)
	}
}

func TestImportIntoPopulatedStoreReplaces(t *testing.T) {
	source := db.NewTestDB(t)
	ctx := context.Background()
	populate(t, source)

	var buf bytes.Buffer
	if err := Export(ctx, source, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	target := db.NewTestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := store.CreateEntity(ctx, target, kv.Owners, "Stale", nil); err != nil {
			t.Fatalf("seeding target: %v", err)
		}
	}

	if _, err := Import(ctx, target, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Fatalf("Import: %v", err)
	}

	owners, _ := store.ListEntities(ctx, target, kv.Owners)
	if len(owners) != 1 || owners[0].Name != "Ana" {
		t.Errorf("expected imported owners to replace existing ones, got %+v", owners)
	}
}

func writeTestArchive(t *testing.T, manifest string, tables map[string]string) *bytes.Reader {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if manifest != "" {
		f, _ := zw.Create(manifestName)
		f.Write([]byte(manifest))
	}
	for name, content := range tables {
		f, _ := zw.Create(name)
		f.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("building test archive: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func entityCSV() string {
	return "id,uuid,name,description,created_at,updated_at\n"
}

func TestImportUnrecognizedVersion(t *testing.T) {
	target := db.NewTestDB(t)
	ctx := context.Background()
	if _, err := store.CreateEntity(ctx, target, kv.Locations, "Keep me", nil); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	r := writeTestArchive(t, `{"version":"99","exported_at":"2024-01-01T00:00:00Z","source":"inventar"}`,
		map[string]string{
			locationsTable:  entityCSV(),
			categoriesTable: entityCSV(),
			ownersTable:     entityCSV(),
			itemsTable:      "id,uuid,name\n",
			imagesTable:     "image_id,uuid,image_mimetype,image_filename,created_at\n",
		})

	_, err := Import(ctx, target, r, r.Size())
	if !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid, got %v", err)
	}

	// Zero mutation on version rejection.
	locations, _ := store.ListEntities(ctx, target, kv.Locations)
	if len(locations) != 1 || locations[0].Name != "Keep me" {
		t.Errorf("expected store untouched, got %+v", locations)
	}
}

func TestImportMissingTable(t *testing.T) {
	target := db.NewTestDB(t)
	ctx := context.Background()
	if _, err := store.CreateEntity(ctx, target, kv.Locations, "Keep me", nil); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	r := writeTestArchive(t, `{"version":"2","exported_at":"2024-01-01T00:00:00Z","source":"inventar"}`,
		map[string]string{
			locationsTable: entityCSV(),
			// categories table missing
			ownersTable: entityCSV(),
			itemsTable:  "id,uuid,name\n",
			imagesTable: "image_id,uuid,image_mimetype,image_filename,created_at\n",
		})

	_, err := Import(ctx, target, r, r.Size())
	if !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid, got %v", err)
	}

	locations, _ := store.ListEntities(ctx, target, kv.Locations)
	if len(locations) != 1 {
		t.Error("expected store untouched when a table is missing")
	}
}

func TestImportMissingManifest(t *testing.T) {
	target := db.NewTestDB(t)

	r := writeTestArchive(t, "", map[string]string{locationsTable: entityCSV()})
	_, err := Import(context.Background(), target, r, r.Size())
	if !errors.Is(err, ErrArchiveInvalid) {
		t.Fatalf("expected ErrArchiveInvalid, got %v", err)
	}
}

func TestImportV1MintsMissingUUIDs(t *testing.T) {
	target := db.NewTestDB(t)
	ctx := context.Background()

	// Version 1 archives predate uuid columns.
	r := writeTestArchive(t, `{"version":"1","exported_at":"2020-01-01T00:00:00Z","source":"inventar"}`,
		map[string]string{
			locationsTable:  "id,name,description,created_at,updated_at\n4,Closet,,2020-01-01T00:00:00Z,\n",
			categoriesTable: entityCSV(),
			ownersTable:     entityCSV(),
			itemsTable:      "id,uuid,name,description,location_id,category_id,price,owner_id,created_at,updated_at\n",
			imagesTable:     "image_id,uuid,image_mimetype,image_filename,created_at\n",
		})

	summary, err := Import(ctx, target, r, r.Size())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Locations != 1 {
		t.Fatalf("expected 1 location, got %d", summary.Locations)
	}

	locations, _ := store.ListEntities(ctx, target, kv.Locations)
	if locations[0].UUID == "" {
		t.Error("expected a freshly minted uuid for v1 record")
	}
	if locations[0].ID != 4 {
		t.Errorf("expected sparse source id preserved, got %d", locations[0].ID)
	}

	next, _ := store.NextID(ctx, target, kv.Locations)
	if next != 5 {
		t.Errorf("expected counter recomputed to 5, got %d", next)
	}
}
