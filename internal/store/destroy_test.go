package store

import (
	"context"
	"testing"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
)

func TestDestroy(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedReferences(t, database)

	item, err := CreateItem(ctx, database, ItemFields{
		Name: "Shirt", LocationID: 1, CategoryID: 1, OwnerID: 1,
	}, &Upload{Data: []byte("img"), Filename: "a.png", MIME: "image/png"})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	summary, err := Destroy(ctx, database)
	if err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if summary.Removed[kv.Items] != 1 || summary.Removed[kv.Locations] != 1 {
		t.Errorf("unexpected summary: %+v", summary.Removed)
	}
	if summary.Removed["images"] != 1 {
		t.Errorf("expected 1 attachment removed, got %d", summary.Removed["images"])
	}

	items, _ := ListItems(ctx, database)
	if len(items) != 0 {
		t.Errorf("expected empty store, got %d items", len(items))
	}
	att, _ := GetAttachment(ctx, database, item.ID)
	if att != nil {
		t.Error("expected attachments cleared")
	}

	// Counters restart from 1.
	e, err := CreateEntity(ctx, database, kv.Locations, "Attic", nil)
	if err != nil {
		t.Fatalf("CreateEntity after destroy: %v", err)
	}
	if e.ID != 1 {
		t.Errorf("expected counter reset to 1, got id %d", e.ID)
	}
}
