package store

import (
	"context"
	"testing"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/kv"
)

func TestAllocateSequential(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	var uuids = map[string]bool{}
	for want := int64(1); want <= 3; want++ {
		var id int64
		var uid string
		err := db.WithTx(ctx, database, func(ctx context.Context, tx db.Querier) error {
			var err error
			id, uid, err = Allocate(ctx, tx, kv.Items)
			return err
		})
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if id != want {
			t.Errorf("expected id %d, got %d", want, id)
		}
		if uid == "" || uuids[uid] {
			t.Errorf("expected fresh unique uuid, got %q", uid)
		}
		uuids[uid] = true
	}
}

func TestAllocatePerEntityCounters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, database, func(ctx context.Context, tx db.Querier) error {
		itemID, _, err := Allocate(ctx, tx, kv.Items)
		if err != nil {
			return err
		}
		locID, _, err := Allocate(ctx, tx, kv.Locations)
		if err != nil {
			return err
		}
		if itemID != 1 || locID != 1 {
			t.Errorf("expected independent counters, got items=%d locations=%d", itemID, locID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
}

func TestResetCounter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, database, func(ctx context.Context, tx db.Querier) error {
		if _, _, err := Allocate(ctx, tx, kv.Owners); err != nil {
			return err
		}
		return ResetCounter(ctx, tx, kv.Owners, 100)
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = db.WithTx(ctx, database, func(ctx context.Context, tx db.Querier) error {
		id, _, err := Allocate(ctx, tx, kv.Owners)
		if err != nil {
			return err
		}
		if id != 100 {
			t.Errorf("expected id 100 after reset, got %d", id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Allocate after reset: %v", err)
	}
}

func TestNextIDDefaultsToOne(t *testing.T) {
	database := db.NewTestDB(t)

	next, err := NextID(context.Background(), database, kv.Categories)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 1 {
		t.Errorf("expected default next id 1, got %d", next)
	}
}
