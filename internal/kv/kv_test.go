package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/inventar/internal/db"
)

func TestAddGetDelete(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := Add(ctx, database, Locations, 1, []byte(`{"name":"Closet"}`)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	data, err := Get(ctx, database, Locations, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"name":"Closet"}` {
		t.Errorf("unexpected record: %s", data)
	}

	if err := Delete(ctx, database, Locations, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	data, err = Get(ctx, database, Locations, 1)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if data != nil {
		t.Errorf("expected absent record, got %s", data)
	}
}

func TestAddDuplicateKey(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := Add(ctx, database, Items, 7, []byte(`{}`)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := Add(ctx, database, Items, 7, []byte(`{}`))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeleteAbsentIsIdempotent(t *testing.T) {
	database := db.NewTestDB(t)

	if err := Delete(context.Background(), database, Owners, 42); err != nil {
		t.Errorf("deleting absent key: %v", err)
	}
}

func TestPutReplaces(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	Put(ctx, database, Categories, 3, []byte(`{"name":"Tools"}`))
	Put(ctx, database, Categories, 3, []byte(`{"name":"Clothes"}`))

	data, err := Get(ctx, database, Categories, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"name":"Clothes"}` {
		t.Errorf("expected replaced record, got %s", data)
	}
}

func TestGetAllOrdered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	Add(ctx, database, Items, 5, []byte(`{"n":5}`))
	Add(ctx, database, Items, 1, []byte(`{"n":1}`))
	Add(ctx, database, Items, 3, []byte(`{"n":3}`))

	rows, err := GetAll(ctx, database, Items)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []int64{1, 3, 5} {
		if rows[i].Key != want {
			t.Errorf("row %d: expected key %d, got %d", i, want, rows[i].Key)
		}
	}
}

func TestClearAndCount(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	Add(ctx, database, Owners, 1, []byte(`{}`))
	Add(ctx, database, Owners, 2, []byte(`{}`))

	n, err := Count(ctx, database, Owners)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}

	if err := Clear(ctx, database, Owners); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, _ = Count(ctx, database, Owners)
	if n != 0 {
		t.Errorf("expected 0 records after clear, got %d", n)
	}
}

func TestUnknownCollection(t *testing.T) {
	database := db.NewTestDB(t)

	if _, err := Get(context.Background(), database, "users", 1); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestTransactionRollback(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	fail := errors.New("boom")
	err := db.WithTx(ctx, database, func(ctx context.Context, tx db.Querier) error {
		if err := Add(ctx, tx, Locations, 1, []byte(`{}`)); err != nil {
			return err
		}
		if err := Add(ctx, tx, Items, 1, []byte(`{}`)); err != nil {
			return err
		}
		return fail
	})
	if !errors.Is(err, fail) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	for _, collection := range []string{Locations, Items} {
		data, _ := Get(ctx, database, collection, 1)
		if data != nil {
			t.Errorf("expected %s write to be rolled back", collection)
		}
	}
}
