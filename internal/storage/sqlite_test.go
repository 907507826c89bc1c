package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/checksum"
)

func tempSQLite(t *testing.T) *SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lifeone-kv-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_PutGet(t *testing.T) {
	db := tempSQLite(t)
	ctx := context.Background()
	if err := db.Put(ctx, KeyCategories, []byte(`[]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put(ctx, KeyCategories, []byte(`[{"id":"k"}]`)); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	got, err := db.Get(ctx, KeyCategories)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"k"}]` {
		t.Errorf("got %q", got)
	}
}

func TestSQLite_GetMissing(t *testing.T) {
	db := tempSQLite(t)
	if _, err := db.Get(context.Background(), KeyContacts); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_KeysAndDelete(t *testing.T) {
	db := tempSQLite(t)
	ctx := context.Background()
	_ = db.Put(ctx, KeyTrash, []byte("[]"))
	_ = db.Put(ctx, KeyDiary, []byte("[]"))

	keys, err := db.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != KeyDiary {
		t.Errorf("keys = %v", keys)
	}

	if err := db.Delete(ctx, KeyDiary); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	keys, _ = db.Keys(ctx)
	if len(keys) != 1 || keys[0] != KeyTrash {
		t.Errorf("keys after delete = %v", keys)
	}
}

func TestSQLite_Checksums(t *testing.T) {
	db := tempSQLite(t)
	ctx := context.Background()
	data := []byte(`{"a":1}`)
	_ = db.Put(ctx, KeyNotifications, data)

	sums, err := db.Checksums(ctx)
	if err != nil {
		t.Fatalf("Checksums: %v", err)
	}
	if sums[KeyNotifications] != checksum.Sum(data) {
		t.Errorf("checksum = %q, want %q", sums[KeyNotifications], checksum.Sum(data))
	}
}
