package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/lifeone/internal/apperr"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFS_PutAndGet(t *testing.T) {
	s := tempFS(t)
	ctx := context.Background()
	if err := s.Put(ctx, KeyContacts, []byte(`[{"id":"c1"}]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, KeyContacts)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"c1"}]` {
		t.Errorf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "contacts.json")); err != nil {
		t.Errorf("expected contacts.json on disk: %v", err)
	}
}

func TestFS_GetMissing(t *testing.T) {
	s := tempFS(t)
	_, err := s.Get(context.Background(), KeyDiary)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFS_PutOverwrites(t *testing.T) {
	s := tempFS(t)
	ctx := context.Background()
	_ = s.Put(ctx, KeyTrash, []byte("[1]"))
	if err := s.Put(ctx, KeyTrash, []byte("[2]")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get(ctx, KeyTrash)
	if string(got) != "[2]" {
		t.Errorf("got %q, want [2]", got)
	}
}

func TestFS_PutLeavesNoTempFiles(t *testing.T) {
	s := tempFS(t)
	_ = s.Put(context.Background(), KeySchedule, []byte("[]"))
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 file, got %d", len(entries))
	}
}

func TestFS_Delete(t *testing.T) {
	s := tempFS(t)
	ctx := context.Background()
	_ = s.Put(ctx, KeyExpenses, []byte("[]"))
	if err := s.Delete(ctx, KeyExpenses); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, KeyExpenses); err == nil {
		t.Error("expected error reading deleted key")
	}
	if err := s.Delete(ctx, KeyExpenses); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestFS_Keys(t *testing.T) {
	s := tempFS(t)
	ctx := context.Background()
	_ = s.Put(ctx, KeySchedule, []byte("[]"))
	_ = s.Put(ctx, KeyContacts, []byte("[]"))
	_ = os.WriteFile(filepath.Join(s.Root(), "notes.txt"), []byte("x"), 0o644)

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != KeyContacts || keys[1] != KeySchedule {
		t.Errorf("keys = %v", keys)
	}
}

func TestFS_InvalidKey(t *testing.T) {
	s := tempFS(t)
	ctx := context.Background()
	for _, key := range []string{"", "../escape", "a/b", ".hidden", "with space"} {
		if err := s.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q): expected error", key)
		}
	}
}

func TestFS_KeyForPath(t *testing.T) {
	s := tempFS(t)
	if key, ok := s.KeyForPath(filepath.Join(s.Root(), "diary.json")); !ok || key != "diary" {
		t.Errorf("KeyForPath = %q, %v", key, ok)
	}
	if _, ok := s.KeyForPath(filepath.Join(s.Root(), ".lifeone-tmp-123")); ok {
		t.Error("temp files must not map to a key")
	}
	if _, ok := s.KeyForPath(filepath.Join(s.Root(), "sub", "diary.json")); ok {
		t.Error("nested files must not map to a key")
	}
}
