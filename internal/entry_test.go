package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/lifeone/internal/api"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/pkg/logging"
)

func TestAPIAuth(t *testing.T) {
	got, err := apiAuth(AuthConfig{Mode: AuthModeToken, Token: "t"})
	if err != nil || got.Mode != api.AuthToken || got.Token != "t" {
		t.Errorf("token mode = %+v, %v", got, err)
	}

	got, err = apiAuth(AuthConfig{Mode: AuthModeJWT, JWTSecret: "0123456789abcdef", JWTIssuer: "lifeone", JWTTTL: time.Hour})
	if err != nil || got.Mode != api.AuthJWT || got.JWT == nil {
		t.Fatalf("jwt mode = %+v, %v", got, err)
	}
	tok, err := got.JWT.Generate("phone", time.Now())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := got.JWT.Validate(tok); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if _, err := apiAuth(AuthConfig{Mode: "magic"}); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestOpenState_PersistsAcrossRestarts(t *testing.T) {
	for _, driver := range []string{StorageFS, StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Storage.Driver = driver
			cfg.Storage.Path = filepath.Join(t.TempDir(), "data")
			if driver == StorageSQLite {
				cfg.Storage.Path += ".db"
			}
			ctx := context.Background()

			rt, err := openState(ctx, cfg, logging.Discard())
			if err != nil {
				t.Fatalf("openState: %v", err)
			}
			if (rt.fs != nil) != (driver == StorageFS) {
				t.Errorf("fs = %v for driver %s", rt.fs, driver)
			}
			if _, err := rt.st.AddContact(models.Contact{Name: "김민준"}); err != nil {
				t.Fatalf("AddContact: %v", err)
			}
			if _, err := rt.persister.Save(ctx, rt.st.Snapshot()); err != nil {
				t.Fatalf("Save: %v", err)
			}
			rt.close()

			rt, err = openState(ctx, cfg, logging.Discard())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer rt.close()
			if n := len(rt.st.ListContacts("")); n != 1 {
				t.Errorf("contacts after restart = %d", n)
			}
		})
	}
}

func TestPurgeTrash_StopsWithContext(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	rt, err := openState(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("openState: %v", err)
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeTrash(ctx, rt.st, cfg.Trash, nil, logging.Discard())
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purgeTrash did not return after cancel")
	}
}
