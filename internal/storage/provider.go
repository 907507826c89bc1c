// Package storage is the persistence boundary: an opaque key/value surface that
// the app state is saved to and loaded from.
package storage

import (
	"context"
	"fmt"
	"regexp"
)

// Keys written by the app state.
const (
	KeyContacts      = "contacts"
	KeySchedule      = "schedule"
	KeyCategories    = "categories"
	KeyExpenses      = "expenses"
	KeyDiary         = "diary"
	KeyChatSessions  = "chatSessions"
	KeyNotifications = "notificationSettings"
	KeyTrash         = "trash"
)

// Provider stores whole documents by key.
type Provider interface {
	// Get returns the document stored under key, or an error wrapping
	// apperr.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the document stored under key.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
	// Close releases the backend.
	Close() error
}

var keyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// ValidKey rejects keys that could escape a directory or collide with temp files.
func ValidKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
