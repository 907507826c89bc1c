// Package testutil provides shared test helpers: a pinned clock, predictable
// ids, scratch storage and a scripted model client.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/lifeone/internal/llm"
	"github.com/starford/lifeone/internal/storage"
	"github.com/starford/lifeone/internal/store"
)

// Now is Monday 2025-03-10 14:00 in Seoul.
var Now = time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

// Clock always returns Now.
func Clock() time.Time { return Now }

// SeqIDs returns "id-1", "id-2", ...
func SeqIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

// NewState returns an empty state pinned to Now with sequential ids.
func NewState(opts ...store.Option) *store.State {
	return store.New(store.NewData(), append([]store.Option{store.WithClock(Clock), store.WithIDs(SeqIDs())}, opts...)...)
}

// TempFS creates a temporary data directory with a storage.FS.
func TempFS(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Script is a fake llm.Client. It answers with Replies in order, repeating
// the last one, and fails with Err when set or when there are no replies.
type Script struct {
	Replies []string
	Err     error

	mu       sync.Mutex
	requests []llm.Request
}

// Reply scripts a single answer.
func Reply(text string) *Script { return &Script{Replies: []string{text}} }

// Chat implements llm.Client.
func (s *Script) Chat(_ context.Context, req llm.Request) (llm.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if s.Err != nil {
		return llm.Result{}, s.Err
	}
	if len(s.Replies) == 0 {
		return llm.Result{}, fmt.Errorf("testutil: no scripted reply for call %d", i+1)
	}
	return llm.Result{Text: s.Replies[min(i, len(s.Replies)-1)], Duration: time.Millisecond}, nil
}

// Requests returns the requests seen so far.
func (s *Script) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}
