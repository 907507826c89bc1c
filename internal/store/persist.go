package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/lifeone/internal/apperr"
	"github.com/starford/lifeone/internal/checksum"
	"github.com/starford/lifeone/internal/models"
	"github.com/starford/lifeone/internal/storage"
)

// SaveDelay coalesces bursts of mutations into one save.
var SaveDelay = 250 * time.Millisecond

// Persister mirrors State into a storage.Provider, one document per key.
// It remembers the checksum of every document it read or wrote, so unchanged
// keys are skipped and its own writes are not mistaken for external edits.
type Persister struct {
	provider storage.Provider
	logger   *slog.Logger

	mu   sync.Mutex // serialises Save and Reload
	sums map[string]string

	kick chan struct{}

	onSaveError func(error)
}

// NewPersister wraps provider.
func NewPersister(provider storage.Provider, logger *slog.Logger) *Persister {
	return &Persister{
		provider: provider,
		logger:   logger,
		sums:     make(map[string]string),
		kick:     make(chan struct{}, 1),
	}
}

// OnSaveError registers fn to be called when a background save fails.
// Call it before Run.
func (p *Persister) OnSaveError(fn func(error)) {
	p.onSaveError = fn
}

// Load reads every key. Missing keys keep their defaults.
func (p *Persister) Load(ctx context.Context) (Data, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := NewData()
	for _, key := range allKeys {
		raw, err := p.provider.Get(ctx, key)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return d, err
		}
		if err := decodeKey(&d, key, raw); err != nil {
			return d, err
		}
		p.sums[key] = checksum.Sum(raw)
	}
	return normalize(d), nil
}

// Save writes the keys of d whose encoding differs from the last known
// document and returns them.
func (p *Persister) Save(ctx context.Context, d Data) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var written []string
	for _, key := range allKeys {
		raw, sum, err := checksum.Marshal(fieldFor(&d, key))
		if err != nil {
			return written, err
		}
		if p.sums[key] == sum {
			continue
		}
		if err := p.provider.Put(ctx, key, raw); err != nil {
			return written, fmt.Errorf("save %s: %w", key, err)
		}
		p.sums[key] = sum
		written = append(written, key)
	}
	return written, nil
}

// Reload re-reads keys reported as changed on disk. Documents identical to
// the last read or write are ignored; the rest replace the corresponding
// part of st, and only that part, so writes to other keys made meanwhile
// survive. It returns the keys that were actually reloaded.
func (p *Persister) Reload(ctx context.Context, st *State, keys []string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := NewData()
	var reloaded []string
	for _, key := range keys {
		if fieldFor(&d, key) == nil {
			continue
		}
		raw, err := p.provider.Get(ctx, key)
		if err != nil {
			return reloaded, err
		}
		sum := checksum.Sum(raw)
		if p.sums[key] == sum {
			continue
		}
		if err := decodeKey(&d, key, raw); err != nil {
			p.logger.Warn("persist: ignoring unreadable document",
				slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		p.sums[key] = sum
		reloaded = append(reloaded, key)
	}
	if len(reloaded) > 0 {
		st.Replace(d, reloaded)
	}
	return reloaded, nil
}

// Notify schedules a save. It never blocks; use it as the State change hook.
func (p *Persister) Notify([]string) {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run saves st after every Notify (debounced by SaveDelay) until ctx is
// cancelled, then flushes once more.
func (p *Persister) Run(ctx context.Context, st *State) error {
	var timer *time.Timer
	var timerCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			// Final flush on a fresh context; the parent is already done.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := p.Save(flushCtx, st.Snapshot())
			return err
		case <-p.kick:
			if timer == nil {
				timer = time.NewTimer(SaveDelay)
				timerCh = timer.C
			} else {
				timer.Reset(SaveDelay)
			}
		case <-timerCh:
			written, err := p.Save(ctx, st.Snapshot())
			if err != nil {
				p.logger.Error("persist: save failed", slog.String("error", err.Error()))
				if p.onSaveError != nil {
					p.onSaveError(err)
				}
				continue
			}
			if len(written) > 0 {
				p.logger.Debug("persist: saved", slog.Any("keys", written))
			}
		}
	}
}

func fieldFor(d *Data, key string) any {
	switch key {
	case storage.KeyContacts:
		return &d.Contacts
	case storage.KeySchedule:
		return &d.Schedule
	case storage.KeyCategories:
		return &d.Categories
	case storage.KeyExpenses:
		return &d.Expenses
	case storage.KeyDiary:
		return &d.Diary
	case storage.KeyChatSessions:
		return &d.ChatSessions
	case storage.KeyNotifications:
		return &d.NotificationSettings
	case storage.KeyTrash:
		return &d.Trash
	}
	return nil
}

func decodeKey(d *Data, key string, raw []byte) error {
	if key == storage.KeyNotifications {
		d.NotificationSettings = models.DefaultNotificationSettings()
	}
	if err := json.Unmarshal(raw, fieldFor(d, key)); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
