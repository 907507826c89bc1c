package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback receives the keys whose files changed on disk.
type ChangeCallback func(keys []string)

// WatchDebounce is how long the watcher waits for writes to settle.
var WatchDebounce = 200 * time.Millisecond

// Watch reports external edits to the data directory of fs until ctx is
// cancelled. Bursts of events are coalesced per key. Removals are ignored so a
// deleted file never wipes in-memory state.
func Watch(ctx context.Context, fs *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", fs.Root()))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(WatchDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(WatchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if len(pending) == 0 {
				continue
			}
			keys := make([]string, 0, len(pending))
			for k := range pending {
				keys = append(keys, k)
			}
			clear(pending)
			logger.Debug("watcher: changed", slog.Any("keys", keys))
			if cb != nil {
				cb(keys)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			key, ok := fs.KeyForPath(ev.Name)
			if !ok {
				continue
			}
			pending[key] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
