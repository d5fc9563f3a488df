package file

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/pkg/protocol"
)

const reloadDebounce = 300 * time.Millisecond

// SeedWatcher reloads the seed file into Data whenever it changes on disk.
// The parent directory is watched so editor rename-on-save is picked up.
type SeedWatcher struct {
	path    string
	data    *Data
	pub     bus.EventPublisher
	watcher *fsnotify.Watcher

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSeedWatcher creates a watcher for path. pub may be nil.
func NewSeedWatcher(path string, data *Data, pub bus.EventPublisher) (*SeedWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &SeedWatcher{
		path:    filepath.Clean(path),
		data:    data,
		pub:     pub,
		watcher: w,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start runs the event loop in a goroutine until ctx ends or Close is called.
func (sw *SeedWatcher) Start(ctx context.Context) {
	go sw.run(ctx)
}

func (sw *SeedWatcher) run(ctx context.Context) {
	defer close(sw.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != sw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("seed.watch_error", "error", err)
		case <-fire:
			fire = nil
			sw.Reload()
		}
	}
}

// Reload re-reads the seed file. A parse error keeps the previous dataset.
func (sw *SeedWatcher) Reload() {
	seed, err := LoadSeed(sw.path)
	if err != nil {
		slog.Warn("seed.reload_failed", "path", sw.path, "error", err)
		return
	}
	sw.data.Replace(seed)
	slog.Info("seed.reloaded", "path", sw.path,
		"personas", len(seed.Personas), "knowledge", len(seed.Knowledge), "orders", len(seed.Orders))
	if sw.pub != nil {
		sw.pub.Broadcast(bus.Event{
			Name:    protocol.EventCacheInvalidate,
			Payload: bus.CacheInvalidatePayload{Kind: bus.CacheKindSeed},
		})
	}
}

// Close stops the loop and releases the OS watcher.
func (sw *SeedWatcher) Close() error {
	var err error
	sw.stopOnce.Do(func() {
		close(sw.stopCh)
		err = sw.watcher.Close()
	})
	return err
}
