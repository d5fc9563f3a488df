package file

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// NewFileStores creates all stores over the JSON5 seed file (standalone mode).
// When a seed file is set it is watched and reloaded until ctx ends or Close is called.
func NewFileStores(ctx context.Context, cfg store.StoreConfig, pub bus.EventPublisher) (*store.Stores, *Data, error) {
	seed, err := LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, nil, err
	}
	data := NewData(seed)

	closeFn := func() error { return nil }
	if cfg.SeedFile != "" {
		sw, err := NewSeedWatcher(cfg.SeedFile, data, pub)
		if err != nil {
			slog.Warn("seed.watch_disabled", "path", cfg.SeedFile, "error", err)
		} else {
			sw.Start(ctx)
			closeFn = sw.Close
		}
	}

	return &store.Stores{
		Personas:      NewFilePersonaStore(data),
		Conversations: NewFileConversationStore(data),
		Contacts:      NewFileContactStore(data),
		Knowledge:     NewFileKnowledgeStore(data),
		Records:       NewFileRecordStore(data),
		Notifications: NewFileNotificationStore(data),
		Handoffs:      NewFileHandoffStore(data),
		Instances:     NewFileChannelInstanceStore(data),
		Close:         closeFn,
	}, data, nil
}
