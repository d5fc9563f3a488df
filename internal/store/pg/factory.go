package pg

import (
	"fmt"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// NewPGStores creates all stores backed by Postgres (managed mode).
func NewPGStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return &store.Stores{
		Personas:      NewPGPersonaStore(db),
		Conversations: NewPGConversationStore(db),
		Contacts:      NewPGContactStore(db),
		Knowledge:     NewPGKnowledgeStore(db),
		Records:       NewPGRecordStore(db),
		Notifications: NewPGNotificationStore(db),
		Handoffs:      NewPGHandoffStore(db),
		Instances:     NewPGChannelInstanceStore(db),
		Close:         db.Close,
	}, nil
}
