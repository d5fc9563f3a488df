package store

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// StoreConfig holds the connection settings for store backends.
type StoreConfig struct {
	PostgresDSN string
	Mode        string
	SeedFile    string
}

// Stores is the top-level container for every collaborator the reply pipeline reads or writes.
type Stores struct {
	Personas      PersonaStore
	Conversations ConversationStore
	Contacts      ContactStore
	Knowledge     KnowledgeStore
	Records       RecordStore
	Notifications NotificationStore
	Handoffs      HandoffStore
	Instances     ChannelInstanceStore

	// Close releases the backend (DB pool, file watcher). Nil-safe to call.
	Close func() error
}

// GenNewID returns a time-ordered UUID (v7), falling back to v4.
func GenNewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
