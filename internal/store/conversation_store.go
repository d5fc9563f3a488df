package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Turn directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// ConversationTurn is one directional message of a conversation thread.
// Immutable once written except for DeliveredAt on outbound turns.
type ConversationTurn struct {
	ID             uuid.UUID       `json:"id"`
	ConversationID string          `json:"conversation_id"`
	OwnerID        string          `json:"owner_id"`
	Direction      string          `json:"direction"`
	Content        string          `json:"content"`
	CreatedAt      time.Time       `json:"created_at"`
	DeliveredAt    *time.Time      `json:"delivered_at,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// ConversationStore reads recent history and appends outbound turns.
type ConversationStore interface {
	// RecentTurns returns up to limit turns for the owner, newest first.
	RecentTurns(ctx context.Context, ownerID string, limit int) ([]ConversationTurn, error)
	InsertTurn(ctx context.Context, turn *ConversationTurn) error
}

// Contact kinds.
const (
	ContactCarrier  = "carrier"
	ContactCustomer = "customer"
	ContactUnknown  = "unknown"
)

// ContactData is a known conversation owner (carrier or customer).
type ContactData struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ContactStore resolves conversation owners from sender numbers.
type ContactStore interface {
	// FindBySuffix matches the last digits of the stored phone against suffix.
	FindBySuffix(ctx context.Context, suffix string) (*ContactData, error)
}
