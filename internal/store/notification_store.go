package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification log statuses.
const (
	NotificationSent              = "sent"
	NotificationFailed            = "failed"
	NotificationPendingManualSend = "pending_manual_send"
	NotificationHandoffRequired   = "human_handoff_required"
)

// NotificationLogEntry is an append-only audit record of one reply attempt.
type NotificationLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	Channel   string         `json:"channel"`
	Recipient string         `json:"recipient"`
	Message   string         `json:"message"`
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NotificationStore appends audit entries. There is no update path.
type NotificationStore interface {
	InsertLog(ctx context.Context, entry *NotificationLogEntry) error
}

// HandoffState is the shared "needs a human" flag of a conversation owner.
type HandoffState struct {
	OwnerKey      string    `json:"owner_key"`
	RequiresHuman bool      `json:"requires_human"`
	Reason        string    `json:"reason"`
	DetectedAt    time.Time `json:"detected_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HandoffStore upserts the handoff flag keyed by conversation owner.
// Upsert must be idempotent so concurrent triggers converge.
type HandoffStore interface {
	Upsert(ctx context.Context, state HandoffState) error
}
