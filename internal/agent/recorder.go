package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

const recordTimeout = 5 * time.Second

// RecordEntry is what the recorder persists for one run that produced a reply.
type RecordEntry struct {
	ConversationID string
	OwnerID        string // "" skips the outbound turn
	Channel        string
	Recipient      string
	Message        string
	Status         string // notification log status
	Delivered      bool
	AIGenerated    bool
	Model          string
	Persona        string
	DeliveryStatus string
	ProcessingMs   int64
	Extra          map[string]any // additional log metadata
}

// Recorder writes the outbound turn and the notification log entry.
// Write errors are logged and swallowed.
type Recorder struct {
	conversations store.ConversationStore
	notifications store.NotificationStore
	now           func() time.Time
}

// NewRecorder creates a Recorder.
func NewRecorder(conversations store.ConversationStore, notifications store.NotificationStore) *Recorder {
	return &Recorder{conversations: conversations, notifications: notifications, now: time.Now}
}

// Record persists e. It detaches from ctx cancellation so a client hanging up
// after delivery does not lose the audit entry.
func (r *Recorder) Record(ctx context.Context, e RecordEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	now := r.now().UTC()

	if e.OwnerID != "" {
		meta, _ := json.Marshal(map[string]any{
			"model":           e.Model,
			"processing_ms":   e.ProcessingMs,
			"ai_generated":    e.AIGenerated,
			"persona":         e.Persona,
			"delivery_status": e.DeliveryStatus,
		})
		turn := &store.ConversationTurn{
			ID:             store.GenNewID(),
			ConversationID: e.ConversationID,
			OwnerID:        e.OwnerID,
			Direction:      store.DirectionOutbound,
			Content:        e.Message,
			CreatedAt:      now,
			Metadata:       meta,
		}
		if e.Delivered {
			turn.DeliveredAt = &now
		}
		if err := r.conversations.InsertTurn(ctx, turn); err != nil {
			slog.Error("record.turn_failed", "conversation", e.ConversationID, "owner", e.OwnerID, "error", err)
		}
	}

	meta := map[string]any{
		"conversation_id": e.ConversationID,
		"model":           e.Model,
		"processing_ms":   e.ProcessingMs,
		"persona":         e.Persona,
		"delivery_status": e.DeliveryStatus,
		"ai_generated":    e.AIGenerated,
	}
	for k, v := range e.Extra {
		meta[k] = v
	}
	entry := &store.NotificationLogEntry{
		ID:        store.GenNewID(),
		Channel:   e.Channel,
		Recipient: e.Recipient,
		Message:   e.Message,
		Status:    e.Status,
		Metadata:  meta,
		CreatedAt: now,
	}
	if err := r.notifications.InsertLog(ctx, entry); err != nil {
		slog.Error("record.log_failed", "conversation", e.ConversationID, "status", e.Status, "error", err)
		return
	}
	slog.Info("record.logged", "conversation", e.ConversationID, "status", e.Status, "delivery_status", e.DeliveryStatus)
}
