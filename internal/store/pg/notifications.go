package pg

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGNotificationStore implements store.NotificationStore backed by Postgres. Insert-only.
type PGNotificationStore struct {
	db *sql.DB
}

func NewPGNotificationStore(db *sql.DB) *PGNotificationStore {
	return &PGNotificationStore{db: db}
}

func (s *PGNotificationStore) InsertLog(ctx context.Context, e *store.NotificationLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = store.GenNewID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_logs (id, channel, recipient, message, status, metadata, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Channel, e.Recipient, e.Message, e.Status, jsonOrEmpty(e.Metadata), e.CreatedAt,
	)
	return err
}

// PGHandoffStore implements store.HandoffStore backed by Postgres.
type PGHandoffStore struct {
	db *sql.DB
}

func NewPGHandoffStore(db *sql.DB) *PGHandoffStore {
	return &PGHandoffStore{db: db}
}

// Upsert keeps the first detected_at of an open handoff and refreshes the rest.
func (s *PGHandoffStore) Upsert(ctx context.Context, st store.HandoffState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_handoffs (owner_key, requires_human, reason, detected_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (owner_key) DO UPDATE SET
		   requires_human = EXCLUDED.requires_human,
		   reason         = EXCLUDED.reason,
		   detected_at    = CASE WHEN conversation_handoffs.requires_human
		                         THEN conversation_handoffs.detected_at
		                         ELSE EXCLUDED.detected_at END,
		   updated_at     = EXCLUDED.updated_at`,
		st.OwnerKey, st.RequiresHuman, nilStr(st.Reason), st.DetectedAt, st.UpdatedAt,
	)
	return err
}
