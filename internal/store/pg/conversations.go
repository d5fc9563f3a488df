package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGConversationStore implements store.ConversationStore backed by Postgres.
type PGConversationStore struct {
	db *sql.DB
}

func NewPGConversationStore(db *sql.DB) *PGConversationStore {
	return &PGConversationStore{db: db}
}

func (s *PGConversationStore) RecentTurns(ctx context.Context, ownerID string, limit int) ([]store.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, owner_id, direction, content, created_at, delivered_at, metadata
		 FROM conversation_messages
		 WHERE owner_id = $1
		 ORDER BY created_at DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.ConversationTurn
	for rows.Next() {
		var t store.ConversationTurn
		var meta []byte
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.OwnerID, &t.Direction, &t.Content,
			&t.CreatedAt, &t.DeliveredAt, &meta); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Metadata = meta
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *PGConversationStore) InsertTurn(ctx context.Context, t *store.ConversationTurn) error {
	if t.ID == uuid.Nil {
		t.ID = store.GenNewID()
	}
	meta := []byte(t.Metadata)
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (id, conversation_id, owner_id, direction, content, created_at, delivered_at, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.ConversationID, t.OwnerID, t.Direction, t.Content, t.CreatedAt, t.DeliveredAt, meta,
	)
	return err
}

// PGContactStore implements store.ContactStore backed by Postgres.
type PGContactStore struct {
	db *sql.DB
}

func NewPGContactStore(db *sql.DB) *PGContactStore {
	return &PGContactStore{db: db}
}

func (s *PGContactStore) FindBySuffix(ctx context.Context, suffix string) (*store.ContactData, error) {
	var c store.ContactData
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, phone FROM contacts
		 WHERE right(regexp_replace(phone, '\D', '', 'g'), $2) = $1
		 ORDER BY updated_at DESC LIMIT 1`, suffix, len(suffix),
	).Scan(&c.ID, &c.Kind, &c.Name, &c.Phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
