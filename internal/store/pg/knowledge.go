package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGKnowledgeStore implements store.KnowledgeStore backed by Postgres.
type PGKnowledgeStore struct {
	db *sql.DB
}

func NewPGKnowledgeStore(db *sql.DB) *PGKnowledgeStore {
	return &PGKnowledgeStore{db: db}
}

func (s *PGKnowledgeStore) ListCandidates(ctx context.Context, tags []string, limit int) ([]store.KnowledgeItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, body, keywords, partner_name, tag
		 FROM knowledge_items
		 WHERE active = true AND tag = ANY($1)
		 ORDER BY priority DESC, updated_at DESC, id
		 LIMIT $2`, pq.Array(tags), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.KnowledgeItem
	for rows.Next() {
		var k store.KnowledgeItem
		var partner *string
		if err := rows.Scan(&k.ID, &k.Title, &k.Body, pq.Array(&k.Keywords), &partner, &k.Tag); err != nil {
			return nil, fmt.Errorf("scan knowledge item: %w", err)
		}
		k.PartnerName = derefStr(partner)
		result = append(result, k)
	}
	return result, rows.Err()
}
