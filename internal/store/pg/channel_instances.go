package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGChannelInstanceStore implements store.ChannelInstanceStore backed by Postgres.
type PGChannelInstanceStore struct {
	db *sql.DB
}

func NewPGChannelInstanceStore(db *sql.DB) *PGChannelInstanceStore {
	return &PGChannelInstanceStore{db: db}
}

func (s *PGChannelInstanceStore) ListConnected(ctx context.Context) ([]store.ChannelInstanceData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instance_key, display_name, routing_address, status, token
		 FROM channel_instances
		 WHERE status = $1
		 ORDER BY created_at`, store.InstanceConnected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.ChannelInstanceData
	for rows.Next() {
		var inst store.ChannelInstanceData
		var displayName, routing, token *string
		if err := rows.Scan(&inst.ID, &inst.InstanceKey, &displayName, &routing, &inst.Status, &token); err != nil {
			return nil, fmt.Errorf("scan channel instance: %w", err)
		}
		inst.DisplayName = derefStr(displayName)
		inst.RoutingAddress = derefStr(routing)
		inst.Token = derefStr(token)
		result = append(result, inst)
	}
	return result, rows.Err()
}
