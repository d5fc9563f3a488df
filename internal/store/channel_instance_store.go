package store

import (
	"context"

	"github.com/google/uuid"
)

// Instance connection states reported by the messaging gateway.
const (
	InstanceConnected    = "connected"
	InstanceDisconnected = "disconnected"
)

// ChannelInstanceData is one gateway instance (one connected WhatsApp number).
type ChannelInstanceData struct {
	ID             uuid.UUID `json:"id"`
	InstanceKey    string    `json:"instance_key"`
	DisplayName    string    `json:"display_name,omitempty"`
	RoutingAddress string    `json:"routing_address,omitempty"`
	Status         string    `json:"status"`
	Token          string    `json:"token,omitempty"` // per-instance key, overrides the global delivery key
}

// ChannelInstanceStore lists gateway instances.
type ChannelInstanceStore interface {
	ListConnected(ctx context.Context) ([]ChannelInstanceData, error)
}
