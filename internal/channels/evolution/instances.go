package evolution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// StoreInstances resolves the sending instance from the channel instance store.
type StoreInstances struct {
	store store.ChannelInstanceStore
}

// NewStoreInstances creates an InstanceSource backed by s.
func NewStoreInstances(s store.ChannelInstanceStore) *StoreInstances {
	return &StoreInstances{store: s}
}

// Connected returns the connected instance named routingKey, else the one whose
// routing address matches it (exact digits first, then the 8-digit suffix),
// else the first connected instance.
func (l *StoreInstances) Connected(ctx context.Context, routingKey string) (Instance, error) {
	list, err := l.store.ListConnected(ctx)
	if err != nil {
		return Instance{}, fmt.Errorf("list connected instances: %w", err)
	}
	if len(list) == 0 {
		return Instance{}, ErrNoConnectedInstance
	}

	inst := pickInstance(list, routingKey)
	slog.Debug("delivery.instance_selected", "instance", inst.InstanceKey, "routing_key", routingKey)
	return Instance{Key: inst.InstanceKey, Token: inst.Token}, nil
}

func pickInstance(list []store.ChannelInstanceData, routingKey string) store.ChannelInstanceData {
	for _, inst := range list {
		if routingKey != "" && inst.InstanceKey == routingKey {
			return inst
		}
	}
	addr := channels.NormalizeAddress(routingKey)
	if addr.Empty() {
		return list[0]
	}
	for _, inst := range list {
		if channels.DigitsOnly(inst.RoutingAddress) == addr.Digits {
			return inst
		}
	}
	for _, inst := range list {
		if inst.RoutingAddress != "" && channels.SuffixKey(inst.RoutingAddress) == addr.Suffix {
			return inst
		}
	}
	return list[0]
}
