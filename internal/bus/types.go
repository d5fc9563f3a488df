package bus

// Event represents a server-side event to broadcast to subscribers.
type Event struct {
	Name    string      `json:"name"` // protocol.Event* constant
	Payload interface{} `json:"payload,omitempty"`
}

// ReplyPayload describes one finished pipeline run.
type ReplyPayload struct {
	ConversationID string `json:"conversation_id"`
	Recipient      string `json:"recipient"`
	Persona        string `json:"persona,omitempty"`
	Status         string `json:"status"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
	Reply          string `json:"reply,omitempty"`
	ProcessingMs   int64  `json:"processing_ms"`
}

// HandoffPayload is published when a conversation is handed to a human.
type HandoffPayload struct {
	ConversationID string   `json:"conversation_id"`
	OwnerKey       string   `json:"owner_key"`
	Sender         string   `json:"sender"`
	Matched        []string `json:"matched"`
}

// Cache invalidation kind constants.
const (
	CacheKindPersonas  = "personas"
	CacheKindKnowledge = "knowledge"
	CacheKindSeed      = "seed"
)

// CacheInvalidatePayload signals that a backing store reloaded its data.
// Used with protocol.EventCacheInvalidate events.
type CacheInvalidatePayload struct {
	Kind string `json:"kind"` // CacheKind* constants
	Key  string `json:"key"`  // empty = everything
}

// EventHandler handles a broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + subscription.
// Used by the gateway server and the reply pipeline to decouple from the concrete MessageBus.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}
