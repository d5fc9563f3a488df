package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PersonaData is a configured agent persona.
// RoutingAddress scopes the persona to one receiving number; IsGlobal marks the catch-all.
type PersonaData struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Tone               string    `json:"tone,omitempty"`
	Language           string    `json:"language,omitempty"`
	Personality        string    `json:"personality,omitempty"`
	CustomInstructions string    `json:"custom_instructions,omitempty"`
	Signature          string    `json:"signature,omitempty"`
	Model              string    `json:"model,omitempty"`
	ForbiddenPhrases   []string  `json:"forbidden_phrases,omitempty"`
	Style              string    `json:"style,omitempty"`
	ReplyDelayMs       int       `json:"reply_delay_ms,omitempty"`
	AutoReplyEnabled   bool      `json:"auto_reply_enabled"`
	RoutingAddress     string    `json:"routing_address,omitempty"`
	IsGlobal           bool      `json:"is_global"`
	CustomSystemPrompt string    `json:"custom_system_prompt,omitempty"`
	HandoffTriggers    []string  `json:"handoff_triggers,omitempty"`
	HandoffMessage     string    `json:"handoff_message,omitempty"`
	MaxTokens          int       `json:"max_tokens,omitempty"`
	Temperature        *float64  `json:"temperature,omitempty"`
	MaxResponseTimeMs  int       `json:"max_response_time_ms,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// PersonaStore is the read-only persona repository.
// Address arguments are digits-only; lookups that match nothing return ErrNotFound.
type PersonaStore interface {
	GetByAddress(ctx context.Context, digits string) (*PersonaData, error)
	GetByAddressSuffix(ctx context.Context, suffix string) (*PersonaData, error)
	GetGlobal(ctx context.Context) (*PersonaData, error)
}
