package store

import (
	"context"

	"github.com/google/uuid"
)

// KnowledgeTagGeneral marks items applicable to every contact type.
const KnowledgeTagGeneral = "general"

// KnowledgeItem is a short reference snippet used to ground replies. Read-only here.
type KnowledgeItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Keywords    []string  `json:"keywords,omitempty"`
	PartnerName string    `json:"partner_name,omitempty"`
	Tag         string    `json:"tag"`
}

// KnowledgeStore lists candidate snippets for scoring.
type KnowledgeStore interface {
	// ListCandidates returns up to limit active items whose tag is in tags.
	ListCandidates(ctx context.Context, tags []string, limit int) ([]KnowledgeItem, error)
}
