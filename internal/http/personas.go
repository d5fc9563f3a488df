package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PersonasHandler lets operators check which persona answers a given number.
type PersonasHandler struct {
	personas store.PersonaStore
	defaults persona.Defaults
	token    string
}

// NewPersonasHandler creates a handler for persona inspection endpoints.
func NewPersonasHandler(personas store.PersonaStore, defaults persona.Defaults, token string) *PersonasHandler {
	return &PersonasHandler{personas: personas, defaults: defaults, token: token}
}

// RegisterRoutes registers persona routes on the given mux.
func (h *PersonasHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/personas/resolve", requireToken(h.token, h.handleResolve))
}

type resolvedPersona struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Source            string   `json:"source"`
	Language          string   `json:"language,omitempty"`
	Model             string   `json:"model"`
	MaxTokens         int      `json:"max_tokens"`
	Temperature       float64  `json:"temperature"`
	ReplyDelayMs      int64    `json:"reply_delay_ms"`
	MaxResponseTimeMs int64    `json:"max_response_time_ms"`
	AutoReplyEnabled  bool     `json:"auto_reply_enabled"`
	HandoffTriggers   []string `json:"handoff_triggers,omitempty"`
	CustomPrompt      bool     `json:"custom_system_prompt"`
}

func (h *PersonasHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")

	ep, err := persona.Resolve(r.Context(), address, h.personas, h.defaults)
	if err != nil {
		if errors.Is(err, persona.ErrNoPersona) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("personas.resolve_failed", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resolvedPersona{
		ID:                ep.ID.String(),
		Name:              ep.Name,
		Source:            ep.Source,
		Language:          ep.Language,
		Model:             ep.Model,
		MaxTokens:         ep.MaxTokens,
		Temperature:       ep.Temperature,
		ReplyDelayMs:      ep.ReplyDelay.Milliseconds(),
		MaxResponseTimeMs: ep.MaxResponseTime.Milliseconds(),
		AutoReplyEnabled:  ep.AutoReplyEnabled,
		HandoffTriggers:   ep.HandoffTriggers,
		CustomPrompt:      ep.CustomSystemPrompt != "",
	})
}
