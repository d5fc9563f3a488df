package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/channels"
)

// Runner runs the reply pipeline for one inbound event.
type Runner interface {
	Run(ctx context.Context, ev agent.InboundEvent) (*agent.Result, error)
}

// InboundHandler receives channel webhook events and runs the reply pipeline.
type InboundHandler struct {
	runner  Runner
	token   string
	limiter *channels.SenderRateLimiter
	maxBody int64
}

// NewInboundHandler creates the webhook handler. limiter may be nil.
func NewInboundHandler(runner Runner, token string, limiter *channels.SenderRateLimiter, maxBody int64) *InboundHandler {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &InboundHandler{runner: runner, token: token, limiter: limiter, maxBody: maxBody}
}

// RegisterRoutes registers the webhook route on the given mux.
func (h *InboundHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/inbound", requireToken(h.token, h.handleInbound))
}

func (h *InboundHandler) handleInbound(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var ev agent.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.limiter.Allow(channels.DigitsOnly(ev.SenderAddress)) {
		slog.Warn("inbound.rate_limited", "conversation", ev.ConversationID, "sender", ev.SenderAddress)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	res, err := h.runner.Run(r.Context(), ev)
	if err != nil {
		switch {
		case agent.IsConfigurationError(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case agent.IsProviderError(err):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			slog.Error("inbound.run_failed", "conversation", ev.ConversationID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}
