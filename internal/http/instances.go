package http

import (
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// ChannelInstancesHandler lists the gateway instances replies can go out through.
type ChannelInstancesHandler struct {
	store store.ChannelInstanceStore
	token string
}

// NewChannelInstancesHandler creates a handler for channel instance endpoints.
func NewChannelInstancesHandler(s store.ChannelInstanceStore, token string) *ChannelInstancesHandler {
	return &ChannelInstancesHandler{store: s, token: token}
}

// RegisterRoutes registers channel instance routes on the given mux.
func (h *ChannelInstancesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/channels/instances", requireToken(h.token, h.handleList))
}

type instanceView struct {
	InstanceKey    string `json:"instance_key"`
	DisplayName    string `json:"display_name,omitempty"`
	RoutingAddress string `json:"routing_address,omitempty"`
	Status         string `json:"status"`
	HasToken       bool   `json:"has_token"`
}

func (h *ChannelInstancesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListConnected(r.Context())
	if err != nil {
		slog.Error("instances.list_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]instanceView, 0, len(list))
	for _, inst := range list {
		out = append(out, instanceView{
			InstanceKey:    inst.InstanceKey,
			DisplayName:    inst.DisplayName,
			RoutingAddress: inst.RoutingAddress,
			Status:         inst.Status,
			HasToken:       inst.Token != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instances": out})
}
