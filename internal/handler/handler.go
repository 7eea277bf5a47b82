package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"relaychat/internal/config"
	"relaychat/internal/hub"
	"relaychat/internal/service"
)

// Handler bundles the HTTP surface: auth, history, uploads and the
// websocket entry point.
type Handler struct {
	cfg   *config.Config
	log   zerolog.Logger
	hub   *hub.Hub
	users service.IUserService
	store service.IMessageStore
}

// New creates the HTTP handler set.
func New(cfg *config.Config, log zerolog.Logger, h *hub.Hub, users service.IUserService, store service.IMessageStore) *Handler {
	return &Handler{cfg: cfg, log: log, hub: h, users: users, store: store}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
