package handler

import (
	"net/http"
	"strconv"
	"time"

	"relaychat/internal/domain"
	mongorepo "relaychat/internal/repository/mongo"
)

type messagesResponse struct {
	Room     string           `json:"room"`
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
}

// GetMessages returns one page of room history, oldest to newest:
// GET /api/messages?room=general&before=2026-01-02T15:04:05Z&beforeId=...&limit=20
// beforeId is the id of the message at the before timestamp; it splits
// timestamp ties exactly at page boundaries.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		h.writeError(w, http.StatusBadRequest, "room is required")
		return
	}

	var before *domain.PageCursor
	if s := r.URL.Query().Get("before"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		before = &domain.PageCursor{CreatedAt: t, ID: r.URL.Query().Get("beforeId")}
	}

	limit := int64(mongorepo.DefaultPageLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	limit = mongorepo.ClampLimit(limit)

	// Fetch one extra row to detect whether older history remains.
	messages, err := h.store.Page(r.Context(), room, before, limit+1)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("history query failed")
		h.writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	hasMore := int64(len(messages)) > limit
	if hasMore {
		messages = messages[1:] // drop the extra oldest row
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	h.writeJSON(w, http.StatusOK, messagesResponse{
		Room:     room,
		Messages: messages,
		HasMore:  hasMore,
	})
}
