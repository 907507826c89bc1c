package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lifeone/internal/apperr"
)

// ListSessions handles GET /api/chat/sessions?q=.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.st.ListSessions(r.URL.Query().Get("q"))})
}

// CreateSession handles POST /api/chat/sessions. The body is optional.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, h.st.CreateSession(req.Title))
}

// GetSession handles GET /api/chat/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cs, err := h.st.GetSession(id)
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": cs,
		"busy":    h.chat.IsBusy(id),
	})
}

// RenameSession handles PATCH /api/chat/sessions/{id}.
func (h *Handler) RenameSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.st.RenameSession(chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeError(w, "rename session", err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// DeleteSession handles DELETE /api/chat/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.st.DeleteSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /api/chat/sessions/{id}/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	in, ok := readMessage(w, r)
	if !ok {
		return
	}
	reply, err := h.chat.SendMessage(r.Context(), chi.URLParam(r, "id"), in)
	h.writeReply(w, reply, err)
}

// SelectOption handles POST /api/chat/sessions/{id}/options.
func (h *Handler) SelectOption(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := h.chat.SelectOption(r.Context(), chi.URLParam(r, "id"), req.Option)
	h.writeReply(w, reply, err)
}

// writeReply reports the turn. Empty input is answered like any other turn
// with the canned reply; provider failures still carry the chat-visible
// message.
func (h *Handler) writeReply(w http.ResponseWriter, reply any, err error) {
	switch {
	case err == nil, errors.Is(err, apperr.ErrEmptyInput):
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, apperr.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "reply": reply})
	default:
		writeError(w, "send message", err)
	}
}

// GetConflicts handles GET /api/chat/sessions/{id}/conflicts.
func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	batch, report, err := h.chat.Pending(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch": batch, "conflicts": report})
}

// ResolveConflicts handles POST /api/chat/sessions/{id}/conflicts.
func (h *Handler) ResolveConflicts(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.chat.ResolveConflicts(r.Context(), chi.URLParam(r, "id"), req.Decision)
	if err != nil {
		writeError(w, "resolve conflicts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
