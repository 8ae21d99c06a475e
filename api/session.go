package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/session"
)

// sessionStore is the session surface the handler needs.
type sessionStore interface {
	ListByUser(ctx context.Context, userID string) ([]*session.Session, error)
	History(ctx context.Context, sessionID string, limit int) ([]*session.Message, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionsHandler serves the session management endpoints.
type SessionsHandler struct {
	store  sessionStore
	logger log.Logger
}

func NewSessionsHandler(store sessionStore, logger log.Logger) *SessionsHandler {
	return &SessionsHandler{store: store, logger: logger}
}

func (h *SessionsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.messages)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
}

// SessionResponse is one session summary.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageResponse is one transcript entry.
type MessageResponse struct {
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	sessions, err := h.store.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "list_failed", "could not list sessions")
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionResponse{
			SessionID: s.SessionID,
			UserID:    s.UserID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *SessionsHandler) messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.store.History(r.Context(), r.PathValue("id"), 0)
	if err != nil {
		h.logger.Error("loading transcript", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "history_failed", "could not load messages")
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageResponse{
			Role:           string(m.Role),
			Content:        m.Content,
			SequenceNumber: m.SequenceNumber,
			CreatedAt:      m.CreatedAt,
		})
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("deleting session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "delete_failed", "could not delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
