package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/alexandria-ai/alexandria/internal/chat"
	"github.com/alexandria-ai/alexandria/internal/log"
	"github.com/alexandria-ai/alexandria/internal/session"
)

// chatService is the use-case surface the handler needs.
type chatService interface {
	Respond(ctx context.Context, sessionID, userID, query, documentHash string) (*chat.Reply, error)
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	svc    chatService
	logger log.Logger
}

func NewChatHandler(svc chatService, logger log.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
}

// ChatRequest is the chat endpoint body. SessionID is optional; a fresh
// session id is minted when absent. DocumentHash optionally scopes
// retrieval to one ingested document.
type ChatRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	UserID       string `json:"user_id"`
	Query        string `json:"query"`
	DocumentHash string `json:"document_hash,omitempty"`
}

// ChatResponse is the chat endpoint reply.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Route     string `json:"route"`
	WebSearch bool   `json:"web_search"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, err := h.svc.Respond(r.Context(), req.SessionID, req.UserID, req.Query, req.DocumentHash)
	if err != nil {
		if errors.Is(err, session.ErrEmptyContent) {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "query is required")
			return
		}
		h.logger.Error("chat turn failed", "error", err, "session_id", req.SessionID)
		writeError(w, h.logger, http.StatusInternalServerError, "chat_failed", "could not produce an answer")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChatResponse{
		SessionID: reply.SessionID,
		Answer:    reply.Answer,
		Route:     string(reply.Route),
		WebSearch: reply.WebSearch,
	})
}
