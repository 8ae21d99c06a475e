package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexandria-ai/alexandria/internal/document"
	"github.com/alexandria-ai/alexandria/internal/ingest"
	"github.com/alexandria-ai/alexandria/internal/log"
)

// ingester is the ingestion surface the handler needs.
type ingester interface {
	IngestText(ctx context.Context, title, content, sourceFile, userID string) (*ingest.Result, error)
	DeleteDocument(ctx context.Context, hash string) error
}

// documentLister reads the document catalog.
type documentLister interface {
	Get(ctx context.Context, hash string) (*document.Document, error)
	List(ctx context.Context) ([]*document.Document, error)
}

// DocumentsHandler serves the document ingestion and catalog endpoints.
type DocumentsHandler struct {
	ingest    ingester
	documents documentLister
	logger    log.Logger
}

func NewDocumentsHandler(ingest ingester, documents documentLister, logger log.Logger) *DocumentsHandler {
	return &DocumentsHandler{ingest: ingest, documents: documents, logger: logger}
}

func (h *DocumentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.create)
	mux.HandleFunc("GET /api/documents", h.list)
	mux.HandleFunc("GET /api/documents/{hash}", h.get)
	mux.HandleFunc("DELETE /api/documents/{hash}", h.delete)
}

// IngestRequest is the ingestion body.
type IngestRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceFile string `json:"source_file,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// IngestResponse reports the ingestion outcome. Ingested is false when
// the content hash was already known.
type IngestResponse struct {
	Hash     string `json:"hash"`
	Title    string `json:"title"`
	Chunks   int    `json:"chunks"`
	Ingested bool   `json:"ingested"`
}

// DocumentResponse is one catalog entry; content is omitted from lists.
type DocumentResponse struct {
	Hash       string    `json:"hash"`
	Title      string    `json:"title"`
	SourceFile string    `json:"source_file,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *DocumentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}

	res, err := h.ingest.IngestText(r.Context(), req.Title, req.Content, req.SourceFile, req.UserID)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyDocument) {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "document has no text content")
			return
		}
		h.logger.Error("ingestion failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "ingest_failed", "could not ingest document")
		return
	}

	status := http.StatusCreated
	if !res.Ingested {
		status = http.StatusOK
	}
	writeJSON(w, h.logger, status, IngestResponse{
		Hash:     res.Document.Hash,
		Title:    res.Document.Title,
		Chunks:   res.Chunks,
		Ingested: res.Ingested,
	})
}

func (h *DocumentsHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		h.logger.Error("listing documents", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "list_failed", "could not list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, h.logger, http.StatusOK, out)
}

func (h *DocumentsHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), r.PathValue("hash"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("fetching document", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "get_failed", "could not fetch document")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentsHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.ingest.DeleteDocument(r.Context(), r.PathValue("hash"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "document not found")
			return
		}
		h.logger.Error("deleting document", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "delete_failed", "could not delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toDocumentResponse(d *document.Document) DocumentResponse {
	return DocumentResponse{
		Hash:       d.Hash,
		Title:      d.Title,
		SourceFile: d.SourceFile,
		UserID:     d.UserID,
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
	}
}
