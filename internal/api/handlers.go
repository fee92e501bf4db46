package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/chunker"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/daemon"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/models"
	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/search"
)

// maxBodyBytes bounds request bodies, ingest included.
const maxBodyBytes = 16 << 20

// Service is what the handlers need from the daemon.
type Service interface {
	SearchDefaults() search.Config
	Search(ctx context.Context, query string, cfg search.Config) (*search.Response, error)
	Chunker() *chunker.TextChunker
	Ingest(ctx context.Context, req daemon.IngestRequest) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	Health(ctx context.Context) daemon.HealthReport
}

var _ Service = (*daemon.Daemon)(nil)

// Handler handles HTTP requests for the retrieval API
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Health handles GET /health requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// Search handles POST /api/v1/search requests
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decode(w, r, &req) {
		return
	}

	cfg, err := req.Apply(h.svc.SearchDefaults())
	if err != nil {
		WriteBadRequest(w, ErrInvalidSearchConfig.WithDetails(err.Error()))
		return
	}

	resp, err := h.svc.Search(r.Context(), req.Query, cfg)
	if err != nil {
		status, apiErr := statusFor(err, ErrSearchFailed)
		if status >= 500 {
			h.logger.Error("search failed", "request_id", RequestIDFromContext(r.Context()), "error", err)
		}
		WriteError(w, status, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Chunk handles POST /api/v1/chunk requests
func (h *Handler) Chunk(w http.ResponseWriter, r *http.Request) {
	var req ChunkRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteBadRequest(w, ErrTextRequired)
		return
	}

	chk := h.svc.Chunker()
	size, overlap := chk.ChunkSize(), chk.Overlap()
	if req.ChunkSize != 0 {
		size = req.ChunkSize
	}
	if req.Overlap != nil {
		overlap = *req.Overlap
	}
	if size < 1 || overlap < 0 || overlap >= size {
		WriteBadRequest(w, NewError(CodeInvalidRequest,
			"Chunk size must be positive and overlap within [0, chunkSize)", ""))
		return
	}

	chunks := chunker.ChunkText(req.Text, size, overlap)
	writeJSON(w, http.StatusOK, ChunkResponse{
		Chunks:    chunks,
		Count:     len(chunks),
		ChunkSize: size,
		Overlap:   overlap,
	})
}

// IngestDocument handles POST /api/v1/documents requests
func (h *Handler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteBadRequest(w, ErrTextRequired)
		return
	}
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Source) == "" {
		WriteBadRequest(w, ErrNameRequired)
		return
	}

	doc, err := h.svc.Ingest(r.Context(), daemon.IngestRequest{
		Name:     req.Name,
		Source:   req.Source,
		Text:     req.Text,
		Metadata: req.Metadata,
	})
	if err != nil {
		status, apiErr := statusFor(err, ErrIngestFailed)
		if status >= 500 {
			h.logger.Error("ingest failed", "request_id", RequestIDFromContext(r.Context()), "name", req.Name, "error", err)
		}
		WriteError(w, status, apiErr)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments handles GET /api/v1/documents requests
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		status, apiErr := statusFor(err, ErrStoreFailed)
		WriteError(w, status, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// GetDocument handles GET /api/v1/documents/{id} requests
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, apiErr := statusFor(err, ErrStoreFailed)
		WriteError(w, status, apiErr)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/v1/documents/{id} requests
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		status, apiErr := statusFor(err, ErrStoreFailed)
		WriteError(w, status, apiErr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst and writes a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, NewError(CodeInvalidRequest, "Request body too large", ""))
			return false
		}
		WriteBadRequest(w, ErrInvalidJSON.WithDetails(err.Error()))
		return false
	}
	return true
}
