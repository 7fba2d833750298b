package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/mentor/internal/api"
	"github.com/cloo-solutions/mentor/internal/service"
)

type KnowledgeService interface {
	IngestDocument(ctx context.Context, filename, contentType string, data []byte) (*service.IngestResult, error)
	Stats(ctx context.Context) *service.KnowledgeStats
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.Stats(r.Context())
	if stats.Sources == nil {
		stats.Sources = []string{}
	}
	api.Success(w, http.StatusOK, stats)
}
