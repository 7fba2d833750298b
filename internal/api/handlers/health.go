package handlers

import (
	"net/http"

	"github.com/cloo-solutions/mentor/internal/api"
)

type HealthResponse struct {
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
}

// Health reports liveness and the size of the knowledge store.
func Health(svc KnowledgeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Chunks: svc.Stats(r.Context()).Chunks,
		})
	}
}
