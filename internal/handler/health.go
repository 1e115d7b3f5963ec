package handler

import (
	"net/http"

	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/service/surveillance"
)

type healthResponse struct {
	Status  string               `json:"status"`
	Viewers int                  `json:"viewers"`
	Cameras []surveillance.Stats `json:"cameras"`
}

// PipelineStats reports per-camera loop totals.
type PipelineStats interface {
	Stats() []surveillance.Stats
}

// ViewerCounter reports connected alert viewers.
type ViewerCounter interface {
	GetClientCount() int
}

// HealthHandler reports liveness with per-camera loop totals.
func HealthHandler(pipelines PipelineStats, viewers ViewerCounter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Viewers: viewers.GetClientCount(),
			Cameras: pipelines.Stats(),
		}, logger)
	}
}
