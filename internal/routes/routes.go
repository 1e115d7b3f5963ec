package routes

import (
	"net/http"

	"cctvmonitor/internal/handler"
	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/repository"
	"cctvmonitor/internal/service/websocket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies groups what the HTTP layer reads from.
type Dependencies struct {
	Hub       *websocket.HubService
	Pipelines handler.PipelineStats
	Events    repository.EventRepository
	Snapshots repository.SnapshotRepository
	Logger    *logger.Logger
}

// SetupRoutes registers the alert stream, the event API, health and metrics.
func SetupRoutes(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Live alerts
	mux.HandleFunc("/api/alerts", handler.AlertsWebsocketHandler(deps.Hub, deps.Logger))

	// Stored events
	mux.HandleFunc("GET /api/events", handler.GetEventsHandler(deps.Events, deps.Logger))
	mux.HandleFunc("DELETE /api/events", handler.DeleteEventHandler(deps.Events, deps.Snapshots, deps.Logger))
	mux.HandleFunc("GET /api/events/stats", handler.GetEventStatsHandler(deps.Events, deps.Logger))
	mux.HandleFunc("POST /api/events/read", handler.MarkEventReadHandler(deps.Events, deps.Logger))
	mux.HandleFunc("GET /api/events/snapshot", handler.ViewSnapshotHandler(deps.Events, deps.Logger))

	// Operations
	mux.HandleFunc("GET /health", handler.HealthHandler(deps.Pipelines, deps.Hub, deps.Logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}
