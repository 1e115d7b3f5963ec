package handler

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"cctvmonitor/internal/dto"
	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/model"
	"cctvmonitor/internal/repository"

	"github.com/goccy/go-json"
)

// GetEventsHandler returns a filtered, paginated list of stored events.
func GetEventsHandler(eventRepo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.EventFilter{
			Camera:     q.Get("camera"),
			Kind:       model.BehaviorKind(q.Get("type")),
			UnreadOnly: q.Get("unread") == "true",
			StartDate:  parseDate(q.Get("dateAfter")),
			EndDate:    endOfDay(parseDate(q.Get("dateBefore"))),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		events, err := eventRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying events from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if events == nil {
			events = []model.Event{}
		}

		totalCount, err := eventRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting events: %v", err)
			totalCount = len(events)
		}

		writeJSON(w, http.StatusOK, dto.EventsPage{
			Events:      events,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// GetEventStatsHandler returns event counts per camera and per behavior.
func GetEventStatsHandler(eventRepo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := eventRepo.GetStats()
		if err != nil {
			logger.Error("Error getting event stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}

// MarkEventReadHandler flags one event (?id=) or all events (optionally ?camera=) as read.
func MarkEventReadHandler(eventRepo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("id") == "" {
			n, err := eventRepo.MarkAllRead(q.Get("camera"))
			if err != nil {
				logger.Error("Failed to mark events read: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int64{"updated": n}, logger)
			return
		}

		id, ok := parseID(w, q.Get("id"))
		if !ok {
			return
		}
		if err := eventRepo.MarkRead(id); err != nil {
			logger.Error("Failed to mark event %d read: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteEventHandler removes an event, its snapshot row and its snapshot file.
func DeleteEventHandler(eventRepo repository.EventRepository, snapshotRepo repository.SnapshotRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r.URL.Query().Get("id"))
		if !ok {
			return
		}

		ev, err := eventRepo.GetByID(id)
		if err != nil {
			logger.Error("Failed to load event %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if ev == nil {
			http.NotFound(w, r)
			return
		}

		if err := eventRepo.Delete(id); err != nil {
			logger.Error("Failed to delete event %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if ev.SnapshotID != nil {
			if err := os.Remove(ev.ImagePath); err != nil && !os.IsNotExist(err) {
				logger.Error("Failed to delete file %s: %v", ev.ImagePath, err)
			}
			if err := snapshotRepo.Delete(*ev.SnapshotID); err != nil {
				logger.Error("Failed to delete snapshot %d: %v", *ev.SnapshotID, err)
			}
		}

		logger.Info("Deleted event %d", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewSnapshotHandler serves the snapshot image of the event given by ?id=.
func ViewSnapshotHandler(eventRepo repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r.URL.Query().Get("id"))
		if !ok {
			return
		}

		ev, err := eventRepo.GetByID(id)
		if err != nil {
			logger.Error("Failed to load event %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if ev == nil || ev.ImagePath == "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, ev.ImagePath)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func parseID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Valid id required", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format) as UTC midnight.
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// endOfDay moves a date to its last instant so "before" filters include the whole day.
func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(24*time.Hour - time.Nanosecond)
}
