package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"cctvmonitor/internal/logger"
	"cctvmonitor/internal/metrics"
	"cctvmonitor/internal/service/surveillance"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// ErrHubClosed is returned when publishing after the hub stopped.
var ErrHubClosed = errors.New("alert hub is not running")

const writeWait = 5 * time.Second

// AlertMessage is the JSON document pushed to every viewer.
type AlertMessage struct {
	Type  string             `json:"type"`
	Alert surveillance.Alert `json:"alert"`
}

// HubService fans alerts out to connected WebSocket viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.AlertViewers.Set(float64(count))
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.AlertViewers.Set(float64(count))
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending alert: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.AlertViewers.Set(float64(count))
		}
	}
}

func (h *HubService) shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	close(h.done)
	for client := range h.clients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		client.Close()
		delete(h.clients, client)
	}
	metrics.AlertViewers.Set(0)
	h.logger.Info("Alert hub stopped")
}

// Register adds a viewer. It is a no-op once the hub stopped.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a viewer.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an alert for every connected viewer.
func (h *HubService) Publish(ctx context.Context, alert surveillance.Alert) error {
	message, err := EncodeAlert(alert)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// EncodeAlert renders the message viewers receive for one alert.
func EncodeAlert(alert surveillance.Alert) ([]byte, error) {
	return json.Marshal(AlertMessage{Type: "alert", Alert: alert})
}

// SinkFor exposes the hub as a loop sink for any frame type. The frame is ignored.
func SinkFor[F any](h *HubService) surveillance.Sink[F] {
	return surveillance.SinkFunc[F](func(ctx context.Context, alert surveillance.Alert, _ F) error {
		return h.Publish(ctx, alert)
	})
}
