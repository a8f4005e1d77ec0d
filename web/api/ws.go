package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from the same host; other origins are
	// fine too since the stream is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LogHub fans activity log entries out to websocket followers
type LogHub struct {
	mu      sync.Mutex
	clients map[chan domain.LogEntry]bool
}

// NewLogHub creates a new log hub
func NewLogHub() *LogHub {
	return &LogHub{clients: make(map[chan domain.LogEntry]bool)}
}

// Publish sends an entry to all followers. A follower that cannot keep
// up is dropped rather than blocking the publisher.
func (h *LogHub) Publish(entry domain.LogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client <- entry:
		default:
			delete(h.clients, client)
			close(client)
		}
	}
}

func (h *LogHub) subscribe() chan domain.LogEntry {
	client := make(chan domain.LogEntry, 64)
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	return client
}

func (h *LogHub) unsubscribe(client chan domain.LogEntry) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client)
	}
	h.mu.Unlock()
}

func (s *Server) followLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("log follow upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		client := s.logHub.subscribe()
		defer s.logHub.unsubscribe(client)

		// Drain (and discard) client frames so pings and close frames
		// are processed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case entry, ok := <-client:
				if !ok {
					return
				}
				if err := conn.WriteJSON(entry); err != nil {
					return
				}
			}
		}
	}
}
