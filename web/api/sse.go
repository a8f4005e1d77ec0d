package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/poller"
)

// JobEvent is one job transition pushed to dashboard subscribers on
// the /api/events stream.
type JobEvent struct {
	JobID     string           `json:"job_id"`
	DisplayID int              `json:"display_id"`
	State     string           `json:"state"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Progress  *domain.Progress `json:"progress,omitempty"`
}

func jobEvent(u poller.Update) JobEvent {
	event := JobEvent{
		JobID:     u.JobID,
		DisplayID: u.DisplayID,
		State:     u.State.String(),
	}
	if u.Snapshot != nil {
		event.Status = u.Snapshot.Status
		event.Progress = u.Snapshot.Progress
	}
	return event
}

// EventHub fans job transitions out to the dashboard's SSE
// subscribers. Registration, teardown, and delivery all funnel through
// the Run goroutine, which alone touches the subscriber map.
type EventHub struct {
	clients    map[chan JobEvent]bool
	broadcast  chan JobEvent
	register   chan chan JobEvent
	unregister chan chan JobEvent
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[chan JobEvent]bool),
		broadcast:  make(chan JobEvent),
		register:   make(chan chan JobEvent),
		unregister: make(chan chan JobEvent),
	}
}

// Run owns the subscriber map until the process exits
func (h *EventHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}

		case event := <-h.broadcast:
			for client := range h.clients {
				select {
				case client <- event:
				default:
					// Subscriber stopped draining its channel.
					close(client)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast delivers one job event to every subscriber
func (h *EventHub) Broadcast(event JobEvent) {
	h.broadcast <- event
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		flusher.Flush()

		client := make(chan JobEvent, 8)
		s.events.register <- client

		go func() {
			<-r.Context().Done()
			s.events.unregister <- client
		}()

		for event := range client {
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: job_update\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
