// Package api exposes the console's view of jobs over HTTP for the
// web dashboard: REST endpoints for listings and details, SSE for
// job status pushes, and a websocket for following the activity log.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/poller"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/registry"
)

// Server is the HTTP API server
type Server struct {
	registry *registry.Registry
	pollers  *poller.Manager
	addr     string
	mux      *http.ServeMux
	events   *EventHub
	logHub   *LogHub
}

// NewServer creates a new API server
func NewServer(reg *registry.Registry, pollers *poller.Manager, addr string) *Server {
	s := &Server{
		registry: reg,
		pollers:  pollers,
		addr:     addr,
		mux:      http.NewServeMux(),
		events:   NewEventHub(),
		logHub:   NewLogHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/jobs", s.listJobsHandler())
	s.mux.HandleFunc("/api/jobs/", s.getJobHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/logs/follow", s.followLogsHandler())

	// Static files (dashboard build output)
	s.mux.Handle("/", http.FileServer(http.Dir("web/ui/build")))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.events.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// PublishUpdate pushes one poller update to every connected client:
// an SSE job_update event plus the new log lines over the websocket.
func (s *Server) PublishUpdate(u poller.Update) {
	s.events.Broadcast(jobEvent(u))
	for _, entry := range u.NewEntries {
		s.logHub.Publish(entry)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
