// Package server provides the HTTP server for the Lookout object spotting system.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ohearn/lookout/internal/capture"
	"github.com/ohearn/lookout/internal/detector"
	"github.com/ohearn/lookout/internal/server/api"
	"github.com/ohearn/lookout/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Camera    capture.Camera
	Detector  *detector.Detector

	// OnTargetsChanged is invoked after any target mutation so the watch
	// pipeline can reload its target list.
	OnTargetsChanged func()
}

// Server represents the HTTP server for the Lookout application.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventsHandler
	stream *StreamHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: NewEventsHandler(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		targetHandler := api.NewTargetHandler(s.config.Store)
		targetHandler.OnChange = s.config.OnTargetsChanged
		s.mux.Handle("/api/targets", targetHandler)
		s.mux.Handle("/api/targets/", targetHandler)

		s.mux.Handle("/api/sightings", api.NewSightingHandler(s.config.Store))
	}

	if s.config.Detector != nil {
		s.mux.Handle("/api/detect", NewDetectHandler(s.config.Detector))
	}

	if s.config.Camera != nil {
		s.stream = NewStreamHandler(s.config.Camera)
		s.mux.Handle("/api/stream", s.stream)
	}

	s.mux.Handle("/api/events", s.events)

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Events returns the sighting broadcast handler so the pipeline can
// publish into it.
func (s *Server) Events() *EventsHandler {
	return s.events
}

// Stream returns the MJPEG stream handler, or nil when no camera is
// configured.
func (s *Server) Stream() *StreamHandler {
	return s.stream
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
