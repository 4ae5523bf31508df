// Package api provides HTTP API handlers for the Lookout object spotting system.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ohearn/lookout/internal/store"
)

// TargetHandler handles HTTP requests for watch target resources.
type TargetHandler struct {
	store *store.Store

	// OnChange is invoked after any mutation so the watch pipeline can
	// reload its target list.
	OnChange func()
}

// NewTargetHandler creates a new TargetHandler with the given store.
func NewTargetHandler(s *store.Store) *TargetHandler {
	return &TargetHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *TargetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/targets or /api/targets/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/targets")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createTargetRequest struct {
	Label     string   `json:"label"`
	Threshold *float64 `json:"threshold"`
	Enabled   *bool    `json:"enabled"`
}

type updateTargetRequest struct {
	Label     string   `json:"label"`
	Threshold *float64 `json:"threshold"`
	Enabled   *bool    `json:"enabled"`
}

type targetResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
	Enabled   bool    `json:"enabled"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listTargetsResponse struct {
	Targets []targetResponse `json:"targets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// defaultThreshold is the confidence floor applied when a target does
// not set its own.
const defaultThreshold = 0.1

// toResponse converts a store.Target to a targetResponse.
func toResponse(t *store.Target) targetResponse {
	return targetResponse{
		ID:        t.ID,
		Label:     t.Label,
		Threshold: t.Threshold,
		Enabled:   t.Enabled,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: t.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// validThreshold reports whether t is a usable confidence floor.
func validThreshold(t float64) bool {
	return t > 0 && t <= 1
}

func (h *TargetHandler) changed() {
	if h.OnChange != nil {
		h.OnChange()
	}
}

// list handles GET /api/targets and returns all watch targets.
func (h *TargetHandler) list(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.Targets().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list targets")
		return
	}

	response := listTargetsResponse{
		Targets: make([]targetResponse, 0, len(targets)),
	}
	for _, t := range targets {
		response.Targets = append(response.Targets, toResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/targets/{id} and returns a single target.
func (h *TargetHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	target, err := h.store.Targets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get target")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(target))
}

// create handles POST /api/targets and creates a new watch target.
func (h *TargetHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}

	threshold := defaultThreshold
	if req.Threshold != nil {
		if !validThreshold(*req.Threshold) {
			writeError(w, http.StatusBadRequest, "Threshold must be in (0, 1]")
			return
		}
		threshold = *req.Threshold
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	target := &store.Target{
		ID:        uuid.New().String(),
		Label:     label,
		Threshold: threshold,
		Enabled:   enabled,
	}

	if err := h.store.Targets().Create(target); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create target")
		return
	}

	h.changed()
	writeJSON(w, http.StatusCreated, toResponse(target))
}

// update handles PUT /api/targets/{id} and updates an existing target.
func (h *TargetHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	target, err := h.store.Targets().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get target")
		return
	}

	var req updateTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label != "" {
		target.Label = strings.TrimSpace(req.Label)
	}
	if req.Threshold != nil {
		if !validThreshold(*req.Threshold) {
			writeError(w, http.StatusBadRequest, "Threshold must be in (0, 1]")
			return
		}
		target.Threshold = *req.Threshold
	}
	if req.Enabled != nil {
		target.Enabled = *req.Enabled
	}

	if err := h.store.Targets().Update(target); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update target")
		return
	}

	h.changed()
	writeJSON(w, http.StatusOK, toResponse(target))
}

// delete handles DELETE /api/targets/{id} and removes a target.
func (h *TargetHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Targets().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Target not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete target")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}
