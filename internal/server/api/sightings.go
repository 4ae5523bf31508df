package api

import (
	"image"
	"net/http"
	"strconv"

	"github.com/ohearn/lookout/internal/store"
)

// SightingHandler handles HTTP requests for the sighting log.
type SightingHandler struct {
	store *store.Store
}

// NewSightingHandler creates a new SightingHandler with the given store.
func NewSightingHandler(s *store.Store) *SightingHandler {
	return &SightingHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SightingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.clear(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type sightingResponse struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Box         [4]int  `json:"box"`
	MaskArea    int     `json:"mask_area"`
	FrameWidth  int     `json:"frame_width"`
	FrameHeight int     `json:"frame_height"`
	CreatedAt   string  `json:"created_at"`
}

type listSightingsResponse struct {
	Sightings []sightingResponse `json:"sightings"`
}

// boxCoords flattens a rectangle to [x1, y1, x2, y2].
func boxCoords(r image.Rectangle) [4]int {
	return [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

func toSightingResponse(s *store.Sighting) sightingResponse {
	return sightingResponse{
		ID:          s.ID,
		Label:       s.Label,
		Confidence:  s.Confidence,
		Box:         boxCoords(s.Box),
		MaskArea:    s.MaskArea,
		FrameWidth:  s.FrameWidth,
		FrameHeight: s.FrameHeight,
		CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// list handles GET /api/sightings. It accepts optional "limit" and
// "label" query parameters.
func (h *SightingHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var (
		sightings []*store.Sighting
		err       error
	)
	if label := r.URL.Query().Get("label"); label != "" {
		sightings, err = h.store.Sightings().ListByLabel(label, limit)
	} else {
		sightings, err = h.store.Sightings().List(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sightings")
		return
	}

	response := listSightingsResponse{
		Sightings: make([]sightingResponse, 0, len(sightings)),
	}
	for _, s := range sightings {
		response.Sightings = append(response.Sightings, toSightingResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// clear handles DELETE /api/sightings and empties the sighting log.
func (h *SightingHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Sightings().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear sightings")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
