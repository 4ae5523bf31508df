package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ohearn/lookout/internal/detector"
)

// maxUploadBytes bounds one-shot detection uploads.
const maxUploadBytes = 16 << 20

// DetectHandler runs one-shot detection on an uploaded image.
type DetectHandler struct {
	detector *detector.Detector
}

// NewDetectHandler creates a new DetectHandler with the given detector.
func NewDetectHandler(d *detector.Detector) *DetectHandler {
	return &DetectHandler{detector: d}
}

type detectionJSON struct {
	Label      string  `json:"label"`
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
	Center     [2]int  `json:"center"`
	MaskArea   int     `json:"mask_area"`
}

type detectResponse struct {
	Detections []detectionJSON `json:"detections"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
}

// ServeHTTP handles POST /api/detect. The image arrives as the
// multipart field "image" (or the raw request body), the classes as a
// comma-separated "classes" query parameter and the confidence floor as
// an optional "threshold" parameter.
func (h *DetectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	classes := splitClasses(r.URL.Query().Get("classes"))
	if len(classes) == 0 {
		writeDetectError(w, http.StatusBadRequest, "Query parameter 'classes' is required")
		return
	}

	threshold := detector.DefaultConfig().Threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeDetectError(w, http.StatusBadRequest, "Invalid threshold")
			return
		}
		threshold = t
	}

	data, err := readImage(r)
	if err != nil {
		writeDetectError(w, http.StatusBadRequest, "Failed to read image upload")
		return
	}

	frame, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || frame.Empty() {
		writeDetectError(w, http.StatusBadRequest, "Unsupported or corrupt image")
		return
	}
	defer frame.Close()

	detections, err := h.detector.DetectWithThreshold(&frame, classes, threshold)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusBadRequest
		}
		writeDetectError(w, status, err.Error())
		return
	}

	response := detectResponse{
		Detections: make([]detectionJSON, 0, len(detections)),
		Width:      frame.Cols(),
		Height:     frame.Rows(),
	}
	for i := range detections {
		d := &detections[i]
		maskArea := 0
		if d.Mask != nil {
			maskArea = d.Mask.Area()
		}
		response.Detections = append(response.Detections, detectionJSON{
			Label:      d.Label,
			Class:      d.Class,
			Confidence: d.Confidence,
			Box:        [4]int{d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y},
			Center:     [2]int{d.Center.X, d.Center.Y},
			MaskArea:   maskArea,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readImage pulls the image bytes from a multipart "image" field, or
// from the raw body for clients that post the image directly.
func readImage(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

// isInputError reports whether err is a caller mistake rather than a
// backend failure.
func isInputError(err error) bool {
	return errors.Is(err, detector.ErrEmptyFrame) ||
		errors.Is(err, detector.ErrBadChannels) ||
		errors.Is(err, detector.ErrNoClasses) ||
		errors.Is(err, detector.ErrEmptyClass) ||
		errors.Is(err, detector.ErrThresholdRange)
}

// splitClasses parses a comma-separated class list, trimming whitespace
// and dropping empty entries.
func splitClasses(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	classes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			classes = append(classes, p)
		}
	}
	return classes
}

func writeDetectError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
