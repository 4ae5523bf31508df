package server

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ohearn/lookout/internal/capture"
	"github.com/ohearn/lookout/internal/store"
)

// overlayTTL is how long a sighting stays drawn on the stream.
const overlayTTL = 2 * time.Second

var overlayColor = color.RGBA{R: 0, G: 255, B: 0}

// StreamHandler serves MJPEG frames from the camera with recent
// sightings drawn as labeled boxes.
type StreamHandler struct {
	camera   capture.Camera
	overlays []overlay
	mu       sync.Mutex
}

type overlay struct {
	label   string
	box     image.Rectangle
	expires time.Time
}

// NewStreamHandler creates a new StreamHandler with the given camera.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{camera: camera}
}

// Publish adds a sighting to the stream overlay. It expires after a
// couple of seconds.
func (h *StreamHandler) Publish(s *store.Sighting) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlays = append(h.overlays, overlay{
		label:   fmt.Sprintf("%s %.2f", s.Label, s.Confidence),
		box:     s.Box,
		expires: time.Now().Add(overlayTTL),
	})
}

// annotate draws the live overlays onto the frame and drops the expired
// ones.
func (h *StreamHandler) annotate(frame *gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	live := h.overlays[:0]
	for _, o := range h.overlays {
		if now.After(o.expires) {
			continue
		}
		live = append(live, o)

		gocv.Rectangle(frame, o.box, overlayColor, 2)
		origin := image.Pt(o.box.Min.X, o.box.Min.Y-6)
		if origin.Y < 12 {
			origin.Y = o.box.Min.Y + 16
		}
		gocv.PutText(frame, o.label, origin, gocv.FontHersheySimplex, 0.5, overlayColor, 1)
	}
	h.overlays = live
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, err := h.camera.ReadFrame()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		h.annotate(frame)

		buf, err := gocv.IMEncode(".jpg", *frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}
