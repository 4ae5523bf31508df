// Package capture provides camera frame acquisition and motion gating
// for the Lookout object spotting system, built on GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrCameraClosed is returned when reading from a camera that is not open.
var ErrCameraClosed = errors.New("camera is not open")

// CameraConfig holds camera device settings.
type CameraConfig struct {
	// DeviceID selects the capture device.
	DeviceID int

	// Width and Height set the capture resolution.
	Width  int
	Height int

	// FPS is the initial capture rate.
	FPS int
}

// DefaultCameraConfig returns conservative capture settings. The low
// frame rate keeps CPU use down while the pipeline idles.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		FPS:      5,
	}
}

// Camera is a source of video frames.
type Camera interface {
	Open() error
	Close() error

	// ReadFrame returns the next frame. The caller owns the returned Mat
	// and must close it.
	ReadFrame() (*gocv.Mat, error)

	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// webcam captures frames from a physical device through GoCV.
type webcam struct {
	config CameraConfig
	cap    *gocv.VideoCapture
	fps    int
	mu     sync.Mutex
}

// NewCamera creates a Camera for the configured device. The device is
// not opened until Open is called.
func NewCamera(config CameraConfig) Camera {
	if config.Width <= 0 || config.Height <= 0 {
		def := DefaultCameraConfig()
		config.Width, config.Height = def.Width, def.Height
	}
	if config.FPS <= 0 {
		config.FPS = DefaultCameraConfig().FPS
	}
	return &webcam{config: config, fps: config.FPS}
}

// Open opens the capture device and applies the configured resolution
// and frame rate.
func (w *webcam) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap != nil {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(w.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", w.config.DeviceID, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(w.config.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(w.config.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(w.fps))

	w.cap = cap
	return nil
}

// Close releases the capture device.
func (w *webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}

// ReadFrame reads a single frame from the device.
func (w *webcam) ReadFrame() (*gocv.Mat, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, ErrCameraClosed
	}

	mat := gocv.NewMat()
	if ok := w.cap.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("camera returned an empty frame")
	}
	return &mat, nil
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (w *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.fps = fps
	if w.cap != nil {
		w.cap.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current capture rate setting.
func (w *webcam) FPS() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fps
}

// IsOpen reports whether the device is open.
func (w *webcam) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cap != nil
}
