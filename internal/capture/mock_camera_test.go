package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera(t *testing.T) {
	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()

	t.Run("read before open fails", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, false)
		if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraClosed) {
			t.Errorf("error = %v, want ErrCameraClosed", err)
		}
	})

	t.Run("plays frames in order and runs out", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame, &frame}, false)
		if err := cam.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		for i := 0; i < 2; i++ {
			f, err := cam.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() #%d error = %v", i, err)
			}
			f.Close()
		}
		if _, err := cam.ReadFrame(); err == nil {
			t.Error("expected error after sequence is exhausted")
		}
	})

	t.Run("loop wraps around", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, true)
		cam.Open()
		for i := 0; i < 5; i++ {
			f, err := cam.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame() #%d error = %v", i, err)
			}
			f.Close()
		}
	})

	t.Run("returned frames are clones", func(t *testing.T) {
		cam := NewMockCamera([]*gocv.Mat{&frame}, true)
		cam.Open()
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		// Closing the clone must not invalidate the source frame.
		f.Close()
		if frame.Empty() {
			t.Error("source frame was invalidated")
		}
	})

	t.Run("implements Camera interface", func(t *testing.T) {
		var _ Camera = (*MockCamera)(nil)
	})
}

func TestNewCamera_Defaults(t *testing.T) {
	cam := NewCamera(CameraConfig{DeviceID: 0})
	if cam.FPS() != DefaultCameraConfig().FPS {
		t.Errorf("FPS = %d, want %d", cam.FPS(), DefaultCameraConfig().FPS)
	}
	if cam.IsOpen() {
		t.Error("camera should not be open before Open()")
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraClosed) {
		t.Errorf("error = %v, want ErrCameraClosed", err)
	}
}
