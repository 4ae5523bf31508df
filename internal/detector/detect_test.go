package detector

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func testFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &frame
}

func TestNew(t *testing.T) {
	t.Run("nil boxer is rejected", func(t *testing.T) {
		if _, err := New(nil, nil, DefaultConfig()); err == nil {
			t.Error("expected error for nil boxer")
		}
	})

	t.Run("zero config gets defaults", func(t *testing.T) {
		d, err := New(NewMockBoxer(), nil, Config{})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if d.config.Threshold != 0.1 {
			t.Errorf("threshold = %f, want 0.1", d.config.Threshold)
		}
		if d.config.OverlapThreshold != 0.9 {
			t.Errorf("overlap threshold = %f, want 0.9", d.config.OverlapThreshold)
		}
	})
}

func TestDetector_Detect_InputValidation(t *testing.T) {
	d, err := New(NewMockBoxer(), NewMockSegmenter(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	frame := testFrame(t)

	t.Run("nil frame", func(t *testing.T) {
		if _, err := d.Detect(nil, []string{"dog"}); !errors.Is(err, ErrEmptyFrame) {
			t.Errorf("error = %v, want ErrEmptyFrame", err)
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()
		if _, err := d.Detect(&empty, []string{"dog"}); !errors.Is(err, ErrEmptyFrame) {
			t.Errorf("error = %v, want ErrEmptyFrame", err)
		}
	})

	t.Run("grayscale frame", func(t *testing.T) {
		gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC1)
		defer gray.Close()
		if _, err := d.Detect(&gray, []string{"dog"}); !errors.Is(err, ErrBadChannels) {
			t.Errorf("error = %v, want ErrBadChannels", err)
		}
	})

	t.Run("empty class list", func(t *testing.T) {
		if _, err := d.Detect(frame, nil); !errors.Is(err, ErrNoClasses) {
			t.Errorf("error = %v, want ErrNoClasses", err)
		}
	})

	t.Run("empty class name", func(t *testing.T) {
		if _, err := d.Detect(frame, []string{"dog", ""}); !errors.Is(err, ErrEmptyClass) {
			t.Errorf("error = %v, want ErrEmptyClass", err)
		}
	})

	t.Run("threshold above one", func(t *testing.T) {
		if _, err := d.DetectWithThreshold(frame, []string{"person"}, 1.5); !errors.Is(err, ErrThresholdRange) {
			t.Errorf("error = %v, want ErrThresholdRange", err)
		}
	})

	t.Run("negative threshold", func(t *testing.T) {
		if _, err := d.DetectWithThreshold(frame, []string{"person"}, -0.1); !errors.Is(err, ErrThresholdRange) {
			t.Errorf("error = %v, want ErrThresholdRange", err)
		}
	})

	t.Run("validation happens before inference", func(t *testing.T) {
		boxer := NewMockBoxer()
		boxer.SetError(errors.New("should not be called"))
		d2, _ := New(boxer, nil, DefaultConfig())
		if _, err := d2.Detect(frame, nil); !errors.Is(err, ErrNoClasses) {
			t.Errorf("error = %v, want ErrNoClasses", err)
		}
		if boxer.Calls() != 0 {
			t.Errorf("boxer called %d times during invalid input", boxer.Calls())
		}
	})
}

func TestDetector_Detect_ThresholdFiltering(t *testing.T) {
	frame := testFrame(t)
	boxer := NewMockBoxer()
	boxer.SetCandidates([]Candidate{
		{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(10, 10, 100, 100)},
		{Class: 0, Label: "dog", Confidence: 0.4, Box: image.Rect(200, 200, 300, 300)},
		{Class: 1, Label: "cat", Confidence: 0.05, Box: image.Rect(400, 400, 500, 500)},
	})
	d, _ := New(boxer, nil, DefaultConfig())

	t.Run("every result scores at or above threshold", func(t *testing.T) {
		dets, err := d.DetectWithThreshold(frame, []string{"dog", "cat"}, 0.3)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if len(dets) != 2 {
			t.Fatalf("got %d detections, want 2", len(dets))
		}
		for _, det := range dets {
			if det.Confidence < 0.3 {
				t.Errorf("detection %q confidence %f below threshold", det.Label, det.Confidence)
			}
		}
	})

	t.Run("raising threshold never increases results", func(t *testing.T) {
		prev := -1
		for _, threshold := range []float64{0.0, 0.1, 0.3, 0.5, 0.95, 1.0} {
			dets, err := d.DetectWithThreshold(frame, []string{"dog", "cat"}, threshold)
			if err != nil {
				t.Fatalf("Detect(threshold=%f) error = %v", threshold, err)
			}
			if prev >= 0 && len(dets) > prev {
				t.Errorf("threshold %f returned %d detections, more than %d at lower threshold",
					threshold, len(dets), prev)
			}
			prev = len(dets)
		}
	})
}

func TestDetector_Detect_Ordering(t *testing.T) {
	frame := testFrame(t)
	boxer := NewMockBoxer()
	boxer.SetCandidates([]Candidate{
		{Class: 1, Label: "cat", Confidence: 0.5, Box: image.Rect(50, 50, 100, 100)},
		{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(10, 10, 40, 40)},
		{Class: 0, Label: "dog", Confidence: 0.5, Box: image.Rect(200, 10, 250, 60)},
		{Class: 0, Label: "dog", Confidence: 0.5, Box: image.Rect(10, 200, 60, 250)},
	})
	d, _ := New(boxer, nil, DefaultConfig())

	dets, err := d.DetectWithThreshold(frame, []string{"dog", "cat"}, 0.1)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(dets) != 4 {
		t.Fatalf("got %d detections, want 4", len(dets))
	}

	t.Run("descending confidence", func(t *testing.T) {
		for i := 1; i < len(dets); i++ {
			if dets[i].Confidence > dets[i-1].Confidence {
				t.Errorf("detections out of order at %d: %f > %f", i, dets[i].Confidence, dets[i-1].Confidence)
			}
		}
	})

	t.Run("ties break by class order then box position", func(t *testing.T) {
		// Three candidates share confidence 0.5: dog at y=10, dog at
		// y=200, then cat.
		if dets[1].Label != "dog" || dets[1].Box.Min.Y != 10 {
			t.Errorf("dets[1] = %s at %v, want dog at y=10", dets[1].Label, dets[1].Box.Min)
		}
		if dets[2].Label != "dog" || dets[2].Box.Min.Y != 200 {
			t.Errorf("dets[2] = %s at %v, want dog at y=200", dets[2].Label, dets[2].Box.Min)
		}
		if dets[3].Label != "cat" {
			t.Errorf("dets[3] = %s, want cat", dets[3].Label)
		}
	})
}

func TestDetector_Detect_OverlapSuppression(t *testing.T) {
	frame := testFrame(t)
	boxer := NewMockBoxer()
	boxer.SetCandidates([]Candidate{
		{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(10, 10, 110, 110)},
		{Class: 0, Label: "dog", Confidence: 0.8, Box: image.Rect(11, 11, 111, 111)},
		{Class: 1, Label: "cat", Confidence: 0.7, Box: image.Rect(10, 10, 110, 110)},
	})
	d, _ := New(boxer, nil, DefaultConfig())

	dets, err := d.DetectWithThreshold(frame, []string{"dog", "cat"}, 0.1)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("got %d detections, want 2 (duplicate dog suppressed)", len(dets))
	}
	if dets[0].Label != "dog" || dets[0].Confidence != 0.9 {
		t.Errorf("kept %s (%f), want dog (0.9)", dets[0].Label, dets[0].Confidence)
	}
	if dets[1].Label != "cat" {
		t.Errorf("cross-class detection was suppressed: %v", dets)
	}
}

func TestDetector_Detect_Masks(t *testing.T) {
	frame := testFrame(t)
	boxer := NewMockBoxer()
	boxer.SetCandidates([]Candidate{
		{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(100, 100, 200, 200)},
	})

	t.Run("mask matches frame dimensions", func(t *testing.T) {
		d, _ := New(boxer, NewMockSegmenter(), DefaultConfig())
		dets, err := d.Detect(frame, []string{"dog"})
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if len(dets) != 1 {
			t.Fatalf("got %d detections, want 1", len(dets))
		}
		mask := dets[0].Mask
		if mask == nil {
			t.Fatal("detection has no mask")
		}
		if mask.Width() != 640 || mask.Height() != 480 {
			t.Errorf("mask is %dx%d, want 640x480", mask.Width(), mask.Height())
		}
		if mask.Empty() {
			t.Error("mask is empty")
		}
	})

	t.Run("nil segmenter yields no masks", func(t *testing.T) {
		d, _ := New(boxer, nil, DefaultConfig())
		dets, err := d.Detect(frame, []string{"dog"})
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if dets[0].Mask != nil {
			t.Error("expected nil mask without a segmenter")
		}
	})
}

func TestDetector_Detect_SingleObjectScene(t *testing.T) {
	// A scene with one clearly visible dog, queried for dog and cat.
	frame := testFrame(t)
	boxer := NewMockBoxer()
	boxer.SetCandidates([]Candidate{
		{Class: 0, Label: "dog", Confidence: 0.87, Box: image.Rect(120, 80, 420, 400)},
	})
	d, _ := New(boxer, NewMockSegmenter(), DefaultConfig())

	dets, err := d.DetectWithThreshold(frame, []string{"dog", "cat"}, 0.1)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("got %d detections, want exactly 1", len(dets))
	}
	if dets[0].Label != "dog" {
		t.Errorf("label = %q, want dog", dets[0].Label)
	}
	if dets[0].Mask == nil || dets[0].Mask.Empty() {
		t.Error("expected a non-empty mask")
	}
	if got, want := dets[0].Center, image.Pt(270, 240); got != want {
		t.Errorf("center = %v, want %v", got, want)
	}
	for _, det := range dets {
		if det.Label == "cat" {
			t.Error("result contains a cat detection")
		}
	}
}

func TestDetector_Detect_InferenceErrors(t *testing.T) {
	frame := testFrame(t)

	t.Run("boxer failure is surfaced", func(t *testing.T) {
		boxer := NewMockBoxer()
		boxer.SetError(errors.New("device out of memory"))
		d, _ := New(boxer, nil, DefaultConfig())
		if _, err := d.Detect(frame, []string{"dog"}); err == nil {
			t.Error("expected inference error")
		}
	})

	t.Run("segmenter failure is surfaced", func(t *testing.T) {
		boxer := NewMockBoxer()
		boxer.SetCandidates([]Candidate{
			{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(0, 0, 10, 10)},
		})
		seg := NewMockSegmenter()
		seg.SetError(errors.New("decode failed"))
		d, _ := New(boxer, seg, DefaultConfig())
		if _, err := d.Detect(frame, []string{"dog"}); err == nil {
			t.Error("expected inference error")
		}
	})
}

func TestDetector_Close(t *testing.T) {
	d, _ := New(NewMockBoxer(), NewMockSegmenter(), DefaultConfig())
	if err := d.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
