package detector

import (
	"image"
	"math"
	"testing"
)

func TestOverlapProportion(t *testing.T) {
	tests := []struct {
		name string
		a, b image.Rectangle
		want float64
	}{
		{
			name: "identical boxes",
			a:    image.Rect(0, 0, 100, 100),
			b:    image.Rect(0, 0, 100, 100),
			want: 1.0,
		},
		{
			name: "disjoint boxes",
			a:    image.Rect(0, 0, 50, 50),
			b:    image.Rect(100, 100, 150, 150),
			want: 0.0,
		},
		{
			name: "touching edges",
			a:    image.Rect(0, 0, 50, 50),
			b:    image.Rect(50, 0, 100, 50),
			want: 0.0,
		},
		{
			name: "half overlap",
			a:    image.Rect(0, 0, 100, 100),
			b:    image.Rect(50, 0, 150, 100),
			// intersection 50x100, union 15000
			want: 5000.0 / 15000.0,
		},
		{
			name: "contained box",
			a:    image.Rect(0, 0, 100, 100),
			b:    image.Rect(25, 25, 75, 75),
			want: 2500.0 / 10000.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlapProportion(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("overlapProportion() = %f, want %f", got, tt.want)
			}
			// Symmetry
			if rev := overlapProportion(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("overlapProportion not symmetric: %f vs %f", got, rev)
			}
		})
	}
}

func TestSuppressOverlapping(t *testing.T) {
	t.Run("keeps higher confidence duplicate", func(t *testing.T) {
		in := []Candidate{
			{Class: 0, Label: "dog", Confidence: 0.6, Box: image.Rect(0, 0, 100, 100)},
			{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(1, 1, 101, 101)},
		}
		out := suppressOverlapping(in, 0.9)
		if len(out) != 1 {
			t.Fatalf("got %d candidates, want 1", len(out))
		}
		if out[0].Confidence != 0.9 {
			t.Errorf("kept confidence %f, want 0.9", out[0].Confidence)
		}
	})

	t.Run("different classes are not suppressed", func(t *testing.T) {
		in := []Candidate{
			{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(0, 0, 100, 100)},
			{Class: 1, Label: "cat", Confidence: 0.8, Box: image.Rect(0, 0, 100, 100)},
		}
		out := suppressOverlapping(in, 0.9)
		if len(out) != 2 {
			t.Errorf("got %d candidates, want 2", len(out))
		}
	})

	t.Run("low overlap is not suppressed", func(t *testing.T) {
		in := []Candidate{
			{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(0, 0, 100, 100)},
			{Class: 0, Label: "dog", Confidence: 0.8, Box: image.Rect(80, 0, 180, 100)},
		}
		out := suppressOverlapping(in, 0.9)
		if len(out) != 2 {
			t.Errorf("got %d candidates, want 2", len(out))
		}
	})

	t.Run("chain of duplicates collapses to one", func(t *testing.T) {
		in := []Candidate{
			{Class: 0, Label: "dog", Confidence: 0.5, Box: image.Rect(0, 0, 100, 100)},
			{Class: 0, Label: "dog", Confidence: 0.7, Box: image.Rect(1, 1, 101, 101)},
			{Class: 0, Label: "dog", Confidence: 0.9, Box: image.Rect(2, 2, 102, 102)},
		}
		out := suppressOverlapping(in, 0.9)
		if len(out) != 1 {
			t.Fatalf("got %d candidates, want 1", len(out))
		}
		if out[0].Confidence != 0.9 {
			t.Errorf("kept confidence %f, want 0.9", out[0].Confidence)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if out := suppressOverlapping(nil, 0.9); len(out) != 0 {
			t.Errorf("got %d candidates, want 0", len(out))
		}
	})
}

func TestFilterNonOverlapping(t *testing.T) {
	main := []Detection{
		{Label: "dog", Confidence: 0.9, Box: image.Rect(10, 10, 110, 110)},
		{Label: "dog", Confidence: 0.8, Box: image.Rect(300, 300, 400, 400)},
		{Label: "cat", Confidence: 0.7, Box: image.Rect(500, 10, 600, 110)},
	}
	check := []Detection{
		{Label: "dog", Confidence: 0.85, Box: image.Rect(12, 12, 112, 112)},
	}

	t.Run("keeps overlapping and drops the rest", func(t *testing.T) {
		out := FilterNonOverlapping(main, check, 0.8, nil)
		if len(out) != 1 {
			t.Fatalf("got %d detections, want 1", len(out))
		}
		if out[0].Box.Min.X != 10 {
			t.Errorf("kept the wrong dog: %v", out[0].Box)
		}
	})

	t.Run("class filter exempts unlisted classes", func(t *testing.T) {
		out := FilterNonOverlapping(main, check, 0.8, []string{"dog"})
		if len(out) != 2 {
			t.Fatalf("got %d detections, want 2", len(out))
		}
		// The cat is kept unconditionally, the far dog is dropped.
		labels := map[string]bool{}
		for _, d := range out {
			labels[d.Label] = true
		}
		if !labels["cat"] {
			t.Error("cat should be exempt from filtering")
		}
	})

	t.Run("each check detection matches at most once", func(t *testing.T) {
		twoMains := []Detection{
			{Label: "dog", Box: image.Rect(10, 10, 110, 110)},
			{Label: "dog", Box: image.Rect(11, 11, 111, 111)},
		}
		out := FilterNonOverlapping(twoMains, check, 0.8, nil)
		if len(out) != 1 {
			t.Errorf("got %d detections, want 1 (single check detection consumed)", len(out))
		}
	})

	t.Run("empty check set drops all filterable detections", func(t *testing.T) {
		out := FilterNonOverlapping(main, nil, 0.8, nil)
		if len(out) != 0 {
			t.Errorf("got %d detections, want 0", len(out))
		}
	})
}
