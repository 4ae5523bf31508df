package api

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ohearn/lookout/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doJSON(t *testing.T, h http.Handler, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTargetHandler_CRUD(t *testing.T) {
	s := testStore(t)
	h := NewTargetHandler(s)

	changes := 0
	h.OnChange = func() { changes++ }

	var created targetResponse

	t.Run("create with defaults", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/targets", map[string]any{"label": "dog"})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if created.Label != "dog" || created.Threshold != 0.1 || !created.Enabled {
			t.Errorf("created = %+v", created)
		}
		if created.ID == "" {
			t.Error("expected a generated ID")
		}
		if changes != 1 {
			t.Errorf("OnChange fired %d times, want 1", changes)
		}
	})

	t.Run("create requires a label", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/targets", map[string]any{"label": "  "})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("create rejects bad thresholds", func(t *testing.T) {
		for _, threshold := range []float64{-0.1, 0, 1.5} {
			w := doJSON(t, h, http.MethodPost, "/api/targets", map[string]any{
				"label": "cat", "threshold": threshold,
			})
			if w.Code != http.StatusBadRequest {
				t.Errorf("threshold %v: status = %d, want 400", threshold, w.Code)
			}
		}
	})

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/targets/"+created.ID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		w = doJSON(t, h, http.MethodGet, "/api/targets/nope", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPut, "/api/targets/"+created.ID, map[string]any{
			"threshold": 0.5, "enabled": false,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}

		var updated targetResponse
		json.Unmarshal(w.Body.Bytes(), &updated)
		if updated.Threshold != 0.5 || updated.Enabled {
			t.Errorf("updated = %+v", updated)
		}
		// Label untouched when omitted.
		if updated.Label != "dog" {
			t.Errorf("label = %s, want dog", updated.Label)
		}
	})

	t.Run("list", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/targets", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp listTargetsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if len(resp.Targets) != 1 {
			t.Errorf("listed %d targets, want 1", len(resp.Targets))
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := doJSON(t, h, http.MethodDelete, "/api/targets/"+created.ID, nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d", w.Code)
		}

		w = doJSON(t, h, http.MethodDelete, "/api/targets/"+created.ID, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", w.Code)
		}
	})
}

func TestSightingHandler(t *testing.T) {
	s := testStore(t)
	h := NewSightingHandler(s)

	labels := []string{"dog", "cat", "dog"}
	for i, label := range labels {
		err := s.Sightings().Create(&store.Sighting{
			ID:          string(rune('a' + i)),
			Label:       label,
			Confidence:  0.5,
			Box:         image.Rect(0, 0, 10, 10),
			FrameWidth:  640,
			FrameHeight: 480,
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("create sighting: %v", err)
		}
	}

	t.Run("list all", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/sightings", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp listSightingsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if len(resp.Sightings) != 3 {
			t.Errorf("listed %d sightings, want 3", len(resp.Sightings))
		}
	})

	t.Run("list with limit", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/sightings?limit=2", nil)
		var resp listSightingsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if len(resp.Sightings) != 2 {
			t.Errorf("listed %d sightings, want 2", len(resp.Sightings))
		}
	})

	t.Run("list by label", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/sightings?label=dog", nil)
		var resp listSightingsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if len(resp.Sightings) != 2 {
			t.Fatalf("listed %d sightings, want 2", len(resp.Sightings))
		}
		for _, s := range resp.Sightings {
			if s.Label != "dog" {
				t.Errorf("label = %s, want dog", s.Label)
			}
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := doJSON(t, h, http.MethodGet, "/api/sightings?limit=nope", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("clear", func(t *testing.T) {
		w := doJSON(t, h, http.MethodDelete, "/api/sightings", nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d", w.Code)
		}

		w = doJSON(t, h, http.MethodGet, "/api/sightings", nil)
		var resp listSightingsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if len(resp.Sightings) != 0 {
			t.Errorf("listed %d sightings after clear, want 0", len(resp.Sightings))
		}
	})
}
