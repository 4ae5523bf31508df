package app

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ohearn/lookout/internal/detector"
	"github.com/ohearn/lookout/internal/plugin"
	"github.com/ohearn/lookout/internal/store"
)

// runPipeline is the frame loop: read, gate on motion, detect, record.
// It runs until stop is closed.
func (a *App) runPipeline(stop chan struct{}) {
	var lastMotion time.Time
	active := false

	for {
		select {
		case <-stop:
			return
		default:
		}

		fps := a.camera.FPS()
		if fps <= 0 {
			fps = IdleFPS
		}
		interval := time.Second / time.Duration(fps)

		frame, err := a.camera.ReadFrame()
		if err != nil {
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
			continue
		}

		moving, _ := a.motion.Detect(frame)
		if moving {
			lastMotion = time.Now()
			if !active {
				active = true
				a.camera.SetFPS(ActiveFPS)
			}
		} else if active && time.Since(lastMotion) > IdleTimeout {
			active = false
			a.camera.SetFPS(IdleFPS)
		}

		if active && a.IsEnabled() {
			a.processFrame(frame)
		}
		frame.Close()

		select {
		case <-stop:
			return
		case <-time.After(interval):
		}
	}
}

// processFrame runs detection against the enabled targets and records
// each fresh sighting.
func (a *App) processFrame(frame *gocv.Mat) {
	a.mu.RLock()
	det := a.det
	targets := a.targets
	a.mu.RUnlock()

	if det == nil || len(targets) == 0 {
		return
	}

	classes := make([]string, len(targets))
	floor := 1.0
	for i, t := range targets {
		classes[i] = t.label
		if t.threshold < floor {
			floor = t.threshold
		}
	}

	detections, err := det.DetectWithThreshold(frame, classes, floor)
	if err != nil {
		log.Printf("Detection failed: %v", err)
		return
	}

	now := time.Now()
	for i := range detections {
		d := &detections[i]
		if d.Confidence < targets[d.Class].threshold {
			continue
		}
		if a.seenRecently(d.Label, now) {
			continue
		}
		a.recordSighting(d, frame, now)
	}
}

// seenRecently reports whether label was sighted inside the cooldown
// window, marking it seen at now otherwise.
func (a *App) seenRecently(label string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last, ok := a.lastSeen[label]; ok && now.Sub(last) < SightingCooldown {
		return true
	}
	a.lastSeen[label] = now
	return false
}

// recordSighting persists the detection, notifies plugins and fires the
// registered callbacks.
func (a *App) recordSighting(d *detector.Detection, frame *gocv.Mat, now time.Time) {
	maskArea := 0
	if d.Mask != nil {
		maskArea = d.Mask.Area()
	}

	s := &store.Sighting{
		ID:          uuid.New().String(),
		Label:       d.Label,
		Confidence:  d.Confidence,
		Box:         d.Box,
		MaskArea:    maskArea,
		FrameWidth:  frame.Cols(),
		FrameHeight: frame.Rows(),
		CreatedAt:   now,
	}

	if a.config.Store != nil {
		if err := a.config.Store.Sightings().Create(s); err != nil {
			log.Printf("Error recording sighting: %v", err)
		}
	}

	log.Printf("Sighted %s (%.2f) at %v", s.Label, s.Confidence, s.Box)

	a.notifyPlugins(s)

	a.mu.RLock()
	callbacks := a.callbacks
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(s)
	}
}

// notifyPlugins fans the sighting out to every discovered plugin.
// Plugins run concurrently so a slow notifier cannot stall the loop.
func (a *App) notifyPlugins(s *store.Sighting) {
	req := &plugin.Request{
		Action: "sighting",
		Sighting: plugin.Sighting{
			Label:      s.Label,
			Confidence: s.Confidence,
			Box:        [4]int{s.Box.Min.X, s.Box.Min.Y, s.Box.Max.X, s.Box.Max.Y},
			MaskArea:   s.MaskArea,
			Timestamp:  s.CreatedAt.UnixMilli(),
		},
	}

	for _, p := range a.pluginMgr.List() {
		go func(p *plugin.Plugin) {
			if _, err := a.pluginExec.Execute(p, req); err != nil {
				log.Printf("Plugin %s: %v", p.Manifest.Name, err)
			}
		}(p)
	}
}
