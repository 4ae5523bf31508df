// Package app wires the camera, motion gate, detector, store and plugins
// into the Lookout watch pipeline.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/ohearn/lookout/internal/capture"
	"github.com/ohearn/lookout/internal/detector"
	"github.com/ohearn/lookout/internal/plugin"
	"github.com/ohearn/lookout/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while no motion is registered.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the scene is moving.
	ActiveFPS = 15
	// IdleTimeout is how long after the last motion the pipeline drops
	// back to idle.
	IdleTimeout = 2 * time.Second
	// SightingCooldown suppresses repeat sightings of the same class so
	// a lingering object does not flood the store and plugins.
	SightingCooldown = 5 * time.Second
	// PluginTimeout bounds each notifier plugin invocation.
	PluginTimeout = 5 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	Camera       capture.CameraConfig
	MotionThresh float64
}

// SightingCallback is invoked for every recorded sighting.
type SightingCallback func(*store.Sighting)

// watchTarget is a class the pipeline looks for with its own threshold.
type watchTarget struct {
	label     string
	threshold float64
}

// App owns the watch pipeline: it reads frames, gates them on motion,
// runs detection against the enabled targets and records the results.
type App struct {
	config     Config
	camera     capture.Camera
	motion     *capture.MotionGate
	det        *detector.Detector
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	targets   []watchTarget
	callbacks []SightingCallback
	lastSeen  map[string]time.Time

	enabled bool
	stopCh  chan struct{}
	mu      sync.RWMutex
}

// New creates an App. The detector is attached separately with
// SetDetector since backend construction can fail independently.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // 1% pixel change
	}

	return &App{
		config:     config,
		camera:     capture.NewCamera(config.Camera),
		motion:     capture.NewMotionGate(motionThreshold),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(PluginTimeout),
		lastSeen:   make(map[string]time.Time),
	}
}

// SetDetector attaches the detector used by the pipeline.
func (a *App) SetDetector(d *detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.det = d
}

// Detector returns the attached detector, or nil.
func (a *App) Detector() *detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.det
}

// SetEnabled switches the watch pipeline on or off.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether the watch pipeline is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// LoadTargets reloads the enabled watch targets from the store. Targets
// keep their creation order so class indices are stable across frames.
func (a *App) LoadTargets() error {
	if a.config.Store == nil {
		return nil
	}

	enabled, err := a.config.Store.Targets().ListEnabled()
	if err != nil {
		return err
	}

	targets := make([]watchTarget, 0, len(enabled))
	for _, t := range enabled {
		threshold := t.Threshold
		if threshold <= 0 || threshold > 1 {
			threshold = detector.DefaultConfig().Threshold
		}
		targets = append(targets, watchTarget{label: t.Label, threshold: threshold})
	}

	a.mu.Lock()
	a.targets = targets
	a.mu.Unlock()

	log.Printf("Watching for %d targets", len(targets))
	return nil
}

// RegisterSightingCallback adds a callback invoked for every recorded
// sighting. Callbacks run on the pipeline goroutine and should be quick.
func (a *App) RegisterSightingCallback(fn SightingCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// DiscoverPlugins scans the plugin directory for notifier plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and launches the watch pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Watch pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera, motion gate and
// detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if a.det != nil {
		if err := a.det.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Watch pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// SetCamera replaces the camera. Only valid before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// MotionGate returns the motion gate instance.
func (a *App) MotionGate() *capture.MotionGate {
	return a.motion
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}
