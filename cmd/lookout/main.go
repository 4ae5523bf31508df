package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ohearn/lookout/internal/app"
	"github.com/ohearn/lookout/internal/capture"
	"github.com/ohearn/lookout/internal/config"
	"github.com/ohearn/lookout/internal/detector"
	"github.com/ohearn/lookout/internal/server"
	"github.com/ohearn/lookout/internal/store"
	"github.com/ohearn/lookout/internal/tray"
)

func main() {
	fmt.Println("Lookout - Open-Vocabulary Object Spotting")

	configPath := flag.String("config", defaultConfigPath(), "path to the configuration file")
	headless := flag.Bool("headless", false, "run without the system tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	application := app.New(app.Config{
		Store:     st,
		PluginDir: cfg.PluginDir(),
		Camera: capture.CameraConfig{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      app.IdleFPS,
		},
		MotionThresh: cfg.Motion.Threshold,
	})

	if det := buildDetector(cfg); det != nil {
		application.SetDetector(det)
	}

	if err := application.LoadTargets(); err != nil {
		log.Fatalf("Failed to load watch targets: %v", err)
	}
	if err := application.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.Data.Dir),
		Store:     st,
		Camera:    application.Camera(),
		Detector:  application.Detector(),
		OnTargetsChanged: func() {
			if err := application.LoadTargets(); err != nil {
				log.Printf("Failed to reload watch targets: %v", err)
			}
		},
	})

	application.RegisterSightingCallback(srv.Events().Publish)
	if stream := srv.Stream(); stream != nil {
		application.RegisterSightingCallback(stream.Publish)
	}

	application.SetEnabled(true)
	if err := application.Start(); err != nil {
		log.Printf("Watch pipeline unavailable: %v", err)
	}
	defer application.Stop()

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *headless {
		select {}
	}
	runTray(application, cfg.Server.Addr)
}

// buildDetector assembles the detection backend per the configuration.
// The Python vision sidecar handles open vocabularies and segmentation;
// the OpenCV DNN backend boxes a fixed vocabulary without masks.
func buildDetector(cfg config.Config) *detector.Detector {
	detConfig := detector.DefaultConfig()
	detConfig.Threshold = cfg.Detector.Threshold

	if cfg.Detector.Backend == "service" || cfg.Detector.Backend == "auto" {
		if svc, err := detector.NewServiceBackend(); err == nil {
			det, err := detector.New(svc, svc, detConfig)
			if err == nil {
				log.Println("Using the vision service backend")
				return det
			}
		} else if cfg.Detector.Backend == "service" {
			log.Printf("Vision service unavailable: %v", err)
			return nil
		}
	}

	boxer, err := detector.NewDNNBoxer(cfg.Detector.ModelFile, cfg.Detector.ConfigFile, cfg.Detector.LabelFile)
	if err != nil {
		log.Printf("No detection backend available: %v", err)
		return nil
	}
	det, err := detector.New(boxer, nil, detConfig)
	if err != nil {
		log.Printf("Failed to assemble detector: %v", err)
		return nil
	}
	log.Println("Using the DNN backend (no masks)")
	return det
}

// runTray blocks in the system tray loop until quit.
func runTray(application *app.App, addr string) {
	t := tray.New()
	t.OnToggle(application.SetEnabled)
	t.OnSettings(func() {
		log.Printf("Dashboard: http://%s/", addr)
	})
	t.OnQuit(func() {})

	application.RegisterSightingCallback(func(s *store.Sighting) {
		t.SetLastSighting(fmt.Sprintf("%s (%.2f)", s.Label, s.Confidence))
	})

	t.Run()
}

// defaultConfigPath returns ~/.lookout/lookout.yaml.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "lookout.yaml"
	}
	return filepath.Join(home, ".lookout", "lookout.yaml")
}

// findWebDir searches for the web dashboard directory in common
// locations. Returns the first existing directory or empty string.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
