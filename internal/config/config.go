// Package config loads the Lookout configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every user-tunable setting. Zero values are filled in
// with defaults on load.
type Config struct {
	Camera struct {
		DeviceID int `yaml:"device_id"`
		Width    int `yaml:"width"`
		Height   int `yaml:"height"`
	} `yaml:"camera"`

	Detector struct {
		// Backend selects the detection backend: "service" for the
		// Python vision sidecar, "dnn" for the built-in OpenCV model,
		// "auto" to try the sidecar first.
		Backend string `yaml:"backend"`

		// Threshold is the default confidence floor.
		Threshold float64 `yaml:"threshold"`

		// Model files for the dnn backend, resolved through the model
		// search path.
		ModelFile  string `yaml:"model_file"`
		ConfigFile string `yaml:"config_file"`
		LabelFile  string `yaml:"label_file"`
	} `yaml:"detector"`

	Motion struct {
		// Threshold is the percentage of changed pixels that counts as
		// motion.
		Threshold float64 `yaml:"threshold"`
	} `yaml:"motion"`

	Server struct {
		Addr      string `yaml:"addr"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`

	Data struct {
		// Dir holds the database and plugins. Defaults to ~/.lookout.
		Dir string `yaml:"dir"`
	} `yaml:"data"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Camera.Width = 640
	c.Camera.Height = 480
	c.Detector.Backend = "auto"
	c.Detector.Threshold = 0.1
	c.Detector.ModelFile = "frozen_inference_graph.pb"
	c.Detector.ConfigFile = "ssd_mobilenet_v3_large_coco.pbtxt"
	c.Detector.LabelFile = "coco_labels.txt"
	c.Motion.Threshold = 1.0
	c.Server.Addr = "127.0.0.1:8470"
	if home, err := os.UserHomeDir(); err == nil {
		c.Data.Dir = filepath.Join(home, ".lookout")
	} else {
		c.Data.Dir = ".lookout"
	}
	return c
}

// Load reads the YAML configuration at path, applying defaults for
// anything unset. A missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}

	c.fillDefaults()
	return c, nil
}

// fillDefaults restores defaults for values the file zeroed out or an
// override left unset.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		c.Camera.Width, c.Camera.Height = def.Camera.Width, def.Camera.Height
	}
	if c.Detector.Backend == "" {
		c.Detector.Backend = def.Detector.Backend
	}
	if c.Detector.Threshold <= 0 || c.Detector.Threshold > 1 {
		c.Detector.Threshold = def.Detector.Threshold
	}
	if c.Detector.ModelFile == "" {
		c.Detector.ModelFile = def.Detector.ModelFile
	}
	if c.Detector.ConfigFile == "" {
		c.Detector.ConfigFile = def.Detector.ConfigFile
	}
	if c.Detector.LabelFile == "" {
		c.Detector.LabelFile = def.Detector.LabelFile
	}
	if c.Motion.Threshold <= 0 {
		c.Motion.Threshold = def.Motion.Threshold
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Data.Dir == "" {
		c.Data.Dir = def.Data.Dir
	}
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.Dir, "lookout.db")
}

// PluginDir returns the notifier plugin directory.
func (c *Config) PluginDir() string {
	return filepath.Join(c.Data.Dir, "plugins")
}
