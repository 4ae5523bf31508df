// Package plugin provides discovery and execution of notifier plugins
// for the Lookout object spotting system. A plugin is an executable with
// a manifest; it receives sighting events as JSON on stdin and answers
// with a JSON response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Sighting is the detection payload delivered to a plugin.
type Sighting struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
	MaskArea   int     `json:"maskArea,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// Request is sent to a plugin for execution.
type Request struct {
	Action   string          `json:"action"`
	Sighting Sighting        `json:"sighting"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is the result of a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
