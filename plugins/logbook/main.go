// Package main provides a logbook plugin that appends every sighting to
// a plain-text log file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Sighting Sighting        `json:"sighting"`
	Config   json.RawMessage `json:"config"`
}

// Sighting is the detection payload delivered with the request.
type Sighting struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
	MaskArea   int     `json:"maskArea"`
	Timestamp  int64   `json:"timestamp"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LogConfig allows the log location to be overridden per plugin config.
type LogConfig struct {
	Path string `json:"path"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "sighting" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	path, err := logPath(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if err := appendEntry(path, req.Sighting); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to write log: %v", err))
		return
	}

	writeSuccessResponse()
}

// logPath resolves the log file location, defaulting to
// ~/.lookout/logbook.txt.
func logPath(raw json.RawMessage) (string, error) {
	if len(raw) > 0 {
		var cfg LogConfig
		if err := json.Unmarshal(raw, &cfg); err == nil && cfg.Path != "" {
			return cfg.Path, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %v", err)
	}
	return filepath.Join(home, ".lookout", "logbook.txt"), nil
}

// appendEntry writes one line per sighting.
func appendEntry(path string, s Sighting) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	when := time.UnixMilli(s.Timestamp).Format(time.RFC3339)
	_, err = fmt.Fprintf(f, "%s %s %.2f box=[%d %d %d %d] mask=%d\n",
		when, s.Label, s.Confidence, s.Box[0], s.Box[1], s.Box[2], s.Box[3], s.MaskArea)
	return err
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
