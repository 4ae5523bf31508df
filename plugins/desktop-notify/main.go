// Package main provides a desktop notification plugin. It raises a
// native notification for each sighting via osascript on macOS or
// notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
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
	Timestamp  int64   `json:"timestamp"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(false, fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "sighting" {
		writeResponse(false, fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	title := "Lookout"
	body := fmt.Sprintf("Spotted %s (%.0f%%)", req.Sighting.Label, req.Sighting.Confidence*100)

	if err := notify(title, body); err != nil {
		writeResponse(false, fmt.Sprintf("notification failed: %v", err))
		return
	}
	writeResponse(true, "")
}

// notify raises a desktop notification with the platform tool.
func notify(title, body string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, body, title)
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(success bool, errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: success, Error: errMsg})
}
