package detector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrModelNotFound is returned when a model file cannot be located in
// any of the candidate directories.
var ErrModelNotFound = errors.New("model file not found")

// findModelFile resolves a model file name against the candidate model
// directories: $LOOKOUT_MODEL_DIR, ./models, ../models, the models
// directory next to the executable, and ~/.lookout/models.
func findModelFile(name string) (string, error) {
	var dirs []string

	if dir := os.Getenv("LOOKOUT_MODEL_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, "models", filepath.Join("..", "models"))

	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(execPath), "models"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".lookout", "models"))
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs, nil
			}
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// findServiceScript locates the Python inference service script used by
// the ServiceBackend.
func findServiceScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", "vision_service.py"),
		filepath.Join("..", "scripts", "vision_service.py"),
		filepath.Join(execDir, "scripts", "vision_service.py"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".lookout", "scripts", "vision_service.py"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment
// near the executable or under ~/.lookout.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(execDir, "venv", "bin", "python"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".lookout", "venv", "bin", "python"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
