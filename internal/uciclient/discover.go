package uciclient

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var ErrEngineNotFound = errors.New("engine not found")

// DefaultCandidates lists the usual build output locations of the engine.
func DefaultCandidates() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join("build", "bin", "UnderFlaw.exe")}
	}
	return []string{
		filepath.Join("build", "bin", "UnderFlaw"),
		filepath.Join("build", "UnderFlaw"),
		"./UnderFlaw",
	}
}

// Discover returns the first candidate that is an existing file.
// Bare names without a path separator are looked up in PATH.
func Discover(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
		if filepath.Base(candidate) == candidate {
			if path, err := exec.LookPath(candidate); err == nil {
				return path, nil
			}
		}
	}
	return "", ErrEngineNotFound
}
