// Package session resolves the orchestrator-assigned directory layout for
// one module build step.
package session

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvSessionDir names the build-session directory shared by every
	// build step of one orchestrator invocation.
	EnvSessionDir = "CCMOD_SESSION_DIR"

	// EnvOutputDir names the output directory assigned to the current
	// build step.
	EnvOutputDir = "CCMOD_OUT_DIR"
)

// Dir returns the session directory shared across build steps. The
// propagation channel is write-once per module within one session, so the
// directory must be assigned fresh by the orchestrator for every session;
// a fixed fallback would leak configurations between sessions. Dir fails
// when the orchestrator did not assign one.
func Dir() (string, error) {
	if dir := os.Getenv(EnvSessionDir); dir != "" {
		return dir, nil
	}
	return "", fmt.Errorf("failed to resolve session dir: %s is not set (the orchestrator assigns one per build session)", EnvSessionDir)
}

// OutputDir returns the output directory assigned to the current build
// step. When the orchestrator does not provide one it falls back to
// ./ccmod-out.
func OutputDir() (string, error) {
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, "ccmod-out"), nil
}
