// Package debug assembles a support bundle: a JSON snapshot of where Daybook
// keeps its files and how healthy they look. It never includes key material
// or user content.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Bundle struct {
	GeneratedAt string            `json:"generated_at"`
	GOOS        string            `json:"goos"`
	GOARCH      string            `json:"goarch"`
	GoVersion   string            `json:"go_version"`
	Version     map[string]any    `json:"version,omitempty"`
	Paths       map[string]string `json:"paths,omitempty"`
	Counts      map[string]int    `json:"counts,omitempty"`
	Checks      []Check           `json:"checks,omitempty"`
	Notes       []string          `json:"notes,omitempty"`
}

func NewBundle(now time.Time) Bundle {
	return Bundle{
		GeneratedAt: now.UTC().Format(time.RFC3339Nano),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		GoVersion:   runtime.Version(),
	}
}

// AddCheck records a named result; a nil err counts as passing.
func (b *Bundle) AddCheck(name string, err error) {
	check := Check{Name: name, OK: err == nil}
	if err != nil {
		check.Message = err.Error()
	}
	b.Checks = append(b.Checks, check)
}

func WriteBundle(outputPath string, bundle Bundle) error {
	if outputPath == "" {
		return fmt.Errorf("write debug bundle: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o700); err != nil {
		return fmt.Errorf("write debug bundle: create output directory: %w", err)
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("write debug bundle: marshal json: %w", err)
	}
	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		return fmt.Errorf("write debug bundle: %w", err)
	}
	return nil
}
