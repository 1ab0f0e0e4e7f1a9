// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lacquer/internal/config"
)

// Option mutates the generated test configuration.
type Option func(t testing.TB, baseDir string, cfg *config.Config)

// NewConfig returns a config rooted in a fresh temp directory, with a
// small worker pool suited to unit tests.
func NewConfig(t testing.TB, opts ...Option) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkingDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pool.Workers = 2

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithStubbedBinaries places no-op executables on PATH for the duration of
// the test. With no names it stubs ffmpeg and ffprobe, the two binaries a
// mastering run shells out to.
func WithStubbedBinaries(names ...string) Option {
	if len(names) == 0 {
		names = []string{"ffmpeg", "ffprobe"}
	}
	return func(t testing.TB, baseDir string, cfg *config.Config) {
		t.Helper()
		binDir := filepath.Join(baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			stub := filepath.Join(binDir, name)
			if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("write stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
