package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lacquer/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorking := filepath.Join(tempHome, ".local", "share", "lacquer", "work")
	if cfg.Paths.WorkingDir != wantWorking {
		t.Fatalf("unexpected working dir: got %q want %q", cfg.Paths.WorkingDir, wantWorking)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "podcasts") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Mastering.TargetIntegratedLUFS != -16.0 {
		t.Fatalf("unexpected loudness target: %v", cfg.Mastering.TargetIntegratedLUFS)
	}
	if cfg.Mastering.ChunkSeconds != 300 {
		t.Fatalf("unexpected chunk seconds: %d", cfg.Mastering.ChunkSeconds)
	}
	if cfg.Pool.Workers != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.Pool.Workers)
	}
	if !cfg.Mastering.Gate || !cfg.Mastering.Clarity || !cfg.Mastering.Tonal || !cfg.Mastering.SoftClip {
		t.Fatal("expected all dynamics stages enabled by default")
	}
	if cfg.Output.Format != "mp3" {
		t.Fatalf("unexpected output format: %q", cfg.Output.Format)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[paths]",
		`working_dir = "` + filepath.Join(dir, "work") + `"`,
		`output_dir = "` + filepath.Join(dir, "out") + `"`,
		"[mastering]",
		"chunk_seconds = 120",
		"gate = false",
		"[pool]",
		"workers = 2",
		"job_timeout_seconds = 60",
		"[output]",
		`format = "AAC"`,
		"[logging]",
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Mastering.ChunkSeconds != 120 {
		t.Fatalf("chunk override lost: %d", cfg.Mastering.ChunkSeconds)
	}
	if cfg.Mastering.Gate {
		t.Fatal("gate override lost")
	}
	if cfg.Pool.Workers != 2 {
		t.Fatalf("workers override lost: %d", cfg.Pool.Workers)
	}
	if cfg.Output.Format != "aac" {
		t.Fatalf("expected lowercased format, got %q", cfg.Output.Format)
	}
	if cfg.OutputExtension() != ".m4a" {
		t.Fatalf("unexpected extension: %q", cfg.OutputExtension())
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased level, got %q", cfg.Logging.Level)
	}
	if cfg.JobTimeout() != time.Minute {
		t.Fatalf("unexpected job timeout: %v", cfg.JobTimeout())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero workers", func(c *config.Config) { c.Pool.Workers = 0 }, "pool.workers"},
		{"excessive workers", func(c *config.Config) { c.Pool.Workers = 64 }, "pool.workers"},
		{"tiny chunks", func(c *config.Config) { c.Mastering.ChunkSeconds = 5 }, "chunk_seconds"},
		{"loudness too hot", func(c *config.Config) { c.Mastering.TargetIntegratedLUFS = -2 }, "target_integrated_lufs"},
		{"positive true peak", func(c *config.Config) { c.Mastering.TargetTruePeak = 1 }, "target_true_peak"},
		{"unknown format", func(c *config.Config) { c.Output.Format = "ogg" }, "output.format"},
		{"negative timeout", func(c *config.Config) { c.Pool.JobTimeoutSeconds = -1 }, "job_timeout_seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestBinaryGettersFallBack(t *testing.T) {
	cfg := config.Default()
	if cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg default: %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected ffprobe default: %q", cfg.FFprobeBinary())
	}
	cfg.Tools.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("override lost: %q", cfg.FFmpegBinary())
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Mastering.ChunkSeconds != 300 {
		t.Fatalf("sample drifted from defaults: %d", cfg.Mastering.ChunkSeconds)
	}
}

func TestEnsureDirectoriesCreatesAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkingDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkingDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q, err=%v", dir, err)
		}
	}
}
