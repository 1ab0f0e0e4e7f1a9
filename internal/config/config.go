package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkingDir string `toml:"working_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
}

// Tools contains external binary configuration.
type Tools struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Mastering contains loudness targets and per-chunk processing options.
type Mastering struct {
	TargetIntegratedLUFS float64 `toml:"target_integrated_lufs"`
	TargetTruePeak       float64 `toml:"target_true_peak"`
	TargetLoudnessRange  float64 `toml:"target_loudness_range"`
	ChunkSeconds         int     `toml:"chunk_seconds"`
	Gate                 bool    `toml:"gate"`
	Clarity              bool    `toml:"clarity"`
	Tonal                bool    `toml:"tonal"`
	SoftClip             bool    `toml:"soft_clip"`
}

// Pool contains execution unit pool sizing and timeout settings.
type Pool struct {
	Workers           int `toml:"workers"`
	JobTimeoutSeconds int `toml:"job_timeout_seconds"`
}

// Output contains final artifact format and metadata tag configuration.
type Output struct {
	Format  string `toml:"format"`
	Bitrate string `toml:"bitrate"`
	Title   string `toml:"title"`
	Artist  string `toml:"artist"`
	Album   string `toml:"album"`
	Genre   string `toml:"genre"`
	Comment string `toml:"comment"`
	Date    string `toml:"date"`
}

// Logging selects the format and verbosity of the run log.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the full configuration for a lacquer invocation.
//
// Sections by subsystem:
//   - Paths: working, output, and log directories
//   - Tools: ffmpeg/ffprobe binary overrides
//   - Mastering: loudness targets, chunking, optional dynamics stages
//   - Pool: execution unit count and job timeout
//   - Output: final codec, bitrate, and metadata tags
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	Mastering Mastering `toml:"mastering"`
	Pool      Pool      `toml:"pool"`
	Output    Output    `toml:"output"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns where lacquer looks for its configuration when
// no explicit path is given.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lacquer/config.toml")
}

// Load reads the configuration for this invocation. It reports the file it
// settled on and whether that file existed; a missing file is not an error,
// the defaults apply. Paths in the result are expanded and absolute.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		raw, err := os.ReadFile(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

// resolveConfigPath picks the configuration file for this invocation. An
// explicit path wins whether or not it exists yet; otherwise the XDG
// location is preferred over a lacquer.toml in the current directory.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, statErr := os.Stat(expanded); {
		case statErr == nil:
			return expanded, true, nil
		case errors.Is(statErr, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", statErr)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("lacquer.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a mastering run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used as the filter engine.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.Tools.FFmpegBinary); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media validation.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.Tools.FFprobeBinary); b != "" {
		return b
	}
	return "ffprobe"
}

// ChunkDuration returns the chunk length as a duration.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Mastering.ChunkSeconds) * time.Second
}

// JobTimeout returns the per-chunk job timeout. Zero disables the timeout.
func (c *Config) JobTimeout() time.Duration {
	if c.Pool.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Pool.JobTimeoutSeconds) * time.Second
}

// OutputExtension returns the container extension for the configured format.
func (c *Config) OutputExtension() string {
	switch c.Output.Format {
	case "aac":
		return ".m4a"
	default:
		return ".mp3"
	}
}

// expandPath resolves a leading ~ against the home directory and makes the
// path absolute. Empty stays empty so validation can name the missing field.
func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, pathValue[1:])
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the configuration path expansion rules to a
// user-supplied path, such as a CLI input argument.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
