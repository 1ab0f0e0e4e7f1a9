package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	for _, field := range []struct {
		name string
		dir  *string
	}{
		{"paths.working_dir", &c.Paths.WorkingDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
	} {
		expanded, err := expandPath(*field.dir)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.dir = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Output.Bitrate = strings.TrimSpace(c.Output.Bitrate)
	if c.Output.Bitrate == "" {
		c.Output.Bitrate = defaultOutputBitrate
	}
	c.Output.Genre = strings.TrimSpace(c.Output.Genre)
	if c.Output.Genre == "" {
		c.Output.Genre = defaultOutputGenre
	}
	c.Output.Title = strings.TrimSpace(c.Output.Title)
	c.Output.Artist = strings.TrimSpace(c.Output.Artist)
	c.Output.Album = strings.TrimSpace(c.Output.Album)
	c.Output.Comment = strings.TrimSpace(c.Output.Comment)
	c.Output.Date = strings.TrimSpace(c.Output.Date)
}

// normalizeLogging coerces unknown formats to console rather than failing;
// a typo in the log section should never block a mastering run.
func (c *Config) normalizeLogging() {
	if format := strings.ToLower(strings.TrimSpace(c.Logging.Format)); format == "json" {
		c.Logging.Format = "json"
	} else {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
