package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMastering(); err != nil {
		return err
	}
	if err := c.validatePool(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkingDir == "" {
		return errors.New("paths.working_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateMastering() error {
	m := c.Mastering
	if m.TargetIntegratedLUFS < -70 || m.TargetIntegratedLUFS > -5 {
		return errors.New("mastering.target_integrated_lufs must be between -70 and -5")
	}
	if m.TargetTruePeak < -9 || m.TargetTruePeak > 0 {
		return errors.New("mastering.target_true_peak must be between -9 and 0")
	}
	if m.TargetLoudnessRange < 1 || m.TargetLoudnessRange > 50 {
		return errors.New("mastering.target_loudness_range must be between 1 and 50")
	}
	if m.ChunkSeconds < 10 {
		return errors.New("mastering.chunk_seconds must be at least 10")
	}
	return nil
}

func (c *Config) validatePool() error {
	if c.Pool.Workers < 1 || c.Pool.Workers > 32 {
		return errors.New("pool.workers must be between 1 and 32")
	}
	if c.Pool.JobTimeoutSeconds < 0 {
		return errors.New("pool.job_timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "mp3", "aac":
	default:
		return fmt.Errorf("output.format must be mp3 or aac, got %q", c.Output.Format)
	}
	return nil
}
