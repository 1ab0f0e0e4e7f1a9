package preflight

import (
	"context"

	"lacquer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and configuration checks for the given
// config. Binary availability lives in CheckSystemDeps so status output can
// group tools separately.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Working directory", cfg.Paths.WorkingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace(cfg.Paths.WorkingDir),
	}

	results = append(results, CheckOutputSettings(cfg))
	results = append(results, CheckMasteringTargets(cfg))

	return results
}

// Failed reports whether any result in the set did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}
