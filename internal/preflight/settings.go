package preflight

import (
	"fmt"
	"regexp"
	"strings"

	"lacquer/internal/config"
)

var bitratePattern = regexp.MustCompile(`(?i)^\d+k?$`)

// CheckOutputSettings validates the encode settings without touching the
// filesystem.
func CheckOutputSettings(cfg *config.Config) Result {
	const name = "Output settings"

	if cfg == nil {
		return Result{Name: name, Detail: "no configuration"}
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	switch format {
	case "mp3", "aac":
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unsupported format %q (use mp3 or aac)", cfg.Output.Format)}
	}
	bitrate := strings.TrimSpace(cfg.Output.Bitrate)
	if !bitratePattern.MatchString(bitrate) {
		return Result{Name: name, Detail: fmt.Sprintf("bitrate %q is not an encoder bitrate (try 128k)", cfg.Output.Bitrate)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s at %s", format, bitrate)}
}

// CheckMasteringTargets validates the loudness targets against the ranges
// the loudnorm filter accepts. Values outside these ranges make the
// normalization pass fail on the first chunk.
func CheckMasteringTargets(cfg *config.Config) Result {
	const name = "Mastering targets"

	if cfg == nil {
		return Result{Name: name, Detail: "no configuration"}
	}
	m := cfg.Mastering
	switch {
	case m.TargetIntegratedLUFS < -70 || m.TargetIntegratedLUFS > -5:
		return Result{Name: name, Detail: fmt.Sprintf("integrated target %.1f LUFS is outside -70..-5", m.TargetIntegratedLUFS)}
	case m.TargetTruePeak < -9 || m.TargetTruePeak > 0:
		return Result{Name: name, Detail: fmt.Sprintf("true peak target %.1f dBTP is outside -9..0", m.TargetTruePeak)}
	case m.TargetLoudnessRange < 1 || m.TargetLoudnessRange > 50:
		return Result{Name: name, Detail: fmt.Sprintf("loudness range target %.1f LU is outside 1..50", m.TargetLoudnessRange)}
	case m.ChunkSeconds < 30:
		return Result{Name: name, Detail: fmt.Sprintf("chunk length %ds is too short for loudness measurement", m.ChunkSeconds)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f LUFS / %.1f dBTP / %.1f LU", m.TargetIntegratedLUFS, m.TargetTruePeak, m.TargetLoudnessRange)}
}
