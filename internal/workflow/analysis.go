package workflow

import (
	"context"
	"math"
	"os"
	"strings"
	"time"

	"lacquer/internal/config"
	"lacquer/internal/filtergraph"
	"lacquer/internal/logging"
	"lacquer/internal/loudness"
	"lacquer/internal/services"
	"lacquer/internal/services/ffmpeg"
)

// Analysis is the whole-file measurement report. Producing it reads the
// input but writes nothing.
type Analysis struct {
	Input      string
	Codec      string
	SampleRate string
	Channels   int
	Duration   time.Duration
	Measured   loudness.Measurements
}

// Analyze runs the loudness measurement pass over the entire input and
// reports what the mastering run would correct.
func (r *Runner) Analyze(ctx context.Context, inputPath string) (*Analysis, error) {
	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "analyze", "input path required", nil)
	}
	inputPath, err := expandInput(inputPath)
	if err != nil {
		return nil, err
	}

	probe, err := probeInput(ctx, r.cfg.FFprobeBinary(), inputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "probe input", "", err)
	}
	stream, ok := probe.FirstAudioStream()
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "workflow", "probe input", "no audio stream in input", nil)
	}

	chain := &filtergraph.Chain{
		TargetI:   r.cfg.Mastering.TargetIntegratedLUFS,
		TargetTP:  r.cfg.Mastering.TargetTruePeak,
		TargetLRA: r.cfg.Mastering.TargetLoudnessRange,
		Mono:      stream.Channels == 1,
	}
	res, err := r.engine.Execute(ctx, ffmpeg.Request{
		Args:       []string{"-i", inputPath, "-af", chain.MeasureSpec(), "-f", "null", "-"},
		OnProgress: stepProgress(r.logger, "analyze", probe.DurationSeconds()),
	})
	if err != nil {
		return nil, err
	}
	measured, err := loudness.ParseMeasurements(res.Diagnostics)
	if err != nil {
		return nil, services.Wrap(services.ErrPostcondition, "workflow", "parse loudness measurements", "", err)
	}

	analysis := &Analysis{
		Input:      inputPath,
		Codec:      stream.CodecName,
		SampleRate: stream.SampleRate,
		Channels:   stream.Channels,
		Measured:   measured,
	}
	if seconds := probe.DurationSeconds(); !math.IsNaN(seconds) && seconds > 0 {
		analysis.Duration = time.Duration(seconds * float64(time.Second))
	}
	r.logger.Info("input analyzed",
		logging.String("input", inputPath),
		logging.Float64("input_i", measured.InputI),
		logging.Float64("input_tp", measured.InputTP),
		logging.Float64("input_lra", measured.InputLRA))
	return analysis, nil
}

// expandInput resolves and verifies a user-supplied input path.
func expandInput(inputPath string) (string, error) {
	expanded, err := config.ExpandPath(inputPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err != nil {
		return "", services.Wrap(services.ErrValidation, "workflow", "inspect input", "input not readable", err)
	}
	return expanded, nil
}
