// Package pipeline masters one chunk at a time through four engine passes:
// measure loudness, apply the correction, measure the corrected program
// level, then master and encode. Each pass's numeric output parameterizes
// the next pass's filter graph.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lacquer/internal/filtergraph"
	"lacquer/internal/logging"
	"lacquer/internal/loudness"
	"lacquer/internal/pool"
	"lacquer/internal/services"
	"lacquer/internal/services/ffmpeg"
	"lacquer/internal/workarea"
)

// Output format names accepted by Config.Format.
const (
	FormatMP3 = "mp3"
	FormatAAC = "aac"
)

// Canonical intermediate format. The sanitize step decodes the source into
// this shape and every pass preserves it, so chunk artifacts concatenate
// without re-encoding surprises.
const (
	IntermediateSampleRate = 48000
	IntermediateCodec      = "pcm_s16le"
)

// minArtifactBytes is the floor below which a pass artifact is treated as
// truncated. Even a one second chunk of intermediate audio is two orders
// of magnitude larger.
const minArtifactBytes = 4 * 1024

const unitsDir = "units"

// Config carries the mastering targets and the output encoding.
type Config struct {
	TargetI   float64
	TargetTP  float64
	TargetLRA float64
	Format    string
	Bitrate   string
}

// Pipeline masters chunks inside execution units. One Pipeline serves
// every unit; it keeps no state outside each unit's scratch directory.
type Pipeline struct {
	cfg    Config
	area   *workarea.Area
	engine *ffmpeg.Client
	logger *slog.Logger
}

// New wires a mastering pipeline over a working area and an engine client.
func New(cfg Config, area *workarea.Area, engine *ffmpeg.Client, logger *slog.Logger) (*Pipeline, error) {
	if area == nil {
		return nil, errors.New("pipeline requires a working area")
	}
	if engine == nil {
		return nil, errors.New("pipeline requires an engine client")
	}
	switch cfg.Format {
	case FormatMP3, FormatAAC:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new",
			fmt.Sprintf("unsupported output format %q", cfg.Format), nil)
	}
	if strings.TrimSpace(cfg.Bitrate) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "output bitrate required", nil)
	}
	return &Pipeline{
		cfg:    cfg,
		area:   area,
		engine: engine,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Setup prepares the unit's private scratch directory. Unit ids are never
// reused, so the directory is always fresh.
func (p *Pipeline) Setup(ctx context.Context, unitID int) error {
	if _, err := p.area.MkdirAll(unitsDir, unitName(unitID)); err != nil {
		return services.Wrap(services.ErrSetup, "pipeline", "create unit scratch", "", err)
	}
	p.logger.Debug("unit scratch ready", logging.Int(logging.FieldUnit, unitID))
	return nil
}

// Process masters one chunk. The result carries the encoded artifact and
// the numbers each measurement pass produced; every intermediate file is
// removed before returning, on success and on failure alike.
func (p *Pipeline) Process(ctx context.Context, unitID int, job pool.Job, progress func(stage, message string)) (result pool.ChunkResult, err error) {
	paths := p.chunkPaths(unitID, job.ChunkIndex)
	defer p.cleanup(paths.all()...)

	status := StatusQueued
	advance := func(to Status, message string) error {
		if !CanTransition(status, to) {
			return services.Wrap(services.ErrValidation, "pipeline", "advance chunk",
				fmt.Sprintf("illegal transition %s to %s", status, to), nil)
		}
		status = to
		progress(string(to), message)
		return nil
	}
	defer func() {
		if err == nil || status.IsTerminal() {
			return
		}
		if CanTransition(status, StatusFailed) {
			status = StatusFailed
			progress(string(StatusFailed), "chunk failed")
		}
	}()

	if err := advance(StatusAnalyzingLoudness, "measuring loudness"); err != nil {
		return pool.ChunkResult{}, err
	}
	if err := os.WriteFile(paths.raw, job.Payload, 0o644); err != nil {
		return pool.ChunkResult{}, fmt.Errorf("write chunk payload: %w", err)
	}

	chain := &filtergraph.Chain{
		TargetI:         p.cfg.TargetI,
		TargetTP:        p.cfg.TargetTP,
		TargetLRA:       p.cfg.TargetLRA,
		Mono:            job.Mono,
		GateEnabled:     job.Options.Gate,
		ClarityEnabled:  job.Options.Clarity,
		TonalEnabled:    job.Options.Tonal,
		SoftClipEnabled: job.Options.SoftClip,
	}

	measured, err := p.analyzeLoudness(ctx, chain, paths.raw)
	if err != nil {
		return pool.ChunkResult{}, err
	}
	chain.Measured = measured
	p.logger.Debug("loudness measured",
		logging.Int(logging.FieldUnit, unitID),
		logging.Int(logging.FieldChunk, job.ChunkIndex),
		logging.Float64("input_i", measured.InputI),
		logging.Float64("input_tp", measured.InputTP))

	if err := advance(StatusNormalizingLoudness, "applying loudness correction"); err != nil {
		return pool.ChunkResult{}, err
	}
	if err := p.normalize(ctx, chain, paths.raw, paths.normalized); err != nil {
		return pool.ChunkResult{}, err
	}

	if err := advance(StatusAnalyzingMastering, "measuring program level"); err != nil {
		return pool.ChunkResult{}, err
	}
	rms, err := p.analyzeMastering(ctx, chain, paths.normalized, paths.report)
	if err != nil {
		return pool.ChunkResult{}, err
	}
	chain.RMS = rms
	p.logger.Debug("program level measured",
		logging.Int(logging.FieldUnit, unitID),
		logging.Int(logging.FieldChunk, job.ChunkIndex),
		logging.Float64("rms_db", rms))

	if err := advance(StatusEncoding, "mastering and encoding"); err != nil {
		return pool.ChunkResult{}, err
	}
	if err := p.encode(ctx, chain, paths.normalized, paths.mastered); err != nil {
		return pool.ChunkResult{}, err
	}

	payload, err := os.ReadFile(paths.mastered)
	if err != nil {
		return pool.ChunkResult{}, fmt.Errorf("read mastered artifact: %w", err)
	}
	if err := advance(StatusSucceeded, "chunk mastered"); err != nil {
		return pool.ChunkResult{}, err
	}
	return pool.ChunkResult{
		ChunkIndex: job.ChunkIndex,
		Payload:    payload,
		Report: pool.ChunkReport{
			InputIntegrated:    measured.InputI,
			InputTruePeak:      measured.InputTP,
			InputLoudnessRange: measured.InputLRA,
			RMSLevel:           rms,
		},
	}, nil
}

// analyzeLoudness runs the measurement pass. The loudnorm summary arrives
// on the diagnostic stream, which Execute collects for parsing.
func (p *Pipeline) analyzeLoudness(ctx context.Context, chain *filtergraph.Chain, raw string) (*loudness.Measurements, error) {
	res, err := p.engine.Execute(ctx, ffmpeg.Request{
		Args: []string{"-i", raw, "-af", chain.MeasureSpec(), "-f", "null", "-"},
	})
	if err != nil {
		return nil, err
	}
	measured, err := loudness.ParseMeasurements(res.Diagnostics)
	if err != nil {
		return nil, services.Wrap(services.ErrPostcondition, "pipeline", "parse loudness measurements", "", err)
	}
	return &measured, nil
}

// normalize applies the correction pass. The output stays in the canonical
// intermediate format; loudnorm would otherwise resample it.
func (p *Pipeline) normalize(ctx context.Context, chain *filtergraph.Chain, raw, normalized string) error {
	_, err := p.engine.Execute(ctx, ffmpeg.Request{
		Args: []string{
			"-i", raw,
			"-af", chain.CorrectSpec(),
			"-ar", strconv.Itoa(IntermediateSampleRate),
			"-c:a", IntermediateCodec,
			normalized,
		},
	})
	if err != nil {
		return err
	}
	return p.verifyArtifact(normalized, "normalize loudness")
}

// analyzeMastering measures the corrected chunk's overall RMS level from
// the stats report. The report file is removed whether or not it parses.
func (p *Pipeline) analyzeMastering(ctx context.Context, chain *filtergraph.Chain, normalized, report string) (float64, error) {
	chain.ReportPath = report
	_, err := p.engine.Execute(ctx, ffmpeg.Request{
		Args: []string{"-i", normalized, "-af", chain.StatsSpec(), "-f", "null", "-"},
	})
	if err != nil {
		return 0, err
	}

	data, readErr := os.ReadFile(report)
	p.cleanup(report)
	if readErr != nil {
		return 0, services.Wrap(services.ErrPostcondition, "pipeline", "read level report", "", readErr)
	}
	rms, err := loudness.ParseRMS(string(data))
	if err != nil {
		return 0, services.Wrap(services.ErrPostcondition, "pipeline", "parse level report", "", err)
	}
	return rms, nil
}

// encode runs the mastering chain and writes the final chunk artifact.
func (p *Pipeline) encode(ctx context.Context, chain *filtergraph.Chain, normalized, mastered string) error {
	args := []string{"-i", normalized, "-af", chain.DynamicsSpec()}
	args = append(args, p.codecArgs()...)
	args = append(args, mastered)
	if _, err := p.engine.Execute(ctx, ffmpeg.Request{Args: args}); err != nil {
		return err
	}
	return p.verifyArtifact(mastered, "encode chunk")
}

func (p *Pipeline) codecArgs() []string {
	switch p.cfg.Format {
	case FormatAAC:
		return []string{"-c:a", "aac", "-b:a", p.cfg.Bitrate}
	default:
		return []string{"-c:a", "libmp3lame", "-b:a", p.cfg.Bitrate}
	}
}

// verifyArtifact applies the postcondition checks for a pass output. The
// engine can exit zero while writing nothing usable.
func (p *Pipeline) verifyArtifact(path, operation string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrPostcondition, "pipeline", operation, "artifact missing after engine success", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrPostcondition, "pipeline", operation, "artifact path is a directory", nil)
	}
	if info.Size() < minArtifactBytes {
		return services.Wrap(services.ErrPostcondition, "pipeline", operation,
			fmt.Sprintf("artifact %s is %d bytes, below the %d byte floor", filepath.Base(path), info.Size(), minArtifactBytes), nil)
	}
	return nil
}

type chunkPaths struct {
	raw        string
	normalized string
	report     string
	mastered   string
}

func (c chunkPaths) all() []string {
	return []string{c.raw, c.normalized, c.report, c.mastered}
}

func (p *Pipeline) chunkPaths(unitID, chunk int) chunkPaths {
	base := p.area.Join(unitsDir, unitName(unitID), fmt.Sprintf("chunk-%03d", chunk))
	return chunkPaths{
		raw:        base + ".src.wav",
		normalized: base + ".norm.wav",
		report:     base + ".stats.txt",
		mastered:   base + p.outputExt(),
	}
}

func (p *Pipeline) outputExt() string {
	if p.cfg.Format == FormatAAC {
		return ".m4a"
	}
	return ".mp3"
}

// cleanup removes pass intermediates. Removal failures cannot change the
// chunk outcome, so they are logged and swallowed.
func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("cleanup failed", logging.String("path", path), logging.Error(err))
		}
	}
}

func unitName(unitID int) string {
	return fmt.Sprintf("unit-%03d", unitID)
}
