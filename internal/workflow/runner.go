// Package workflow drives one mastering run end to end: sanitize the
// source, analyze it, split it into chunks, fan the chunks out to the
// execution unit pool, then reassemble the mastered chunks into the final
// episode artifact.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"lacquer/internal/config"
	"lacquer/internal/logging"
	"lacquer/internal/media/ffprobe"
	"lacquer/internal/media/streaminfo"
	"lacquer/internal/pipeline"
	"lacquer/internal/pool"
	"lacquer/internal/services"
	"lacquer/internal/services/ffmpeg"
	"lacquer/internal/textutil"
	"lacquer/internal/workarea"
)

const (
	sourceFileName = "source.wav"
	chunksDir      = "chunks"
	assembleDir    = "assembly"

	// minArtifactBytes is the floor below which a step artifact is treated
	// as truncated.
	minArtifactBytes = 4 * 1024
)

var probeInput = ffprobe.Inspect

// Runner orchestrates mastering runs. Pre and post processing share one
// engine client and run strictly sequentially; only chunk mastering fans
// out across the unit pool.
type Runner struct {
	cfg    *config.Config
	engine *ffmpeg.Client
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithEngine overrides the engine client.
func WithEngine(client *ffmpeg.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.engine = client
		}
	}
}

// New builds a runner from validated configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner requires configuration")
	}
	r := &Runner{cfg: cfg, logger: logging.NewComponentLogger(logger, "workflow")}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = ffmpeg.New(ffmpeg.WithBinary(cfg.FFmpegBinary()))
	}
	return r, nil
}

// Outcome describes a completed mastering run. Reports holds one entry per
// chunk in ascending chunk order.
type Outcome struct {
	OutputPath     string
	Title          string
	RunID          string
	Chunks         int
	Reports        []pool.ChunkReport
	SourceDuration time.Duration
	Elapsed        time.Duration
}

// Run masters one episode. The input is never modified; all intermediates
// live in a per-run working area that is removed on every exit path.
func (r *Runner) Run(ctx context.Context, inputPath string) (*Outcome, error) {
	started := time.Now()

	inputPath = strings.TrimSpace(inputPath)
	if inputPath == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "run", "input path required", nil)
	}
	inputPath, err := expandInput(inputPath)
	if err != nil {
		return nil, err
	}

	probe, err := probeInput(ctx, r.cfg.FFprobeBinary(), inputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "probe input", "", err)
	}
	if probe.AudioStreamCount() == 0 {
		return nil, services.Wrap(services.ErrValidation, "workflow", "probe input", "no audio stream in input", nil)
	}

	runID := newRunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	area, err := workarea.Open(filepath.Join(r.cfg.Paths.WorkingDir, runDirName(inputPath, runID)))
	if err != nil {
		return nil, err
	}
	cleanup := newCleanupList(logger)
	defer cleanup.run()
	cleanup.add("close working area", area.Close)
	cleanup.add("remove working area", func() error { return os.RemoveAll(area.Root()) })

	logger.Info("mastering run started",
		logging.String("input", inputPath),
		logging.String("work_dir", area.Root()))

	sourceWav, err := r.sanitize(ctx, area, inputPath, probe.DurationSeconds(), logger)
	if err != nil {
		return nil, err
	}

	info, err := r.inspectSource(ctx, sourceWav, logger)
	if err != nil {
		return nil, err
	}

	chunkFiles, err := r.split(ctx, area, sourceWav, info.Duration, logger)
	if err != nil {
		return nil, err
	}

	results, err := r.master(ctx, area, chunkFiles, info, logger)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(r.cfg.Output.Title)
	if title == "" {
		title = textutil.TitleFromPath(inputPath)
	}

	outputPath, err := r.assemble(ctx, area, results, title, info.Duration, logger)
	if err != nil {
		return nil, err
	}

	reports := make([]pool.ChunkReport, len(results))
	for i, res := range results {
		reports[i] = res.Report
	}

	outcome := &Outcome{
		OutputPath:     outputPath,
		Title:          title,
		RunID:          runID,
		Chunks:         len(results),
		Reports:        reports,
		SourceDuration: info.Duration,
		Elapsed:        time.Since(started),
	}
	logger.Info("mastering run finished",
		logging.String("output", outcome.OutputPath),
		logging.Int("chunks", outcome.Chunks),
		logging.Duration("source_duration", outcome.SourceDuration),
		logging.Duration("elapsed", outcome.Elapsed))
	return outcome, nil
}

// sanitize extracts the first audio stream into the canonical intermediate
// format, shedding video streams, chapters, and container quirks.
func (r *Runner) sanitize(ctx context.Context, area *workarea.Area, inputPath string, totalSeconds float64, logger *slog.Logger) (string, error) {
	sourceWav := area.Join(sourceFileName)
	_, err := r.engine.Execute(ctx, ffmpeg.Request{
		Args: []string{
			"-i", inputPath,
			"-map", "a:0",
			"-ar", strconv.Itoa(pipeline.IntermediateSampleRate),
			"-c:a", pipeline.IntermediateCodec,
			sourceWav,
		},
		OnProgress: stepProgress(logger, "sanitize", totalSeconds),
	})
	if err != nil {
		return "", err
	}
	if err := verifyArtifact(sourceWav, "sanitize input"); err != nil {
		return "", err
	}
	return sourceWav, nil
}

// inspectSource derives duration and channel layout from the engine's
// stream diagnostics for the sanitized source.
func (r *Runner) inspectSource(ctx context.Context, sourceWav string, logger *slog.Logger) (streaminfo.Info, error) {
	diagnostics, err := r.engine.Inspect(ctx, sourceWav)
	if err != nil {
		return streaminfo.Info{}, err
	}
	info, err := streaminfo.Parse(diagnostics)
	if err != nil {
		return streaminfo.Info{}, services.Wrap(services.ErrValidation, "workflow", "analyze source", "", err)
	}
	logger.Info("source analyzed",
		logging.Duration("duration", info.Duration),
		logging.Bool("mono", info.Mono),
		logging.Int("sample_rate", info.SampleRate),
		logging.String("codec", info.Codec))
	return info, nil
}

// split cuts the sanitized source into fixed-duration chunks with the
// segment muxer. Stream copy keeps the cut positions sample-exact for PCM.
func (r *Runner) split(ctx context.Context, area *workarea.Area, sourceWav string, total time.Duration, logger *slog.Logger) ([]string, error) {
	if _, err := area.MkdirAll(chunksDir); err != nil {
		return nil, err
	}
	_, err := r.engine.Execute(ctx, ffmpeg.Request{
		Args: []string{
			"-i", sourceWav,
			"-f", "segment",
			"-segment_time", strconv.Itoa(r.cfg.Mastering.ChunkSeconds),
			"-c", "copy",
			area.Join(chunksDir, "chunk-%03d.wav"),
		},
		OnProgress: stepProgress(logger, "split", total.Seconds()),
	})
	if err != nil {
		return nil, err
	}

	files, err := area.List(filepath.Join(chunksDir, "chunk-*.wav"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrPostcondition, "workflow", "split source", "no chunks produced", nil)
	}
	if expected := chunkCount(total, r.cfg.ChunkDuration()); len(files) != expected {
		logging.WarnWithContext(logger, "chunk count differs from estimate", "chunk_count_mismatch",
			logging.Int("expected", expected),
			logging.Int("actual", len(files)),
			logging.String(logging.FieldImpact, "all produced chunks are mastered"))
	}
	logger.Info("source split", logging.Int("chunks", len(files)))
	return files, nil
}

// master fans the chunks out to the unit pool and waits at the join
// barrier. Every ticket is awaited before the pool is torn down, so
// in-flight chunks always run to completion even after another chunk has
// already failed.
func (r *Runner) master(ctx context.Context, area *workarea.Area, chunkFiles []string, info streaminfo.Info, logger *slog.Logger) ([]pool.ChunkResult, error) {
	pipe, err := pipeline.New(pipeline.Config{
		TargetI:   r.cfg.Mastering.TargetIntegratedLUFS,
		TargetTP:  r.cfg.Mastering.TargetTruePeak,
		TargetLRA: r.cfg.Mastering.TargetLoudnessRange,
		Format:    r.cfg.Output.Format,
		Bitrate:   r.cfg.Output.Bitrate,
	}, area, r.engine, r.logger)
	if err != nil {
		return nil, err
	}

	// Progress callbacks arrive on a single pool goroutine, so the
	// samplers map needs no lock. One sampler per chunk: a unit moving
	// to the next pass always logs, a pass repeating its notification
	// does not.
	samplers := make(map[int]*logging.ProgressSampler)
	units, err := pool.New(
		pool.WithSize(r.cfg.Pool.Workers),
		pool.WithProcessor(pipe),
		pool.WithLogger(r.logger),
		pool.WithJobTimeout(r.cfg.JobTimeout()),
		pool.WithProgress(func(update pool.ProgressUpdate) {
			sampler := samplers[update.Chunk]
			if sampler == nil {
				sampler = logging.NewProgressSampler(0)
				samplers[update.Chunk] = sampler
			}
			if !sampler.ShouldLog(-1, update.Stage, update.Message) {
				return
			}
			logger.Info("chunk progress",
				logging.Int(logging.FieldUnit, update.Unit),
				logging.Int(logging.FieldChunk, update.Chunk),
				logging.String(logging.FieldStage, update.Stage),
				logging.String("message", update.Message))
		}),
	)
	if err != nil {
		return nil, err
	}
	if err := units.Initialize(ctx); err != nil {
		return nil, err
	}
	defer units.Terminate()

	options := pool.Options{
		Gate:     r.cfg.Mastering.Gate,
		Clarity:  r.cfg.Mastering.Clarity,
		Tonal:    r.cfg.Mastering.Tonal,
		SoftClip: r.cfg.Mastering.SoftClip,
	}

	tickets := make([]*pool.Ticket, 0, len(chunkFiles))
	for index, path := range chunkFiles {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", index, err)
		}
		ticket, err := units.Dispatch(pool.Job{
			ChunkIndex: index,
			Payload:    payload,
			Mono:       info.Mono,
			Options:    options,
		})
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	results := make([]pool.ChunkResult, 0, len(tickets))
	var failures []error
	for _, ticket := range tickets {
		res, err := ticket.Wait(ctx)
		if err != nil {
			failures = append(failures, fmt.Errorf("chunk %d: %w", ticket.ChunkIndex(), err))
			continue
		}
		results = append(results, res)
	}
	units.Terminate()

	if len(failures) > 0 {
		return nil, fmt.Errorf("%d of %d chunks failed: %w", len(failures), len(tickets), errors.Join(failures...))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ChunkIndex < results[j].ChunkIndex })
	return results, nil
}

// stepProgress samples engine progress for one sequential step against the
// known total duration.
func stepProgress(logger *slog.Logger, step string, totalSeconds float64) func(ffmpeg.Progress) {
	sampler := logging.NewProgressSampler(10)
	return func(p ffmpeg.Progress) {
		percent := -1.0
		if totalSeconds > 0 {
			percent = math.Min(100, p.Position.Seconds()/totalSeconds*100)
		}
		if !sampler.ShouldLog(percent, step, "") {
			return
		}
		attrs := []logging.Attr{
			logging.String("step", step),
			logging.Duration("position", p.Position),
		}
		if percent >= 0 {
			attrs = append(attrs, logging.Int("percent", int(percent)))
		}
		logger.Info("step progress", logging.Args(attrs...)...)
	}
}

// verifyArtifact applies the postcondition checks for a sequential step
// output.
func verifyArtifact(path, operation string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrPostcondition, "workflow", operation, "artifact missing after engine success", err)
	}
	if info.Size() < minArtifactBytes {
		return services.Wrap(services.ErrPostcondition, "workflow", operation,
			fmt.Sprintf("artifact %s is %d bytes, below the %d byte floor", filepath.Base(path), info.Size(), minArtifactBytes), nil)
	}
	return nil
}

// chunkCount estimates how many chunks the segment muxer will produce.
func chunkCount(total, chunk time.Duration) int {
	if total <= 0 || chunk <= 0 {
		return 0
	}
	return int(math.Ceil(total.Seconds() / chunk.Seconds()))
}

func newRunID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// runDirName builds the per-run scratch directory name from the source
// file and the run id. The token makes concurrent runs recognizable on
// disk; the id keeps them collision-free.
func runDirName(inputPath, runID string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return textutil.SanitizeToken(base) + "-" + runID
}

type cleanupStep struct {
	name string
	fn   func() error
}

// cleanupList runs registered steps newest first on every exit path.
// Cleanup failures cannot affect the run outcome; they are logged at
// debug and swallowed.
type cleanupList struct {
	logger *slog.Logger
	steps  []cleanupStep
}

func newCleanupList(logger *slog.Logger) *cleanupList {
	return &cleanupList{logger: logger}
}

func (c *cleanupList) add(name string, fn func() error) {
	c.steps = append(c.steps, cleanupStep{name: name, fn: fn})
}

func (c *cleanupList) run() {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(); err != nil {
			c.logger.Debug("cleanup step failed", logging.String("step", step.name), logging.Error(err))
		}
	}
	c.steps = nil
}
