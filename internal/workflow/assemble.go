package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lacquer/internal/config"
	"lacquer/internal/logging"
	"lacquer/internal/media/ffprobe"
	"lacquer/internal/pool"
	"lacquer/internal/services"
	"lacquer/internal/services/ffmpeg"
	"lacquer/internal/textutil"
	"lacquer/internal/workarea"
)

var probeOutput = ffprobe.Inspect

// assemble writes the mastered chunks in ascending chunk order, concatenates
// them with stream copy while injecting the episode metadata tags, verifies
// the result, and exports it to the output directory.
func (r *Runner) assemble(ctx context.Context, area *workarea.Area, results []pool.ChunkResult, title string, sourceDuration time.Duration, logger *slog.Logger) (string, error) {
	if len(results) == 0 {
		return "", services.Wrap(services.ErrAssembly, "workflow", "assemble", "no mastered chunks", nil)
	}
	if _, err := area.MkdirAll(assembleDir); err != nil {
		return "", err
	}

	ext := r.cfg.OutputExtension()
	var list strings.Builder
	for _, res := range results {
		name := filepath.Join(assembleDir, fmt.Sprintf("chunk-%03d%s", res.ChunkIndex, ext))
		path, err := area.WriteFile(name, res.Payload)
		if err != nil {
			return "", fmt.Errorf("write mastered chunk %d: %w", res.ChunkIndex, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(path))
	}
	listPath, err := area.WriteFile(filepath.Join(assembleDir, "concat.txt"), []byte(list.String()))
	if err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}

	finalName := filepath.Join(assembleDir, "episode"+ext)
	finalPath := area.Join(finalName)
	args := []string{"-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy"}
	args = append(args, metadataArgs(title, r.cfg.Output)...)
	args = append(args, finalPath)
	if _, err := r.engine.Execute(ctx, ffmpeg.Request{
		Args:       args,
		OnProgress: stepProgress(logger, "concat", sourceDuration.Seconds()),
	}); err != nil {
		return "", err
	}

	probe, err := r.verifyAssembled(ctx, finalPath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(r.cfg.Paths.OutputDir, textutil.SanitizeFileName(title)+ext)
	exported, err := area.Export(finalName, dest)
	if err != nil {
		return "", fmt.Errorf("export mastered episode: %w", err)
	}
	logger.Info("episode assembled",
		logging.Int("chunks", len(results)),
		logging.Int64("size_bytes", probe.SizeBytes()),
		logging.Int64("bit_rate", probe.BitRate()),
		logging.String("output", exported))
	return exported, nil
}

// verifyAssembled confirms the concatenated artifact is a playable audio
// file, not just a file that exists, and returns its probe report.
func (r *Runner) verifyAssembled(ctx context.Context, path string) (ffprobe.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrAssembly, "workflow", "verify output", "artifact missing after concat", err)
	}
	if info.Size() < minArtifactBytes {
		return ffprobe.Result{}, services.Wrap(services.ErrAssembly, "workflow", "verify output",
			fmt.Sprintf("artifact is %d bytes, below the %d byte floor", info.Size(), minArtifactBytes), nil)
	}

	probe, err := probeOutput(ctx, r.cfg.FFprobeBinary(), path)
	if err != nil {
		return ffprobe.Result{}, services.Wrap(services.ErrAssembly, "workflow", "verify output", "re-probe failed", err)
	}
	if probe.AudioStreamCount() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrAssembly, "workflow", "verify output", "no audio stream in output", nil)
	}
	if duration := probe.DurationSeconds(); math.IsNaN(duration) || duration <= 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrAssembly, "workflow", "verify output", "output has no duration", nil)
	}
	return probe, nil
}

// metadataArgs renders the -metadata pairs for the final container. Empty
// tags are omitted, except the date, which falls back to the current year;
// the title always carries a value by the time this runs.
func metadataArgs(title string, out config.Output) []string {
	date := strings.TrimSpace(out.Date)
	if date == "" {
		date = strconv.Itoa(time.Now().Year())
	}
	tags := []struct {
		key   string
		value string
	}{
		{"title", title},
		{"artist", out.Artist},
		{"album_artist", out.Artist},
		{"album", out.Album},
		{"date", date},
		{"genre", out.Genre},
		{"comment", out.Comment},
	}
	args := make([]string, 0, len(tags)*2)
	for _, tag := range tags {
		if strings.TrimSpace(tag.value) == "" {
			continue
		}
		args = append(args, "-metadata", tag.key+"="+tag.value)
	}
	return args
}

// escapeConcatPath quotes a path for the concat demuxer list format, which
// wraps entries in single quotes.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
