package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lacquer/internal/config"
	"lacquer/internal/logging"
	"lacquer/internal/preflight"
	"lacquer/internal/workflow"
)

// runMastering is replaced in tests to exercise the command surface without
// shelling out to ffmpeg.
var runMastering = func(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) (*workflow.Outcome, error) {
	runner, err := workflow.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, input)
}

func newMasterCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir    string
		workers      int
		chunkSeconds int
		gate         bool
		clarity      bool
		tonal        bool
		softClip     bool
	)

	cmd := &cobra.Command{
		Use:   "master <input>",
		Short: "Master an episode into the configured output format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			if dir := strings.TrimSpace(outputDir); dir != "" {
				expanded, err := config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve output directory: %w", err)
				}
				cfg.Paths.OutputDir = expanded
			}
			if cmd.Flags().Changed("workers") {
				cfg.Pool.Workers = workers
			}
			if cmd.Flags().Changed("chunk-seconds") {
				cfg.Mastering.ChunkSeconds = chunkSeconds
			}
			if cmd.Flags().Changed("gate") {
				cfg.Mastering.Gate = gate
			}
			if cmd.Flags().Changed("clarity") {
				cfg.Mastering.Clarity = clarity
			}
			if cmd.Flags().Changed("tonal") {
				cfg.Mastering.Tonal = tonal
			}
			if cmd.Flags().Changed("soft-clip") {
				cfg.Mastering.SoftClip = softClip
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			if err := masterPreflight(cmd.Context(), cfg); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			outcome, err := runMastering(cmd.Context(), cfg, logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderChunkReport(outcome, cfg.ChunkDuration()))
			fmt.Fprintf(out, "\nMastered %q (%d chunks, %s of audio) in %s\n",
				outcome.Title, outcome.Chunks, formatClock(outcome.SourceDuration),
				outcome.Elapsed.Round(time.Millisecond))
			fmt.Fprintf(out, "Output: %s\n", outcome.OutputPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "", "Destination directory for the mastered file")
	flags.IntVar(&workers, "workers", 0, "Execution units to run in parallel")
	flags.IntVar(&chunkSeconds, "chunk-seconds", 0, "Chunk length in seconds")
	flags.BoolVar(&gate, "gate", false, "Toggle the noise gate stage")
	flags.BoolVar(&clarity, "clarity", false, "Toggle the clarity stage")
	flags.BoolVar(&tonal, "tonal", false, "Toggle the tonal balance stage")
	flags.BoolVar(&softClip, "soft-clip", false, "Toggle the soft clip stage")
	return cmd
}

// masterPreflight fails fast on the problems doctor would report rather than
// discovering them minutes into a run.
func masterPreflight(ctx context.Context, cfg *config.Config) error {
	var failures []string
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available {
			failures = append(failures, fmt.Sprintf("%s: %s", status.Name, status.Detail))
		}
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		if !result.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("preflight failed (%s); run 'lacquer doctor' for details", strings.Join(failures, "; "))
	}
	return nil
}

func renderChunkReport(outcome *workflow.Outcome, chunkLength time.Duration) string {
	rows := make([][]string, 0, len(outcome.Reports))
	for i, report := range outcome.Reports {
		start := time.Duration(i) * chunkLength
		end := start + chunkLength
		if outcome.SourceDuration > 0 && end > outcome.SourceDuration {
			end = outcome.SourceDuration
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%s to %s", formatClock(start), formatClock(end)),
			fmt.Sprintf("%.1f", report.InputIntegrated),
			fmt.Sprintf("%.1f", report.InputTruePeak),
			fmt.Sprintf("%.1f", report.InputLoudnessRange),
			fmt.Sprintf("%.1f", report.RMSLevel),
		})
	}
	headers := []string{"Chunk", "Window", "In I (LUFS)", "In TP (dBTP)", "In LRA (LU)", "RMS (dBFS)"}
	return renderTable(headers, rows, 0, 2, 3, 4, 5)
}

// formatClock renders a duration as mm:ss, or h:mm:ss past the hour mark.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
