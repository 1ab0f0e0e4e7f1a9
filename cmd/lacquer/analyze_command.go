package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"lacquer/internal/config"
	"lacquer/internal/logging"
	"lacquer/internal/workflow"
)

// runAnalysis is replaced in tests to exercise the command surface without
// shelling out to ffmpeg.
var runAnalysis = func(ctx context.Context, cfg *config.Config, logger *slog.Logger, input string) (*workflow.Analysis, error) {
	runner, err := workflow.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return runner.Analyze(ctx, input)
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <input>",
		Short: "Measure loudness without mastering anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout"},
			})
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			analysis, err := runAnalysis(cmd.Context(), cfg, logger, args[0])
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Input", analysis.Input},
				{"Codec", analysis.Codec},
				{"Channels", channelLabel(analysis.Channels)},
			}
			if analysis.SampleRate != "" {
				rows = append(rows, []string{"Sample rate", analysis.SampleRate + " Hz"})
			}
			rows = append(rows,
				[]string{"Duration", formatClock(analysis.Duration)},
				[]string{"Integrated loudness", fmt.Sprintf("%.1f LUFS", analysis.Measured.InputI)},
				[]string{"True peak", fmt.Sprintf("%.1f dBTP", analysis.Measured.InputTP)},
				[]string{"Loudness range", fmt.Sprintf("%.1f LU", analysis.Measured.InputLRA)},
				[]string{"Threshold", fmt.Sprintf("%.1f LUFS", analysis.Measured.InputThresh)},
			)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]string{"Measurement", "Value"}, rows))
			fmt.Fprintf(out, "\nTarget is %.1f LUFS; normalization would apply %+.1f dB of gain.\n",
				cfg.Mastering.TargetIntegratedLUFS,
				cfg.Mastering.TargetIntegratedLUFS-analysis.Measured.InputI)
			return nil
		},
	}
}

func channelLabel(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
