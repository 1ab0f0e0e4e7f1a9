package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lacquer/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	for _, sub := range []*cobra.Command{
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
		newConfigPathCommand(ctx),
	} {
		cmd.AddCommand(sub)
	}
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveInitTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				switch _, err := os.Stat(target); {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !os.IsNotExist(err):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set directories and loudness targets before mastering.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Write the file here instead of the default location")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the file if it already exists")
	return cmd
}

// resolveInitTarget expands the requested destination, falling back to the
// standard configuration location.
func resolveInitTarget(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.requestedPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "No config file found; built-in defaults were validated")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.requestedPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config path: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config path: %s (not created; defaults shown)\n", path)
			}

			rows := [][]string{
				{"working_dir", cfg.Paths.WorkingDir},
				{"output_dir", cfg.Paths.OutputDir},
				{"log_dir", cfg.Paths.LogDir},
				{"ffmpeg_binary", cfg.FFmpegBinary()},
				{"ffprobe_binary", cfg.FFprobeBinary()},
				{"target_integrated_lufs", fmt.Sprintf("%.1f", cfg.Mastering.TargetIntegratedLUFS)},
				{"target_true_peak", fmt.Sprintf("%.1f", cfg.Mastering.TargetTruePeak)},
				{"target_loudness_range", fmt.Sprintf("%.1f", cfg.Mastering.TargetLoudnessRange)},
				{"chunk_seconds", fmt.Sprintf("%d", cfg.Mastering.ChunkSeconds)},
				{"gate", yesNo(cfg.Mastering.Gate)},
				{"clarity", yesNo(cfg.Mastering.Clarity)},
				{"tonal", yesNo(cfg.Mastering.Tonal)},
				{"soft_clip", yesNo(cfg.Mastering.SoftClip)},
				{"workers", fmt.Sprintf("%d", cfg.Pool.Workers)},
				{"job_timeout_seconds", fmt.Sprintf("%d", cfg.Pool.JobTimeoutSeconds)},
				{"format", cfg.Output.Format},
				{"bitrate", cfg.Output.Bitrate},
				{"log_format", cfg.Logging.Format},
				{"log_level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows))
			return nil
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file location",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := config.Load(ctx.requestedPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintln(out, path)
				return nil
			}
			fmt.Fprintf(out, "%s (not created; run 'lacquer config init')\n", path)
			return nil
		},
	}
}
