package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lacquer/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, and settings before mastering",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failures := 0

			for _, line := range renderSectionHeader("Tools", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, status := range preflight.CheckSystemDeps(cfg) {
				if status.Available {
					message := "Ready"
					if status.Command != "" {
						message = fmt.Sprintf("Ready (command: %s)", status.Command)
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, message, colorize))
					continue
				}
				failures++
				detail := strings.TrimSpace(status.Detail)
				if detail == "" {
					detail = "not available"
				}
				if status.Description != "" {
					detail = fmt.Sprintf("%s (%s)", detail, status.Description)
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, statusError, detail, colorize))
			}
			failures += printCheck(out, preflight.CheckEngineRuns(cmd.Context(), cfg.FFmpegBinary()), colorize)

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Workspace", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range []preflight.Result{
				preflight.CheckDirectoryAccess("Working directory", cfg.Paths.WorkingDir),
				preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
				preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
				preflight.CheckDiskSpace(cfg.Paths.WorkingDir),
			} {
				failures += printCheck(out, result, colorize)
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Settings", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range []preflight.Result{
				preflight.CheckOutputSettings(cfg),
				preflight.CheckMasteringTargets(cfg),
			} {
				failures += printCheck(out, result, colorize)
			}

			fmt.Fprintln(out)
			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func printCheck(out io.Writer, result preflight.Result, colorize bool) int {
	kind := statusOK
	failed := 0
	if !result.Passed {
		kind = statusError
		failed = 1
	}
	fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	return failed
}
