package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	cmdCtx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:   "lacquer",
		Short: "Podcast mastering pipeline",
		Long: "Lacquer masters long-form speech recordings. It measures loudness,\n" +
			"corrects each chunk in parallel across a pool of ffmpeg workers, and\n" +
			"assembles a tagged episode file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := cmdCtx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	for _, sub := range []*cobra.Command{
		newMasterCommand(cmdCtx),
		newAnalyzeCommand(cmdCtx),
		newDoctorCommand(cmdCtx),
		newConfigCommand(cmdCtx),
		newVersionCommand(),
	} {
		root.AddCommand(sub)
	}
	return root
}
