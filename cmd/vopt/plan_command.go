package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vopt/internal/batch"
	"vopt/internal/report"
	"vopt/internal/transcode"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var skipOrientation bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "plan <input-dir>",
		Short: "Report what a run would do without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			prober, cleanup := buildProber(cfg, logger, skipOrientation, noCache)
			defer cleanup()
			runner := transcode.NewFFmpeg(cfg.Tools.FFmpeg, logger)

			summary, err := batch.New(cfg, prober, runner, logger).Run(cmd.Context(), batch.Options{
				InputDir: args[0],
				DryRun:   true,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipOrientation, "skip-orientation", false, "Skip the rotation probe and treat every file as unrotated")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the probe result cache")
	return cmd
}
