package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"vopt/internal/batch"
	"vopt/internal/config"
	"vopt/internal/logging"
	"vopt/internal/probe"
	"vopt/internal/probecache"
	"vopt/internal/report"
	"vopt/internal/transcode"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var skipOrientation bool
	var noCache bool

	cmd := &cobra.Command{
		Use:   "run <input-dir>",
		Short: "Normalize every video file in a directory",
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
				InputDir:  args[0],
				OutputDir: outputDir,
			})
			// Work completed before a batch-fatal error is still reported.
			if len(summary.Entries) > 0 || err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default <input-dir>/"+config.Default().Paths.OutputDirName+")")
	cmd.Flags().BoolVar(&skipOrientation, "skip-orientation", false, "Skip the rotation probe and treat every file as unrotated")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the probe result cache")
	return cmd
}

// buildProber assembles the prober stack: ffprobe, optionally wrapped by the
// sqlite probe cache. Cache setup failures degrade to live probing.
func buildProber(cfg *config.Config, logger *slog.Logger, skipOrientation, noCache bool) (probe.Prober, func()) {
	skip := skipOrientation || cfg.Probe.SkipOrientation
	var prober probe.Prober = probe.NewFFprobe(cfg.Tools.FFprobe, skip)
	cleanup := func() {}

	if !cfg.Probe.CacheEnabled || noCache {
		return prober, cleanup
	}
	if err := cfg.EnsureDirectories(); err != nil {
		logger.Warn("probe cache unavailable", logging.Error(err))
		return prober, cleanup
	}
	store, err := probecache.Open(cfg.ProbeCachePath())
	if err != nil {
		logger.Warn("probe cache unavailable", logging.Error(err))
		return prober, cleanup
	}
	return probecache.Wrap(prober, store, logger), func() { _ = store.Close() }
}
