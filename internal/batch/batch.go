package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vopt/internal/config"
	"vopt/internal/fileutil"
	"vopt/internal/ledger"
	"vopt/internal/logging"
	"vopt/internal/plan"
	"vopt/internal/probe"
	"vopt/internal/report"
	"vopt/internal/services"
	"vopt/internal/transcode"
)

// LockFileName guards against two batches racing on the same ledger.
const LockFileName = ".vopt.lock"

// Options configures one batch run.
type Options struct {
	InputDir string
	// OutputDir defaults to <InputDir>/<paths.output_dir_name> when empty.
	OutputDir string
	// DryRun reports decisions without acting or touching the ledger.
	DryRun bool
}

// Batch drives the per-file pipeline: enumerate, gate on the ledger, probe,
// plan, act, record. Processing is strictly sequential; each file completes
// through its ledger update before the next begins.
type Batch struct {
	cfg    *config.Config
	prober probe.Prober
	runner transcode.Runner
	logger *slog.Logger
}

// New constructs a batch around the given capabilities.
func New(cfg *config.Config, prober probe.Prober, runner transcode.Runner, logger *slog.Logger) *Batch {
	return &Batch{
		cfg:    cfg,
		prober: prober,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "batch"),
	}
}

// Run processes every candidate file in the input directory once. Per-file
// failures are logged and skipped; only ledger write failures and a missing
// input directory abort the run.
func (b *Batch) Run(ctx context.Context, opts Options) (report.Summary, error) {
	var summary report.Summary

	inputDir, err := filepath.Abs(opts.InputDir)
	if err != nil {
		return summary, fmt.Errorf("resolve input directory: %w", err)
	}
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return summary, services.Wrap(services.ErrNotFound, "batch", "open input directory", inputDir, err)
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(inputDir, b.cfg.Paths.OutputDirName)
	}

	logger := b.logger.With(logging.String("run_id", uuid.NewString()[:8]))

	if !opts.DryRun {
		lock := flock.New(filepath.Join(inputDir, LockFileName))
		locked, err := lock.TryLock()
		if err != nil {
			return summary, fmt.Errorf("acquire batch lock: %w", err)
		}
		if !locked {
			return summary, fmt.Errorf("another vopt batch is already running against %s", inputDir)
		}
		defer func() { _ = lock.Unlock() }()

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return summary, fmt.Errorf("ensure output directory: %w", err)
		}
	}

	led, err := ledger.Load(inputDir)
	if err != nil {
		return summary, err
	}
	defer led.Close()

	files, err := enumerate(inputDir, b.cfg.Scan.Extensions)
	if err != nil {
		return summary, err
	}
	logger.Info("batch started",
		logging.String("input", inputDir),
		logging.String("output", outputDir),
		logging.Int("candidates", len(files)),
		logging.Int("ledger_entries", led.Len()),
		logging.Bool("dry_run", opts.DryRun),
	)

	for _, path := range files {
		if ctx.Err() != nil {
			logger.Warn("batch interrupted", logging.Error(ctx.Err()))
			break
		}
		if err := b.processFile(ctx, logger, led, path, outputDir, opts.DryRun, &summary); err != nil {
			return summary, err
		}
	}

	logger.Info("batch finished",
		logging.Int("processed", len(summary.Entries)),
		logging.Int("skipped", summary.Skipped),
		logging.Int("retryable", summary.Retryable),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}

// processFile walks one file through Pending -> Probing -> Planning -> Acting
// -> Recorded, or short-circuits to Skipped. The returned error is non-nil
// only for batch-fatal conditions.
func (b *Batch) processFile(ctx context.Context, logger *slog.Logger, led *ledger.Ledger, path, outputDir string, dryRun bool, summary *report.Summary) error {
	base := filepath.Base(path)

	if led.Contains(path) {
		summary.Skipped++
		logger.Debug("already processed", logging.String("file", base))
		return nil
	}

	probed, err := b.prober.Probe(ctx, path)
	if err != nil {
		if errors.Is(err, probe.ErrUnparsableResolution) {
			// Retryable: no ledger entry, so the next run re-attempts it.
			summary.Retryable++
			logger.Warn("unparsable resolution, skipping until next run", logging.String("file", base))
			return nil
		}
		summary.Failed++
		logger.Error("probe failed", logging.String("file", base), logging.Error(err))
		return nil
	}

	oriented := plan.Resolve(probed)
	transform := plan.Build(oriented, probed.BitrateBps)
	outPath := filepath.Join(outputDir, outputName(base))

	logger.Info(transform.Describe(),
		logging.String("file", base),
		logging.String("action", string(transform.Action)),
		logging.String("source", fmt.Sprintf("%dx%d", oriented.Width, oriented.Height)),
		logging.String("target", fmt.Sprintf("%dx%d", transform.TargetWidth, transform.TargetHeight)),
		logging.String("orientation", string(oriented.Orientation)),
		logging.Int64("bitrate_bps", probed.BitrateBps),
	)

	if dryRun {
		summary.Add(report.Entry{
			Name:        base,
			Action:      transform.Action,
			SourceBytes: fileutil.FileSize(path),
		})
		return nil
	}

	switch transform.Action {
	case plan.ActionCopy:
		if err := fileutil.CopyFile(path, outPath); err != nil {
			summary.Failed++
			logger.Error("copy failed", logging.String("file", base), logging.Error(err))
			return nil
		}
	default:
		job := transcode.JobFromPlan(path, outPath, transform)
		if err := b.runner.Transcode(ctx, job); err != nil {
			summary.Failed++
			logger.Error("transcode failed", logging.String("file", base), logging.Error(err))
			return nil
		}
	}

	// The durable append must land before the file counts as done.
	if err := led.MarkProcessed(path); err != nil {
		return err
	}

	summary.Add(report.Entry{
		Name:        base,
		Action:      transform.Action,
		SourceBytes: fileutil.FileSize(path),
		OutputBytes: fileutil.FileSize(outPath),
	})
	return nil
}
