package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"vopt/internal/logging"
	"vopt/internal/plan"
	"vopt/internal/services"
)

// Job describes one transcode invocation. The audio stream is always copied
// unmodified and any existing output file is overwritten.
type Job struct {
	InputPath  string
	OutputPath string

	// ApplyScale requests a scale filter to ScaleWidth x ScaleHeight.
	ApplyScale  bool
	ScaleWidth  int
	ScaleHeight int

	// VideoBitrateBps is the target video bitrate. Always set: every
	// transcode applies the cap, whether or not it also resizes.
	VideoBitrateBps int64
}

// JobFromPlan maps a transform plan onto a transcode job.
func JobFromPlan(inputPath, outputPath string, p plan.TransformPlan) Job {
	return Job{
		InputPath:       inputPath,
		OutputPath:      outputPath,
		ApplyScale:      p.ResizeNeeded,
		ScaleWidth:      p.TargetWidth,
		ScaleHeight:     p.TargetHeight,
		VideoBitrateBps: plan.BitrateCapBps,
	}
}

// Runner executes transcode jobs. Implementations block until the external
// tool returns.
type Runner interface {
	Transcode(ctx context.Context, job Job) error
}

// BuildArgs constructs the ffmpeg argument list for a job.
func BuildArgs(job Job) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-y",
		"-i", job.InputPath,
	}
	if job.ApplyScale {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", job.ScaleWidth, job.ScaleHeight))
	}
	args = append(args,
		"-b:v", fmt.Sprintf("%d", job.VideoBitrateBps),
		"-c:a", "copy",
		job.OutputPath,
	)
	return args
}

// FFmpeg is the Runner backed by the external ffmpeg binary.
type FFmpeg struct {
	binary string
	logger *slog.Logger
}

// NewFFmpeg constructs a runner around the given ffmpeg binary.
func NewFFmpeg(binary string, logger *slog.Logger) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary, logger: logging.NewComponentLogger(logger, "transcode")}
}

// Transcode runs ffmpeg for the job, blocking until it exits.
func (f *FFmpeg) Transcode(ctx context.Context, job Job) error {
	args := BuildArgs(job)
	f.logger.Debug("launching ffmpeg",
		logging.String("input", job.InputPath),
		logging.String("output", job.OutputPath),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrExternalTool, "transcode", "run ffmpeg", job.InputPath, err)
	}
	return nil
}
