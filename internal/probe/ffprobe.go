package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vopt/internal/services"
)

// Rotation metadata is unreliable and expensive to read on long files in most
// containers, so the rotation probe only runs for short files or .mov input.
const rotationProbeMaxSeconds = 300

// FFprobe implements Prober by invoking the external ffprobe binary once per
// metadata group: stream resolution/bitrate, container bitrate fallback,
// container duration, and rotation side data.
type FFprobe struct {
	binary          string
	skipOrientation bool
	run             runFunc
}

type runFunc func(ctx context.Context, binary string, args []string) (string, error)

// NewFFprobe constructs a prober around the given ffprobe binary. When
// skipOrientation is set the rotation probe never runs and every file is
// treated as unrotated.
func NewFFprobe(binary string, skipOrientation bool) *FFprobe {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFprobe{binary: binary, skipOrientation: skipOrientation, run: runCommand}
}

func runCommand(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(output), nil
}

// Probe inspects path and assembles a MediaProbe. Resolution is mandatory;
// bitrate and duration degrade to 0 when the prober cannot report them.
func (f *FFprobe) Probe(ctx context.Context, path string) (MediaProbe, error) {
	out, err := f.run(ctx, f.binary, resolutionArgs(path))
	if err != nil {
		return MediaProbe{}, services.Wrap(services.ErrExternalTool, "probe", "inspect resolution", path, err)
	}

	width, height, bitrate, ok := parseResolution(out)
	if !ok {
		return MediaProbe{}, fmt.Errorf("%w: %s", ErrUnparsableResolution, path)
	}

	if bitrate <= 0 {
		out, err := f.run(ctx, f.binary, formatEntryArgs(path, "bit_rate"))
		if err != nil {
			return MediaProbe{}, services.Wrap(services.ErrExternalTool, "probe", "inspect container bitrate", path, err)
		}
		bitrate = parseScalarInt(out)
	}

	out, err = f.run(ctx, f.binary, formatEntryArgs(path, "duration"))
	if err != nil {
		return MediaProbe{}, services.Wrap(services.ErrExternalTool, "probe", "inspect duration", path, err)
	}
	duration := parseScalarFloat(out)

	rotation := RotationNone
	if f.shouldProbeRotation(path, duration) {
		out, err := f.run(ctx, f.binary, rotationArgs(path))
		if err != nil {
			return MediaProbe{}, services.Wrap(services.ErrExternalTool, "probe", "inspect rotation", path, err)
		}
		rotation = parseRotation(out)
	}

	return MediaProbe{
		Width:           width,
		Height:          height,
		BitrateBps:      bitrate,
		DurationSeconds: duration,
		Rotation:        rotation,
	}, nil
}

func (f *FFprobe) shouldProbeRotation(path string, duration float64) bool {
	if f.skipOrientation {
		return false
	}
	if duration <= rotationProbeMaxSeconds {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".mov")
}

func resolutionArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,bit_rate",
		"-of", "csv=p=0",
		"--", path,
	}
}

func formatEntryArgs(path, entry string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=" + entry,
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	}
}

func rotationArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream_side_data=rotation",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	}
}

// parseResolution decodes the fixed-order width,height,bit_rate tuple. At
// least width and height must be positive integers; a missing or non-numeric
// bitrate degrades to 0.
func parseResolution(output string) (width, height int, bitrate int64, ok bool) {
	fields := splitFields(output)
	if len(fields) < 2 {
		return 0, 0, 0, false
	}
	width, errW := strconv.Atoi(fields[0])
	height, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, 0, false
	}
	if len(fields) >= 3 {
		if parsed, err := strconv.ParseInt(fields[2], 10, 64); err == nil && parsed > 0 {
			bitrate = parsed
		}
	}
	return width, height, bitrate, true
}

func parseScalarInt(output string) int64 {
	fields := splitFields(output)
	if len(fields) == 0 {
		return 0
	}
	parsed, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func parseScalarFloat(output string) float64 {
	fields := splitFields(output)
	if len(fields) == 0 {
		return 0
	}
	parsed, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func parseRotation(output string) Rotation {
	fields := splitFields(output)
	if len(fields) == 0 {
		return RotationNone
	}
	switch fields[0] {
	case "90":
		return Rotation90
	case "180":
		return Rotation180
	case "270":
		return Rotation270
	case "-90":
		return RotationNeg90
	}
	return RotationUnknown
}

func splitFields(output string) []string {
	raw := strings.FieldsFunc(output, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	fields := raw[:0]
	for _, field := range raw {
		field = strings.TrimSpace(field)
		if field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}
