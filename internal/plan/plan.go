package plan

import (
	"fmt"
	"math"

	"vopt/internal/probe"
)

// Normalization targets. Comparisons are strict: a file sitting exactly on a
// limit is left alone.
const (
	MaxLongEdge   = 1920
	MaxSquareEdge = 1080
	BitrateCapBps = 10_000_000
)

// Orientation classifies rotation-corrected dimensions.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
)

// OrientedDimensions are the logical width and height of a video after
// correcting for rotation metadata.
type OrientedDimensions struct {
	Width       int
	Height      int
	Orientation Orientation
}

// Resolve derives logical dimensions from raw probe metadata. Rotations of
// 90, 270, and -90 degrees transpose width and height.
func Resolve(p probe.MediaProbe) OrientedDimensions {
	width, height := p.Width, p.Height
	if p.Rotation.SwapsDimensions() {
		width, height = height, width
	}

	orientation := Square
	switch {
	case width > height:
		orientation = Landscape
	case height > width:
		orientation = Portrait
	}

	return OrientedDimensions{Width: width, Height: height, Orientation: orientation}
}

// Action is the transform the batch applies to a file.
type Action string

const (
	ActionCopy        Action = "copy"
	ActionResize      Action = "transcode_resize"
	ActionBitrateOnly Action = "transcode_bitrate"
)

// TransformPlan fully determines what happens to a file. A resize always
// folds in the bitrate cap, so ActionResize and ActionBitrateOnly never
// combine.
type TransformPlan struct {
	TargetWidth      int
	TargetHeight     int
	ResizeNeeded     bool
	BitrateCapNeeded bool
	Action           Action
}

// Build computes the transform plan for logical dimensions and a bitrate.
// Pure and deterministic: downscales the long edge to MaxLongEdge (or a
// square to MaxSquareEdge) preserving aspect ratio with round-to-nearest,
// never upscales, and caps bitrates above BitrateCapBps.
func Build(d OrientedDimensions, bitrateBps int64) TransformPlan {
	p := TransformPlan{
		TargetWidth:      d.Width,
		TargetHeight:     d.Height,
		BitrateCapNeeded: bitrateBps > BitrateCapBps,
	}

	switch d.Orientation {
	case Landscape:
		if d.Width > MaxLongEdge {
			p.TargetWidth = MaxLongEdge
			p.TargetHeight = scaleEdge(d.Height, MaxLongEdge, d.Width)
			p.ResizeNeeded = true
		}
	case Portrait:
		if d.Height > MaxLongEdge {
			p.TargetHeight = MaxLongEdge
			p.TargetWidth = scaleEdge(d.Width, MaxLongEdge, d.Height)
			p.ResizeNeeded = true
		}
	case Square:
		if d.Width > MaxSquareEdge {
			p.TargetWidth = MaxSquareEdge
			p.TargetHeight = MaxSquareEdge
			p.ResizeNeeded = true
		}
	}

	switch {
	case p.ResizeNeeded:
		p.Action = ActionResize
	case p.BitrateCapNeeded:
		p.Action = ActionBitrateOnly
	default:
		p.Action = ActionCopy
	}
	return p
}

func scaleEdge(edge, targetLong, sourceLong int) int {
	return int(math.Round(float64(edge) * float64(targetLong) / float64(sourceLong)))
}

// Describe renders a short human summary of the plan for per-file logging.
func (p TransformPlan) Describe() string {
	switch p.Action {
	case ActionResize:
		return fmt.Sprintf("resize to %dx%d, cap bitrate", p.TargetWidth, p.TargetHeight)
	case ActionBitrateOnly:
		return "cap bitrate"
	default:
		return "copy unchanged"
	}
}
