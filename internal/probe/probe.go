package probe

import (
	"context"
	"fmt"

	"vopt/internal/services"
)

// Rotation is the rotation side data reported for a video stream.
type Rotation string

const (
	RotationNone    Rotation = "none"
	Rotation90      Rotation = "90"
	Rotation180     Rotation = "180"
	Rotation270     Rotation = "270"
	RotationNeg90   Rotation = "-90"
	RotationUnknown Rotation = "unknown"
)

// SwapsDimensions reports whether the rotation transposes width and height.
func (r Rotation) SwapsDimensions() bool {
	switch r {
	case Rotation90, Rotation270, RotationNeg90:
		return true
	}
	return false
}

// MediaProbe is the metadata vopt needs to plan a transform for one file.
// BitrateBps and DurationSeconds are 0 when the prober could not report them.
type MediaProbe struct {
	Width           int
	Height          int
	BitrateBps      int64
	DurationSeconds float64
	Rotation        Rotation
}

// ErrUnparsableResolution marks files whose video resolution could not be
// recovered from the prober output. Callers skip such files without recording
// them as processed so a later run retries them.
var ErrUnparsableResolution = fmt.Errorf("%w: unparsable resolution", services.ErrValidation)

// Prober inspects a media file and reports its metadata. Implementations
// block until the underlying tool returns.
type Prober interface {
	Probe(ctx context.Context, path string) (MediaProbe, error)
}
