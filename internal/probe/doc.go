// Package probe extracts the media metadata vopt plans against: resolution,
// bitrate, duration, and rotation side data.
//
// The Prober interface keeps the batch logic testable without a real ffprobe
// binary. The FFprobe implementation issues one ffprobe invocation per
// metadata group and parses the fixed-order scalar output strictly: width and
// height are mandatory, while bitrate and duration degrade to 0 when absent
// or malformed. Stream-level bitrate falls back to the container-level value
// before degrading.
package probe
