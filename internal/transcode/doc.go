// Package transcode drives the external ffmpeg binary for resize and bitrate
// cap jobs. The Runner interface keeps the batch orchestrator testable with a
// fake; BuildArgs is exported so argument construction stays verifiable
// without executing anything.
package transcode
