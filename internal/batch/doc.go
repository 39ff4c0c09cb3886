// Package batch orchestrates one normalization run over an input directory.
//
// For each candidate file the batch consults the ledger, probes metadata,
// resolves orientation, builds a transform plan, dispatches the copy or
// transcode, and records completion. A flock on the input directory refuses a
// second concurrent batch against the same ledger. Per-file failures skip the
// file and continue; ledger write failures abort the batch because recorded
// progress can no longer be trusted.
package batch
