// Package logging assembles the structured slog loggers used across vopt.
//
// It owns the console and JSON handlers, centralizes level plumbing, and
// exposes small attribute constructors so components emit log lines with a
// consistent shape. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
