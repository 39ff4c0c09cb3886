// Package services defines the shared error taxonomy for vopt components.
//
// Errors are tagged with sentinel markers (validation, external tool, ledger,
// not found, configuration) via Wrap so callers can classify failures with
// errors.Is without inspecting message text. Fatal distinguishes batch-fatal
// failures from per-file ones.
package services
