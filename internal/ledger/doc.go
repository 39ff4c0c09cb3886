// Package ledger persists which source files a batch has fully processed.
//
// The backing store is a plain-text append-only file named .vopt inside the
// input directory, one absolute path per line. Appends are synced before the
// entry is considered recorded, which keeps the ledger consistent with
// actually completed work across crashes and interrupts.
package ledger
