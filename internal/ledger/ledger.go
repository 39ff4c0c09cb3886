package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vopt/internal/services"
)

// FileName is the ledger file kept inside the input directory.
const FileName = ".vopt"

// Ledger is the durable record of fully processed source files. Entries are
// absolute paths, one per line, appended after each successful action and
// never removed. Membership checks run against an in-memory set loaded once.
type Ledger struct {
	path    string
	file    *os.File
	entries map[string]struct{}
}

// Load reads the ledger for inputDir, creating the backing file on first use.
// The returned Ledger holds the file open in append mode; call Close when the
// batch finishes.
func Load(inputDir string) (*Ledger, error) {
	path := filepath.Join(inputDir, FileName)
	entries := make(map[string]struct{})

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrLedger, "ledger", "read", path, err)
	}
	if err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				entries[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, services.Wrap(services.ErrLedger, "ledger", "scan", path, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "ledger", "open for append", path, err)
	}

	return &Ledger{path: path, file: file, entries: entries}, nil
}

// Contains reports whether path was fully processed in this or a prior run.
func (l *Ledger) Contains(path string) bool {
	_, ok := l.entries[path]
	return ok
}

// MarkProcessed durably appends path. The write is flushed to disk before the
// entry becomes visible to Contains, so a crash can never leave the in-memory
// view ahead of the file.
func (l *Ledger) MarkProcessed(path string) error {
	if l.Contains(path) {
		return nil
	}
	if _, err := fmt.Fprintln(l.file, path); err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "append", path, err)
	}
	if err := l.file.Sync(); err != nil {
		return services.Wrap(services.ErrLedger, "ledger", "sync", path, err)
	}
	l.entries[path] = struct{}{}
	return nil
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns the recorded paths in sorted order.
func (l *Ledger) Entries() []string {
	out := make([]string, 0, len(l.entries))
	for entry := range l.entries {
		out = append(out, entry)
	}
	sort.Strings(out)
	return out
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

// Close releases the backing file handle.
func (l *Ledger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
