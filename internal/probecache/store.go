package probecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vopt/internal/probe"
)

// Store persists probe results in SQLite keyed by absolute path. A cached row
// is only served when the file's size and mtime still match, so edited files
// re-probe.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS probes (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime_unix INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	bitrate_bps INTEGER NOT NULL,
	duration_seconds REAL NOT NULL,
	rotation TEXT NOT NULL
);
`

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the probe cache database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init probe cache schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached probe for path when size and mtime still match.
func (s *Store) Get(ctx context.Context, path string, size, mtimeUnix int64) (probe.MediaProbe, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT size, mtime_unix, width, height, bitrate_bps, duration_seconds, rotation
FROM probes WHERE path = ?`, path)

	var (
		gotSize, gotMtime int64
		result            probe.MediaProbe
		rotation          string
	)
	err := row.Scan(&gotSize, &gotMtime, &result.Width, &result.Height, &result.BitrateBps, &result.DurationSeconds, &rotation)
	if errors.Is(err, sql.ErrNoRows) {
		return probe.MediaProbe{}, false, nil
	}
	if err != nil {
		return probe.MediaProbe{}, false, fmt.Errorf("query probe cache: %w", err)
	}
	if gotSize != size || gotMtime != mtimeUnix {
		return probe.MediaProbe{}, false, nil
	}
	result.Rotation = probe.Rotation(rotation)
	return result, true, nil
}

// Put stores or replaces the cached probe for path.
func (s *Store) Put(ctx context.Context, path string, size, mtimeUnix int64, result probe.MediaProbe) error {
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO probes (path, size, mtime_unix, width, height, bitrate_bps, duration_seconds, rotation)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			path, size, mtimeUnix, result.Width, result.Height, result.BitrateBps, result.DurationSeconds, string(result.Rotation))
		return execErr
	})
	if err != nil {
		return fmt.Errorf("store probe cache entry: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
