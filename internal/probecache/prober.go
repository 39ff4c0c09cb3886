package probecache

import (
	"context"
	"log/slog"
	"os"

	"vopt/internal/logging"
	"vopt/internal/probe"
)

// CachingProber wraps a Prober with the cache store. Cache failures degrade
// to a live probe; they never fail the file.
type CachingProber struct {
	inner  probe.Prober
	store  *Store
	logger *slog.Logger
}

// Wrap returns a Prober that consults store before delegating to inner.
func Wrap(inner probe.Prober, store *Store, logger *slog.Logger) *CachingProber {
	return &CachingProber{
		inner:  inner,
		store:  store,
		logger: logging.NewComponentLogger(logger, "probecache"),
	}
}

// Probe serves a cached result when path is unchanged since it was stored,
// otherwise probes live and caches the outcome.
func (c *CachingProber) Probe(ctx context.Context, path string) (probe.MediaProbe, error) {
	info, err := os.Stat(path)
	if err != nil {
		// Let the real prober produce the canonical failure.
		return c.inner.Probe(ctx, path)
	}
	size, mtime := info.Size(), info.ModTime().Unix()

	if cached, ok, err := c.store.Get(ctx, path, size, mtime); err != nil {
		c.logger.Warn("probe cache lookup failed", logging.String("path", path), logging.Error(err))
	} else if ok {
		c.logger.Debug("probe cache hit", logging.String("path", path))
		return cached, nil
	}

	result, err := c.inner.Probe(ctx, path)
	if err != nil {
		return probe.MediaProbe{}, err
	}
	if err := c.store.Put(ctx, path, size, mtime, result); err != nil {
		c.logger.Warn("probe cache store failed", logging.String("path", path), logging.Error(err))
	}
	return result, nil
}
