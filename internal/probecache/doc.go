// Package probecache memoizes probe results in a SQLite database keyed by
// path, size, and mtime.
//
// Probing a file costs several external process invocations. Files that were
// probed in a previous run but never completed (for example after a crash
// mid-transcode) hit the cache on the rerun instead of re-probing. The cache
// is advisory: every failure path degrades to a live probe.
package probecache
