package probecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vopt/internal/logging"
	"vopt/internal/probe"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "probecache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissReturnsNoResult(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.Get(context.Background(), "/in/a.mp4", 100, 200)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestPutThenGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	want := probe.MediaProbe{Width: 3840, Height: 2160, BitrateBps: 12_000_000, DurationSeconds: 42.5, Rotation: probe.Rotation90}

	if err := store.Put(ctx, "/in/a.mp4", 100, 200, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.Get(ctx, "/in/a.mp4", 100, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestGetRejectsChangedFile(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	entry := probe.MediaProbe{Width: 1920, Height: 1080, Rotation: probe.RotationNone}
	if err := store.Put(ctx, "/in/a.mp4", 100, 200, entry); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := store.Get(ctx, "/in/a.mp4", 101, 200); ok {
		t.Fatal("size change must invalidate the entry")
	}
	if _, ok, _ := store.Get(ctx, "/in/a.mp4", 100, 201); ok {
		t.Fatal("mtime change must invalidate the entry")
	}
}

func TestPutReplacesExistingEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Put(ctx, "/in/a.mp4", 100, 200, probe.MediaProbe{Width: 640, Height: 480, Rotation: probe.RotationNone}); err != nil {
		t.Fatal(err)
	}
	want := probe.MediaProbe{Width: 1280, Height: 720, Rotation: probe.RotationNone}
	if err := store.Put(ctx, "/in/a.mp4", 300, 400, want); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Get(ctx, "/in/a.mp4", 300, 400)
	if err != nil || !ok {
		t.Fatalf("expected hit for replaced entry, ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

type countingProber struct {
	result probe.MediaProbe
	err    error
	calls  int
}

func (c *countingProber) Probe(context.Context, string) (probe.MediaProbe, error) {
	c.calls++
	return c.result, c.err
}

func TestCachingProberAvoidsSecondProbe(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	inner := &countingProber{result: probe.MediaProbe{Width: 1920, Height: 1080, Rotation: probe.RotationNone}}
	cached := Wrap(inner, store, logging.NewNop())

	ctx := context.Background()
	first, err := cached.Probe(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cached.Probe(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single live probe, got %d", inner.calls)
	}
	if first != second {
		t.Fatalf("cache returned different result: %+v vs %+v", first, second)
	}
}

func TestCachingProberDoesNotCacheFailures(t *testing.T) {
	store := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	inner := &countingProber{err: errors.New("probe exploded")}
	cached := Wrap(inner, store, logging.NewNop())

	ctx := context.Background()
	if _, err := cached.Probe(ctx, path); err == nil {
		t.Fatal("expected probe failure to propagate")
	}
	if _, err := cached.Probe(ctx, path); err == nil {
		t.Fatal("expected probe failure to propagate")
	}
	if inner.calls != 2 {
		t.Fatalf("failures must not be cached, got %d calls", inner.calls)
	}
}
