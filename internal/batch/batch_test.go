package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"vopt/internal/config"
	"vopt/internal/ledger"
	"vopt/internal/logging"
	"vopt/internal/plan"
	"vopt/internal/probe"
	"vopt/internal/services"
	"vopt/internal/testsupport"
	"vopt/internal/transcode"
)

type fakeProber struct {
	results map[string]probe.MediaProbe
	errs    map[string]error
	calls   []string
}

func (f *fakeProber) Probe(_ context.Context, path string) (probe.MediaProbe, error) {
	base := filepath.Base(path)
	f.calls = append(f.calls, base)
	if err, ok := f.errs[base]; ok {
		return probe.MediaProbe{}, err
	}
	if result, ok := f.results[base]; ok {
		return result, nil
	}
	return probe.MediaProbe{}, errors.New("unexpected probe: " + base)
}

type fakeRunner struct {
	jobs []transcode.Job
	err  error
}

func (f *fakeRunner) Transcode(_ context.Context, job transcode.Job) error {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(job.OutputPath, []byte("transcoded"), 0o644)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Scan.Extensions = []string{".mp4", ".mov", ".mkv", ".avi"}
	return &cfg
}

func newTestBatch(prober probe.Prober, runner transcode.Runner) *Batch {
	return New(testConfig(), prober, runner, logging.NewNop())
}

func hd() probe.MediaProbe {
	return probe.MediaProbe{Width: 1280, Height: 720, BitrateBps: 4_000_000, Rotation: probe.RotationNone}
}

func uhd() probe.MediaProbe {
	return probe.MediaProbe{Width: 3840, Height: 2160, BitrateBps: 40_000_000, Rotation: probe.RotationNone}
}

func TestRunCopiesConformingFile(t *testing.T) {
	dir := testsupport.InputDir(t, "clip.avi")
	prober := &fakeProber{results: map[string]probe.MediaProbe{"clip.avi": hd()}}
	runner := &fakeRunner{}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Entries) != 1 || summary.Entries[0].Action != plan.ActionCopy {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(runner.jobs) != 0 {
		t.Fatalf("copy must not invoke the transcoder: %+v", runner.jobs)
	}

	// Output keeps the basename but always carries .mp4.
	out := filepath.Join(dir, "comp", "clip.mp4")
	body, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "video-bytes:clip.avi" {
		t.Fatalf("copy content mismatch: %q", body)
	}

	led, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()
	if !led.Contains(filepath.Join(dir, "clip.avi")) {
		t.Fatal("processed file missing from ledger")
	}
}

func TestRunTranscodesOversizedFile(t *testing.T) {
	dir := testsupport.InputDir(t, "big.mkv")
	prober := &fakeProber{results: map[string]probe.MediaProbe{"big.mkv": uhd()}}
	runner := &fakeRunner{}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(runner.jobs) != 1 {
		t.Fatalf("expected one transcode job, got %d", len(runner.jobs))
	}
	job := runner.jobs[0]
	if !job.ApplyScale || job.ScaleWidth != 1920 || job.ScaleHeight != 1080 {
		t.Fatalf("unexpected scale in job %+v", job)
	}
	if job.VideoBitrateBps != plan.BitrateCapBps {
		t.Fatalf("resize job must fold in the bitrate cap, got %d", job.VideoBitrateBps)
	}
	if len(summary.Entries) != 1 || summary.Entries[0].Action != plan.ActionResize {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	dir := testsupport.InputDir(t, "clip.mp4")
	prober := &fakeProber{results: map[string]probe.MediaProbe{"clip.mp4": hd()}}
	runner := &fakeRunner{}
	b := newTestBatch(prober, runner)

	if _, err := b.Run(context.Background(), Options{InputDir: dir}); err != nil {
		t.Fatal(err)
	}
	firstProbeCalls := len(prober.calls)

	summary, err := b.Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(prober.calls) != firstProbeCalls {
		t.Fatal("second run must not probe ledgered files")
	}
	if summary.Skipped != 1 || len(summary.Entries) != 0 {
		t.Fatalf("expected pure skip on rerun, got %+v", summary)
	}
}

func TestLedgerGatesProcessing(t *testing.T) {
	dir := testsupport.InputDir(t, "done.mp4")
	abs := filepath.Join(dir, "done.mp4")
	if err := os.WriteFile(filepath.Join(dir, ledger.FileName), []byte(abs+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prober := &fakeProber{}
	runner := &fakeRunner{}
	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(prober.calls) != 0 {
		t.Fatalf("ledgered file must never be probed, calls=%v", prober.calls)
	}
	if summary.Skipped != 1 {
		t.Fatalf("expected one skip, got %+v", summary)
	}
}

func TestUnparsableResolutionRetriesNextRun(t *testing.T) {
	dir := testsupport.InputDir(t, "weird.mp4")
	prober := &fakeProber{errs: map[string]error{"weird.mp4": probe.ErrUnparsableResolution}}
	runner := &fakeRunner{}
	b := newTestBatch(prober, runner)

	summary, err := b.Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Retryable != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	led, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if led.Len() != 0 {
		t.Fatal("unparsable file must not be ledgered")
	}
	led.Close()

	// The next run re-attempts the file.
	if _, err := b.Run(context.Background(), Options{InputDir: dir}); err != nil {
		t.Fatal(err)
	}
	if len(prober.calls) != 2 {
		t.Fatalf("expected re-probe on second run, calls=%v", prober.calls)
	}
}

func TestProbeProcessFailureSkipsFileOnly(t *testing.T) {
	dir := testsupport.InputDir(t, "bad.mp4", "good.mp4")
	prober := &fakeProber{
		results: map[string]probe.MediaProbe{"good.mp4": hd()},
		errs:    map[string]error{"bad.mp4": services.Wrap(services.ErrExternalTool, "probe", "inspect resolution", "bad.mp4", errors.New("exit status 1"))},
	}
	runner := &fakeRunner{}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || len(summary.Entries) != 1 {
		t.Fatalf("batch must continue past per-file failures, got %+v", summary)
	}
}

func TestTranscodeFailureSkipsLedger(t *testing.T) {
	dir := testsupport.InputDir(t, "big.mkv")
	prober := &fakeProber{results: map[string]probe.MediaProbe{"big.mkv": uhd()}}
	runner := &fakeRunner{err: errors.New("ffmpeg exploded")}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected per-file failure, got %+v", summary)
	}

	led, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()
	if led.Len() != 0 {
		t.Fatal("failed transcode must not be ledgered")
	}
}

func TestMissingInputDirIsFatal(t *testing.T) {
	prober := &fakeProber{}
	runner := &fakeRunner{}
	_, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: filepath.Join(t.TempDir(), "absent")})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDryRunHasNoSideEffects(t *testing.T) {
	dir := testsupport.InputDir(t, "big.mkv")
	prober := &fakeProber{results: map[string]probe.MediaProbe{"big.mkv": uhd()}}
	runner := &fakeRunner{}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Entries) != 1 || summary.Entries[0].Action != plan.ActionResize {
		t.Fatalf("dry run should still report decisions, got %+v", summary)
	}
	if len(runner.jobs) != 0 {
		t.Fatal("dry run must not transcode")
	}
	if _, err := os.Stat(filepath.Join(dir, "comp")); !os.IsNotExist(err) {
		t.Fatal("dry run must not create the output directory")
	}

	led, err := ledger.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer led.Close()
	if led.Len() != 0 {
		t.Fatal("dry run must not write the ledger")
	}
}

func TestConcurrentBatchRefused(t *testing.T) {
	dir := testsupport.InputDir(t, "clip.mp4")
	lock := flock.New(filepath.Join(dir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("test lock setup failed: locked=%v err=%v", locked, err)
	}
	defer func() { _ = lock.Unlock() }()

	prober := &fakeProber{results: map[string]probe.MediaProbe{"clip.mp4": hd()}}
	_, err = newTestBatch(prober, &fakeRunner{}).Run(context.Background(), Options{InputDir: dir})
	if err == nil {
		t.Fatal("expected refusal while another batch holds the lock")
	}
}

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, dir, "b.MP4", "x")
	testsupport.WriteFile(t, dir, "a.mkv", "x")
	testsupport.WriteFile(t, dir, "notes.txt", "x")
	testsupport.WriteFile(t, dir, ".vopt", "x")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteFile(t, filepath.Join(dir, "sub"), "nested.mp4", "x")

	files, err := enumerate(dir, []string{".mp4", ".mkv"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.mkv"), filepath.Join(dir, "b.MP4")}
	if len(files) != len(want) {
		t.Fatalf("got %v want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v want %v", files, want)
		}
	}
}

func TestOutputName(t *testing.T) {
	cases := map[string]string{
		"clip.avi":    "clip.mp4",
		"clip.mp4":    "clip.mp4",
		"a.b.mov":     "a.b.mp4",
		"noextension": "noextension.mp4",
	}
	for in, want := range cases {
		if got := outputName(in); got != want {
			t.Fatalf("outputName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRotatedPortraitTreatedAsLandscape(t *testing.T) {
	dir := testsupport.InputDir(t, "rotated.mov")
	prober := &fakeProber{results: map[string]probe.MediaProbe{
		"rotated.mov": {Width: 1080, Height: 1920, BitrateBps: 2_000_000, Rotation: probe.Rotation90},
	}}
	runner := &fakeRunner{}

	summary, err := newTestBatch(prober, runner).Run(context.Background(), Options{InputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	// Logical 1920x1080 landscape sits exactly on the limit: copy.
	if len(summary.Entries) != 1 || summary.Entries[0].Action != plan.ActionCopy {
		t.Fatalf("expected copy for rotation-corrected file, got %+v", summary)
	}
}
