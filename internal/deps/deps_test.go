package deps

import (
	"testing"

	"vopt/internal/config"
)

func TestCheckBinariesMissing(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "Nonexistent", Command: "vopt-test-binary-that-should-not-exist"},
	})
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected unavailable")
	}
	if results[0].Detail == "" {
		t.Fatal("expected detail for missing binary")
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Empty", Command: "  "}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status %+v", results[0])
	}
}

func TestRequirementsUseConfiguredTools(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "/opt/ffmpeg/bin/ffmpeg"
	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	found := false
	for _, req := range reqs {
		if req.Command == "/opt/ffmpeg/bin/ffmpeg" {
			found = true
		}
	}
	if !found {
		t.Fatal("configured ffmpeg path missing from requirements")
	}
}
