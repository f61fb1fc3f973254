package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"soapbox/internal/testsupport"
)

func TestCheckBinariesReportsMissing(t *testing.T) {
	statuses := CheckBinaries([]Requirement{
		{Name: "nonexistent", Command: "definitely-not-installed-binary"},
		{Name: "unset", Command: ""},
	})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		if status.Available {
			t.Errorf("%s should be unavailable", status.Name)
		}
		if status.Detail == "" {
			t.Errorf("%s should explain why", status.Name)
		}
	}
}

func TestVerifyHonorsConfiguredPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Transcode.FFmpegPath = stub

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify with stub binary: %v", err)
	}

	cfg.Transcode.FFmpegPath = filepath.Join(t.TempDir(), "missing-ffmpeg")
	err := Verify(cfg)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "ffmpeg") {
		t.Fatalf("error should name the tool: %v", err)
	}
}
