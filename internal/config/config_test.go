package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"soapbox/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[source]
feed_url = "https://example.org/feed/"
site_url = "https://example.org/"

[blobstore]
endpoint = "https://blobs.example.org"
bucket = "soapbox"
public_base_url = "https://cdn.example.org/soapbox"
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Sync.RetryAttempts != 3 {
		t.Fatalf("expected default retry attempts, got %d", cfg.Sync.RetryAttempts)
	}
	if cfg.Playback.Order != "oldest_first" {
		t.Fatalf("expected default playback order, got %q", cfg.Playback.Order)
	}
	if cfg.Transcode.SampleRate != 24000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Transcode.SampleRate)
	}
	if cfg.Source.SiteURL != "https://example.org" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Source.SiteURL)
	}
}

func TestLoadRequiresFeedURL(t *testing.T) {
	path := writeConfig(t, `
[blobstore]
endpoint = "https://blobs.example.org"
bucket = "soapbox"
public_base_url = "https://cdn.example.org/soapbox"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for missing feed_url")
	} else if !strings.Contains(err.Error(), "source.feed_url") {
		t.Fatalf("expected feed_url mentioned, got %v", err)
	}
}

func TestLoadRejectsBadPlaybackOrder(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[playback]
order = "shuffled"
`)

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown playback order")
	}
}

func TestLoadRejectsClientIDlessTrackAPI(t *testing.T) {
	path := writeConfig(t, minimalConfig+`
[source.extra]
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Source.TrackAPIURL = "https://tracks.example.org"
	cfg.Source.ClientID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for track_api_url without client_id")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	for _, section := range []string{"[paths]", "[source]", "[blobstore]", "[sync]", "[playback]", "[speech]", "[logging]"} {
		if !strings.Contains(string(data), section) {
			t.Fatalf("sample config missing section %s", section)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}
