package testsupport

import (
	"path/filepath"
	"testing"

	"soapbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Source.FeedURL = "https://program.test/feed/"
	cfg.Source.SiteURL = "https://program.test"
	cfg.Blobstore.Endpoint = "https://blobs.test"
	cfg.Blobstore.Bucket = "soapbox-test"
	cfg.Blobstore.PublicBaseURL = "https://cdn.test/soapbox"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithStallRetryLimit overrides the playback stall retry bound.
func WithStallRetryLimit(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Playback.StallRetryLimit = limit
	}
}

// WithPlaybackOrder overrides the default playlist order.
func WithPlaybackOrder(order string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Playback.Order = order
	}
}
