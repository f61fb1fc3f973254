package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeBlobstore()
	c.normalizeSync()
	c.normalizeTranscode()
	c.normalizePlayback()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.FeedURL = strings.TrimSpace(c.Source.FeedURL)
	c.Source.SiteURL = strings.TrimRight(strings.TrimSpace(c.Source.SiteURL), "/")
	c.Source.TrackAPIURL = strings.TrimRight(strings.TrimSpace(c.Source.TrackAPIURL), "/")
	c.Source.ClientID = strings.TrimSpace(c.Source.ClientID)
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = defaultSourceTimeout
	}
}

func (c *Config) normalizeBlobstore() {
	c.Blobstore.Endpoint = strings.TrimRight(strings.TrimSpace(c.Blobstore.Endpoint), "/")
	c.Blobstore.Bucket = strings.TrimSpace(c.Blobstore.Bucket)
	c.Blobstore.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Blobstore.PublicBaseURL), "/")
	if c.Blobstore.RequestTimeout <= 0 {
		c.Blobstore.RequestTimeout = defaultBlobstoreTimeout
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.RetryAttempts <= 0 {
		c.Sync.RetryAttempts = defaultSyncRetryAttempts
	}
	if c.Sync.RetryDelay <= 0 {
		c.Sync.RetryDelay = defaultSyncRetryDelay
	}
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = defaultSyncPollInterval
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.FFmpegPath = strings.TrimSpace(c.Transcode.FFmpegPath)
	if c.Transcode.FFmpegPath == "" {
		c.Transcode.FFmpegPath = defaultFFmpegPath
	}
	if c.Transcode.BitrateKbps <= 0 {
		c.Transcode.BitrateKbps = defaultBitrateKbps
	}
	if c.Transcode.SampleRate <= 0 {
		c.Transcode.SampleRate = defaultSampleRate
	}
	if c.Transcode.Channels <= 0 {
		c.Transcode.Channels = defaultChannels
	}
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTranscodeTimeout
	}
}

func (c *Config) normalizePlayback() {
	if c.Playback.StallRetryLimit <= 0 {
		c.Playback.StallRetryLimit = defaultStallRetryLimit
	}
	c.Playback.Order = strings.ToLower(strings.TrimSpace(c.Playback.Order))
	if c.Playback.Order == "" {
		c.Playback.Order = defaultPlaybackOrder
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
