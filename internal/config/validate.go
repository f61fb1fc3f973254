package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateBlobstore(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSource() error {
	if c.Source.FeedURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/soapbox/config.toml"
		}
		return fmt.Errorf("source.feed_url is required. Edit %s (create with 'soapbox config new')", defaultPath)
	}
	if c.Source.SiteURL == "" {
		return errors.New("source.site_url must be set")
	}
	if c.Source.TrackAPIURL != "" && c.Source.ClientID == "" {
		return errors.New("source.client_id must be set when source.track_api_url is set")
	}
	return nil
}

func (c *Config) validateBlobstore() error {
	if strings.TrimSpace(c.Blobstore.Endpoint) == "" {
		return errors.New("blobstore.endpoint must be set")
	}
	if strings.TrimSpace(c.Blobstore.Bucket) == "" {
		return errors.New("blobstore.bucket must be set")
	}
	if strings.TrimSpace(c.Blobstore.PublicBaseURL) == "" {
		return errors.New("blobstore.public_base_url must be set")
	}
	return nil
}

func (c *Config) validatePlayback() error {
	switch c.Playback.Order {
	case "oldest_first", "newest_first":
		return nil
	default:
		return fmt.Errorf("playback.order must be oldest_first or newest_first, got %q", c.Playback.Order)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
