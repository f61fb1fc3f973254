package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Source contains configuration for the remote episode source.
type Source struct {
	FeedURL        string `toml:"feed_url"`
	SiteURL        string `toml:"site_url"`
	TrackAPIURL    string `toml:"track_api_url"`
	ClientID       string `toml:"client_id"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Blobstore contains configuration for the durable blob store.
type Blobstore struct {
	Endpoint       string `toml:"endpoint"`
	Bucket         string `toml:"bucket"`
	PublicBaseURL  string `toml:"public_base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Sync contains configuration for sync-run behavior and daemon timing.
type Sync struct {
	RetryAttempts int `toml:"retry_attempts"`
	RetryDelay    int `toml:"retry_delay"`
	PollInterval  int `toml:"poll_interval"`
}

// Transcode contains configuration for the audio transcode step.
type Transcode struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	BitrateKbps int    `toml:"bitrate_kbps"`
	SampleRate  int    `toml:"sample_rate"`
	Channels    int    `toml:"channels"`
	Timeout     int    `toml:"timeout"`
}

// Playback contains configuration for the playback state machine.
type Playback struct {
	StallRetryLimit int    `toml:"stall_retry_limit"`
	Order           string `toml:"order"`
}

// Speech contains the program-specific spoken phrases.
type Speech struct {
	ProgramName  string `toml:"program_name"`
	CallInNumber string `toml:"call_in_number"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for soapbox.
//
// Configuration sections by subsystem:
//   - Paths: catalog database, scratch, and log directories
//   - Source: program feed and embedded-player track resolution
//   - Blobstore: durable storage endpoint and public URL base
//   - Sync: network retry budget and daemon polling interval
//   - Transcode: ffmpeg output profile for the voice platform
//   - Playback: stall retry bound and default playlist order
//   - Speech: program name and call-in number read to users
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Source    Source    `toml:"source"`
	Blobstore Blobstore `toml:"blobstore"`
	Sync      Sync      `toml:"sync"`
	Transcode Transcode `toml:"transcode"`
	Playback  Playback  `toml:"playback"`
	Speech    Speech    `toml:"speech"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/soapbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path, the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("soapbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories sync runs and the catalog need.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
