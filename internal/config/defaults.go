package config

const (
	defaultDataDir           = "~/.local/share/soapbox"
	defaultScratchDir        = "~/.local/share/soapbox/scratch"
	defaultLogDir            = "~/.local/share/soapbox/logs"
	defaultSourceTimeout     = 30
	defaultBlobstoreTimeout  = 120
	defaultSyncRetryAttempts = 3
	defaultSyncRetryDelay    = 2
	defaultSyncPollInterval  = 3600
	defaultFFmpegPath        = "ffmpeg"
	defaultBitrateKbps       = 48
	defaultSampleRate        = 24000
	defaultChannels          = 1
	defaultTranscodeTimeout  = 600
	defaultStallRetryLimit   = 3
	defaultPlaybackOrder     = "oldest_first"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Source: Source{
			RequestTimeout: defaultSourceTimeout,
		},
		Blobstore: Blobstore{
			RequestTimeout: defaultBlobstoreTimeout,
		},
		Sync: Sync{
			RetryAttempts: defaultSyncRetryAttempts,
			RetryDelay:    defaultSyncRetryDelay,
			PollInterval:  defaultSyncPollInterval,
		},
		Transcode: Transcode{
			FFmpegPath:  defaultFFmpegPath,
			BitrateKbps: defaultBitrateKbps,
			SampleRate:  defaultSampleRate,
			Channels:    defaultChannels,
			Timeout:     defaultTranscodeTimeout,
		},
		Playback: Playback{
			StallRetryLimit: defaultStallRetryLimit,
			Order:           defaultPlaybackOrder,
		},
		Speech: Speech{
			ProgramName: "Soapbox",
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
