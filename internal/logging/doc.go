// Package logging builds the slog loggers used across soapbox.
//
// Two output formats exist: a single-line console format for interactive use
// and JSON for log files and collection. Standardized field keys (component,
// episode_id, session_id, run_id) keep sync-run and playback-session events
// correlatable; WithContext pulls those identifiers out of a context so call
// sites do not repeat them.
package logging
