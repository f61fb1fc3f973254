// Package media converts downloaded audio into the voice platform's
// playback profile and inspects the result.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/services"
)

// Transcoder shells out to ffmpeg to produce platform-compatible audio.
type Transcoder struct {
	binary     string
	bitrate    int
	sampleRate int
	channels   int
	timeout    time.Duration
	logger     *slog.Logger
}

func NewTranscoder(cfg *config.Config, logger *slog.Logger) *Transcoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	binary := cfg.Transcode.FFmpegPath
	if binary == "" {
		binary = "ffmpeg"
	}
	timeout := time.Duration(cfg.Transcode.Timeout) * time.Second
	return &Transcoder{
		binary:     binary,
		bitrate:    cfg.Transcode.BitrateKbps,
		sampleRate: cfg.Transcode.SampleRate,
		channels:   cfg.Transcode.Channels,
		timeout:    timeout,
		logger:     logging.NewComponentLogger(logger, "media"),
	}
}

// Transcode converts input to an mp3 at output matching the configured
// profile. A failed or interrupted run removes any partial output.
func (t *Transcoder) Transcode(ctx context.Context, input, output string) error {
	if _, err := os.Stat(input); err != nil {
		return services.Wrap(services.ErrTransient, "media", "transcode", "stat input", err)
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := []string{
		"-y",
		"-i", input,
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", t.bitrate),
		"-ar", strconv.Itoa(t.sampleRate),
		"-ac", strconv.Itoa(t.channels),
		output,
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	t.logger.Debug("transcoding audio",
		logging.String("input", input),
		logging.String("output", output),
		logging.Int("bitrate_kbps", t.bitrate))

	if err := cmd.Run(); err != nil {
		os.Remove(output)
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTransient, "media", "transcode", "transcode canceled", ctx.Err())
		}
		detail := lastLine(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrTransient, "media", "transcode", "run ffmpeg", err)
	}
	return nil
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which is
// where it reports the actual failure.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
