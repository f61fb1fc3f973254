// Package source discovers episodes from the program's feed and fetches
// their audio from the hosting service.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/services"
)

const userAgent = "Soapbox/0.1.0"

// trackRef matches the numeric track id inside the embedded player markup
// on an episode's page.
var trackRef = regexp.MustCompile(`/tracks/(\d+)`)

// RemoteEpisode is one feed entry resolved to a fetchable media URL.
type RemoteEpisode struct {
	Ref         string
	Title       string
	PageURL     string
	MediaURL    string
	PublishedAt time.Time
}

// Client resolves feed entries against the hosting service's track API.
type Client struct {
	feedURL     string
	trackAPIURL string
	clientID    string
	http        *http.Client
	logger      *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Source.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		feedURL:     cfg.Source.FeedURL,
		trackAPIURL: cfg.Source.TrackAPIURL,
		clientID:    cfg.Source.ClientID,
		http:        &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, "source"),
	}
}

// Discover reads the feed and returns every entry it could resolve to a
// media URL. Entries whose pages lack an embedded track are skipped with a
// warning; only an unreachable or unparsable feed fails the whole call.
func (c *Client) Discover(ctx context.Context) ([]RemoteEpisode, error) {
	body, err := c.get(ctx, c.feedURL)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "source", "discover", "fetch feed", err)
	}
	items, err := parseFeed(body)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "source", "discover", "parse feed", err)
	}

	episodes := make([]RemoteEpisode, 0, len(items))
	for _, entry := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		episode, err := c.resolve(ctx, entry)
		if err != nil {
			c.logger.Warn("skipping feed entry",
				logging.String("page_url", entry.Link),
				logging.Error(err))
			continue
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}

func (c *Client) resolve(ctx context.Context, entry item) (RemoteEpisode, error) {
	published, err := parsePubDate(entry.PubDate)
	if err != nil {
		return RemoteEpisode{}, err
	}
	episode := RemoteEpisode{
		Title:       entry.Title,
		PageURL:     entry.Link,
		PublishedAt: published,
	}

	// Direct enclosures need no page scrape or API round trip.
	if entry.Enclosure.URL != "" {
		episode.Ref = entry.Enclosure.URL
		if entry.GUID != "" {
			episode.Ref = entry.GUID
		}
		episode.MediaURL = entry.Enclosure.URL
		return episode, nil
	}

	if entry.Link == "" {
		return RemoteEpisode{}, fmt.Errorf("entry has neither enclosure nor link")
	}
	page, err := c.get(ctx, entry.Link)
	if err != nil {
		return RemoteEpisode{}, fmt.Errorf("fetch page: %w", err)
	}
	match := trackRef.FindSubmatch(page)
	if match == nil {
		return RemoteEpisode{}, fmt.Errorf("no embedded track on page")
	}
	episode.Ref = string(match[1])
	episode.MediaURL, err = c.resolveTrack(ctx, episode.Ref)
	if err != nil {
		return RemoteEpisode{}, err
	}
	return episode, nil
}

type trackInfo struct {
	StreamURL   string `json:"stream_url"`
	DownloadURL string `json:"download_url"`
}

func (c *Client) resolveTrack(ctx context.Context, ref string) (string, error) {
	if c.trackAPIURL == "" {
		return "", fmt.Errorf("track api not configured")
	}
	endpoint := fmt.Sprintf("%s/tracks/%s?client_id=%s",
		c.trackAPIURL, url.PathEscape(ref), url.QueryEscape(c.clientID))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("resolve track %s: %w", ref, err)
	}
	var info trackInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode track %s: %w", ref, err)
	}
	media := info.DownloadURL
	if media == "" {
		media = info.StreamURL
	}
	if media == "" {
		return "", fmt.Errorf("track %s has no media url", ref)
	}
	return media + "?client_id=" + url.QueryEscape(c.clientID), nil
}

// Fetch downloads mediaURL to dest. The download lands in a .partial file
// first so an interrupted transfer never leaves a truncated file at dest.
func (c *Client) Fetch(ctx context.Context, mediaURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", "download media", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "source", "fetch",
			fmt.Sprintf("download media: unexpected status %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", "create destination directory", err)
	}
	partial := dest + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return services.Wrap(services.ErrTransient, "source", "fetch", "create partial file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(partial)
		return services.Wrap(services.ErrTransient, "source", "fetch", "write partial file", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return services.Wrap(services.ErrTransient, "source", "fetch", "close partial file", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return services.Wrap(services.ErrTransient, "source", "fetch", "finalize download", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}
	return io.ReadAll(resp.Body)
}
