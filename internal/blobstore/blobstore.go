package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"soapbox/internal/config"
	"soapbox/internal/services"
)

const userAgent = "Soapbox/0.1.0"

// Store defines the durable blob operations the sync engine and playback
// handlers need. Episodes are streamed by the voice platform from public
// URLs, never from raw bytes.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	PlayableURL(key string) string
}

// New builds an HTTP-backed blob store client from configuration.
func New(cfg *config.Config) Store {
	timeout := time.Duration(cfg.Blobstore.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpStore{
		endpoint:      cfg.Blobstore.Endpoint,
		bucket:        cfg.Blobstore.Bucket,
		publicBaseURL: cfg.Blobstore.PublicBaseURL,
		client:        &http.Client{Timeout: timeout},
	}
}

type httpStore struct {
	endpoint      string
	bucket        string
	publicBaseURL string
	client        *http.Client
}

// Put uploads an object with S3-compatible PUT semantics. The write is atomic
// on the store side: the object is visible in full or not at all.
func (s *httpStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return services.Wrap(services.ErrTransient, "blobstore", "put", "empty key", nil)
	}

	target := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, escapeKey(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "blobstore", "put", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "audio/mpeg")
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "blobstore", "put", key, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, "blobstore", "put",
			fmt.Sprintf("%s: unexpected status %d", key, resp.StatusCode), nil)
	}
	return nil
}

// PlayableURL returns the public streaming URL for a stored object.
func (s *httpStore) PlayableURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	return s.publicBaseURL + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
