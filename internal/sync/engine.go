// Package sync moves episodes from the upstream feed into the blob store,
// advancing each one through the catalog's sync lifecycle.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"soapbox/internal/blobstore"
	"soapbox/internal/catalog"
	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/media"
	"soapbox/internal/services"
	"soapbox/internal/source"
	"soapbox/internal/textutil"
)

// Source discovers remote episodes and fetches their audio.
type Source interface {
	Discover(ctx context.Context) ([]source.RemoteEpisode, error)
	Fetch(ctx context.Context, mediaURL, dest string) error
}

// Transcoder converts fetched audio to the playback profile.
type Transcoder interface {
	Transcode(ctx context.Context, input, output string) error
}

// Prober inspects transcoded audio.
type Prober func(path string) (media.Info, error)

// Report summarizes one sync run.
type Report struct {
	RunID      string
	Discovered int
	Synced     int
	Failed     int
	Causes     map[string]string
}

// Engine runs the discover, download, transcode, upload pipeline.
type Engine struct {
	store      *catalog.Store
	source     Source
	blob       blobstore.Store
	transcoder Transcoder
	probe      Prober
	cfg        *config.Config
	logger     *slog.Logger
}

func NewEngine(cfg *config.Config, store *catalog.Store, src Source, blob blobstore.Store, transcoder Transcoder, probe Prober, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		store:      store,
		source:     src,
		blob:       blob,
		transcoder: transcoder,
		probe:      probe,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "sync"),
	}
}

// SyncOnce performs a full pass: discover new episodes, restart failed ones,
// and carry every pending episode through download, transcode and upload.
// One episode failing marks that episode failed and moves on; only an
// unreachable source or store fails the run itself.
func (e *Engine) SyncOnce(ctx context.Context) (Report, error) {
	report := Report{
		RunID:  uuid.NewString(),
		Causes: make(map[string]string),
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := e.logger.With(logging.String(logging.FieldRunID, report.RunID))
	logger.Info("sync run starting")

	discovered, err := e.discover(ctx)
	if err != nil {
		return report, err
	}
	report.Discovered = discovered

	pending, err := e.restartPending(ctx)
	if err != nil {
		return report, services.Wrap(services.ErrTransient, "sync", "sync_once", "list pending episodes", err)
	}

	scratch := filepath.Join(e.cfg.Paths.ScratchDir, "sync-"+report.RunID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return report, services.Wrap(services.ErrTransient, "sync", "sync_once", "create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	for _, episode := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.syncEpisode(ctx, episode, scratch); err != nil {
			report.Failed++
			report.Causes[episode.ID] = err.Error()
			logger.Error("episode sync failed",
				logging.String(logging.FieldEpisodeID, episode.ID),
				logging.Error(err))
			// Bookkeeping must land even when the failure was the run's
			// own context being canceled.
			if markErr := e.store.MarkFailed(context.WithoutCancel(ctx), episode.ID, err.Error()); markErr != nil {
				logger.Error("recording failure",
					logging.String(logging.FieldEpisodeID, episode.ID),
					logging.Error(markErr))
			}
			continue
		}
		report.Synced++
	}

	logger.Info("sync run finished",
		logging.Int("discovered", report.Discovered),
		logging.Int("synced", report.Synced),
		logging.Int("failed", report.Failed))
	return report, nil
}

// discover pulls the feed and records every entry the catalog has not seen
// yet. Entries already cataloged get a metadata refresh only.
func (e *Engine) discover(ctx context.Context) (int, error) {
	remotes, err := e.source.Discover(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, remote := range remotes {
		existing, err := e.store.FindByRemoteRef(ctx, remote.Ref)
		if err != nil {
			return added, services.Wrap(services.ErrTransient, "sync", "discover", "look up episode", err)
		}
		episode := &catalog.Episode{
			RemoteRef:   remote.Ref,
			Title:       textutil.CleanTitle(remote.Title, ""),
			PageURL:     remote.PageURL,
			MediaURL:    remote.MediaURL,
			PublishedAt: remote.PublishedAt,
		}
		if existing != nil {
			episode.ID = existing.ID
		} else {
			episode.ID = uuid.NewString()
			added++
		}
		if err := e.store.Upsert(ctx, episode); err != nil {
			return added, services.Wrap(services.ErrTransient, "sync", "discover", "record episode", err)
		}
	}
	return added, nil
}

// restartPending returns every episode awaiting sync. Episodes stranded
// in-flight by an interrupted run are reclaimed to discovered first, then
// previously failed ones are moved back as well.
func (e *Engine) restartPending(ctx context.Context) ([]*catalog.Episode, error) {
	reclaimed, err := e.store.ReclaimTransient(ctx)
	if err != nil {
		return nil, err
	}
	if reclaimed > 0 {
		e.logger.Warn("reclaimed interrupted episodes",
			logging.Int64("count", reclaimed))
	}
	candidates, err := e.store.ListResyncable(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*catalog.Episode, 0, len(candidates))
	for _, episode := range candidates {
		if episode.SyncState == catalog.StateFailed {
			if err := e.store.MarkState(ctx, episode.ID, catalog.StateDiscovered); err != nil {
				return nil, err
			}
			episode.SyncState = catalog.StateDiscovered
		}
		pending = append(pending, episode)
	}
	return pending, nil
}

func (e *Engine) syncEpisode(ctx context.Context, episode *catalog.Episode, scratch string) error {
	ctx = services.WithEpisodeID(ctx, episode.ID)
	if episode.MediaURL == "" {
		return fmt.Errorf("episode %s has no media url", episode.ID)
	}

	if err := e.store.MarkState(ctx, episode.ID, catalog.StateDownloading); err != nil {
		return err
	}
	raw := filepath.Join(scratch, episode.ID+".raw")
	if err := e.withRetry(ctx, func() error {
		return e.source.Fetch(ctx, episode.MediaURL, raw)
	}); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	transcoded := filepath.Join(scratch, episode.ID+".mp3")
	if err := e.transcoder.Transcode(ctx, raw, transcoded); err != nil {
		return fmt.Errorf("transcode: %w", err)
	}
	info, err := e.probe(transcoded)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	// Feeds occasionally publish untitled entries; the audio tag is the
	// next best source.
	if episode.Title == "" && info.Title != "" {
		episode.Title = textutil.CleanTitle(info.Title, "")
		if err := e.store.Upsert(ctx, episode); err != nil {
			return fmt.Errorf("record tag title: %w", err)
		}
	}

	if err := e.store.MarkState(ctx, episode.ID, catalog.StateUploading); err != nil {
		return err
	}
	key := storageKey(episode)
	if err := e.withRetry(ctx, func() error {
		f, err := os.Open(transcoded)
		if err != nil {
			return err
		}
		defer f.Close()
		stat, err := f.Stat()
		if err != nil {
			return err
		}
		return e.blob.Put(ctx, key, f, stat.Size())
	}); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if err := e.store.MarkAvailable(ctx, episode.ID, key, info.DurationSeconds); err != nil {
		return err
	}
	e.logger.Info("episode available",
		logging.String(logging.FieldEpisodeID, episode.ID),
		logging.String("storage_key", key),
		logging.Int("duration_seconds", info.DurationSeconds))
	return nil
}

func storageKey(episode *catalog.Episode) string {
	return "episodes/" + episode.ID + ".mp3"
}

// withRetry reruns op on retryable errors up to the configured attempt
// count, doubling the delay between tries.
func (e *Engine) withRetry(ctx context.Context, op func() error) error {
	attempts := e.cfg.Sync.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(e.cfg.Sync.RetryDelay) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !services.IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		e.logger.Warn("retrying after transient error",
			logging.Int("attempt", attempt),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
