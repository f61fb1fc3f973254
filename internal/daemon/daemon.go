// Package daemon runs the background sync loop with flock-based locking
// so only one soapbox instance services a catalog at a time.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/services"
	syncpkg "soapbox/internal/sync"
)

// Syncer runs one sync pass.
type Syncer interface {
	SyncOnce(ctx context.Context) (syncpkg.Report, error)
}

type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	syncer Syncer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(cfg *config.Config, syncer Syncer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || syncer == nil {
		return nil, errors.New("daemon requires config and syncer")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "soapbox.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		syncer:   syncer,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockPath reports where the single-instance lock lives.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Start acquires the instance lock and begins the periodic sync loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soapbox instance is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)
	d.wg.Add(1)
	go d.loop(loopCtx)

	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("poll_interval_seconds", d.pollInterval()))
	return nil
}

// Stop halts the sync loop and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("releasing daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Running reports whether the loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

func (d *Daemon) pollInterval() int {
	if d.cfg.Sync.PollInterval > 0 {
		return d.cfg.Sync.PollInterval
	}
	return 900
}

// loop syncs immediately, then on every tick until the context ends. A
// failed pass is logged and waited out; the next tick tries again.
func (d *Daemon) loop(ctx context.Context) {
	defer d.wg.Done()

	d.syncPass(ctx)
	ticker := time.NewTicker(time.Duration(d.pollInterval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.syncPass(ctx)
		}
	}
}

func (d *Daemon) syncPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	report, err := d.syncer.SyncOnce(ctx)
	switch {
	case errors.Is(err, context.Canceled):
	case err != nil:
		level := slog.LevelError
		if services.IsRetryable(err) {
			level = slog.LevelWarn
		}
		d.logger.Log(ctx, level, "sync pass failed", logging.Error(err))
	default:
		d.logger.Info("sync pass complete",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Int("discovered", report.Discovered),
			logging.Int("synced", report.Synced),
			logging.Int("failed", report.Failed))
	}
}
