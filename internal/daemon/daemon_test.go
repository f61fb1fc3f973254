package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	syncpkg "soapbox/internal/sync"
	"soapbox/internal/testsupport"
)

type countingSyncer struct {
	calls atomic.Int64
}

func (c *countingSyncer) SyncOnce(ctx context.Context) (syncpkg.Report, error) {
	c.calls.Add(1)
	return syncpkg.Report{RunID: "run"}, nil
}

func TestStartRunsImmediateSyncPass(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	syncer := &countingSyncer{}

	d, err := New(cfg, syncer, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.After(2 * time.Second)
	for syncer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no sync pass ran after start")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	first, err := New(cfg, &countingSyncer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, &countingSyncer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to start")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := New(cfg, &countingSyncer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}

	replacement, err := New(cfg, &countingSyncer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := replacement.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop should succeed: %v", err)
	}
	replacement.Stop()
}

func TestStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.PollInterval = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := New(cfg, &countingSyncer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}
}
