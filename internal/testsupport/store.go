package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"soapbox/internal/catalog"
	"soapbox/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode inserts a discovered episode for tests using the provided store.
// The index keeps identifiers and publish times distinct and ordered.
func NewEpisode(t testing.TB, store *catalog.Store, index int) *catalog.Episode {
	t.Helper()

	ep := &catalog.Episode{
		ID:          fmt.Sprintf("ep-%03d", index),
		RemoteRef:   fmt.Sprintf("track-%03d", index),
		Title:       fmt.Sprintf("Episode %d", index),
		PageURL:     fmt.Sprintf("https://program.test/posts/%d", index),
		PublishedAt: time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, index),
		SyncState:   catalog.StateDiscovered,
	}
	if err := store.Upsert(context.Background(), ep); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return ep
}

// MakeAvailable walks an episode through the full sync lifecycle so it
// satisfies the availability invariant.
func MakeAvailable(t testing.TB, store *catalog.Store, id string, durationSeconds int) {
	t.Helper()

	ctx := context.Background()
	if err := store.MarkState(ctx, id, catalog.StateDownloading); err != nil {
		t.Fatalf("mark downloading: %v", err)
	}
	if err := store.MarkState(ctx, id, catalog.StateUploading); err != nil {
		t.Fatalf("mark uploading: %v", err)
	}
	if err := store.MarkAvailable(ctx, id, "episodes/"+id+".mp3", durationSeconds); err != nil {
		t.Fatalf("mark available: %v", err)
	}
}
