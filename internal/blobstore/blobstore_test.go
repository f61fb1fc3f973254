package blobstore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soapbox/internal/blobstore"
	"soapbox/internal/services"
	"soapbox/internal/testsupport"
)

func newStore(t *testing.T, handler http.Handler) blobstore.Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Blobstore.Endpoint = server.URL
	cfg.Blobstore.Bucket = "soapbox-test"
	cfg.Blobstore.PublicBaseURL = "https://cdn.test/soapbox-test"
	return blobstore.New(cfg)
}

func TestPutUploadsObject(t *testing.T) {
	var gotPath, gotBody, gotType string
	store := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	body := strings.NewReader("mp3-bytes")
	if err := store.Put(context.Background(), "episodes/ep-001.mp3", body, int64(body.Len())); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if gotPath != "/soapbox-test/episodes/ep-001.mp3" {
		t.Fatalf("unexpected upload path %q", gotPath)
	}
	if gotBody != "mp3-bytes" {
		t.Fatalf("unexpected upload body %q", gotBody)
	}
	if gotType != "audio/mpeg" {
		t.Fatalf("unexpected content type %q", gotType)
	}
}

func TestPutReportsServerError(t *testing.T) {
	store := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))

	err := store.Put(context.Background(), "episodes/ep-001.mp3", strings.NewReader("x"), 1)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestPutRejectsEmptyKey(t *testing.T) {
	store := newStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	if err := store.Put(context.Background(), "  ", strings.NewReader("x"), 1); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestPlayableURL(t *testing.T) {
	store := newStore(t, http.NewServeMux())
	got := store.PlayableURL("/episodes/week one.mp3")
	want := "https://cdn.test/soapbox-test/episodes/week%20one.mp3"
	if got != want {
		t.Fatalf("PlayableURL = %q, want %q", got, want)
	}
}
