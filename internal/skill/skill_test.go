package skill

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"soapbox/internal/catalog"
	"soapbox/internal/config"
	"soapbox/internal/playback"
	"soapbox/internal/search"
	"soapbox/internal/services"
	"soapbox/internal/testsupport"
)

type fakeBlob struct{}

func (fakeBlob) Put(ctx context.Context, key string, body io.Reader, size int64) error { return nil }
func (fakeBlob) PlayableURL(key string) string {
	return "https://cdn.test/soapbox/" + key
}

type fakeQuestion struct {
	text string
	err  error
}

func (f *fakeQuestion) Current(ctx context.Context) (string, error) { return f.text, f.err }
func (f *fakeQuestion) Speak(q string) string                       { return "This week: " + q }

type fakeSearch struct {
	results []search.Result
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, term string) ([]search.Result, error) {
	return f.results, f.err
}

func newHandler(t *testing.T, available int) (*Handler, *catalog.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Speech.ProgramName = "State of the State"
	store := testsupport.MustOpenStore(t, cfg)
	for i := 1; i <= available; i++ {
		ep := testsupport.NewEpisode(t, store, i)
		testsupport.MakeAvailable(t, store, ep.ID, 600)
	}
	h, err := NewHandler(cfg, store, fakeBlob{}, &fakeQuestion{text: "What now?"}, &fakeSearch{}, nil)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h, store, cfg
}

func TestLaunchSpeaksProgramName(t *testing.T) {
	h, _, _ := newHandler(t, 0)
	resp := h.Launch(context.Background(), "sess-1")
	if !strings.Contains(resp.Speech, "State of the State") {
		t.Fatalf("launch speech missing program name: %q", resp.Speech)
	}
	if resp.EndSession {
		t.Fatal("launch should keep the session open")
	}
}

func TestPlayIntentStartsStream(t *testing.T) {
	h, _, _ := newHandler(t, 2)
	resp, err := h.Intent(context.Background(), "sess-1", playback.EventPlay)
	if err != nil {
		t.Fatalf("Intent: %v", err)
	}
	if resp.Directive != DirectivePlay {
		t.Fatalf("expected play directive, got %+v", resp)
	}
	if resp.StreamURL != "https://cdn.test/soapbox/episodes/ep-001.mp3" {
		t.Fatalf("unexpected stream url %q", resp.StreamURL)
	}
	if resp.Token != "ep-001:0" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
	if !resp.EndSession {
		t.Fatal("a play directive should end the voice session")
	}
}

func TestPlayIntentWithEmptyCatalog(t *testing.T) {
	h, _, _ := newHandler(t, 0)
	resp, err := h.Intent(context.Background(), "sess-1", playback.EventPlay)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectiveNone || resp.Speech == "" {
		t.Fatalf("expected spoken refusal, got %+v", resp)
	}
}

func TestPauseThenResume(t *testing.T) {
	h, _, _ := newHandler(t, 1)
	ctx := context.Background()

	if _, err := h.Intent(ctx, "sess-1", playback.EventPlay); err != nil {
		t.Fatal(err)
	}
	if _, err := h.PlayerEvent(ctx, "sess-1", playback.EventStarted, "ep-001:0", 0); err != nil {
		t.Fatal(err)
	}
	resp, err := h.PlayerEvent(ctx, "sess-1", playback.EventPause, "ep-001:0", 95)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectiveStop {
		t.Fatalf("pause should stop the stream, got %+v", resp)
	}

	resp, err = h.Intent(ctx, "sess-1", playback.EventResume)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectivePlay || resp.PositionSeconds != 95 {
		t.Fatalf("resume should continue at the pause position, got %+v", resp)
	}
}

func TestFinishedItemAdvancesPlaylist(t *testing.T) {
	h, _, _ := newHandler(t, 2)
	ctx := context.Background()

	if _, err := h.Intent(ctx, "sess-1", playback.EventPlay); err != nil {
		t.Fatal(err)
	}
	resp, err := h.PlayerEvent(ctx, "sess-1", playback.EventFinishedItem, "ep-001:0", 0)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Token != "ep-002:1" {
		t.Fatalf("expected advance to ep-002, got %+v", resp)
	}
}

func TestPlayAfterFinishRebuildsPlaylist(t *testing.T) {
	h, store, _ := newHandler(t, 1)
	ctx := context.Background()

	if _, err := h.Intent(ctx, "sess-1", playback.EventPlay); err != nil {
		t.Fatal(err)
	}
	// Finish the only episode.
	if _, err := h.PlayerEvent(ctx, "sess-1", playback.EventFinishedItem, "ep-001:0", 0); err != nil {
		t.Fatal(err)
	}

	// A new episode lands between sessions.
	ep := testsupport.NewEpisode(t, store, 2)
	testsupport.MakeAvailable(t, store, ep.ID, 480)

	resp, err := h.Intent(ctx, "sess-1", playback.EventPlay)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectivePlay {
		t.Fatalf("expected playback to restart, got %+v", resp)
	}
	if resp.Token != "ep-001:0" {
		t.Fatalf("rebuilt playlist should start from the top, got %q", resp.Token)
	}
}

func TestQuestionIntent(t *testing.T) {
	h, _, _ := newHandler(t, 0)
	resp := h.Question(context.Background(), "sess-1")
	if !strings.Contains(resp.Speech, "What now?") {
		t.Fatalf("unexpected speech %q", resp.Speech)
	}
	if resp.Card != "What now?" {
		t.Fatalf("unexpected card %q", resp.Card)
	}
}

func TestQuestionIntentWhenSiteDown(t *testing.T) {
	h, _, _ := newHandler(t, 0)
	h.question = &fakeQuestion{err: services.Wrap(services.ErrUnavailable, "question", "current", "fetch site", errors.New("timeout"))}
	resp := h.Question(context.Background(), "sess-1")
	if resp.Speech == "" || strings.Contains(resp.Speech, "What now?") {
		t.Fatalf("expected an apology, got %q", resp.Speech)
	}
}

func TestSearchPlaysMatches(t *testing.T) {
	h, store, _ := newHandler(t, 3)
	ctx := context.Background()

	second, err := store.GetByID(ctx, "ep-002")
	if err != nil || second == nil {
		t.Fatalf("seed episode missing: %v", err)
	}
	h.search = &fakeSearch{results: []search.Result{{Episode: second, Excerpt: "about housing"}}}

	resp, err := h.Search(ctx, "sess-1", "housing")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectivePlay {
		t.Fatalf("expected playback, got %+v", resp)
	}
	if resp.Token != "ep-002:0" {
		t.Fatalf("search playlist should contain only matches, got %q", resp.Token)
	}
	if !strings.Contains(resp.Speech, "one episode") {
		t.Fatalf("unexpected speech %q", resp.Speech)
	}
}

func TestSearchWithNoMatches(t *testing.T) {
	h, _, _ := newHandler(t, 1)
	h.search = &fakeSearch{}
	resp, err := h.Search(context.Background(), "sess-1", "quantum")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectiveNone {
		t.Fatalf("no matches should not start playback: %+v", resp)
	}
	if !strings.Contains(resp.Speech, "quantum") {
		t.Fatalf("speech should name the term: %q", resp.Speech)
	}
}

func TestSearchWithEmptyTerm(t *testing.T) {
	h, _, _ := newHandler(t, 1)
	resp, err := h.Search(context.Background(), "sess-1", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Directive != DirectiveNone || resp.Speech == "" {
		t.Fatalf("empty term should prompt for one, got %+v", resp)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	h, _, _ := newHandler(t, 2)
	ctx := context.Background()

	if _, err := h.Intent(ctx, "sess-a", playback.EventPlay); err != nil {
		t.Fatal(err)
	}
	if _, err := h.PlayerEvent(ctx, "sess-a", playback.EventFinishedItem, "ep-001:0", 0); err != nil {
		t.Fatal(err)
	}

	resp, err := h.Intent(ctx, "sess-b", playback.EventPlay)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Token != "ep-001:0" {
		t.Fatalf("fresh session should start at the top, got %q", resp.Token)
	}
}

func TestEndSessionDropsState(t *testing.T) {
	h, _, _ := newHandler(t, 1)
	ctx := context.Background()
	if _, err := h.Intent(ctx, "sess-1", playback.EventPlay); err != nil {
		t.Fatal(err)
	}
	h.EndSession("sess-1")

	h.mu.Lock()
	_, ok := h.sessions["sess-1"]
	h.mu.Unlock()
	if ok {
		t.Fatal("session state should be dropped")
	}
}

func TestUnsupportedIntent(t *testing.T) {
	h, _, _ := newHandler(t, 0)
	if _, err := h.Intent(context.Background(), "sess-1", playback.EventType("dance")); err == nil {
		t.Fatal("expected error for unsupported intent")
	}
}
