package question

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soapbox/internal/services"
	"soapbox/internal/testsupport"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t)
	cfg.Source.SiteURL = server.URL
	cfg.Speech.CallInNumber = "five five five, zero one zero zero"
	return New(cfg)
}

func TestCurrentExtractsQuestion(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<span style="font-size: x-large;"><strong>What should the state do about housing?</strong></span>
</body></html>`)
	})

	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != "What should the state do about housing?" {
		t.Fatalf("unexpected question %q", got)
	}
}

func TestCurrentUnescapesEntities(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<span style="font-size: x-large;">Rent &amp; housing &#8212; what now?</span>`)
	})
	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Rent & housing") {
		t.Fatalf("entities not unescaped: %q", got)
	}
}

func TestCurrentWhenNoQuestionPosted(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Nothing here.</p></body></html>`)
	})
	_, err := p.Current(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestCurrentWhenSiteErrors(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	_, err := p.Current(context.Background())
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestSpeakAppendsCallInNumber(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	spoken := p.Speak("What now?")
	if !strings.Contains(spoken, "What now?") {
		t.Fatalf("question missing from %q", spoken)
	}
	if !strings.Contains(spoken, "five five five") {
		t.Fatalf("call-in number missing from %q", spoken)
	}
}

func TestSpeakSpellsOutNumericCallInNumber(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	p.callInNumber = "1-833-555-0100"
	spoken := p.Speak("What now?")
	if !strings.Contains(spoken, "call 1-8 3 3-5 5 5-0 1 0 0.") {
		t.Fatalf("digits not spelled out in %q", spoken)
	}
}

func TestSpellOutDigits(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"18335550100", "1 8 3 3 5 5 5 0 1 0 0"},
		{"1-833-555-0100", "1-8 3 3-5 5 5-0 1 0 0"},
		{"five five five, zero one zero zero", "five five five, zero one zero zero"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := spellOutDigits(tc.in); got != tc.want {
			t.Errorf("spellOutDigits(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
