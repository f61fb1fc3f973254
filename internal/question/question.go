// Package question fetches the program's current question of the week
// from its web site.
package question

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"soapbox/internal/config"
	"soapbox/internal/services"
)

// questionMarkup matches the highlighted question block on the program's
// front page.
var questionMarkup = regexp.MustCompile(`(?s)<span style="font-size: x-large;">(.*?)</span>`)

var tags = regexp.MustCompile(`<[^>]+>`)

// Provider reads the question of the week off the program site.
type Provider struct {
	siteURL      string
	programName  string
	callInNumber string
	http         *http.Client
}

func New(cfg *config.Config) *Provider {
	timeout := time.Duration(cfg.Source.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		siteURL:      cfg.Source.SiteURL,
		programName:  cfg.Speech.ProgramName,
		callInNumber: cfg.Speech.CallInNumber,
		http:         &http.Client{Timeout: timeout},
	}
}

// Current returns the question text currently posted on the site.
func (p *Provider) Current(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.siteURL, nil)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "question", "current", "build request", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "question", "current", "fetch site", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrUnavailable, "question", "current",
			fmt.Sprintf("fetch site: unexpected status %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "question", "current", "read site", err)
	}

	match := questionMarkup.FindSubmatch(body)
	if match == nil {
		return "", services.Wrap(services.ErrUnavailable, "question", "current", "no question posted", nil)
	}
	text := strings.TrimSpace(html.UnescapeString(tags.ReplaceAllString(string(match[1]), "")))
	if text == "" {
		return "", services.Wrap(services.ErrUnavailable, "question", "current", "question block is empty", nil)
	}
	return text, nil
}

// Speak renders the question as the assistant's spoken answer, appending
// the call-in number when one is configured.
func (p *Provider) Speak(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This week's question is: %s", question)
	if p.callInNumber != "" {
		fmt.Fprintf(&b, " To share your answer, call %s.", spellOutDigits(p.callInNumber))
	}
	return b.String()
}

// spellOutDigits separates runs of digits so the voice reads a phone number
// digit by digit instead of as one large number. Non-digit text is kept as is.
func spellOutDigits(number string) string {
	var b strings.Builder
	b.Grow(len(number) * 2)
	prevDigit := false
	for _, r := range number {
		if r >= '0' && r <= '9' {
			if prevDigit {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			prevDigit = true
			continue
		}
		b.WriteRune(r)
		prevDigit = false
	}
	return b.String()
}
