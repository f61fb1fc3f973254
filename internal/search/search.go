// Package search runs site searches and maps hits back to cataloged
// episodes through their page URLs.
package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"soapbox/internal/catalog"
	"soapbox/internal/config"
	"soapbox/internal/services"
	"soapbox/internal/textutil"
)

// Result is a site search hit that resolved to a playable episode.
type Result struct {
	Episode *catalog.Episode
	Excerpt string
}

// Provider queries the program site's search feed.
type Provider struct {
	siteURL string
	store   *catalog.Store
	http    *http.Client
}

func New(cfg *config.Config, store *catalog.Store) *Provider {
	timeout := time.Duration(cfg.Source.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		siteURL: cfg.Source.SiteURL,
		store:   store,
		http:    &http.Client{Timeout: timeout},
	}
}

type searchFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

var markup = regexp.MustCompile(`<[^>]+>`)

// Search queries the site for term and returns every hit whose page URL
// maps to a playable cataloged episode. Hits without a cataloged episode
// are dropped.
func (p *Provider) Search(ctx context.Context, term string) ([]Result, error) {
	endpoint := fmt.Sprintf("%s/?s=%s&feed=rss2", strings.TrimRight(p.siteURL, "/"), url.QueryEscape(term))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "search", "search", "build request", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "search", "search", "query site", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUnavailable, "search", "search",
			fmt.Sprintf("query site: unexpected status %d", resp.StatusCode), nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "search", "search", "read results", err)
	}

	var feed searchFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "search", "search", "parse results", err)
	}

	query := textutil.NewFingerprint(term)
	results := make([]Result, 0, len(feed.Channel.Items))
	scores := make(map[string]float64)
	for _, item := range feed.Channel.Items {
		episode, err := p.store.FindByPageURL(ctx, item.Link)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "search", "search", "map result", err)
		}
		if episode == nil || !episode.IsPlayable() {
			continue
		}
		text := excerpt(item.Description)
		results = append(results, Result{
			Episode: episode,
			Excerpt: text,
		})
		scores[episode.ID] = textutil.Similarity(query, textutil.NewFingerprint(episode.Title+" "+text))
	}

	// The site returns hits newest first; reorder by relevance to the
	// spoken term so the best match plays first.
	sort.SliceStable(results, func(i, j int) bool {
		return scores[results[i].Episode.ID] > scores[results[j].Episode.ID]
	})
	return results, nil
}

func excerpt(description string) string {
	return strings.TrimSpace(html.UnescapeString(markup.ReplaceAllString(description, "")))
}
