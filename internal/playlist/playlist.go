// Package playlist assembles the ordered set of playable episodes for a
// listening session.
package playlist

import (
	"context"
	"fmt"

	"soapbox/internal/catalog"
	"soapbox/internal/services"
)

// Order controls the direction episodes play in.
type Order string

const (
	OldestFirst Order = "oldest_first"
	NewestFirst Order = "newest_first"
)

// ParseOrder validates a configured order string.
func ParseOrder(value string) (Order, error) {
	switch Order(value) {
	case OldestFirst, NewestFirst:
		return Order(value), nil
	case "":
		return OldestFirst, nil
	default:
		return "", fmt.Errorf("unknown playback order %q", value)
	}
}

// Item is one playable entry. Offset is the item's position in the
// playlist, starting at zero.
type Item struct {
	Offset          int
	EpisodeID       string
	StorageKey      string
	Title           string
	DurationSeconds int
}

// Playlist is an immutable snapshot of the catalog's playable episodes.
// Sessions hold offsets into it; rebuilding produces a fresh snapshot
// rather than mutating an existing one.
type Playlist struct {
	items []Item
}

// Build snapshots every playable episode in the requested order. Episodes
// still syncing, or without storage details, never appear.
func Build(ctx context.Context, store *catalog.Store, order Order) (*Playlist, error) {
	episodes, err := store.ListAvailable(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "playlist", "build", "list playable episodes", err)
	}
	if order == NewestFirst {
		for i, j := 0, len(episodes)-1; i < j; i, j = i+1, j-1 {
			episodes[i], episodes[j] = episodes[j], episodes[i]
		}
	}
	items := make([]Item, len(episodes))
	for i, ep := range episodes {
		items[i] = Item{
			Offset:          i,
			EpisodeID:       ep.ID,
			StorageKey:      ep.StorageKey,
			Title:           ep.Title,
			DurationSeconds: ep.DurationSeconds,
		}
	}
	return &Playlist{items: items}, nil
}

// FromItems builds a playlist directly, renumbering offsets.
func FromItems(items []Item) *Playlist {
	copied := make([]Item, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].Offset = i
	}
	return &Playlist{items: copied}
}

func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.items)
}

// At returns the item at offset, or false when offset is out of range.
func (p *Playlist) At(offset int) (Item, bool) {
	if p == nil || offset < 0 || offset >= len(p.items) {
		return Item{}, false
	}
	return p.items[offset], true
}

// Last returns the final item's offset, or -1 for an empty playlist.
func (p *Playlist) Last() int {
	return p.Len() - 1
}

// Items returns a copy of the playlist's entries.
func (p *Playlist) Items() []Item {
	if p == nil {
		return nil
	}
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}
