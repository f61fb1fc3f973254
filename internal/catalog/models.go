package catalog

import (
	"strings"
	"time"
)

// SyncState represents the lifecycle of an episode in the catalog.
type SyncState string

const (
	StateDiscovered  SyncState = "discovered"
	StateDownloading SyncState = "downloading"
	StateUploading   SyncState = "uploading"
	StateAvailable   SyncState = "available"
	StateFailed      SyncState = "failed"
)

var allStates = []SyncState{
	StateDiscovered,
	StateDownloading,
	StateUploading,
	StateAvailable,
	StateFailed,
}

var stateSet = func() map[SyncState]struct{} {
	set := make(map[SyncState]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// legalTransitions lists the forward transitions MarkState accepts. Any state
// may additionally transition to failed, and available is only ever reached
// through MarkAvailable so the storage fields land in the same write. The
// in-flight states may fall back to discovered so an interrupted run can be
// reclaimed and restarted from scratch.
var legalTransitions = map[SyncState][]SyncState{
	StateDiscovered:  {StateDownloading},
	StateDownloading: {StateUploading, StateDiscovered},
	StateUploading:   {StateDiscovered},
	StateFailed:      {StateDiscovered},
}

// transientStates are the in-flight states a playlist build must never
// observe as available.
var transientStates = map[SyncState]struct{}{
	StateDownloading: {},
	StateUploading:   {},
}

// AllStates returns the ordered list of known sync states.
func AllStates() []SyncState {
	cp := make([]SyncState, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known SyncState.
func ParseState(value string) (SyncState, bool) {
	normalized := SyncState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// CanTransition reports whether MarkState accepts moving from one state to
// another. Transitions to failed are always legal; transitions to available
// are reserved for MarkAvailable.
func CanTransition(from, to SyncState) bool {
	if to == StateFailed {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Episode represents one synced audio segment persisted in the catalog.
type Episode struct {
	ID              string
	RemoteRef       string
	Title           string
	PageURL         string
	MediaURL        string
	StorageKey      string
	DurationSeconds int
	PublishedAt     time.Time
	SyncState       SyncState
	ErrorMessage    string
	DiscoveredAt    time.Time
	UpdatedAt       time.Time
}

// IsTransient returns true when the episode is mid-sync.
func (e Episode) IsTransient() bool {
	_, ok := transientStates[e.SyncState]
	return ok
}

// IsPlayable reports whether the episode satisfies the availability invariant:
// state available with both storage key and duration populated.
func (e Episode) IsPlayable() bool {
	return e.SyncState == StateAvailable && e.StorageKey != "" && e.DurationSeconds > 0
}

// StatsSummary describes aggregated catalog counts per lifecycle state.
type StatsSummary struct {
	Total      int
	Discovered int
	InFlight   int
	Available  int
	Failed     int
}
