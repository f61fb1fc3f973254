package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"soapbox/internal/services"
)

const episodeColumns = "id, remote_ref, title, page_url, media_url, storage_key, duration_seconds, published_at, sync_state, error_message, discovered_at, updated_at"

// Upsert inserts or updates an episode keyed by ID. It is idempotent: updating
// with the same identity refreshes the descriptive fields only. An existing
// record whose remote ref differs for the same ID indicates a corrupted
// discovery and fails with a conflict.
func (s *Store) Upsert(ctx context.Context, ep *Episode) error {
	if ep == nil {
		return errors.New("episode is nil")
	}
	if ep.ID == "" || ep.RemoteRef == "" {
		return errors.New("episode requires id and remote ref")
	}
	ctx = ensureContext(ctx)

	existing, err := s.GetByID(ctx, ep.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if existing == nil {
		if ep.SyncState == "" {
			ep.SyncState = StateDiscovered
		}
		if ep.DiscoveredAt.IsZero() {
			ep.DiscoveredAt = now
		}
		ep.UpdatedAt = now
		_, err := s.execWithRetry(
			ctx,
			`INSERT INTO episodes (`+episodeColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ep.ID,
			ep.RemoteRef,
			nullableString(ep.Title),
			nullableString(ep.PageURL),
			nullableString(ep.MediaURL),
			nullableString(ep.StorageKey),
			nullableInt(ep.DurationSeconds),
			ep.PublishedAt.UTC().Format(time.RFC3339Nano),
			ep.SyncState,
			nullableString(ep.ErrorMessage),
			ep.DiscoveredAt.UTC().Format(time.RFC3339Nano),
			ep.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert episode: %w", err)
		}
		return nil
	}

	if existing.RemoteRef != ep.RemoteRef {
		return services.Wrap(services.ErrConflict, "catalog", "upsert",
			fmt.Sprintf("episode %s already recorded with remote ref %s, got %s", ep.ID, existing.RemoteRef, ep.RemoteRef), nil)
	}

	_, err = s.execWithRetry(
		ctx,
		`UPDATE episodes SET title = ?, page_url = ?, media_url = ?, published_at = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(ep.Title),
		nullableString(ep.PageURL),
		nullableString(ep.MediaURL),
		ep.PublishedAt.UTC().Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		ep.ID,
	)
	if err != nil {
		return fmt.Errorf("update episode: %w", err)
	}
	return nil
}

// GetByID fetches an episode by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// FindByRemoteRef returns the episode matching a remote source reference.
func (s *Store) FindByRemoteRef(ctx context.Context, ref string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE remote_ref = ?`, ref)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by remote ref: %w", err)
	}
	return ep, nil
}

// FindByPageURL returns the episode whose origin post matches the given URL.
// Search results map back to episodes through this association.
func (s *Store) FindByPageURL(ctx context.Context, pageURL string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE page_url = ?`, pageURL)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by page url: %w", err)
	}
	return ep, nil
}

// ListAvailable returns playable episodes ordered by publish time ascending.
// Only fully populated available rows are returned, so a playlist build can
// never observe a partially synced episode.
func (s *Store) ListAvailable(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+episodeColumns+` FROM episodes
         WHERE sync_state = ? AND storage_key IS NOT NULL AND duration_seconds IS NOT NULL
         ORDER BY published_at, id`,
		StateAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("list available: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// ListResyncable returns episodes a sync run should process: freshly
// discovered ones plus failed ones awaiting a from-scratch restart.
func (s *Store) ListResyncable(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+episodeColumns+` FROM episodes
         WHERE sync_state IN (?, ?) ORDER BY published_at, id`,
		StateDiscovered,
		StateFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("list resyncable: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// List returns episodes filtered by state set (or all episodes when no state
// is provided), ordered by publish time.
func (s *Store) List(ctx context.Context, states ...SyncState) ([]*Episode, error) {
	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY published_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+` WHERE sync_state IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()
	return collectEpisodes(rows)
}

// Stats returns a count of episodes grouped by sync state.
func (s *Store) Stats(ctx context.Context) (map[SyncState]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT sync_state, COUNT(1) FROM episodes GROUP BY sync_state`)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[SyncState]int)
	for rows.Next() {
		var state SyncState
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Summary aggregates catalog state for diagnostic output.
func (s *Store) Summary(ctx context.Context) (StatsSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	summary := StatsSummary{}
	for state, count := range stats {
		summary.Total += count
		switch state {
		case StateDiscovered:
			summary.Discovered += count
		case StateAvailable:
			summary.Available += count
		case StateFailed:
			summary.Failed += count
		default:
			if _, ok := transientStates[state]; ok {
				summary.InFlight += count
			}
		}
	}
	return summary, nil
}

// Remove deletes an episode by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete episode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearFailed removes only failed episodes from the catalog.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM episodes WHERE sync_state = ?`, StateFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all episodes from the catalog.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ensureContext(ctx), `DELETE FROM episodes`)
	if err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}
	return res.RowsAffected()
}

func collectEpisodes(rows *sql.Rows) ([]*Episode, error) {
	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id           string
		remoteRef    string
		title        sql.NullString
		pageURL      sql.NullString
		mediaURL     sql.NullString
		storageKey   sql.NullString
		duration     sql.NullInt64
		publishedRaw sql.NullString
		stateStr     string
		errorMessage sql.NullString
		discoveredAt sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&remoteRef,
		&title,
		&pageURL,
		&mediaURL,
		&storageKey,
		&duration,
		&publishedRaw,
		&stateStr,
		&errorMessage,
		&discoveredAt,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	ep := &Episode{
		ID:           id,
		RemoteRef:    remoteRef,
		Title:        title.String,
		PageURL:      pageURL.String,
		MediaURL:     mediaURL.String,
		StorageKey:   storageKey.String,
		SyncState:    SyncState(stateStr),
		ErrorMessage: errorMessage.String,
	}
	if duration.Valid {
		ep.DurationSeconds = int(duration.Int64)
	}
	if published, err := parseTimeString(publishedRaw.String); err == nil {
		ep.PublishedAt = published
	}
	if discovered, err := parseTimeString(discoveredAt.String); err == nil {
		ep.DiscoveredAt = discovered
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		ep.UpdatedAt = updated
	}
	return ep, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
