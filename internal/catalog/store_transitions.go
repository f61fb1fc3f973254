package catalog

import (
	"context"
	"fmt"
	"time"

	"soapbox/internal/services"
)

// MarkState transitions an episode to a new sync state, enforcing the legal
// transition table. Moving to available is rejected here; MarkAvailable sets
// the storage fields atomically with the state. Leaving failed clears the
// recorded cause.
func (s *Store) MarkState(ctx context.Context, id string, next SyncState) error {
	ctx = ensureContext(ctx)
	if _, ok := stateSet[next]; !ok {
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark state",
			fmt.Sprintf("unknown sync state %q", next), nil)
	}
	if next == StateAvailable {
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark state",
			"available requires storage fields; use MarkAvailable", nil)
	}

	ep, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ep == nil {
		return services.Wrap(services.ErrNotFound, "catalog", "mark state",
			fmt.Sprintf("episode %s", id), nil)
	}
	if !CanTransition(ep.SyncState, next) {
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark state",
			fmt.Sprintf("episode %s: %s -> %s", id, ep.SyncState, next), nil)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET sync_state = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND sync_state = ?`,
		next,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		ep.SyncState,
	)
	if err != nil {
		return fmt.Errorf("mark state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	// Zero rows means another writer moved the episode between the read and
	// the guarded update; treat it the same as an illegal transition.
	if affected == 0 {
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark state",
			fmt.Sprintf("episode %s changed state concurrently", id), nil)
	}
	return nil
}

// MarkAvailable completes a sync: it sets the storage key, the measured
// duration, and the available state in a single guarded update so the episode
// is either fully visible as available or not available at all.
func (s *Store) MarkAvailable(ctx context.Context, id, storageKey string, durationSeconds int) error {
	ctx = ensureContext(ctx)
	if storageKey == "" || durationSeconds <= 0 {
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark available",
			fmt.Sprintf("episode %s requires storage key and positive duration", id), nil)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET sync_state = ?, storage_key = ?, duration_seconds = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND sync_state = ?`,
		StateAvailable,
		storageKey,
		durationSeconds,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StateUploading,
	)
	if err != nil {
		return fmt.Errorf("mark available: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		ep, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if ep == nil {
			return services.Wrap(services.ErrNotFound, "catalog", "mark available",
				fmt.Sprintf("episode %s", id), nil)
		}
		return services.Wrap(services.ErrInvalidTransition, "catalog", "mark available",
			fmt.Sprintf("episode %s: %s -> %s", id, ep.SyncState, StateAvailable), nil)
	}
	return nil
}

// MarkFailed records a human-readable cause and moves the episode to failed.
// Any state may fail; the storage fields are cleared so a half-synced episode
// can never satisfy the availability invariant.
func (s *Store) MarkFailed(ctx context.Context, id, cause string) error {
	ctx = ensureContext(ctx)
	if cause == "" {
		cause = "unknown failure"
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET sync_state = ?, storage_key = NULL, duration_seconds = NULL, error_message = ?, updated_at = ?
         WHERE id = ?`,
		StateFailed,
		cause,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "mark failed",
			fmt.Sprintf("episode %s", id), nil)
	}
	return nil
}

// ReclaimTransient moves episodes stranded in the in-flight states back to
// discovered. A crash or kill mid-download leaves rows in downloading or
// uploading with no worker attached; a sync run reclaims them up front so
// they restart from scratch instead of sitting stranded forever.
func (s *Store) ReclaimTransient(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET sync_state = ?, storage_key = NULL, duration_seconds = NULL, error_message = NULL, updated_at = ?
         WHERE sync_state IN (?, ?)`,
		StateDiscovered,
		time.Now().UTC().Format(time.RFC3339Nano),
		StateDownloading,
		StateUploading,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim transient episodes: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed episodes back to discovered for reprocessing.
// With no identifiers, every failed episode is reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE episodes SET sync_state = ?, error_message = NULL, updated_at = ?
             WHERE sync_state = ?`,
			StateDiscovered,
			now,
			StateFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed episodes: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+3)
	args = append(args, StateDiscovered, now, StateFailed)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET sync_state = ?, error_message = NULL, updated_at = ?
         WHERE sync_state = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected episodes: %w", err)
	}
	return res.RowsAffected()
}
