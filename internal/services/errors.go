package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict indicates the catalog detected inconsistent identity data
	// for an episode. Conflicts are never retried; they are surfaced through
	// the sync report for operators.
	ErrConflict = errors.New("conflict")
	// ErrInvalidTransition indicates an illegal sync-state transition. This is
	// a programming-error class failure and fails loudly.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrUnavailable indicates a remote collaborator (question page, search
	// feed, source) could not be reached or understood. Callers degrade to a
	// spoken fallback instead of crashing the session.
	ErrUnavailable = errors.New("unavailable")
	// ErrNotFound indicates a referenced episode or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures worth retrying on the next sync run.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a sync-time failure should be attempted again on
// the next scheduled run. Conflicts and transition bugs are excluded.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidTransition)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
