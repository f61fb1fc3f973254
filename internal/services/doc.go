// Package services holds the error taxonomy and context annotations shared by
// the sync engine, catalog, and skill handlers.
//
// Sentinel errors classify failures by how they are handled: conflicts and
// invalid transitions fail loudly and are never retried, transient errors are
// retried on the next sync run, and unavailable collaborators degrade to a
// spoken fallback. Wrap tags errors with one of the sentinels while preserving
// the original cause for errors.Is/As.
package services
