// Package catalog persists the durable record of known episodes in SQLite and
// owns their sync-state lifecycle.
//
// The Store manages database connections, schema migrations, lookups by
// remote reference and origin page URL, and the guarded state transitions
// discovered -> downloading -> uploading -> available (plus any -> failed).
// Storage key and duration are written in the same statement that sets
// available, so concurrent readers never observe a partially synced episode
// as playable.
//
// The catalog is the single owner of episode records: the sync engine drives
// transitions through it, and playback components only ever read.
package catalog
