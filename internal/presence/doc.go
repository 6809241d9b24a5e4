// Package presence mirrors playback onto a profile's bio and emoji status.
//
// A [Coordinator] keeps two fields. Each one remembers the value the user chose (the default) and the
// value the coordinator wrote while a track plays (the overlay). A monitor loop per field reads the live
// profile on every tick and decides whether a difference is the coordinator's own write or an edit the
// user made elsewhere. User edits become the new default, so stopping playback restores what the user
// last chose instead of a stale snapshot.
//
// Profile writes are best-effort. A failed write is remembered and retried by the next tick of that
// field's loop, and a failed read skips the tick.
package presence
