// Package repositories persists everything the tool keeps between runs.
//
// Key Implementations:
//   - [SnapshotStore] : the library as two JSON files (tracks by URI, playlists by id), each replaced atomically
//   - [StatsStore] : the per-playlist stats artifact consumed by recommend
//   - [SyncRunRepository] : SQLite history of sync runs and the playlists each one re-fetched
//
// JSON files are written to a temp file in the same directory and renamed over the target, so a
// failed write never leaves a partial snapshot behind. Null audio features are written as explicit
// nulls and empty lists as [].
package repositories
