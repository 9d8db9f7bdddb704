// Package tasks runs the library operations against the remote music service with real-time progress reporting.
//
// # Sync
//
// [SyncEngine.Run] merges the remote playlists into a copy of the previous snapshot:
//
//  1. Playlists whose lowercased name is in the skip list are excluded.
//  2. A playlist whose remote track count equals its stored track count is carried forward
//     verbatim without listing its tracks.
//  3. Every other playlist is listed in full. Genres of each track's primary artist are
//     resolved through a run-scoped [GenreCache].
//  4. Track records are upserted. Descriptive fields are overwritten and audio features are
//     never touched.
//  5. Associations are repaired: the playlist id is added to every fetched track and removed
//     from tracks that left the playlist.
//  6. Skipped (and, with pruning, vanished) playlists are removed from the snapshot and from
//     every track's associations.
//
// Any remote error aborts the run and no snapshot is returned. Rate limits are handled by the
// services layer and never reach the engine.
//
// # Feature Import
//
// [MergeFeatures] fills null audio features from external rows and unions genres. Values already
// present are never overwritten, so importing the same file twice is a no-op.
//
// # Complete Library
//
// [BuildCompleteLibrary] finds or creates one playlist and adds every snapshot track missing from it.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
