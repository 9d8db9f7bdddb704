// Package models defines the records of the mirrored music library.
//
//   - [Track] : a song keyed by URI, with descriptive metadata, primary-artist genres,
//     the playlists it belongs to, and nullable [AudioFeatures]
//   - [Playlist] : a playlist keyed by id with its ordered track URIs
//   - [Snapshot] : the whole library, tracks by URI and playlists by id
//
// Field names are fixed by struct tags and round-trip through JSON. Audio features
// are pointers so a missing value serializes as an explicit null.
//
// A [Snapshot] must keep tracks and playlists consistent in both directions:
// a track lists a playlist id exactly when that playlist contains the track.
// [Snapshot.CheckAssociations] verifies this.
package models
