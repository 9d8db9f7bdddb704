// Package ui implements a terminal progress view for library syncs using bubbletea's Elm architecture.
//
// The [Model] moves through two views:
//  1. [SyncView] : spinner, progress bar and the latest status line while the sync runs
//  2. [ResultView] : the sync summary and a browsable list of re-fetched playlists
//
// Progress updates flow through a channel from the sync engine, one message per update, so the engine never blocks on rendering.
package ui
