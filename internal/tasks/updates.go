package tasks

import (
	"fmt"

	"github.com/chapi192/SpotifyMatcher/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	CheckPlaylist
	FetchTracks
	ResolveGenres
	MergePlaylist
	Cleanup
	ImportFeatures
	FindPlaylist
	AddTracks
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case CheckPlaylist:
		return "check_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case ResolveGenres:
		return "resolve_genres"
	case MergePlaylist:
		return "merge_playlist"
	case Cleanup:
		return "cleanup"
	case ImportFeatures:
		return "import_features"
	case FindPlaylist:
		return "find_playlist"
	case AddTracks:
		return "add_tracks"
	case Done:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    0,
		Total:   1,
		Message: "Fetching playlists...",
	}
}

func foundPlaylistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", total),
	}
}

func skippedPlaylistUpdate(step, total int, pl services.RemotePlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Skipping %s", step, total, pl.Name),
		Data:    pl,
	}
}

func unchangedPlaylistUpdate(step, total int, pl services.RemotePlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s unchanged (%d tracks)", step, total, pl.Name, pl.TrackCount),
		Data:    pl,
	}
}

func fetchTracksUpdate(step, total int, pl services.RemotePlaylist, stored int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s changed (%d stored, %d remote), fetching tracks...", step, total, pl.Name, stored, pl.TrackCount),
		Data:    pl,
	}
}

func resolveGenresUpdate(step, total, artists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveGenres,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving genres for %d artists...", step, total, artists),
	}
}

func mergedPlaylistUpdate(step, total int, name string, added, removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (+%d/-%d)", step, total, name, added, removed),
	}
}

func cleanupUpdate(removed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Cleanup,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Removing %d skipped or pruned playlists from associations...", removed),
	}
}

func syncDoneUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: Done,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Sync complete: %d changed, %d unchanged, %d skipped",
			len(result.Changed), len(result.Unchanged), len(result.Skipped)),
		Data: result,
	}
}

func importRowUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ImportFeatures,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Merging features...", step, total),
	}
}

func findPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Looking for playlist %q...", name),
	}
}

func createdPlaylistUpdate(pl *services.RemotePlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FindPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding tracks...", step, total),
	}
}

func addFailedUpdate(step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ batch failed, adding one by one: %v", step, total, err),
	}
}
