// package tasks implements the library operations run against the remote music service.
//
// The core abstraction is SyncEngine, which merges the remote playlists into the local snapshot.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/services"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// SyncOptions controls one sync run.
type SyncOptions struct {
	SkipNames    shared.SkipList // lowercased playlist names excluded from the snapshot
	PruneMissing bool            // drop stored playlists that no longer exist remotely
}

// SyncResult contains the merged snapshot and what happened to each playlist.
type SyncResult struct {
	Snapshot       *models.Snapshot
	Changed        []string // ids of re-fetched playlists
	Unchanged      []string // ids carried forward without a fetch
	Skipped        []string // ids removed by the skip list
	Pruned         []string // ids removed because they vanished remotely
	RemoteTotal    int      // playlists listed by the remote library
	TracksUpserted int      // distinct track records written from fetched playlists
	GenreLookups   int      // artist lookups sent to the library
}

// SyncEngine merges the remote library into a snapshot.
type SyncEngine struct {
	library   services.Library
	batchSize int
	changes   []models.PlaylistChange
}

// NewSyncEngine creates an engine that reads from library.
// artistBatchSize bounds each genre lookup. Zero uses the provider limit.
func NewSyncEngine(library services.Library, artistBatchSize int) *SyncEngine {
	return &SyncEngine{library: library, batchSize: artistBatchSize}
}

// Changes returns the playlists re-fetched by the last run.
func (e *SyncEngine) Changes() []models.PlaylistChange {
	return e.changes
}

// Run produces a new snapshot from prev and the current remote state.
//
// prev is never modified and may be nil. Any remote error aborts the run and returns no snapshot.
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, prev *models.Snapshot, opts SyncOptions) (*SyncResult, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}

	e.changes = nil
	next := prev.Clone()
	result := &SyncResult{Snapshot: next}
	genres := NewGenreCache(e.library, e.batchSize)

	sendProgress(progress, fetchingPlaylistsUpdate())
	remote, err := e.library.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	result.RemoteTotal = len(remote)
	sendProgress(progress, foundPlaylistsUpdate(len(remote)))

	seen := make(map[string]struct{}, len(remote))
	upserted := make(map[string]struct{})
	total := len(remote)

	for i, pl := range remote {
		step := i + 1
		seen[pl.ID] = struct{}{}

		if opts.SkipNames.Contains(pl.Name) {
			result.Skipped = append(result.Skipped, pl.ID)
			sendProgress(progress, skippedPlaylistUpdate(step, total, pl))
			continue
		}

		old, exists := next.Playlists[pl.ID]
		if exists && pl.TrackCount == len(old.ContainedTracks) {
			result.Unchanged = append(result.Unchanged, pl.ID)
			sendProgress(progress, unchangedPlaylistUpdate(step, total, pl))
			continue
		}

		stored := 0
		if exists {
			stored = len(old.ContainedTracks)
		}
		sendProgress(progress, fetchTracksUpdate(step, total, pl, stored))

		tracks, err := e.library.PlaylistTracks(ctx, pl.ID)
		if err != nil {
			return nil, err
		}

		artistIDs := make([]string, 0, len(tracks))
		for _, tr := range tracks {
			artistIDs = append(artistIDs, tr.PrimaryArtistID())
		}
		sendProgress(progress, resolveGenresUpdate(step, total, len(artistIDs)))
		resolved, err := genres.Resolve(ctx, artistIDs)
		if err != nil {
			return nil, err
		}

		added, removed := mergePlaylist(next, pl, old, tracks, resolved, upserted)

		result.Changed = append(result.Changed, pl.ID)
		e.changes = append(e.changes, models.PlaylistChange{PlaylistID: pl.ID, Name: pl.Name, StoredCount: stored, RemoteCount: pl.TrackCount})
		sendProgress(progress, mergedPlaylistUpdate(step, total, pl.Name, added, removed))
	}

	remove := make(map[string]struct{})
	for _, id := range result.Skipped {
		remove[id] = struct{}{}
	}
	for _, id := range next.PlaylistsByName(opts.SkipNames) {
		if _, ok := remove[id]; !ok {
			result.Skipped = append(result.Skipped, id)
		}
		remove[id] = struct{}{}
	}

	if opts.PruneMissing {
		for id := range next.Playlists {
			if _, ok := seen[id]; ok {
				continue
			}
			if _, ok := remove[id]; ok {
				continue
			}
			result.Pruned = append(result.Pruned, id)
			remove[id] = struct{}{}
		}
		slices.Sort(result.Pruned)
	}

	sendProgress(progress, cleanupUpdate(len(remove)))
	removePlaylists(next, remove)

	result.TracksUpserted = len(upserted)
	result.GenreLookups = genres.Calls()
	sendProgress(progress, syncDoneUpdate(result))
	return result, nil
}

// mergePlaylist upserts the fetched tracks and repairs associations for one changed playlist.
// It returns how many URIs joined and left the playlist.
func mergePlaylist(s *models.Snapshot, pl services.RemotePlaylist, old *models.Playlist, tracks []services.RemoteTrack, genres map[string][]string, upserted map[string]struct{}) (added, removed int) {
	newURIs := make([]string, 0, len(tracks))
	newSet := make(map[string]struct{}, len(tracks))

	for _, tr := range tracks {
		t, ok := s.Tracks[tr.URI]
		if !ok {
			t = models.NewTrack(tr.URI)
			s.Tracks[tr.URI] = t
		}
		t.Name = tr.Name
		t.Album = tr.Album
		t.Artists = tr.ArtistNames()
		t.ReleaseDate = tr.ReleaseDate
		t.Genres = append([]string{}, genres[tr.PrimaryArtistID()]...)
		t.DurationMS = tr.DurationMS
		t.Popularity = tr.Popularity
		t.Explicit = tr.Explicit
		upserted[tr.URI] = struct{}{}

		newURIs = append(newURIs, tr.URI)
		newSet[tr.URI] = struct{}{}
	}

	for _, uri := range newURIs {
		s.Tracks[uri].Associate(pl.ID)
	}

	oldSet := make(map[string]struct{})
	if old != nil {
		for _, uri := range old.ContainedTracks {
			oldSet[uri] = struct{}{}
		}
	}
	for uri := range newSet {
		if _, ok := oldSet[uri]; !ok {
			added++
		}
	}
	for uri := range oldSet {
		if _, ok := newSet[uri]; ok {
			continue
		}
		removed++
		if t, ok := s.Tracks[uri]; ok {
			t.Dissociate(pl.ID)
		}
	}

	s.Playlists[pl.ID] = &models.Playlist{
		ID:              pl.ID,
		Name:            pl.Name,
		Description:     pl.Description,
		Owner:           pl.Owner,
		ContainedTracks: newURIs,
	}
	return added, removed
}

// removePlaylists deletes the playlists and strips their ids from every track.
func removePlaylists(s *models.Snapshot, ids map[string]struct{}) {
	if len(ids) == 0 {
		return
	}
	for id := range ids {
		delete(s.Playlists, id)
	}
	for _, t := range s.Tracks {
		for id := range ids {
			t.Dissociate(id)
		}
	}
}
