package tasks

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/services"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// CompleteLibraryDescription is set on a newly created complete-library playlist.
const CompleteLibraryDescription = "Auto-generated library of all tracks"

var trackURIPattern = regexp.MustCompile(`^spotify:track:[A-Za-z0-9]{22}$`)

// PlaylistEditor reads and modifies remote playlists.
type PlaylistEditor interface {
	services.Library
	services.LibraryWriter
}

// LibraryOptions configures [BuildCompleteLibrary].
type LibraryOptions struct {
	PlaylistName string
	BatchSize    int // at most [services.MaxTracksPerAdd]
}

// LibraryResult describes what a complete-library build did.
type LibraryResult struct {
	PlaylistID string
	Created    bool
	Existing   int      // URIs already in the playlist
	Added      int      // URIs added by this run
	Invalid    int      // snapshot URIs that are not track URIs
	Rejected   []string // URIs the service refused individually
}

// ValidTrackURI reports whether uri names a catalog track.
func ValidTrackURI(uri string) bool {
	return trackURIPattern.MatchString(uri)
}

// BuildCompleteLibrary makes sure one playlist holds every track in the snapshot.
//
// The playlist is found by case-insensitive name or created private. Tracks already present are
// not added again. A failed batch is retried one URI at a time and refused URIs are recorded.
func BuildCompleteLibrary(ctx context.Context, progress chan<- ProgressUpdate, editor PlaylistEditor, snapshot *models.Snapshot, opts LibraryOptions) (*LibraryResult, error) {
	if editor == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(opts.PlaylistName) == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 || batchSize > services.MaxTracksPerAdd {
		batchSize = services.MaxTracksPerAdd
	}

	result := &LibraryResult{}

	sendProgress(progress, findPlaylistUpdate(opts.PlaylistName))
	playlists, err := editor.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, opts.PlaylistName) {
			result.PlaylistID = pl.ID
			break
		}
	}

	existing := make(map[string]struct{})
	if result.PlaylistID == "" {
		userID, err := editor.CurrentUserID(ctx)
		if err != nil {
			return nil, err
		}
		created, err := editor.CreatePlaylist(ctx, userID, opts.PlaylistName, CompleteLibraryDescription, false)
		if err != nil {
			return nil, err
		}
		result.PlaylistID = created.ID
		result.Created = true
		sendProgress(progress, createdPlaylistUpdate(created))
	} else {
		tracks, err := editor.PlaylistTracks(ctx, result.PlaylistID)
		if err != nil {
			return nil, err
		}
		for _, tr := range tracks {
			existing[tr.URI] = struct{}{}
		}
		result.Existing = len(existing)
	}

	uris := make([]string, 0, len(snapshot.Tracks))
	for uri := range snapshot.Tracks {
		uris = append(uris, uri)
	}
	slices.Sort(uris)

	pending := make([]string, 0, len(uris))
	for _, uri := range uris {
		if !ValidTrackURI(uri) {
			result.Invalid++
			continue
		}
		if _, ok := existing[uri]; ok {
			continue
		}
		pending = append(pending, uri)
	}

	batches := (len(pending) + batchSize - 1) / batchSize
	for b := range batches {
		batch := pending[b*batchSize : min((b+1)*batchSize, len(pending))]
		sendProgress(progress, addTracksUpdate(b+1, batches))

		err := editor.AddTracks(ctx, result.PlaylistID, batch)
		if err == nil {
			result.Added += len(batch)
			continue
		}
		if ctx.Err() != nil || services.IsAuthError(err) {
			return result, err
		}

		sendProgress(progress, addFailedUpdate(b+1, batches, err))
		for _, uri := range batch {
			if err := editor.AddTracks(ctx, result.PlaylistID, []string{uri}); err != nil {
				if ctx.Err() != nil || services.IsAuthError(err) {
					return result, err
				}
				result.Rejected = append(result.Rejected, uri)
				continue
			}
			result.Added++
		}
	}

	return result, nil
}
