// package services defines the remote library source used by the sync engine
//
// Spotify is the only implementation.
package services

import (
	"context"
)

const (
	// MaxArtistsPerCall is the provider limit for a single artists lookup.
	MaxArtistsPerCall = 50
	// MaxTracksPerAdd is the provider limit for a single add-to-playlist call.
	MaxTracksPerAdd = 100
)

// Library is a read-only view of the user's remote library.
//
// Every method exhausts pagination before returning and retries rate-limited calls until they succeed.
type Library interface {
	// Playlists lists every playlist the user can see, with its current remote track count.
	Playlists(ctx context.Context) ([]RemotePlaylist, error)

	// PlaylistTracks returns the playlist's tracks in remote order. Null items are dropped.
	PlaylistTracks(ctx context.Context, playlistID string) ([]RemoteTrack, error)

	// Artists looks up at most [MaxArtistsPerCall] artists by id.
	Artists(ctx context.Context, ids []string) ([]RemoteArtist, error)
}

// LibraryWriter modifies the user's remote playlists.
type LibraryWriter interface {
	// CurrentUserID returns the id of the authenticated user.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*RemotePlaylist, error)

	// AddTracks appends at most [MaxTracksPerAdd] track URIs to a playlist.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// RemotePlaylist is a playlist as listed by the remote service.
type RemotePlaylist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
}

// ArtistRef is an artist credited on a track.
type ArtistRef struct {
	ID   string
	Name string
}

// RemoteTrack is a track as returned inside a playlist listing.
type RemoteTrack struct {
	URI         string
	Name        string
	Album       string
	Artists     []ArtistRef
	ReleaseDate string
	DurationMS  int
	Popularity  int
	Explicit    bool
}

// PrimaryArtistID returns the id of the first credited artist, or "" when there is none.
func (t RemoteTrack) PrimaryArtistID() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].ID
}

// ArtistNames returns the credited artist names in order.
func (t RemoteTrack) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// RemoteArtist carries the genres of an artist.
type RemoteArtist struct {
	ID     string
	Genres []string
}
