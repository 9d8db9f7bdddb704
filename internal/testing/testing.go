// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chapi192/SpotifyMatcher/internal/services"
)

// FakeLibrary is an in-memory [services.Library] and [services.LibraryWriter] that counts calls.
type FakeLibrary struct {
	mu sync.Mutex

	Lists       []services.RemotePlaylist
	Tracks      map[string][]services.RemoteTrack // by playlist id
	ArtistGenre map[string][]string               // by artist id
	UserID      string

	PlaylistsErr error
	TracksErr    map[string]error // by playlist id
	ArtistsErr   error
	AddErr       func(uris []string) error

	PlaylistsCalls int
	TracksCalls    map[string]int
	ArtistsCalls   int
	ArtistBatches  [][]string
	AddCalls       int
	Created        []services.RemotePlaylist
}

// NewFakeLibrary returns an empty fake.
func NewFakeLibrary() *FakeLibrary {
	return &FakeLibrary{
		Tracks:      map[string][]services.RemoteTrack{},
		ArtistGenre: map[string][]string{},
		TracksErr:   map[string]error{},
		TracksCalls: map[string]int{},
		UserID:      "user",
	}
}

// SetPlaylist adds or replaces a remote playlist and keeps its track count in step with tracks.
func (f *FakeLibrary) SetPlaylist(id, name string, tracks ...services.RemoteTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pl := services.RemotePlaylist{ID: id, Name: name, Owner: "owner", TrackCount: len(tracks)}
	replaced := false
	for i := range f.Lists {
		if f.Lists[i].ID == id {
			f.Lists[i] = pl
			replaced = true
		}
	}
	if !replaced {
		f.Lists = append(f.Lists, pl)
	}
	f.Tracks[id] = tracks
}

// RemovePlaylist deletes a remote playlist.
func (f *FakeLibrary) RemovePlaylist(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.Lists {
		if f.Lists[i].ID == id {
			f.Lists = append(f.Lists[:i], f.Lists[i+1:]...)
			break
		}
	}
	delete(f.Tracks, id)
}

func (f *FakeLibrary) Playlists(ctx context.Context) ([]services.RemotePlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PlaylistsCalls++
	if f.PlaylistsErr != nil {
		return nil, f.PlaylistsErr
	}
	return append([]services.RemotePlaylist{}, f.Lists...), nil
}

func (f *FakeLibrary) PlaylistTracks(ctx context.Context, playlistID string) ([]services.RemoteTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.TracksCalls[playlistID]++
	if err := f.TracksErr[playlistID]; err != nil {
		return nil, err
	}
	return append([]services.RemoteTrack{}, f.Tracks[playlistID]...), nil
}

func (f *FakeLibrary) Artists(ctx context.Context, ids []string) ([]services.RemoteArtist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ArtistsCalls++
	f.ArtistBatches = append(f.ArtistBatches, append([]string{}, ids...))
	if f.ArtistsErr != nil {
		return nil, f.ArtistsErr
	}
	if len(ids) > services.MaxArtistsPerCall {
		return nil, fmt.Errorf("too many artist ids: %d", len(ids))
	}

	artists := make([]services.RemoteArtist, 0, len(ids))
	for _, id := range ids {
		if genres, ok := f.ArtistGenre[id]; ok {
			artists = append(artists, services.RemoteArtist{ID: id, Genres: genres})
		}
	}
	return artists, nil
}

func (f *FakeLibrary) CurrentUserID(ctx context.Context) (string, error) {
	return f.UserID, nil
}

func (f *FakeLibrary) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.RemotePlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pl := services.RemotePlaylist{ID: fmt.Sprintf("created-%d", len(f.Created)+1), Name: name, Description: description, Owner: userID}
	f.Created = append(f.Created, pl)
	f.Lists = append(f.Lists, pl)
	return &pl, nil
}

func (f *FakeLibrary) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AddCalls++
	if len(uris) > services.MaxTracksPerAdd {
		return fmt.Errorf("too many uris: %d", len(uris))
	}
	if f.AddErr != nil {
		if err := f.AddErr(uris); err != nil {
			return err
		}
	}
	for _, uri := range uris {
		f.Tracks[playlistID] = append(f.Tracks[playlistID], services.RemoteTrack{URI: uri})
	}
	return nil
}

// TracksFetched returns how many times the tracks of id were listed.
func (f *FakeLibrary) TracksFetched(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TracksCalls[id]
}

// Track builds a remote track credited to the given artist ids.
func Track(uri, name string, artistIDs ...string) services.RemoteTrack {
	artists := make([]services.ArtistRef, 0, len(artistIDs))
	for _, id := range artistIDs {
		artists = append(artists, services.ArtistRef{ID: id, Name: "Artist " + id})
	}
	return services.RemoteTrack{URI: uri, Name: name, Album: name + " (album)", Artists: artists, ReleaseDate: "2020-01-01", DurationMS: 180000, Popularity: 50}
}

var (
	_ services.Library       = (*FakeLibrary)(nil)
	_ services.LibraryWriter = (*FakeLibrary)(nil)
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return data
}

// MustWriteFile writes data to name inside dir and returns the full path.
func MustWriteFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
