package repositories

import (
	"fmt"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// SnapshotStore keeps the library as two JSON documents: tracks keyed by URI and playlists keyed by id.
type SnapshotStore struct {
	tracksPath    string
	playlistsPath string
}

// NewSnapshotStore creates a store over the two files.
func NewSnapshotStore(tracksPath, playlistsPath string) *SnapshotStore {
	return &SnapshotStore{tracksPath: tracksPath, playlistsPath: playlistsPath}
}

// Load reads the snapshot. Missing files yield an empty library.
func (s *SnapshotStore) Load() (*models.Snapshot, error) {
	snap, _, err := s.load()
	return snap, err
}

// LoadExisting reads the snapshot like [SnapshotStore.Load] but returns
// [shared.ErrSnapshotNotFound] when the tracks file does not exist.
func (s *SnapshotStore) LoadExisting() (*models.Snapshot, error) {
	snap, found, err := s.load()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, s.tracksPath)
	}
	return snap, nil
}

func (s *SnapshotStore) load() (*models.Snapshot, bool, error) {
	snap := models.NewSnapshot()

	tracks, found, err := s.loadTracks()
	if err != nil {
		return nil, found, err
	}
	snap.Tracks = tracks

	if _, err := readJSON(s.playlistsPath, &snap.Playlists); err != nil {
		return nil, found, err
	}
	if snap.Playlists == nil {
		snap.Playlists = map[string]*models.Playlist{}
	}
	for id, p := range snap.Playlists {
		if p == nil {
			delete(snap.Playlists, id)
			continue
		}
		if p.ID == "" {
			p.ID = id
		}
	}

	snap.Normalize()
	return snap, found, nil
}

// LoadTracks reads only the track records.
// It returns [shared.ErrSnapshotNotFound] when the tracks file does not exist.
func (s *SnapshotStore) LoadTracks() (map[string]*models.Track, error) {
	tracks, found, err := s.loadTracks()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, s.tracksPath)
	}
	return tracks, nil
}

func (s *SnapshotStore) loadTracks() (map[string]*models.Track, bool, error) {
	tracks := map[string]*models.Track{}
	found, err := readJSON(s.tracksPath, &tracks)
	if err != nil {
		return nil, found, err
	}
	if tracks == nil {
		tracks = map[string]*models.Track{}
	}
	for uri, t := range tracks {
		if t == nil {
			delete(tracks, uri)
			continue
		}
		if t.URI == "" {
			t.URI = uri
		}
		t.Normalize()
	}
	return tracks, found, nil
}

// Save replaces both files. Both are fully written to temp files before either is renamed,
// so an encode or write failure leaves the previous pair intact.
func (s *SnapshotStore) Save(snap *models.Snapshot) error {
	for _, p := range snap.Playlists {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	for _, t := range snap.Tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	snap.Normalize()
	tracks, err := stageJSON(s.tracksPath, snap.Tracks)
	if err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}
	playlists, err := stageJSON(s.playlistsPath, snap.Playlists)
	if err != nil {
		tracks.discard()
		return fmt.Errorf("failed to save playlists: %w", err)
	}

	if err := tracks.commit(); err != nil {
		playlists.discard()
		return fmt.Errorf("failed to save tracks: %w", err)
	}
	if err := playlists.commit(); err != nil {
		return fmt.Errorf("failed to save playlists: %w", err)
	}
	return nil
}

// SaveTracks replaces only the tracks file.
func (s *SnapshotStore) SaveTracks(tracks map[string]*models.Track) error {
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		t.Normalize()
	}
	if err := writeJSONAtomic(s.tracksPath, tracks); err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}
	return nil
}
