// package models defines the library records mirrored from the streaming service
package models

import (
	"fmt"
	"slices"
	"strings"
)

// Feature names in the order they appear on a [Track].
const (
	Danceability     = "danceability"
	Energy           = "energy"
	Key              = "key"
	Loudness         = "loudness"
	Mode             = "mode"
	Speechiness      = "speechiness"
	Acousticness     = "acousticness"
	Instrumentalness = "instrumentalness"
	Liveness         = "liveness"
	Valence          = "valence"
	Tempo            = "tempo"
)

// EmbeddingFeatures lists the continuous features, in embedding order.
var EmbeddingFeatures = []string{
	Danceability,
	Energy,
	Valence,
	Acousticness,
	Instrumentalness,
	Speechiness,
	Liveness,
	Loudness,
	Tempo,
}

// Features lists every audio feature in track order.
var Features = []string{
	Danceability,
	Energy,
	Key,
	Loudness,
	Mode,
	Speechiness,
	Acousticness,
	Instrumentalness,
	Liveness,
	Valence,
	Tempo,
}

// IsCategorical reports whether the feature holds an integer class (key or mode).
func IsCategorical(name string) bool {
	return name == Key || name == Mode
}

// FeatureRow is one row of an external feature file, before any value is parsed.
type FeatureRow struct {
	URI    string
	Values map[string]string // feature name to raw cell
	Genres string            // comma-delimited
}

// AudioFeatures holds the optional per-track scalars.
//
// Every field is independently nullable and serializes as an explicit null.
type AudioFeatures struct {
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Key              *int     `json:"key"`
	Loudness         *float64 `json:"loudness"`
	Mode             *int     `json:"mode"`
	Speechiness      *float64 `json:"speechiness"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Valence          *float64 `json:"valence"`
	Tempo            *float64 `json:"tempo"`
}

// Float returns the continuous feature with the given name.
// ok is false when the name is unknown or the value is null.
func (f *AudioFeatures) Float(name string) (v float64, ok bool) {
	p := f.floatField(name)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetFloat stores a continuous feature. Unknown names are ignored.
func (f *AudioFeatures) SetFloat(name string, v float64) {
	if p := f.floatField(name); p != nil {
		*p = &v
	}
}

// Int returns key or mode.
func (f *AudioFeatures) Int(name string) (v int, ok bool) {
	p := f.intField(name)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// SetInt stores key or mode. Unknown names are ignored.
func (f *AudioFeatures) SetInt(name string, v int) {
	if p := f.intField(name); p != nil {
		*p = &v
	}
}

// IsSet reports whether the named feature currently holds a value.
func (f *AudioFeatures) IsSet(name string) bool {
	if p := f.floatField(name); p != nil {
		return *p != nil
	}
	if p := f.intField(name); p != nil {
		return *p != nil
	}
	return false
}

func (f *AudioFeatures) floatField(name string) **float64 {
	switch name {
	case Danceability:
		return &f.Danceability
	case Energy:
		return &f.Energy
	case Loudness:
		return &f.Loudness
	case Speechiness:
		return &f.Speechiness
	case Acousticness:
		return &f.Acousticness
	case Instrumentalness:
		return &f.Instrumentalness
	case Liveness:
		return &f.Liveness
	case Valence:
		return &f.Valence
	case Tempo:
		return &f.Tempo
	default:
		return nil
	}
}

func (f *AudioFeatures) intField(name string) **int {
	switch name {
	case Key:
		return &f.Key
	case Mode:
		return &f.Mode
	default:
		return nil
	}
}

// Track is a single song in the mirrored library, keyed by its URI.
type Track struct {
	URI                 string   `json:"track_uri"`
	Name                string   `json:"track_name"`
	Album               string   `json:"album_name"`
	Artists             []string `json:"artist_names"`
	ReleaseDate         string   `json:"release_date"`
	Genres              []string `json:"genres"`
	DurationMS          int      `json:"duration_ms"`
	Popularity          int      `json:"popularity"`
	Explicit            bool     `json:"explicit"`
	AssociatedPlaylists []string `json:"associated_playlists"`
	AudioFeatures
}

// NewTrack creates a track with null audio features and no playlist associations.
func NewTrack(uri string) *Track {
	return &Track{
		URI:                 uri,
		Artists:             []string{},
		Genres:              []string{},
		AssociatedPlaylists: []string{},
	}
}

// Validate checks the track can be stored.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.URI) == "" {
		return fmt.Errorf("track uri is required")
	}
	return nil
}

// Associate adds playlistID to the association list unless already present.
func (t *Track) Associate(playlistID string) bool {
	if slices.Contains(t.AssociatedPlaylists, playlistID) {
		return false
	}
	t.AssociatedPlaylists = append(t.AssociatedPlaylists, playlistID)
	return true
}

// Dissociate removes every occurrence of playlistID from the association list.
func (t *Track) Dissociate(playlistID string) bool {
	before := len(t.AssociatedPlaylists)
	t.AssociatedPlaylists = slices.DeleteFunc(t.AssociatedPlaylists, func(id string) bool {
		return id == playlistID
	})
	return len(t.AssociatedPlaylists) != before
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := *t
	c.Artists = cloneStrings(t.Artists)
	c.Genres = cloneStrings(t.Genres)
	c.AssociatedPlaylists = cloneStrings(t.AssociatedPlaylists)
	c.AudioFeatures = AudioFeatures{
		Danceability:     clonePtr(t.Danceability),
		Energy:           clonePtr(t.Energy),
		Key:              clonePtr(t.Key),
		Loudness:         clonePtr(t.Loudness),
		Mode:             clonePtr(t.Mode),
		Speechiness:      clonePtr(t.Speechiness),
		Acousticness:     clonePtr(t.Acousticness),
		Instrumentalness: clonePtr(t.Instrumentalness),
		Liveness:         clonePtr(t.Liveness),
		Valence:          clonePtr(t.Valence),
		Tempo:            clonePtr(t.Tempo),
	}
	return &c
}

// Normalize replaces nil lists with empty ones so they serialize as [].
func (t *Track) Normalize() {
	if t.Artists == nil {
		t.Artists = []string{}
	}
	if t.Genres == nil {
		t.Genres = []string{}
	}
	if t.AssociatedPlaylists == nil {
		t.AssociatedPlaylists = []string{}
	}
}

// Playlist is a named, ordered list of track URIs.
type Playlist struct {
	ID              string   `json:"playlist_id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Owner           string   `json:"owner"`
	ContainedTracks []string `json:"contained_tracks"`
}

// Validate checks the playlist can be stored.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("playlist id is required")
	}
	return nil
}

// Clone returns a deep copy.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.ContainedTracks = cloneStrings(p.ContainedTracks)
	return &c
}

// Normalize replaces a nil track list with an empty one.
func (p *Playlist) Normalize() {
	if p.ContainedTracks == nil {
		p.ContainedTracks = []string{}
	}
}

// Snapshot is the whole persisted library: tracks by URI and playlists by id.
type Snapshot struct {
	Tracks    map[string]*Track
	Playlists map[string]*Playlist
}

// NewSnapshot returns an empty library.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Tracks:    map[string]*Track{},
		Playlists: map[string]*Playlist{},
	}
}

// Clone returns a deep copy so callers can build a new snapshot without touching the old one.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()
	if s == nil {
		return c
	}
	for uri, t := range s.Tracks {
		c.Tracks[uri] = t.Clone()
	}
	for id, p := range s.Playlists {
		c.Playlists[id] = p.Clone()
	}
	return c
}

// Normalize normalizes every record in place.
func (s *Snapshot) Normalize() {
	for _, t := range s.Tracks {
		t.Normalize()
	}
	for _, p := range s.Playlists {
		p.Normalize()
	}
}

// CheckAssociations verifies that a track lists a playlist exactly when the playlist contains the track.
// Dangling URIs (playlist entries without a track record) are ignored.
func (s *Snapshot) CheckAssociations() error {
	for id, p := range s.Playlists {
		for _, uri := range p.ContainedTracks {
			t, ok := s.Tracks[uri]
			if !ok {
				continue
			}
			if !slices.Contains(t.AssociatedPlaylists, id) {
				return fmt.Errorf("track %s is in playlist %s but not associated", uri, id)
			}
		}
	}
	for uri, t := range s.Tracks {
		for _, id := range t.AssociatedPlaylists {
			p, ok := s.Playlists[id]
			if !ok {
				return fmt.Errorf("track %s associated with unknown playlist %s", uri, id)
			}
			if !slices.Contains(p.ContainedTracks, uri) {
				return fmt.Errorf("track %s associated with playlist %s that does not contain it", uri, id)
			}
		}
	}
	return nil
}

// PlaylistsByName returns playlist ids whose lowercased name is in names.
func (s *Snapshot) PlaylistsByName(names map[string]struct{}) []string {
	var ids []string
	for id, p := range s.Playlists {
		if _, ok := names[strings.ToLower(p.Name)]; ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append(make([]string, 0, len(s)), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
