package repositories

import (
	"fmt"

	"github.com/chapi192/SpotifyMatcher/internal/analysis"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// StatsStore keeps the per-playlist stats artifact keyed by playlist id.
type StatsStore struct {
	path string
}

// NewStatsStore creates a store over path.
func NewStatsStore(path string) *StatsStore {
	return &StatsStore{path: path}
}

// Load reads the artifact. It returns [shared.ErrStatsNotFound] when the file does not exist.
func (s *StatsStore) Load() (map[string]analysis.PlaylistStats, error) {
	stats := map[string]analysis.PlaylistStats{}
	found, err := readJSON(s.path, &stats)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", shared.ErrStatsNotFound, s.path)
	}
	for id, st := range stats {
		if st.PlaylistID == "" {
			st.PlaylistID = id
			stats[id] = st
		}
	}
	return stats, nil
}

// Save replaces the artifact.
func (s *StatsStore) Save(stats map[string]analysis.PlaylistStats) error {
	if err := writeJSONAtomic(s.path, stats); err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}
