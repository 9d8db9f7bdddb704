// package analysis reduces playlists to statistical summaries and scores songs against them.
//
// Everything here is a pure function of its inputs.
package analysis

import (
	"math"
	"slices"
	"strconv"

	"github.com/chapi192/SpotifyMatcher/internal/models"
)

// EmbeddingSize is the length of a playlist embedding vector.
const EmbeddingSize = 9

const (
	loudnessIndex = 7
	tempoIndex    = 8
	tempoScale    = 200.0
	loudnessScale = 20.0
)

// FeatureSummary describes the distribution of one audio feature across a playlist.
type FeatureSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Stdev  float64 `json:"stdev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
}

// PlaylistStats is the derived summary of one playlist.
type PlaylistStats struct {
	PlaylistID       string                    `json:"playlist_id"`
	Name             string                    `json:"name"`
	TrackCount       int                       `json:"track_count"`
	UniqueGenres     int                       `json:"unique_genres"`
	UniqueArtists    int                       `json:"unique_artists"`
	GenreCounts      map[string]int            `json:"genre_counts"`
	ArtistCounts     map[string]int            `json:"artist_counts"`
	AudioStats       map[string]FeatureSummary `json:"audio_stats"`
	KeyDistribution  map[string]int            `json:"key_distribution"`
	MostCommonKey    string                    `json:"most_common_key"`
	ModeDistribution map[string]int            `json:"mode_distribution"`
	PercentMajor     float64                   `json:"percent_major"`
	EmbeddingVector  []float64                 `json:"embedding_vector"`
}

// Median returns the median of the named feature.
func (s *PlaylistStats) Median(feature string) (float64, bool) {
	summary, ok := s.AudioStats[feature]
	if !ok {
		return 0, false
	}
	return summary.Median, true
}

// BuildStats summarizes every playlist that resolves to at least one track.
//
// URIs missing from tracks are skipped. Neither argument is modified.
func BuildStats(tracks map[string]*models.Track, playlists map[string]*models.Playlist) map[string]PlaylistStats {
	out := make(map[string]PlaylistStats, len(playlists))
	for id, pl := range playlists {
		resolved := make([]*models.Track, 0, len(pl.ContainedTracks))
		for _, uri := range pl.ContainedTracks {
			if t, ok := tracks[uri]; ok {
				resolved = append(resolved, t)
			}
		}
		if len(resolved) == 0 {
			continue
		}
		stats := summarize(resolved)
		stats.PlaylistID = id
		stats.Name = pl.Name
		out[id] = stats
	}
	return out
}

func summarize(tracks []*models.Track) PlaylistStats {
	stats := PlaylistStats{
		TrackCount:       len(tracks),
		GenreCounts:      map[string]int{},
		ArtistCounts:     map[string]int{},
		AudioStats:       map[string]FeatureSummary{},
		KeyDistribution:  map[string]int{},
		ModeDistribution: map[string]int{"0": 0, "1": 0},
	}
	for k := range 12 {
		stats.KeyDistribution[strconv.Itoa(k)] = 0
	}

	for _, t := range tracks {
		for _, g := range t.Genres {
			stats.GenreCounts[g]++
		}
		for _, a := range t.Artists {
			stats.ArtistCounts[a]++
		}
		if k, ok := t.Int(models.Key); ok && k >= 0 && k < 12 {
			stats.KeyDistribution[strconv.Itoa(k)]++
		}
		if m, ok := t.Int(models.Mode); ok && (m == 0 || m == 1) {
			stats.ModeDistribution[strconv.Itoa(m)]++
		}
	}
	stats.UniqueGenres = len(stats.GenreCounts)
	stats.UniqueArtists = len(stats.ArtistCounts)

	for _, feature := range models.EmbeddingFeatures {
		values := make([]float64, 0, len(tracks))
		for _, t := range tracks {
			if v, ok := t.Float(feature); ok {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			stats.AudioStats[feature] = describe(values)
		}
	}

	stats.MostCommonKey = mostCommon(stats.KeyDistribution)

	major, minor := stats.ModeDistribution["1"], stats.ModeDistribution["0"]
	if major+minor == 0 {
		stats.PercentMajor = 0.5
	} else {
		stats.PercentMajor = float64(major) / float64(major+minor)
	}

	stats.EmbeddingVector = embedding(stats.AudioStats)
	return stats
}

// embedding builds the vector from feature medians. Missing features contribute 0.
func embedding(audio map[string]FeatureSummary) []float64 {
	vec := make([]float64, EmbeddingSize)
	for i, feature := range models.EmbeddingFeatures {
		summary, ok := audio[feature]
		if !ok {
			continue
		}
		v := summary.Median
		switch i {
		case loudnessIndex:
			v = math.Abs(v)
		case tempoIndex:
			v /= tempoScale
		}
		vec[i] = v
	}
	return vec
}

// mostCommon returns the bucket with the highest count. Ties go to the lowest key in string order.
func mostCommon(dist map[string]int) string {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	best, bestCount := "", -1
	for _, k := range keys {
		if dist[k] > bestCount {
			best, bestCount = k, dist[k]
		}
	}
	return best
}

func describe(values []float64) FeatureSummary {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}

	return FeatureSummary{
		Mean:   mean,
		Median: percentile(sorted, 50),
		Stdev:  math.Sqrt(sq / float64(len(sorted))),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    percentile(sorted, 25),
		P75:    percentile(sorted, 75),
	}
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
