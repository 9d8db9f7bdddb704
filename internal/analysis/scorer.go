package analysis

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/sourcegraph/conc/iter"
)

// Component weights of the total score.
const (
	EmbedWeight = 0.50
	GenreWeight = 0.20
	MoodWeight  = 0.20
	TempoWeight = 0.10
)

// DefaultTopN is the number of playlists kept per ranking.
const DefaultTopN = 5

// minGenreCount is how often a genre must occur in a playlist to count as one of its genres.
const minGenreCount = 2

// Score holds the distance components of one song against one playlist.
//
// Genre is a match fraction (higher is better). Every other component is a distance and may be +Inf.
type Score struct {
	PlaylistID string
	Name       string
	Total      float64
	Embed      float64
	Genre      float64
	Mood       float64
	Tempo      float64
}

// Ranking is the five per-component orderings of the playlists for one song.
type Ranking struct {
	Song    string
	URI     string
	Overall []Score
	Embed   []Score
	Genre   []Score
	Mood    []Score
	Tempo   []Score
}

// Song is a track to place, with the display name it was requested under.
type Song struct {
	Name  string
	Track *models.Track
}

// ScorePlaylist computes every component for song against stats.
func ScorePlaylist(song *models.Track, stats *PlaylistStats) Score {
	s := Score{
		PlaylistID: stats.PlaylistID,
		Name:       stats.Name,
		Embed:      embedDistance(song, stats.EmbeddingVector),
		Genre:      genreMatch(song.Genres, stats.GenreCounts),
		Mood:       math.Inf(1),
		Tempo:      math.Inf(1),
	}

	if v, ok := song.Float(models.Valence); ok {
		if median, ok := stats.Median(models.Valence); ok {
			s.Mood = math.Abs(v - median)
		}
	}
	if v, ok := song.Float(models.Tempo); ok {
		if median, ok := stats.Median(models.Tempo); ok {
			s.Tempo = math.Abs(v-median) / tempoScale
		}
	}

	s.Total = EmbedWeight*s.Embed + GenreWeight*(1-s.Genre) + MoodWeight*s.Mood + TempoWeight*s.Tempo
	return s
}

// songVector returns the raw feature vector of song in embedding order.
func songVector(song *models.Track) ([]float64, bool) {
	vec := make([]float64, EmbeddingSize)
	for i, feature := range models.EmbeddingFeatures {
		v, ok := song.Float(feature)
		if !ok {
			return nil, false
		}
		vec[i] = v
	}
	return vec, true
}

func embedDistance(song *models.Track, embedding []float64) float64 {
	if len(embedding) != EmbeddingSize {
		return math.Inf(1)
	}
	vec, ok := songVector(song)
	if !ok {
		return math.Inf(1)
	}

	var sum float64
	for i := range EmbeddingSize {
		a, b := vec[i], embedding[i]
		switch i {
		case loudnessIndex:
			a, b = a/loudnessScale, b/loudnessScale
		case tempoIndex:
			a, b = a/tempoScale, b/tempoScale
		}
		sum += (a - b) * (a - b)
	}
	return math.Sqrt(sum)
}

func genreMatch(song []string, counts map[string]int) float64 {
	set := make(map[string]struct{}, len(song))
	for _, g := range song {
		set[g] = struct{}{}
	}
	if len(set) == 0 {
		return 0
	}

	matched := 0
	for g := range set {
		if counts[g] >= minGenreCount {
			matched++
		}
	}
	return float64(matched) / float64(len(set))
}

// ActivePlaylists returns the stats whose lowercased name is not skipped, ordered by playlist id.
func ActivePlaylists(stats map[string]PlaylistStats, skipped func(name string) bool) []PlaylistStats {
	active := make([]PlaylistStats, 0, len(stats))
	for _, s := range stats {
		if skipped != nil && skipped(strings.ToLower(s.Name)) {
			continue
		}
		active = append(active, s)
	}
	slices.SortFunc(active, func(a, b PlaylistStats) int {
		return cmp.Compare(a.PlaylistID, b.PlaylistID)
	})
	return active
}

// Rank scores song against every playlist and keeps the best topN per component.
// Ties keep the order of playlists.
func Rank(song Song, playlists []PlaylistStats, topN int) Ranking {
	if topN <= 0 {
		topN = DefaultTopN
	}

	scores := make([]Score, len(playlists))
	for i := range playlists {
		scores[i] = ScorePlaylist(song.Track, &playlists[i])
	}

	ascending := func(f func(Score) float64) []Score {
		return top(scores, topN, func(a, b Score) int { return cmp.Compare(f(a), f(b)) })
	}

	return Ranking{
		Song:    song.Name,
		URI:     song.Track.URI,
		Overall: ascending(func(s Score) float64 { return s.Total }),
		Embed:   ascending(func(s Score) float64 { return s.Embed }),
		Genre:   top(scores, topN, func(a, b Score) int { return cmp.Compare(b.Genre, a.Genre) }),
		Mood:    ascending(func(s Score) float64 { return s.Mood }),
		Tempo:   ascending(func(s Score) float64 { return s.Tempo }),
	}
}

func top(scores []Score, n int, compare func(a, b Score) int) []Score {
	sorted := slices.Clone(scores)
	slices.SortStableFunc(sorted, compare)
	return sorted[:min(n, len(sorted))]
}

// RankSongs ranks every song in parallel. The result keeps the order of songs.
func RankSongs(songs []Song, playlists []PlaylistStats, topN int) []Ranking {
	return iter.Map(songs, func(song *Song) Ranking {
		return Rank(*song, playlists, topN)
	})
}
