package analysis

import (
	"math"
	"slices"
	"testing"

	"github.com/chapi192/SpotifyMatcher/internal/models"
)

func floatEquals(a, b, eps float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= eps
}

func ptr[T any](v T) *T { return &v }

// featureTrack builds a track with all nine continuous features set.
func featureTrack(uri string, dance, energy, valence, acoustic, instr, speech, live, loud, tempo float64) *models.Track {
	t := models.NewTrack(uri)
	t.Danceability = ptr(dance)
	t.Energy = ptr(energy)
	t.Valence = ptr(valence)
	t.Acousticness = ptr(acoustic)
	t.Instrumentalness = ptr(instr)
	t.Speechiness = ptr(speech)
	t.Liveness = ptr(live)
	t.Loudness = ptr(loud)
	t.Tempo = ptr(tempo)
	return t
}

func library(tracks ...*models.Track) (map[string]*models.Track, []string) {
	m := make(map[string]*models.Track, len(tracks))
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		m[t.URI] = t
		uris = append(uris, t.URI)
	}
	return m, uris
}

func TestBuildStats(t *testing.T) {
	t.Run("Embedding Determinism", func(t *testing.T) {
		tracks, uris := library(
			featureTrack("a", 0.2, 0.5, 0.3, 0.1, 0.0, 0.05, 0.15, -6.0, 120),
			featureTrack("b", 0.4, 0.5, 0.3, 0.1, 0.0, 0.05, 0.15, -6.0, 120),
			featureTrack("c", 0.6, 0.5, 0.3, 0.1, 0.0, 0.05, 0.15, -6.0, 120),
		)
		playlists := map[string]*models.Playlist{"p": {ID: "p", Name: "P", ContainedTracks: uris}}

		stats := BuildStats(tracks, playlists)["p"]
		want := []float64{0.4, 0.5, 0.3, 0.1, 0.0, 0.05, 0.15, 6.0, 0.6}
		if len(stats.EmbeddingVector) != len(want) {
			t.Fatalf("expected %d dimensions, got %d", len(want), len(stats.EmbeddingVector))
		}
		for i := range want {
			if !floatEquals(stats.EmbeddingVector[i], want[i], 1e-9) {
				t.Errorf("dimension %d: expected %v, got %v", i, want[i], stats.EmbeddingVector[i])
			}
		}
	})

	t.Run("Summary Statistics", func(t *testing.T) {
		tr := func(uri string, e float64) *models.Track {
			t := models.NewTrack(uri)
			t.Energy = ptr(e)
			return t
		}
		tracks, uris := library(tr("a", 1), tr("b", 2), tr("c", 3), tr("d", 4))
		stats := BuildStats(tracks, map[string]*models.Playlist{"p": {ID: "p", ContainedTracks: uris}})["p"]

		got := stats.AudioStats[models.Energy]
		want := FeatureSummary{Mean: 2.5, Median: 2.5, Stdev: math.Sqrt(1.25), Min: 1, Max: 4, P25: 1.75, P75: 3.25}
		for name, pair := range map[string][2]float64{
			"mean": {got.Mean, want.Mean}, "median": {got.Median, want.Median}, "stdev": {got.Stdev, want.Stdev},
			"min": {got.Min, want.Min}, "max": {got.Max, want.Max}, "p25": {got.P25, want.P25}, "p75": {got.P75, want.P75},
		} {
			if !floatEquals(pair[0], pair[1], 1e-9) {
				t.Errorf("%s: expected %v, got %v", name, pair[1], pair[0])
			}
		}

		if _, ok := stats.AudioStats[models.Tempo]; ok {
			t.Error("expected tempo omitted when no track supplies it")
		}
		if stats.EmbeddingVector[8] != 0 {
			t.Errorf("expected missing tempo to embed as 0, got %v", stats.EmbeddingVector[8])
		}
	})

	t.Run("Frequencies And Histograms", func(t *testing.T) {
		a := models.NewTrack("a")
		a.Genres = []string{"rock", "pop"}
		a.Artists = []string{"X", "Y"}
		a.Key = ptr(1)
		a.Mode = ptr(1)
		b := models.NewTrack("b")
		b.Genres = []string{"rock"}
		b.Artists = []string{"X"}
		b.Key = ptr(1)
		b.Mode = ptr(0)
		c := models.NewTrack("c")
		c.Mode = ptr(1)

		tracks, uris := library(a, b, c)
		uris = append(uris, "dangling")
		stats := BuildStats(tracks, map[string]*models.Playlist{"p": {ID: "p", Name: "Mix", ContainedTracks: uris}})["p"]

		if stats.TrackCount != 3 {
			t.Errorf("expected dangling uri skipped, got %d tracks", stats.TrackCount)
		}
		if stats.GenreCounts["rock"] != 2 || stats.GenreCounts["pop"] != 1 || stats.UniqueGenres != 2 {
			t.Errorf("unexpected genre counts %v", stats.GenreCounts)
		}
		if stats.ArtistCounts["X"] != 2 || stats.UniqueArtists != 2 {
			t.Errorf("unexpected artist counts %v", stats.ArtistCounts)
		}
		if len(stats.KeyDistribution) != 12 || stats.KeyDistribution["1"] != 2 {
			t.Errorf("unexpected key distribution %v", stats.KeyDistribution)
		}
		if stats.MostCommonKey != "1" {
			t.Errorf("expected most common key 1, got %s", stats.MostCommonKey)
		}
		if !floatEquals(stats.PercentMajor, 2.0/3.0, 1e-9) {
			t.Errorf("expected 2/3 major, got %v", stats.PercentMajor)
		}
		if stats.Name != "Mix" || stats.PlaylistID != "p" {
			t.Errorf("unexpected identity %s/%s", stats.PlaylistID, stats.Name)
		}
	})

	t.Run("Percent Major Defaults", func(t *testing.T) {
		tracks, uris := library(models.NewTrack("a"))
		stats := BuildStats(tracks, map[string]*models.Playlist{"p": {ID: "p", ContainedTracks: uris}})["p"]
		if stats.PercentMajor != 0.5 {
			t.Errorf("expected 0.5, got %v", stats.PercentMajor)
		}
	})

	t.Run("Skips Empty Playlists", func(t *testing.T) {
		tracks, _ := library(models.NewTrack("a"))
		out := BuildStats(tracks, map[string]*models.Playlist{
			"empty":    {ID: "empty", ContainedTracks: []string{}},
			"dangling": {ID: "dangling", ContainedTracks: []string{"missing"}},
		})
		if len(out) != 0 {
			t.Errorf("expected no stats, got %v", out)
		}
	})

	t.Run("Most Common Key Tie Break", func(t *testing.T) {
		tc := []struct {
			name string
			dist map[string]int
			want string
		}{
			{name: "first of tie", dist: map[string]int{"0": 3, "1": 3, "2": 1}, want: "0"},
			{name: "string order", dist: map[string]int{"10": 2, "2": 2, "3": 0}, want: "10"},
			{name: "all zero", dist: map[string]int{"0": 0, "1": 0, "11": 0}, want: "0"},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := mostCommon(tt.dist); got != tt.want {
					t.Errorf("expected %s, got %s", tt.want, got)
				}
			})
		}
	})
}

func statsFor(id, name string, tracks ...*models.Track) PlaylistStats {
	m, uris := library(tracks...)
	return BuildStats(m, map[string]*models.Playlist{id: {ID: id, Name: name, ContainedTracks: uris}})[id]
}

func TestScorePlaylist(t *testing.T) {
	calm := statsFor("calm", "Calm",
		featureTrack("a", 0.2, 0.2, 0.2, 0.9, 0.5, 0.03, 0.1, -15, 80),
		featureTrack("b", 0.3, 0.3, 0.3, 0.8, 0.4, 0.04, 0.1, -14, 90),
	)

	t.Run("Identical Song", func(t *testing.T) {
		song := featureTrack("s", 0.25, 0.25, 0.25, 0.85, 0.45, 0.035, 0.1, -14.5, 85)
		s := ScorePlaylist(song, &calm)

		// loudness is raw on the song side and absolute on the playlist side,
		// and the playlist tempo is scaled twice
		want := math.Hypot(-14.5/20-14.5/20, 85.0/200-85.0/200/200)
		if !floatEquals(s.Embed, want, 1e-9) {
			t.Errorf("expected embed %v, got %v", want, s.Embed)
		}
		if !floatEquals(s.Mood, 0, 1e-9) || !floatEquals(s.Tempo, 0, 1e-9) {
			t.Errorf("expected zero mood and tempo, got %v %v", s.Mood, s.Tempo)
		}
		wantTotal := EmbedWeight*want + GenreWeight*1
		if !floatEquals(s.Total, wantTotal, 1e-9) {
			t.Errorf("expected total %v, got %v", wantTotal, s.Total)
		}
	})

	t.Run("Infinity Propagation", func(t *testing.T) {
		song := featureTrack("s", 0.25, 0.25, 0.25, 0.85, 0.45, 0.035, 0.1, -14.5, 85)
		song.Tempo = nil
		s := ScorePlaylist(song, &calm)

		if !math.IsInf(s.Tempo, 1) || !math.IsInf(s.Embed, 1) || !math.IsInf(s.Total, 1) {
			t.Errorf("expected infinite tempo, embed and total, got %+v", s)
		}
		if math.IsInf(s.Mood, 1) {
			t.Error("expected finite mood")
		}
	})

	t.Run("Missing Embedding", func(t *testing.T) {
		song := featureTrack("s", 0.25, 0.25, 0.25, 0.85, 0.45, 0.035, 0.1, -14.5, 85)
		if s := ScorePlaylist(song, &PlaylistStats{}); !math.IsInf(s.Embed, 1) {
			t.Errorf("expected infinite embed, got %v", s.Embed)
		}
	})

	t.Run("Genre Match", func(t *testing.T) {
		stats := &PlaylistStats{GenreCounts: map[string]int{"rock": 2, "pop": 1, "jazz": 5}}
		tc := []struct {
			name   string
			genres []string
			want   float64
		}{
			{name: "empty song genres", genres: nil, want: 0},
			{name: "all frequent", genres: []string{"rock", "jazz"}, want: 1},
			{name: "rare genre ignored", genres: []string{"rock", "pop"}, want: 0.5},
			{name: "duplicates count once", genres: []string{"rock", "rock", "metal"}, want: 0.5},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				song := models.NewTrack("s")
				song.Genres = tt.genres
				if got := ScorePlaylist(song, stats).Genre; !floatEquals(got, tt.want, 1e-9) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			})
		}
	})
}

func TestRank(t *testing.T) {
	playlists := []PlaylistStats{
		statsFor("a", "Slow", featureTrack("1", 0.2, 0.2, 0.2, 0.8, 0.1, 0.05, 0.1, -12, 70)),
		statsFor("b", "Mid", featureTrack("2", 0.5, 0.5, 0.5, 0.5, 0.1, 0.05, 0.1, -8, 110)),
		statsFor("c", "Fast", featureTrack("3", 0.8, 0.9, 0.8, 0.1, 0.1, 0.05, 0.1, -4, 170)),
	}

	t.Run("Orders Each Component", func(t *testing.T) {
		song := featureTrack("s", 0.5, 0.5, 0.5, 0.5, 0.1, 0.05, 0.1, -8, 112)
		r := Rank(Song{Name: "Song", Track: song}, playlists, 2)

		if r.Song != "Song" || r.URI != "s" {
			t.Errorf("unexpected identity %s/%s", r.Song, r.URI)
		}
		for name, list := range map[string][]Score{"overall": r.Overall, "embed": r.Embed, "mood": r.Mood, "tempo": r.Tempo} {
			if len(list) != 2 {
				t.Fatalf("%s: expected 2 entries, got %d", name, len(list))
			}
			if list[0].PlaylistID != "b" {
				t.Errorf("%s: expected Mid first, got %s", name, list[0].Name)
			}
		}
	})

	t.Run("Genre Descending With Stable Ties", func(t *testing.T) {
		song := models.NewTrack("s")
		song.Genres = []string{"rock"}
		withRock := statsFor("z", "Rock", func() *models.Track {
			a := models.NewTrack("r1")
			a.Genres = []string{"rock"}
			return a
		}())
		withRock.GenreCounts["rock"] = 2

		r := Rank(Song{Track: song}, append(slices.Clone(playlists), withRock), 5)
		if r.Genre[0].PlaylistID != "z" {
			t.Errorf("expected rock playlist first, got %s", r.Genre[0].PlaylistID)
		}
		if ids := []string{r.Genre[1].PlaylistID, r.Genre[2].PlaylistID, r.Genre[3].PlaylistID}; !slices.Equal(ids, []string{"a", "b", "c"}) {
			t.Errorf("expected ties in input order, got %v", ids)
		}
	})

	t.Run("Infinite Tempo Sorts Last", func(t *testing.T) {
		noTempo := statsFor("0", "No Tempo", func() *models.Track {
			tr := models.NewTrack("x")
			tr.Valence = ptr(0.5)
			return tr
		}())
		song := featureTrack("s", 0.5, 0.5, 0.5, 0.5, 0.1, 0.05, 0.1, -8, 112)

		r := Rank(Song{Track: song}, append([]PlaylistStats{noTempo}, playlists...), 3)
		for _, s := range r.Tempo {
			if s.PlaylistID == "0" {
				t.Error("expected playlist without tempo excluded from top 3")
			}
		}

		r = Rank(Song{Track: song}, append([]PlaylistStats{noTempo}, playlists...), 10)
		if len(r.Tempo) != 4 || r.Tempo[3].PlaylistID != "0" {
			t.Errorf("expected playlist without tempo last, got %+v", r.Tempo)
		}
	})

	t.Run("Default Top N", func(t *testing.T) {
		song := featureTrack("s", 0.5, 0.5, 0.5, 0.5, 0.1, 0.05, 0.1, -8, 112)
		if r := Rank(Song{Track: song}, playlists, 0); len(r.Overall) != 3 {
			t.Errorf("expected all 3 playlists under the default, got %d", len(r.Overall))
		}
	})
}

func TestRankSongs(t *testing.T) {
	playlists := []PlaylistStats{
		statsFor("a", "A", featureTrack("1", 0.2, 0.2, 0.2, 0.8, 0.1, 0.05, 0.1, -12, 70)),
		statsFor("b", "B", featureTrack("2", 0.8, 0.9, 0.8, 0.1, 0.1, 0.05, 0.1, -4, 170)),
	}

	songs := make([]Song, 20)
	for i := range songs {
		songs[i] = Song{Name: string(rune('A' + i)), Track: models.NewTrack(string(rune('a' + i)))}
	}

	rankings := RankSongs(songs, playlists, 1)
	if len(rankings) != len(songs) {
		t.Fatalf("expected %d rankings, got %d", len(songs), len(rankings))
	}
	for i, r := range rankings {
		if r.Song != songs[i].Name {
			t.Errorf("expected ranking %d for %s, got %s", i, songs[i].Name, r.Song)
		}
	}
}

func TestActivePlaylists(t *testing.T) {
	stats := map[string]PlaylistStats{
		"b": {PlaylistID: "b", Name: "Workout"},
		"a": {PlaylistID: "a", Name: "Chill"},
		"c": {PlaylistID: "c", Name: "Focus"},
	}
	skipped := func(name string) bool { return name == "workout" }

	active := ActivePlaylists(stats, skipped)
	var ids []string
	for _, s := range active {
		ids = append(ids, s.PlaylistID)
	}
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Errorf("expected [a c], got %v", ids)
	}
}
