package tasks

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/chapi192/SpotifyMatcher/internal/models"
)

// ImportSummary counts what a feature import changed and what it skipped.
type ImportSummary struct {
	RowsProcessed      int
	RowsWithoutURI     int
	MissingInLibrary   int
	AudioFieldsUpdated int
	GenreListsUpdated  int
	MalformedFields    int
	TracksTouched      int
}

// MergeFeatures fills null audio features and unions genres from external rows into tracks.
//
// Existing feature values are never overwritten. An unparsable cell skips that field only.
// Genre lists are rewritten, lowercased and sorted, only when the row adds a new genre.
func MergeFeatures(progress chan<- ProgressUpdate, tracks map[string]*models.Track, rows []models.FeatureRow) ImportSummary {
	var summary ImportSummary
	total := len(rows)

	for i, row := range rows {
		summary.RowsProcessed++
		if (i+1)%100 == 0 || i+1 == total {
			sendProgress(progress, importRowUpdate(i+1, total))
		}

		uri := strings.TrimSpace(row.URI)
		if uri == "" {
			summary.RowsWithoutURI++
			continue
		}

		t, ok := tracks[uri]
		if !ok {
			summary.MissingInLibrary++
			continue
		}

		touched := false
		for _, name := range models.Features {
			filled, malformed := fillFeature(&t.AudioFeatures, name, row.Values[name])
			if malformed {
				summary.MalformedFields++
			}
			if filled {
				summary.AudioFieldsUpdated++
				touched = true
			}
		}

		if mergeGenres(t, row.Genres) {
			summary.GenreListsUpdated++
			touched = true
		}

		if touched {
			summary.TracksTouched++
		}
	}

	return summary
}

// fillFeature stores raw into the named feature when the feature is null.
func fillFeature(f *models.AudioFeatures, name, raw string) (filled, malformed bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || f.IsSet(name) {
		return false, false
	}

	if models.IsCategorical(name) {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return false, true
		}
		f.SetInt(name, v)
		return true, false
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return false, true
	}
	f.SetFloat(name, v)
	return true, false
}

// mergeGenres unions the comma-delimited genres into the track. It reports whether the set grew.
func mergeGenres(t *models.Track, raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}

	set := make(map[string]struct{}, len(t.Genres))
	for _, g := range t.Genres {
		set[strings.ToLower(g)] = struct{}{}
	}
	before := len(set)

	for g := range strings.SplitSeq(raw, ",") {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		set[g] = struct{}{}
	}

	if len(set) == before {
		return false
	}

	genres := make([]string, 0, len(set))
	for g := range set {
		genres = append(genres, g)
	}
	slices.Sort(genres)
	t.Genres = genres
	return true
}
