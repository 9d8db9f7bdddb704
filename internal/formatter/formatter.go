// package formatter reads the tabular inputs and renders the reports and summaries of each command
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chapi192/SpotifyMatcher/internal/analysis"
	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

const (
	utf8BOM        = "\ufeff"
	trackURIColumn = "Track URI"
	trackNameCol   = "Track Name"
	genresColumn   = "Genres"
)

// ReportHeader is the header row of the recommendation report.
var ReportHeader = []string{"Track Name", "Overall", "Embed", "Genre", "Mood", "Tempo"}

// LikedSong is a song to place, as listed in a liked-songs export.
type LikedSong struct {
	Name string
	URI  string
}

// header maps column names to indexes. A byte-order mark on the first column is dropped.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	cols, err := r.Read()
	if errors.Is(err, io.EOF) {
		return header{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	h := make(header, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		if _, ok := h[c]; !ok {
			h[c] = i
		}
	}
	return h, nil
}

// get returns the cell under column, or "" when the row is short or the column absent.
func (h header) get(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// lookup finds a column by case-insensitive name.
func (h header) lookup(name string) (string, bool) {
	for c := range h {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader
}

// ReadFeatureRows parses an audio-feature export.
//
// Feature columns are matched by case-insensitive name. Rows are returned raw so the merge can
// count unparsable cells.
func ReadFeatureRows(r io.Reader) ([]models.FeatureRow, error) {
	reader := newReader(r)
	h, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]string, len(models.Features))
	for _, feature := range models.Features {
		if c, ok := h.lookup(feature); ok {
			columns[feature] = c
		}
	}
	genreCol, hasGenres := h.lookup(genresColumn)

	var rows []models.FeatureRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRow, err)
		}

		row := models.FeatureRow{
			URI:    strings.TrimSpace(h.get(record, trackURIColumn)),
			Values: make(map[string]string, len(columns)),
		}
		for feature, c := range columns {
			row.Values[feature] = h.get(record, c)
		}
		if hasGenres {
			row.Genres = h.get(record, genreCol)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadLikedSongs parses a liked-songs export. Rows without a URI are dropped.
func ReadLikedSongs(r io.Reader) ([]LikedSong, error) {
	reader := newReader(r)
	h, err := readHeader(reader)
	if err != nil {
		return nil, err
	}
	if _, ok := h[trackURIColumn]; !ok {
		return nil, fmt.Errorf("%w: missing %q column", shared.ErrInvalidInput, trackURIColumn)
	}

	var songs []LikedSong
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRow, err)
		}

		uri := strings.TrimSpace(h.get(record, trackURIColumn))
		if uri == "" {
			continue
		}
		songs = append(songs, LikedSong{Name: h.get(record, trackNameCol), URI: uri})
	}
	return songs, nil
}

// ExportRecommendations renders rankings as CSV.
//
// Each song gets one row per ranked playlist (at least one), with the song name in the first row
// only, followed by a blank record.
func ExportRecommendations(rankings []analysis.Ranking) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(ReportHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range rankings {
		rows := max(len(r.Overall), 1)
		for i := range rows {
			name := ""
			if i == 0 {
				name = r.Song
			}
			record := []string{
				name,
				nameAt(r.Overall, i),
				nameAt(r.Embed, i),
				nameAt(r.Genre, i),
				nameAt(r.Mood, i),
				nameAt(r.Tempo, i),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		if err := writer.Write([]string{}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func nameAt(scores []analysis.Score, i int) string {
	if i >= len(scores) {
		return ""
	}
	return scores[i].Name
}
