package formatter

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chapi192/SpotifyMatcher/internal/analysis"
	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

func count(n int) string {
	return humanize.Comma(int64(n))
}

// SyncSummary describes a finished sync.
func SyncSummary(result *tasks.SyncResult) string {
	if result == nil {
		return "Sync produced no result\n"
	}

	var b strings.Builder
	tracks := 0
	if result.Snapshot != nil {
		tracks = len(result.Snapshot.Tracks)
	}

	fmt.Fprintf(&b, "Remote playlists: %s\n", count(result.RemoteTotal))
	fmt.Fprintf(&b, "  changed:   %s\n", count(len(result.Changed)))
	fmt.Fprintf(&b, "  unchanged: %s\n", count(len(result.Unchanged)))
	fmt.Fprintf(&b, "  skipped:   %s\n", count(len(result.Skipped)))
	if len(result.Pruned) > 0 {
		fmt.Fprintf(&b, "  pruned:    %s\n", count(len(result.Pruned)))
	}
	fmt.Fprintf(&b, "Tracks upserted: %s (%s in library)\n", count(result.TracksUpserted), count(tracks))
	fmt.Fprintf(&b, "Artist lookups: %s\n", count(result.GenreLookups))
	return b.String()
}

// ImportSummary describes a feature import.
func ImportSummary(s tasks.ImportSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rows processed: %s\n", count(s.RowsProcessed))
	fmt.Fprintf(&b, "  without URI:        %s\n", count(s.RowsWithoutURI))
	fmt.Fprintf(&b, "  not in library:     %s\n", count(s.MissingInLibrary))
	fmt.Fprintf(&b, "  malformed fields:   %s\n", count(s.MalformedFields))
	fmt.Fprintf(&b, "Audio fields updated: %s\n", count(s.AudioFieldsUpdated))
	fmt.Fprintf(&b, "Genre lists updated:  %s\n", count(s.GenreListsUpdated))
	fmt.Fprintf(&b, "Tracks touched:       %s\n", count(s.TracksTouched))
	return b.String()
}

// LibrarySummary describes a complete-library rebuild.
func LibrarySummary(r *tasks.LibraryResult) string {
	var b strings.Builder
	verb := "Found"
	if r.Created {
		verb = "Created"
	}
	fmt.Fprintf(&b, "%s playlist %s\n", verb, r.PlaylistID)
	fmt.Fprintf(&b, "Tracks added: %s (%s already present)\n", count(r.Added), count(r.Existing))
	if r.Invalid > 0 {
		fmt.Fprintf(&b, "Invalid URIs skipped: %s\n", count(r.Invalid))
	}
	if len(r.Rejected) > 0 {
		fmt.Fprintf(&b, "Rejected by service: %s\n", count(len(r.Rejected)))
		for _, uri := range r.Rejected {
			fmt.Fprintf(&b, "  %s\n", uri)
		}
	}
	return b.String()
}

// StatsSummary lists each playlist's track count and median tempo, ordered by name.
func StatsSummary(stats map[string]analysis.PlaylistStats) string {
	list := make([]analysis.PlaylistStats, 0, len(stats))
	for _, st := range stats {
		list = append(list, st)
	}
	slices.SortFunc(list, func(a, b analysis.PlaylistStats) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.PlaylistID, b.PlaylistID)
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Playlists: %s\n", count(len(list)))
	for _, st := range list {
		tempo := "-"
		if v, ok := st.Median(models.Tempo); ok {
			tempo = fmt.Sprintf("%.0f bpm", v)
		}
		fmt.Fprintf(&b, "  %-32s %6s tracks  %s\n", st.Name, count(st.TrackCount), tempo)
	}
	return b.String()
}

// HistoryTable renders sync runs relative to now.
func HistoryTable(runs []*models.SyncRun, now time.Time) string {
	if len(runs) == 0 {
		return "No sync runs recorded\n"
	}

	var b strings.Builder
	for _, run := range runs {
		when := humanize.RelTime(run.StartedAt, now, "ago", "from now")
		took := "-"
		if d := run.Duration(); d > 0 {
			took = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(&b, "%s  %-9s %-16s %8s  changed %s/%s  tracks %s\n",
			run.ID[:min(8, len(run.ID))],
			run.Status,
			when,
			took,
			count(run.PlaylistsChanged),
			count(run.PlaylistsTotal),
			count(run.TracksTotal),
		)
		if run.Error != "" {
			fmt.Fprintf(&b, "          error: %s\n", run.Error)
		}
	}
	return b.String()
}
