package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/chapi192/SpotifyMatcher/internal/analysis"
	"github.com/chapi192/SpotifyMatcher/internal/formatter"
	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// Import fills missing audio features and genres in the tracks file from a CSV export.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a feature CSV", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()

	rows, err := formatter.ReadFeatureRows(f)
	if err != nil {
		return err
	}

	store := r.snapshotStore()
	tracks, err := store.LoadTracks()
	if err != nil {
		return err
	}

	r.logger.Info("importing features", "file", path, "rows", len(rows), "tracks", len(tracks))

	progress := make(chan tasks.ProgressUpdate, 50)
	drained := r.drainProgress(progress, "Importing")
	summary := tasks.MergeFeatures(progress, tracks, rows)
	close(progress)
	<-drained

	if summary.TracksTouched > 0 {
		if err := store.SaveTracks(tracks); err != nil {
			return err
		}
	}

	r.writePlainHeader("Import Complete!")
	r.writePlain("%s", formatter.ImportSummary(summary))
	return nil
}

// activePlaylists drops skip-listed playlists from the snapshot.
func activePlaylists(snap *models.Snapshot, skip shared.SkipList) map[string]*models.Playlist {
	active := make(map[string]*models.Playlist, len(snap.Playlists))
	for id, pl := range snap.Playlists {
		if skip.Contains(pl.Name) {
			continue
		}
		active[id] = pl
	}
	return active
}

// Stats computes per-playlist statistics and writes the stats artifact.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	store := r.snapshotStore()
	snap, err := store.LoadExisting()
	if err != nil {
		return err
	}

	skip, err := shared.LoadSkipList(r.config.Library.SkipFile)
	if err != nil {
		return err
	}

	playlists := activePlaylists(snap, skip)
	stats := analysis.BuildStats(snap.Tracks, playlists)
	r.logger.Info("computed playlist stats",
		"playlists", len(stats),
		"skipped", len(snap.Playlists)-len(playlists),
	)

	if err := r.statsStore().Save(stats); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlain("%s", formatter.StatsSummary(stats))
	r.writePlain("Stats written to %s\n", r.config.Library.StatsPath())
	return nil
}

// Recommend ranks the active playlists for every liked song and writes the CSV report.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Recommend
	input := orDefault(cmd.String("input"), cfg.LikedSongsFile)
	output := orDefault(cmd.String("output"), cfg.OutputFile)
	topN := cfg.TopN
	if topN <= 0 {
		topN = analysis.DefaultTopN
	}
	if cmd.IsSet("top") {
		topN = cmd.Int("top")
		if topN < 1 {
			return fmt.Errorf("%w: --top must be at least 1, got %d", shared.ErrInvalidFlag, topN)
		}
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open liked songs: %w", err)
	}
	defer f.Close()

	liked, err := formatter.ReadLikedSongs(f)
	if err != nil {
		return err
	}

	tracks, err := r.snapshotStore().LoadTracks()
	if err != nil {
		return err
	}
	stats, err := r.statsStore().Load()
	if err != nil {
		return err
	}
	skip, err := shared.LoadSkipList(r.config.Library.SkipFile)
	if err != nil {
		return err
	}

	playlists := analysis.ActivePlaylists(stats, skip.Contains)

	songs := make([]analysis.Song, 0, len(liked))
	missing := 0
	for _, s := range liked {
		t, ok := tracks[s.URI]
		if !ok {
			missing++
			r.logger.Debug("liked song not in library", "name", s.Name, "uri", s.URI)
			continue
		}
		songs = append(songs, analysis.Song{Name: s.Name, Track: t})
	}

	r.logger.Info("ranking playlists", "songs", len(songs), "playlists", len(playlists), "top", topN)
	rankings := analysis.RankSongs(songs, playlists, topN)

	data, err := formatter.ExportRecommendations(rankings)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.writePlain("Ranked %s songs against %s playlists\n",
		humanize.Comma(int64(len(songs))), humanize.Comma(int64(len(playlists))))
	if missing > 0 {
		r.writePlain("Skipped %s songs missing from the library\n", humanize.Comma(int64(missing)))
	}
	r.writePlain("Report written to %s\n", output)
	return nil
}

// orDefault returns flag when set and fallback otherwise.
func orDefault(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
