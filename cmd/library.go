package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/chapi192/SpotifyMatcher/internal/formatter"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// Library adds every synced track to the complete-library playlist, creating it when needed.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	editor, err := r.playlistEditor(ctx)
	if err != nil {
		return err
	}

	snap, err := r.snapshotStore().Load()
	if err != nil {
		return err
	}

	opts := tasks.LibraryOptions{
		PlaylistName: orDefault(cmd.String("name"), r.config.CompleteLibrary.PlaylistName),
		BatchSize:    r.config.CompleteLibrary.BatchSize,
	}
	r.logger.Info("building complete library", "playlist", opts.PlaylistName, "tracks", len(snap.Tracks))

	progress := make(chan tasks.ProgressUpdate, 50)
	drained := r.drainProgress(progress, "Adding tracks")
	result, err := tasks.BuildCompleteLibrary(ctx, progress, editor, snap, opts)
	close(progress)
	<-drained

	if err != nil {
		return err
	}

	for _, uri := range result.Rejected {
		r.logger.Warn("track rejected", "uri", uri)
	}

	r.writePlainHeader("Complete Library Updated!")
	r.writePlain("%s", formatter.LibrarySummary(result))
	return nil
}
