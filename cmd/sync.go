package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/chapi192/SpotifyMatcher/internal/formatter"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
	"github.com/chapi192/SpotifyMatcher/internal/ui"
)

// Sync merges the remote library into the snapshot and records the run in the history database.
//
// The snapshot files are only replaced when the whole run succeeds.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		logPath := filepath.Join(r.config.Library.DataDir, "sync-tui.log")
		fileLogger, err := shared.NewFileLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		fileLogger.SetLevel(r.logger.GetLevel())
		r.logger = fileLogger
	}

	library, err := r.remoteLibrary(ctx)
	if err != nil {
		return err
	}

	store := r.snapshotStore()
	prev, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	skip, err := shared.LoadSkipList(r.config.Library.SkipFile)
	if err != nil {
		return err
	}

	opts := tasks.SyncOptions{SkipNames: skip, PruneMissing: cmd.Bool("prune")}
	engine := tasks.NewSyncEngine(library, r.config.Sync.ArtistBatchSize)

	r.logger.Info("starting sync",
		"tracks", len(prev.Tracks),
		"playlists", len(prev.Playlists),
		"skip", len(skip),
		"prune", opts.PruneMissing,
	)

	history := r.openHistory()
	defer history.Close()
	history.start(r.now())

	run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
		result, err := engine.Run(ctx, progress, prev, opts)
		if err == nil {
			if err = store.Save(result.Snapshot); err != nil {
				err = fmt.Errorf("failed to save snapshot: %w", err)
			}
		}
		history.finish(r.now(), engine.Changes(), result, err)
		return result, err
	}

	if cmd.Bool("tui") {
		return r.syncTUI(ctx, run)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	drained := r.drainProgress(progress, "Syncing")
	result, err := run(ctx, progress)
	close(progress)
	<-drained

	if err != nil {
		return err
	}

	for _, change := range engine.Changes() {
		r.logger.Info("playlist changed", "name", change.Name, "remote", change.RemoteCount, "stored", change.StoredCount)
	}

	r.writePlainHeader("Sync Complete!")
	r.writePlain("%s", formatter.SyncSummary(result))
	return nil
}

// syncTUI runs the sync inside the bubbletea progress view.
func (r *Runner) syncTUI(ctx context.Context, run ui.SyncFunc) error {
	model := ui.NewModel(ctx, run)
	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	model.Wait()
	result, err := model.Result()
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("sync interrupted")
	}
	return nil
}
