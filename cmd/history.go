package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/chapi192/SpotifyMatcher/internal/formatter"
	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/repositories"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// syncHistory records one sync run. A nil or disabled history ignores every call.
type syncHistory struct {
	db     *sql.DB
	repo   *repositories.SyncRunRepository
	run    *models.SyncRun
	logger *log.Logger
}

// openDatabase opens and migrates the history database.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// openHistory opens the history database. Failures are logged and yield a disabled history.
func (r *Runner) openHistory() *syncHistory {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("sync history disabled", "path", r.config.Database.Path, "error", err)
		return nil
	}
	return &syncHistory{db: db, repo: repositories.NewSyncRunRepository(db), logger: r.logger}
}

func (h *syncHistory) start(at time.Time) {
	if h == nil {
		return
	}
	run, err := h.repo.Start(at)
	if err != nil {
		h.logger.Warn("failed to record sync start", "error", err)
		return
	}
	h.run = run
}

func (h *syncHistory) finish(at time.Time, changes []models.PlaylistChange, result *tasks.SyncResult, runErr error) {
	if h == nil || h.run == nil {
		return
	}

	run := h.run
	run.FinishedAt = &at
	run.Status = models.RunSucceeded
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}
	if result != nil {
		run.PlaylistsTotal = result.RemoteTotal
		run.PlaylistsChanged = len(result.Changed)
		run.PlaylistsUnchanged = len(result.Unchanged)
		run.PlaylistsSkipped = len(result.Skipped)
		run.PlaylistsPruned = len(result.Pruned)
		run.TracksUpserted = result.TracksUpserted
		if result.Snapshot != nil {
			run.TracksTotal = len(result.Snapshot.Tracks)
		}
	}

	if err := h.repo.Finish(run); err != nil {
		h.logger.Warn("failed to record sync result", "run", run.ID, "error", err)
		return
	}
	if runErr == nil {
		if err := h.repo.RecordChanges(run.ID, changes); err != nil {
			h.logger.Warn("failed to record playlist changes", "run", run.ID, "error", err)
		}
	}
}

// Close releases the database.
func (h *syncHistory) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}

// History lists recent sync runs, or the playlists one run re-fetched.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: --limit must be at least 1, got %d", shared.ErrInvalidFlag, limit)
	}

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	repo := repositories.NewSyncRunRepository(db)

	if id := cmd.String("run"); id != "" {
		run, err := repo.Get(id)
		if err != nil {
			return err
		}
		changes, err := repo.Changes(id)
		if err != nil {
			return err
		}

		r.writePlain("%s", formatter.HistoryTable([]*models.SyncRun{run}, r.now()))
		if len(changes) == 0 {
			r.writePlain("No playlists re-fetched\n")
			return nil
		}
		r.writePlain("Re-fetched playlists:\n")
		for _, c := range changes {
			r.writePlain("  %-32s %s → %s tracks\n",
				c.Name, humanize.Comma(int64(c.StoredCount)), humanize.Comma(int64(c.RemoteCount)))
		}
		return nil
	}

	runs, err := repo.List(limit)
	if err != nil {
		return err
	}
	r.writePlain("%s", formatter.HistoryTable(runs, r.now()))
	return nil
}
