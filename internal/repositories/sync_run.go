package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// SyncRunRepository records sync runs and the playlists each one re-fetched.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Start inserts a running sync run with a generated ID.
func (r *SyncRunRepository) Start(startedAt time.Time) (*models.SyncRun, error) {
	run := &models.SyncRun{
		ID:        shared.GenerateID(),
		StartedAt: startedAt,
		Status:    models.RunRunning,
	}

	query := `INSERT INTO sync_runs (id, started_at, status) VALUES (?, ?, ?)`
	if _, err := r.db.Exec(query, run.ID, run.StartedAt, run.Status); err != nil {
		return nil, fmt.Errorf("failed to insert sync run: %w", err)
	}
	return run, nil
}

// Finish stores the final counts and status of run.
func (r *SyncRunRepository) Finish(run *models.SyncRun) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	query := `
		UPDATE sync_runs
		SET finished_at = ?, status = ?, playlists_total = ?, playlists_changed = ?,
			playlists_unchanged = ?, playlists_skipped = ?, playlists_pruned = ?,
			tracks_total = ?, tracks_upserted = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		*run.FinishedAt,
		run.Status,
		run.PlaylistsTotal,
		run.PlaylistsChanged,
		run.PlaylistsUnchanged,
		run.PlaylistsSkipped,
		run.PlaylistsPruned,
		run.TracksTotal,
		run.TracksUpserted,
		run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, run.ID)
	}
	return nil
}

// RecordChanges stores the playlists re-fetched by run in one transaction.
func (r *SyncRunRepository) RecordChanges(runID string, changes []models.PlaylistChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO playlist_changes (run_id, playlist_id, name, stored_count, remote_count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		if _, err := stmt.Exec(runID, c.PlaylistID, c.Name, c.StoredCount, c.RemoteCount); err != nil {
			return fmt.Errorf("failed to insert playlist change %s: %w", c.PlaylistID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist changes: %w", err)
	}
	return nil
}

// Get retrieves a sync run by ID.
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, playlists_total, playlists_changed,
			playlists_unchanged, playlists_skipped, playlists_pruned, tracks_total,
			tracks_upserted, error
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first. A limit of zero or less returns every run.
func (r *SyncRunRepository) List(limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, playlists_total, playlists_changed,
			playlists_unchanged, playlists_skipped, playlists_pruned, tracks_total,
			tracks_upserted, error
		FROM sync_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Changes returns the playlists re-fetched by a run, ordered by name.
func (r *SyncRunRepository) Changes(runID string) ([]models.PlaylistChange, error) {
	rows, err := r.db.Query(`
		SELECT run_id, playlist_id, name, stored_count, remote_count
		FROM playlist_changes
		WHERE run_id = ?
		ORDER BY name ASC, playlist_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist changes: %w", err)
	}
	defer rows.Close()

	var changes []models.PlaylistChange
	for rows.Next() {
		var c models.PlaylistChange
		if err := rows.Scan(&c.RunID, &c.PlaylistID, &c.Name, &c.StoredCount, &c.RemoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist change: %w", err)
		}
		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return changes, nil
}

// Delete removes a run and, through the foreign key, its playlist changes.
func (r *SyncRunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sync_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.SyncRun]
func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.StartedAt,
		&finishedAt,
		&run.Status,
		&run.PlaylistsTotal,
		&run.PlaylistsChanged,
		&run.PlaylistsUnchanged,
		&run.PlaylistsSkipped,
		&run.PlaylistsPruned,
		&run.TracksTotal,
		&run.TracksUpserted,
		&run.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
