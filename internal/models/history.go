package models

import "time"

// Sync run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// SyncRun is one row of sync history.
type SyncRun struct {
	ID                 string
	StartedAt          time.Time
	FinishedAt         *time.Time
	Status             string
	PlaylistsTotal     int
	PlaylistsChanged   int
	PlaylistsUnchanged int
	PlaylistsSkipped   int
	PlaylistsPruned    int
	TracksTotal        int
	TracksUpserted     int
	Error              string
}

// Duration returns how long the run took, or zero while it is still running.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PlaylistChange is a playlist re-fetched during a sync run.
type PlaylistChange struct {
	RunID       string
	PlaylistID  string
	Name        string
	StoredCount int
	RemoteCount int
}
