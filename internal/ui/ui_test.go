package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/tasks"
)

// drive runs the sync command loop until the model leaves the sync view.
func drive(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.startSync()
	for range 100 {
		if cmd == nil {
			t.Fatal("expected a follow-up command while syncing")
		}
		_, cmd = m.Update(cmd())
		if m.view == ResultView {
			return
		}
	}
	t.Fatal("sync never completed")
}

func TestModel(t *testing.T) {
	t.Run("shows progress then the result", func(t *testing.T) {
		snap := models.NewSnapshot()
		snap.Playlists["p1"] = &models.Playlist{ID: "p1", Name: "Road Trip", ContainedTracks: []string{"spotify:track:1"}}
		snap.Playlists["p2"] = &models.Playlist{ID: "p2", Name: "Quiet"}

		sync := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			progress <- tasks.ProgressUpdate{Phase: tasks.FetchPlaylists, Step: 1, Total: 1, Message: "Found 2 playlists"}
			progress <- tasks.ProgressUpdate{Phase: tasks.MergePlaylist, Step: 1, Total: 2, Message: "merged Road Trip"}
			return &tasks.SyncResult{
				Snapshot:    snap,
				Changed:     []string{"p1"},
				Unchanged:   []string{"p2"},
				RemoteTotal: 2,
			}, nil
		}

		m := NewModel(context.Background(), sync)
		drive(t, m)

		if len(m.log) != 2 || m.log[1] != "merged Road Trip" {
			t.Errorf("expected both messages logged, got %v", m.log)
		}
		result, err := m.Result()
		if err != nil || result == nil {
			t.Fatalf("expected result, got %v, %v", result, err)
		}

		view := m.View()
		if !strings.Contains(view, "Sync complete") {
			t.Errorf("expected completion title, got:\n%s", view)
		}
		if !strings.Contains(view, "Road Trip") {
			t.Errorf("expected changed playlist listed, got:\n%s", view)
		}
		if len(m.changed.Items()) != 1 {
			t.Errorf("expected 1 changed item, got %d", len(m.changed.Items()))
		}
	})

	t.Run("shows sync failure", func(t *testing.T) {
		sync := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error) {
			return nil, errors.New("remote exploded")
		}

		m := NewModel(context.Background(), sync)
		drive(t, m)

		if _, err := m.Result(); err == nil {
			t.Fatal("expected error")
		}
		if view := m.View(); !strings.Contains(view, "remote exploded") {
			t.Errorf("expected error in view, got:\n%s", view)
		}
	})

	t.Run("quit cancels the sync", func(t *testing.T) {
		m := NewModel(context.Background(), nil)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if m.ctx.Err() == nil {
			t.Error("expected context to be cancelled")
		}
	})

	t.Run("progress percent is bounded", func(t *testing.T) {
		tests := []struct {
			name   string
			update tasks.ProgressUpdate
			want   float64
		}{
			{"no total", tasks.ProgressUpdate{Step: 3}, 0},
			{"half", tasks.ProgressUpdate{Step: 1, Total: 2}, 0.5},
			{"overflow", tasks.ProgressUpdate{Step: 5, Total: 2}, 1},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				m := NewModel(context.Background(), nil)
				m.progress = tc.update
				if got := m.percent(); got != tc.want {
					t.Errorf("expected %v, got %v", tc.want, got)
				}
			})
		}
	})

	t.Run("sync view renders phase", func(t *testing.T) {
		m := NewModel(context.Background(), nil)
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.ResolveGenres, Message: "Resolving genres for 3 artists..."}))

		view := m.View()
		if !strings.Contains(view, "resolve_genres") {
			t.Errorf("expected phase name, got:\n%s", view)
		}
		if !strings.Contains(view, "Resolving genres") {
			t.Errorf("expected latest message, got:\n%s", view)
		}
	})
}
