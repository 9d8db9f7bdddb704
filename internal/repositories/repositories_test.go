package repositories

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/chapi192/SpotifyMatcher/internal/analysis"
	"github.com/chapi192/SpotifyMatcher/internal/models"
	"github.com/chapi192/SpotifyMatcher/internal/shared"
	tu "github.com/chapi192/SpotifyMatcher/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newStore(t *testing.T) (*SnapshotStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSnapshotStore(filepath.Join(dir, "tracks.json"), filepath.Join(dir, "playlists.json")), dir
}

func sampleSnapshot() *models.Snapshot {
	snap := models.NewSnapshot()
	tr := models.NewTrack("spotify:track:1")
	tr.Name = "One"
	tr.Artists = []string{"A"}
	energy := 0.5
	tr.Energy = &energy
	tr.AssociatedPlaylists = []string{"p1"}
	snap.Tracks[tr.URI] = tr
	snap.Tracks["spotify:track:2"] = models.NewTrack("spotify:track:2")
	snap.Playlists["p1"] = &models.Playlist{ID: "p1", Name: "Mix", ContainedTracks: []string{"spotify:track:1"}}
	return snap
}

func TestSnapshotStore(t *testing.T) {
	t.Run("Missing Files Load Empty", func(t *testing.T) {
		store, _ := newStore(t)
		snap, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(snap.Tracks) != 0 || len(snap.Playlists) != 0 {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		store, _ := newStore(t)
		if err := store.Save(sampleSnapshot()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		snap, err := store.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}

		one := snap.Tracks["spotify:track:1"]
		if one == nil || one.Name != "One" || one.Energy == nil || *one.Energy != 0.5 {
			t.Fatalf("unexpected track %+v", one)
		}
		if one.Danceability != nil {
			t.Error("expected null danceability to stay null")
		}
		if !slices.Equal(one.AssociatedPlaylists, []string{"p1"}) {
			t.Errorf("unexpected associations %v", one.AssociatedPlaylists)
		}
		if !slices.Equal(snap.Playlists["p1"].ContainedTracks, []string{"spotify:track:1"}) {
			t.Errorf("unexpected playlist %+v", snap.Playlists["p1"])
		}
		if err := snap.CheckAssociations(); err != nil {
			t.Errorf("association invariant broken: %v", err)
		}
	})

	t.Run("Writes Explicit Nulls And Empty Lists", func(t *testing.T) {
		store, dir := newStore(t)
		if err := store.Save(sampleSnapshot()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		data := string(tu.MustReadFile(t, filepath.Join(dir, "tracks.json")))
		for _, want := range []string{`"danceability": null`, `"associated_playlists": []`, `"genres": []`, `"track_uri": "spotify:track:2"`} {
			if !strings.Contains(data, want) {
				t.Errorf("expected %s in tracks file", want)
			}
		}
		tu.AssertFileExists(t, filepath.Join(dir, "playlists.json"))

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temp file left behind: %s", e.Name())
			}
		}
	})

	t.Run("Fills Missing Keys", func(t *testing.T) {
		store, dir := newStore(t)
		tu.MustWriteFile(t, dir, "tracks.json", `{"spotify:track:9": {"track_name": "Nine"}}`)
		tu.MustWriteFile(t, dir, "playlists.json", `{"p9": {"name": "Nine"}}`)

		snap, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap.Tracks["spotify:track:9"].URI != "spotify:track:9" {
			t.Error("expected uri taken from key")
		}
		if snap.Tracks["spotify:track:9"].AssociatedPlaylists == nil {
			t.Error("expected normalized associations")
		}
		if snap.Playlists["p9"].ID != "p9" || snap.Playlists["p9"].ContainedTracks == nil {
			t.Errorf("unexpected playlist %+v", snap.Playlists["p9"])
		}
	})

	t.Run("Corrupt File", func(t *testing.T) {
		store, dir := newStore(t)
		tu.MustWriteFile(t, dir, "tracks.json", `{not json`)

		if _, err := store.Load(); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("LoadTracks Requires File", func(t *testing.T) {
		store, _ := newStore(t)
		if _, err := store.LoadTracks(); !errors.Is(err, shared.ErrSnapshotNotFound) {
			t.Errorf("expected ErrSnapshotNotFound, got %v", err)
		}
	})

	t.Run("SaveTracks Leaves Playlists", func(t *testing.T) {
		store, dir := newStore(t)
		if err := store.Save(sampleSnapshot()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		before := tu.MustReadFile(t, filepath.Join(dir, "playlists.json"))

		tracks, err := store.LoadTracks()
		if err != nil {
			t.Fatalf("failed to load tracks: %v", err)
		}
		tracks["spotify:track:2"].Name = "Two"
		if err := store.SaveTracks(tracks); err != nil {
			t.Fatalf("failed to save tracks: %v", err)
		}

		if string(tu.MustReadFile(t, filepath.Join(dir, "playlists.json"))) != string(before) {
			t.Error("expected playlists file untouched")
		}
		reloaded, _ := store.LoadTracks()
		if reloaded["spotify:track:2"].Name != "Two" {
			t.Error("expected track update persisted")
		}
	})

	t.Run("Failed Playlists Write Keeps Previous Pair", func(t *testing.T) {
		dir := t.TempDir()
		tracksPath := filepath.Join(dir, "tracks.json")
		blocker := filepath.Join(dir, "blocker")
		tu.MustWriteFile(t, dir, "blocker", "not a directory")

		good := NewSnapshotStore(tracksPath, filepath.Join(dir, "playlists.json"))
		if err := good.Save(sampleSnapshot()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		before := tu.MustReadFile(t, tracksPath)

		broken := NewSnapshotStore(tracksPath, filepath.Join(blocker, "playlists.json"))
		snap := sampleSnapshot()
		snap.Tracks["spotify:track:3"] = models.NewTrack("spotify:track:3")
		if err := broken.Save(snap); err == nil {
			t.Fatal("expected playlists write to fail")
		}

		if string(tu.MustReadFile(t, tracksPath)) != string(before) {
			t.Error("expected tracks file untouched when playlists could not be written")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read dir: %v", err)
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("expected temp files cleaned up, found %s", e.Name())
			}
		}
	})

	t.Run("LoadExisting", func(t *testing.T) {
		t.Run("reports a missing snapshot", func(t *testing.T) {
			store, _ := newStore(t)
			if _, err := store.LoadExisting(); !errors.Is(err, shared.ErrSnapshotNotFound) {
				t.Errorf("expected ErrSnapshotNotFound, got %v", err)
			}
		})

		t.Run("loads a saved snapshot", func(t *testing.T) {
			store, _ := newStore(t)
			if err := store.Save(sampleSnapshot()); err != nil {
				t.Fatalf("failed to save: %v", err)
			}
			snap, err := store.LoadExisting()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(snap.Tracks) != 2 || len(snap.Playlists) != 1 {
				t.Errorf("unexpected snapshot %d tracks %d playlists", len(snap.Tracks), len(snap.Playlists))
			}
		})
	})

	t.Run("Rejects Invalid Records", func(t *testing.T) {
		store, _ := newStore(t)
		snap := sampleSnapshot()
		snap.Playlists["bad"] = &models.Playlist{}

		if err := store.Save(snap); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestStatsStore(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		store := NewStatsStore(filepath.Join(t.TempDir(), "stats.json"))
		if _, err := store.Load(); !errors.Is(err, shared.ErrStatsNotFound) {
			t.Errorf("expected ErrStatsNotFound, got %v", err)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "stats.json")
		store := NewStatsStore(path)

		stats := map[string]analysis.PlaylistStats{
			"p1": {
				PlaylistID:      "p1",
				Name:            "Mix",
				TrackCount:      2,
				AudioStats:      map[string]analysis.FeatureSummary{models.Tempo: {Median: 120}},
				KeyDistribution: map[string]int{"0": 2},
				MostCommonKey:   "0",
				PercentMajor:    0.5,
				EmbeddingVector: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0.6},
			},
		}
		if err := store.Save(stats); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		data := string(tu.MustReadFile(t, path))
		if !strings.Contains(data, `"embedding_vector"`) || !strings.Contains(data, `"most_common_key": "0"`) {
			t.Errorf("unexpected artifact %s", data)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		got := loaded["p1"]
		if got.Name != "Mix" || got.AudioStats[models.Tempo].Median != 120 || len(got.EmbeddingVector) != 9 {
			t.Errorf("unexpected stats %+v", got)
		}
	})
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Start And Finish", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		started := time.Now().Add(-time.Minute).UTC()
		run, err := repo.Start(started)
		if err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
		if run.ID == "" || run.Status != models.RunRunning {
			t.Fatalf("unexpected run %+v", run)
		}

		run.Status = models.RunSucceeded
		run.PlaylistsTotal = 5
		run.PlaylistsChanged = 2
		run.PlaylistsUnchanged = 2
		run.PlaylistsSkipped = 1
		run.TracksTotal = 40
		run.TracksUpserted = 12
		if err := repo.Finish(run); err != nil {
			t.Fatalf("failed to finish run: %v", err)
		}

		got, err := repo.Get(run.ID)
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != models.RunSucceeded || got.PlaylistsChanged != 2 || got.TracksUpserted != 12 {
			t.Errorf("unexpected run %+v", got)
		}
		if got.FinishedAt == nil {
			t.Fatal("expected finished_at set")
		}
		if got.Duration() <= 0 {
			t.Errorf("expected positive duration, got %v", got.Duration())
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewSyncRunRepository(db).Get("missing")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Finish Not Found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewSyncRunRepository(db).Finish(&models.SyncRun{ID: "missing", Status: models.RunFailed})
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		var ids []string
		for i := range 3 {
			run, err := repo.Start(base.Add(time.Duration(i) * time.Hour))
			if err != nil {
				t.Fatalf("failed to start run: %v", err)
			}
			ids = append(ids, run.ID)
		}

		runs, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
			t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
		}
		if runs[0].FinishedAt != nil {
			t.Error("expected unfinished run to have no finished_at")
		}

		all, _ := repo.List(0)
		if len(all) != 3 {
			t.Errorf("expected all 3 runs, got %d", len(all))
		}
	})

	t.Run("Changes Cascade On Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncRunRepository(db)
		run, _ := repo.Start(time.Now())
		changes := []models.PlaylistChange{
			{PlaylistID: "p2", Name: "Zed", StoredCount: 1, RemoteCount: 3},
			{PlaylistID: "p1", Name: "Alpha", StoredCount: 0, RemoteCount: 10},
		}
		if err := repo.RecordChanges(run.ID, changes); err != nil {
			t.Fatalf("failed to record changes: %v", err)
		}

		got, err := repo.Changes(run.ID)
		if err != nil {
			t.Fatalf("failed to get changes: %v", err)
		}
		if len(got) != 2 || got[0].Name != "Alpha" || got[0].RunID != run.ID || got[1].RemoteCount != 3 {
			t.Errorf("unexpected changes %+v", got)
		}

		if err := repo.Delete(run.ID); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		got, _ = repo.Changes(run.ID)
		if len(got) != 0 {
			t.Errorf("expected changes removed with the run, got %d", len(got))
		}
	})

	t.Run("RecordChanges Requires Run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewSyncRunRepository(db).RecordChanges("missing", []models.PlaylistChange{{PlaylistID: "p", Name: "P"}})
		if err == nil {
			t.Error("expected foreign key error")
		}
	})
}
