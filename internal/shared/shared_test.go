package shared

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSkipList(t *testing.T) {
	t.Run("ParseSkipList", func(t *testing.T) {
		tc := []struct {
			name  string
			input string
			want  []string
		}{
			{name: "trims and lowercases", input: "  Workout Mix \nCHILL\n", want: []string{"workout mix", "chill"}},
			{name: "ignores blank lines", input: "\n\n  \nJazz\n", want: []string{"jazz"}},
			{name: "empty input", input: "", want: nil},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseSkipList(strings.NewReader(tt.input))
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d names, got %d (%v)", len(tt.want), len(got), got)
				}
				for _, name := range tt.want {
					if !got.Contains(name) {
						t.Errorf("expected %q in skip list", name)
					}
				}
			})
		}
	})

	t.Run("Contains Is Case Insensitive", func(t *testing.T) {
		skip, _ := ParseSkipList(strings.NewReader("workout"))
		if !skip.Contains("WorkOut") {
			t.Error("expected WorkOut to match")
		}
		if skip.Contains("workouts") {
			t.Error("expected workouts not to match")
		}
	})

	t.Run("LoadSkipList Missing File", func(t *testing.T) {
		skip, err := LoadSkipList(filepath.Join(t.TempDir(), "missing.txt"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(skip) != 0 {
			t.Errorf("expected empty list, got %v", skip)
		}
	})

	t.Run("LoadSkipList File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "skip.txt")
		if err := os.WriteFile(path, []byte("Sleep\nFocus\n"), 0644); err != nil {
			t.Fatalf("failed to write skip list: %v", err)
		}

		skip, err := LoadSkipList(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !skip.Contains("sleep") || !skip.Contains("FOCUS") {
			t.Errorf("unexpected skip list %v", skip)
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(map[string]int{"a": 1}, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(data) != "{\n    \"a\": 1\n}" {
		t.Errorf("unexpected output %q", string(data))
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %s", a)
	}
}
