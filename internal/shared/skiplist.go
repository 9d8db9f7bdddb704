package shared

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// SkipList is a case-insensitive set of playlist names excluded from sync, stats and scoring.
type SkipList map[string]struct{}

// ParseSkipList reads newline-delimited names. Lines are trimmed and lowercased and blanks ignored.
func ParseSkipList(r io.Reader) (SkipList, error) {
	skip := SkipList{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if name == "" {
			continue
		}
		skip[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read skip list: %w", err)
	}
	return skip, nil
}

// LoadSkipList reads the skip list at path. A missing file yields an empty list.
func LoadSkipList(path string) (SkipList, error) {
	if path == "" {
		return SkipList{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SkipList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open skip list: %w", err)
	}
	defer f.Close()
	return ParseSkipList(f)
}

// Contains reports whether name, compared case-insensitively, is skipped.
func (s SkipList) Contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}
