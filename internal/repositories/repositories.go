// package repositories persists the library snapshot, the stats artifact and the sync history.
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chapi192/SpotifyMatcher/internal/shared"
)

// writeJSONAtomic encodes v with indentation and replaces path in one rename.
//
// A failed write leaves the previous file intact.
func writeJSONAtomic(path string, v any) error {
	staged, err := stageJSON(path, v)
	if err != nil {
		return err
	}
	return staged.commit()
}

// stagedFile is a fully written temp file waiting to replace path.
type stagedFile struct {
	path    string
	tmpPath string
}

// stageJSON encodes v into a synced temp file next to path without touching path itself.
func stageJSON(path string, v any) (*stagedFile, error) {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	staged := &stagedFile{path: path, tmpPath: tmp.Name()}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		staged.discard()
		return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		staged.discard()
		return nil, fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		staged.discard()
		return nil, fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return staged, nil
}

// commit renames the temp file over path. The temp file is removed on failure.
func (f *stagedFile) commit() error {
	if err := os.Rename(f.tmpPath, f.path); err != nil {
		f.discard()
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

func (f *stagedFile) discard() {
	os.Remove(f.tmpPath)
}

// readJSON decodes path into v. It reports found=false when the file does not exist.
func readJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return true, nil
}
