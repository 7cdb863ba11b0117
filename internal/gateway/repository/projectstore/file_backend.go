package projectstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"codelens/internal/artifact"
	"codelens/internal/util/jsonutil"
)

func (s *Store) loadFile() (*artifact.ProjectState, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st artifact.ProjectState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("projectstore: decode %s: %w", s.path, err)
	}
	st = artifact.NormalizeState(st)
	return &st, nil
}

// saveFile writes to a temporary file and renames it over the target so a
// reader never sees a partial document.
func (s *Store) saveFile(st artifact.ProjectState) error {
	b, err := jsonutil.MarshalNoEscapeIndent(st, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".project_state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
