package evolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const stateVersion = 1

type stateFile struct {
	Version int         `json:"version"`
	Slots   []SlotState `json:"slots"`
}

// FileStateStore keeps slot state in a JSON file next to the project.
type FileStateStore struct {
	path string
}

func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (s *FileStateStore) Path() string { return s.path }

// Load returns the persisted slots. A missing file is an empty state.
func (s *FileStateStore) Load() ([]SlotState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if f.Version != stateVersion {
		return nil, fmt.Errorf("unsupported state file version %d", f.Version)
	}
	return f.Slots, nil
}

// Save writes the slots atomically.
func (s *FileStateStore) Save(states []SlotState) error {
	data, err := json.MarshalIndent(stateFile{Version: stateVersion, Slots: states}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
