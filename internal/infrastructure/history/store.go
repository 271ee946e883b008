package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linebyline/covgate/internal/application"
	"github.com/linebyline/covgate/internal/domain"
)

// DefaultMaxEntries is the default number of runs to keep.
const DefaultMaxEntries = 200

// FileStore keeps rule verdict history in a JSON file.
type FileStore struct {
	Path       string
	MaxEntries int
}

// NewFileStore returns a store at path, or at the default location when
// path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = application.DefaultHistoryPath
	}
	return &FileStore{Path: path}
}

// Load reads the history. A missing file is an empty history.
func (s *FileStore) Load() (domain.History, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.History{}, nil
		}
		return domain.History{}, err
	}

	var h domain.History
	if err := json.Unmarshal(data, &h); err != nil {
		return domain.History{}, fmt.Errorf("decode history %s: %w", s.Path, err)
	}
	return h, nil
}

// Save replaces the history file atomically.
func (s *FileStore) Save(h domain.History) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// Append adds entry under an exclusive lock, dropping the oldest entries
// beyond MaxEntries.
func (s *FileStore) Append(entry domain.HistoryEntry) error {
	unlock, err := lockFile(s.Path + ".lock")
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer unlock()

	h, err := s.Load()
	if err != nil {
		return err
	}

	h.Entries = append(h.Entries, entry)

	max := s.MaxEntries
	if max == 0 {
		max = DefaultMaxEntries
	}
	if len(h.Entries) > max {
		h.Entries = h.Entries[len(h.Entries)-max:]
	}

	return s.Save(h)
}

// lockFile blocks until it holds an exclusive lock on path and returns the
// function that releases it.
func lockFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	// #nosec G304 -- path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unlock(f)
		_ = f.Close()
	}, nil
}

var _ application.HistoryStore = (*FileStore)(nil)
