// Package cas implements build info storage as one JSON document per task.
package cas

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// Store implements ports.BuildInfoStore using a file-per-task strategy.
type Store struct {
	dir string
}

var _ ports.BuildInfoStore = (*Store)(nil)

// NewStoreWithPath creates a new BuildInfoStore backed by the directory at the given path.
// The directory is created on the first Put.
func NewStoreWithPath(dir string) (*Store, error) {
	if dir == "" {
		return nil, zerr.Wrap(domain.ErrStoreCreateFailed, "store directory is empty")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// SetDir points the store at dir.
func (s *Store) SetDir(dir string) {
	s.dir = dir
}

// Put stores the build info.
func (s *Store) Put(info domain.BuildInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreCreateFailed.Error())
	}

	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	if err := os.WriteFile(s.getFilename(info.TaskName), data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	return nil
}

// List returns every stored record ordered by completion time, then task name.
// A missing store directory yields an empty list.
func (s *Store) List() ([]domain.BuildInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	infos := make([]domain.BuildInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := readInfo(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, zerr.With(err, "file", entry.Name())
		}
		infos = append(infos, *info)
	}

	slices.SortFunc(infos, func(a, b domain.BuildInfo) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.TaskName, b.TaskName)
	})
	return infos, nil
}

func readInfo(filename string) (*domain.BuildInfo, error) {
	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error())
	}
	return &info, nil
}

func (s *Store) getFilename(taskName string) string {
	hash := sha256.Sum256([]byte(taskName))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}
