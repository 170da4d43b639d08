// Package fs provides file system adapters for walking and hashing build artifacts.
package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/crossbuild/internal/core/domain"
	"go.trai.ch/crossbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes artifact digests.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// HashFiles computes a digest over the given paths, in order.
// Each file contributes its base name and content hash, so renaming an artifact changes the digest.
// Directories are walked recursively. An empty path list yields an empty digest.
func (h *Hasher) HashFiles(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}

	digest := xxhash.New()
	for _, path := range paths {
		if err := h.hashPath(path, digest); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}
	return hasher.Sum64(), nil
}

func (h *Hasher) hashPath(path string, digest io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}

	if !info.IsDir() {
		return h.hashFile(path, filepath.Base(path), digest)
	}

	for filePath := range h.walker.WalkFiles(path) {
		rel, err := filepath.Rel(filepath.Dir(path), filePath)
		if err != nil {
			rel = filePath
		}
		if err := h.hashFile(filePath, filepath.ToSlash(rel), digest); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashFile(path, name string, digest io.Writer) error {
	_, _ = io.WriteString(digest, name)
	_, _ = digest.Write([]byte{0})

	sum, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(digest, binary.LittleEndian, sum); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}
	return nil
}
