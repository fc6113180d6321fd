// Package storage persists intermediate and final pipeline images on the
// local filesystem. The two directory roots are injectable so tests can
// redirect output.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidName is returned for names that would escape a storage root.
var ErrInvalidName = errors.New("storage: invalid file name")

// Store holds the two local image directories: merged composites waiting for
// upload, and final images fetched back from the generation service.
type Store struct {
	mergedDir string
	finalDir  string
}

// New creates a Store rooted at the two given directories, creating them if
// needed.
func New(mergedDir, finalDir string) (*Store, error) {
	if mergedDir == "" || finalDir == "" {
		return nil, errors.New("storage: both directory roots are required")
	}
	for _, dir := range []string{mergedDir, finalDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure directory %s: %w", dir, err)
		}
	}
	return &Store{mergedDir: mergedDir, finalDir: finalDir}, nil
}

// SaveMerged writes a composite image and returns its absolute path.
func (s *Store) SaveMerged(name string, data []byte) (string, error) {
	return s.save(s.mergedDir, name, data)
}

// SaveFinal writes a fetched final image and returns its absolute path.
func (s *Store) SaveFinal(name string, data []byte) (string, error) {
	return s.save(s.finalDir, name, data)
}

// FinalPath resolves a final-image filename to its absolute path without
// checking existence. The name must not contain path separators.
func (s *Store) FinalPath(name string) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Abs(filepath.Join(s.finalDir, clean))
}

func (s *Store) save(dir, name string, data []byte) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", clean, err)
	}
	return filepath.Abs(path)
}

// sanitizeName rejects names that address anything but a direct child of a
// storage root. Service-assigned filenames and timestamp names are flat.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return name, nil
}

// Timestamp formats t with microsecond resolution for collision-free
// filenames (YYYYMMDD_HHMMSS followed by six microsecond digits).
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}
