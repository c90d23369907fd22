// Package storage persists audio artifacts on the local filesystem.
// Each session owns a directory holding the raw upload and the
// normalized waveform.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store is the narrow artifact interface the pipeline depends on.
type Store interface {
	Upload(ctx context.Context, path string, reader io.Reader) error
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// FullPath resolves a storage-relative path to an absolute
	// filesystem path for collaborators that need one (the transcoder).
	FullPath(path string) string
}

// Local implements Store on a base directory.
type Local struct {
	basePath string
}

// NewLocal creates a local store rooted at basePath, creating the
// directory if needed.
func NewLocal(basePath string) (*Local, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Local{basePath: abs}, nil
}

// RawPath is the storage-relative location of a session's raw upload.
func RawPath(sessionID, filename string) string {
	return filepath.Join(sessionID, "raw", filename)
}

// NormalizedPath is the storage-relative location of a session's
// canonical waveform.
func NormalizedPath(sessionID string) string {
	return filepath.Join(sessionID, "normalized.wav")
}

// Upload writes data from reader to a file under the base directory.
func (s *Local) Upload(_ context.Context, path string, reader io.Reader) error {
	fullPath := s.FullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}
	return nil
}

// Download returns a reader for the file at the given path.
func (s *Local) Download(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(s.FullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: file not found: %s", path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes a file. Deleting a missing file is not an error.
func (s *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(s.FullPath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether a file exists.
func (s *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.FullPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return true, nil
}

// FullPath resolves a storage-relative path under the base directory.
// The path is cleaned so relative components cannot escape the root.
func (s *Local) FullPath(path string) string {
	return filepath.Join(s.basePath, filepath.Clean("/"+path))
}
