// Package watermark persists the date of the last successfully published record.
package watermark

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"KinneretSentinel/internal/model"
)

// Store reads and writes the watermark. Load returns an empty watermark when none was ever saved.
type Store interface {
	Load(ctx context.Context) (model.Watermark, error)
	Save(ctx context.Context, w model.Watermark) error
	Name() string
}

// FileStore keeps the watermark as a single line in a text file.
type FileStore struct {
	Path string
}

// NewFileStore creates a file-backed watermark store.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Name() string { return "file" }

// Load treats a missing file as unset.
func (s *FileStore) Load(_ context.Context) (model.Watermark, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read watermark %s: %w", s.Path, err)
	}
	return model.Watermark(strings.TrimSpace(string(data))), nil
}

// Save replaces the file atomically, creating its directory if needed.
func (s *FileStore) Save(_ context.Context, w model.Watermark) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create watermark dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp watermark: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(string(w)); err != nil {
		tmp.Close()
		return fmt.Errorf("write watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watermark: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod watermark: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace watermark %s: %w", s.Path, err)
	}
	return nil
}
