package history

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KinneretSentinel/internal/model"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "surveys.json")
	s := NewFileStore(path)
	ctx := context.Background()

	records := []model.Record{
		{Date: "2026-01-30", Level: -213.24},
		{Date: "2026-02-06", Level: -213.16},
	}
	require.NoError(t, s.Save(ctx, records))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{
		{Date: "2026-02-06", Level: -213.16},
		{Date: "2026-01-30", Level: -213.24},
	}, got)
}

func TestFileStore_MissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoHistory))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "surveys.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoHistory))
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "surveys.json"))
	require.NoError(t, s.Save(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "surveys.json", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "surveys.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
