package watermark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KinneretSentinel/internal/model"
)

func TestFileStore_MissingIsUnset(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "last_tweet.txt"))
	w, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, w.IsSet())
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_tweet.txt")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "2026-02-06"))
	w, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Watermark("2026-02-06"), w)

	require.NoError(t, s.Save(ctx, "2026-02-07"))
	w, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Watermark("2026-02-07"), w)
}

func TestFileStore_SaveCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "last_tweet.txt")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "2026-02-06"))
	w, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Watermark("2026-02-06"), w)
}

func TestFileStore_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_tweet.txt")
	require.NoError(t, os.WriteFile(path, []byte("2026-02-06\n"), 0644))
	w, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Watermark("2026-02-06"), w)
}

type fakeRedis struct {
	values map[string]string
	getErr error
	setErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fr := &fakeRedis{values: map[string]string{}}
	s := newRedisStore(fr, "")

	w, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, w.IsSet())

	require.NoError(t, s.Save(ctx, "2026-02-06"))
	assert.Equal(t, "2026-02-06", fr.values[DefaultRedisKey])

	w, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Watermark("2026-02-06"), w)
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(&fakeRedis{
		values: map[string]string{},
		getErr: errors.New("connection refused"),
		setErr: errors.New("READONLY"),
	}, "custom")

	_, err := s.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, s.Save(ctx, "2026-02-06"))
}
