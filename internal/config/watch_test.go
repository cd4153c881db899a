package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchYAML = `
thresholds:
  upper_red_line: %v
  lower_red_line: -213
  black_line: -214.87
content:
  max_length: %d
`

func TestWatch_AppliesValidReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(upper float64, maxLength int) {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(watchYAML, upper, maxLength)), 0o644))
	}
	write(-208.8, 280)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// misordered thresholds never reach the callback
	var got *Config
	require.Eventually(t, func() bool {
		write(-220, 999)
		write(-208, 200)
		for {
			select {
			case c := <-changes:
				if c.Content.MaxLength == 200 {
					got = c
					return true
				}
				assert.NotEqual(t, 999, c.Content.MaxLength)
			default:
				return false
			}
		}
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, -208.0, got.Thresholds.UpperRedLine)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), slog.New(slog.NewTextHandler(io.Discard, nil)), func(*Config) {})
	assert.Error(t, err)
}
