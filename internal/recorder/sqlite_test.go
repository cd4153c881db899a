package recorder

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "kinneret.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_LastPublication(t *testing.T) {
	r := newTestRecorder(t)

	last, err := r.LastPublication()
	require.NoError(t, err)
	assert.Nil(t, last)

	at := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordPublication(&PublicationEvent{
		RunID: "run-1", At: at.Add(-24 * time.Hour), State: "Failed", CandidateDate: "2026-02-06", Error: "boom",
	}))
	require.NoError(t, r.RecordPublication(&PublicationEvent{
		RunID: "run-2", At: at, State: "Committed", CandidateDate: "2026-02-06",
		Level: -213.16, ContentSource: "template", Text: "מפלס", PostID: "1890",
	}))

	last, err = r.LastPublication()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-2", last.RunID)
	assert.Equal(t, "Committed", last.State)
	assert.Equal(t, -213.16, last.Level)
	assert.Equal(t, "1890", last.PostID)
	assert.False(t, last.DryRun)
	assert.True(t, at.Equal(last.At))
}

func TestSQLiteRecorder_RecordIngestGeneratesRunID(t *testing.T) {
	r := newTestRecorder(t)
	require.NoError(t, r.RecordIngest(&IngestEvent{Source: "mock", Fetched: 15, NewCount: 2, Total: 900}))

	var runID string
	var newCount int
	require.NoError(t, r.db.QueryRow(`SELECT run_id, new_count FROM ingests`).Scan(&runID, &newCount))
	assert.Len(t, runID, 36)
	assert.Equal(t, 2, newCount)
}
