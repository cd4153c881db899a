// Package collector fetches raw readings and merges them into the stored history.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"KinneretSentinel/internal/history"
	"KinneretSentinel/internal/model"
)

// MockFetcher returns fixed records for development and testing.
type MockFetcher struct {
	Records []model.RawRecord
	Err     error
	Calls   int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context) ([]model.RawRecord, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Records, nil
}

// IngestResult summarizes one collection run.
type IngestResult struct {
	Fetched  int
	NewCount int
	Dropped  []history.DroppedRecord
	Total    int
	Latest   *model.Record
}

// Collector orchestrates fetching and merging into the history store.
type Collector struct {
	Fetcher Fetcher
	Store   history.Store
	Clock   clockwork.Clock
	Logger  *slog.Logger
	// Location decides the calendar day used to reject future-dated readings.
	Location *time.Location
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, store history.Store, clock clockwork.Clock, loc *time.Location, logger *slog.Logger) *Collector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{Fetcher: fetcher, Store: store, Clock: clock, Location: loc, Logger: logger}
}

// Collect fetches the latest readings, merges them and saves the history when anything was added.
// A missing history starts from an empty baseline.
func (c *Collector) Collect(ctx context.Context) (*IngestResult, error) {
	raw, err := c.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch from %s: %w", c.Fetcher.Name(), err)
	}
	c.Logger.Info("fetched records", "source", c.Fetcher.Name(), "count", len(raw))

	existing, err := c.Store.Load(ctx)
	if err != nil {
		if !errors.Is(err, history.ErrNoHistory) {
			return nil, fmt.Errorf("load history: %w", err)
		}
		c.Logger.Info("no existing history, starting fresh", "store", c.Store.Name())
		existing = nil
	}

	res := history.Merge(raw, existing, c.Clock.Now().In(c.Location))
	for _, d := range res.Dropped {
		c.Logger.Warn("dropped record", "source_id", d.Raw.SourceID, "date", d.Raw.DateString, "reason", d.Reason)
	}

	out := &IngestResult{
		Fetched:  len(raw),
		NewCount: res.NewCount,
		Dropped:  res.Dropped,
		Total:    len(res.History),
	}
	if len(res.History) > 0 {
		latest := res.History[0]
		out.Latest = &latest
	}

	if res.NewCount == 0 {
		c.Logger.Info("no new records", "total", out.Total)
		return out, nil
	}
	if err := c.Store.Save(ctx, res.History); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	c.Logger.Info("history updated", "new", res.NewCount, "total", out.Total)
	return out, nil
}
