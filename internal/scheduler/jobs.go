package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"KinneretSentinel/internal/collector"
	"KinneretSentinel/internal/history"
	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/observability"
	"KinneretSentinel/internal/publication"
	"KinneretSentinel/internal/recorder"
	"KinneretSentinel/internal/trend"
)

// Status is the current view of the series for chat replies and the HTTP API.
type Status struct {
	Latest          *model.Record              `json:"latest"`
	Snapshot        *model.TrendSnapshot       `json:"trend"`
	Watermark       model.Watermark            `json:"watermark"`
	LastPublication *recorder.PublicationEvent `json:"last_publication,omitempty"`
}

// Jobs wires the update and publish pipelines. Runs are serialized by an internal lock.
type Jobs struct {
	Collector *collector.Collector
	History   history.Store
	Machine   *publication.Machine
	Recorder  recorder.Recorder
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
	Logger    *slog.Logger

	mu       sync.Mutex   // serializes runs
	settings sync.RWMutex // guards Machine.Thresholds and Composer.MaxLength
}

// RunUpdate fetches the feed and merges new readings into the history.
func (j *Jobs) RunUpdate(ctx context.Context) (*collector.IngestResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	runID := uuid.NewString()
	start := j.Clock.Now()
	logger := j.Logger.With("job", "update", "run_id", runID)
	logger.Info("update started")

	res, err := j.Collector.Collect(ctx)
	j.Metrics.ObserveRun("update", start, j.Clock.Now(), err)

	evt := &recorder.IngestEvent{RunID: runID, At: start, Source: j.Collector.Fetcher.Name()}
	if err != nil {
		evt.Error = err.Error()
		j.record(logger, func() error { return j.Recorder.RecordIngest(evt) })
		return nil, err
	}

	j.Metrics.RecordsFetched.Add(float64(res.Fetched))
	j.Metrics.RecordsMerged.Add(float64(res.NewCount))
	j.Metrics.RecordsDropped.Add(float64(len(res.Dropped)))
	j.Metrics.HistoryRecords.Set(float64(res.Total))
	if res.Latest != nil {
		j.Metrics.CurrentLevel.Set(res.Latest.Level)
		evt.LatestDate = res.Latest.Date
	}

	evt.Fetched, evt.NewCount, evt.Dropped, evt.Total = res.Fetched, res.NewCount, len(res.Dropped), res.Total
	j.record(logger, func() error { return j.Recorder.RecordIngest(evt) })
	logger.Info("update finished", "new", res.NewCount, "dropped", len(res.Dropped), "total", res.Total)
	return res, nil
}

// RunPublish loads the history and runs the publication state machine once.
// A missing or unreadable history is fatal.
func (j *Jobs) RunPublish(ctx context.Context) (*publication.Outcome, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	runID := uuid.NewString()
	start := j.Clock.Now()
	logger := j.Logger.With("job", "publish", "run_id", runID)
	logger.Info("publish started", "dry_run", j.Machine.DryRun)

	records, err := j.History.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load history: %w", err)
		j.Metrics.PublicationRuns.WithLabelValues(string(publication.StateFailed)).Inc()
		j.Metrics.ObserveRun("publish", start, j.Clock.Now(), err)
		j.record(logger, func() error {
			return j.Recorder.RecordPublication(&recorder.PublicationEvent{
				RunID: runID, At: start, State: string(publication.StateFailed), Error: err.Error(),
			})
		})
		return nil, err
	}

	m := j.machine()
	m.Logger = logger
	out, err := m.Run(ctx, records)
	j.Metrics.ObserveRun("publish", start, j.Clock.Now(), err)
	j.Metrics.PublicationRuns.WithLabelValues(string(out.State)).Inc()

	evt := &recorder.PublicationEvent{RunID: runID, At: start, State: string(out.State), DryRun: out.DryRun, PostID: out.PostID}
	if out.Candidate != nil {
		evt.CandidateDate = out.Candidate.Date
		evt.Level = out.Candidate.Level
		j.Metrics.CurrentLevel.Set(out.Candidate.Level)
	}
	if out.Content != nil {
		evt.ContentSource = out.Content.Source
		evt.Text = out.Content.Text
		if out.State == publication.StatePublished || out.State == publication.StateCommitted {
			j.Metrics.ContentSource.WithLabelValues(out.Content.Source).Inc()
		}
	}
	if err != nil {
		evt.Error = err.Error()
	}
	j.record(logger, func() error { return j.Recorder.RecordPublication(evt) })

	if err != nil {
		logger.Error("publish failed", "state", out.State, "error", err)
		return out, err
	}
	logger.Info("publish finished", "state", out.State)
	return out, nil
}

// Status returns the newest record with its trend snapshot and the current watermark.
func (j *Jobs) Status(ctx context.Context) (*Status, error) {
	records, err := j.History.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	wm, err := j.Machine.Watermarks.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watermark: %w", err)
	}
	st := &Status{Watermark: wm}
	if len(records) > 0 {
		latest := records[0]
		snap := trend.Analyze(records, latest, j.machine().Thresholds)
		st.Latest = &latest
		st.Snapshot = &snap
	}
	last, err := j.Recorder.LastPublication()
	if err != nil {
		j.Logger.Warn("read last publication failed", "error", err)
	}
	st.LastPublication = last
	return st, nil
}

// LoadHistory returns the canonical history, newest first.
func (j *Jobs) LoadHistory(ctx context.Context) ([]model.Record, error) {
	return j.History.Load(ctx)
}

// ApplySettings swaps live-reloadable settings. Runs already in progress keep their copy.
func (j *Jobs) ApplySettings(th model.Thresholds, maxLength int) {
	j.settings.Lock()
	defer j.settings.Unlock()
	j.Machine.Thresholds = th
	j.Machine.Composer.MaxLength = maxLength
}

// machine returns a private copy of the configured machine for one run.
func (j *Jobs) machine() publication.Machine {
	j.settings.RLock()
	defer j.settings.RUnlock()
	m := *j.Machine
	c := *m.Composer
	m.Composer = &c
	return m
}

func (j *Jobs) record(logger *slog.Logger, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("record audit event failed", "error", err)
	}
}
