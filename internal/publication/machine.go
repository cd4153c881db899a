// Package publication decides whether the newest unpublished record is posted
// and advances the watermark only after a confirmed publish.
package publication

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"KinneretSentinel/internal/content"
	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/publisher"
	"KinneretSentinel/internal/trend"
	"KinneretSentinel/internal/watermark"
)

// State is a step of a publication run.
type State string

const (
	StateIdle              State = "Idle"
	StateCandidateSelected State = "CandidateSelected"
	StateContentReady      State = "ContentReady"
	StatePublished         State = "Published"
	StateCommitted         State = "Committed"
	StateNoNewData         State = "NoNewData"
	StateFailed            State = "Failed"
)

var (
	// ErrWatermark is returned when the watermark cannot be read or is malformed.
	ErrWatermark = errors.New("watermark unavailable")
	// ErrPublish is returned when the publisher rejects the text. The watermark is untouched.
	ErrPublish = errors.New("publish failed")
	// ErrCommit is returned when the text was published but the watermark could not be saved.
	ErrCommit = errors.New("commit failed")
)

// Outcome describes where a run stopped and what it produced.
type Outcome struct {
	State     State
	Watermark model.Watermark // as read at the start of the run
	Candidate *model.Record
	Snapshot  *model.TrendSnapshot
	Content   *content.Content
	PostID    string
	DryRun    bool
}

// Machine runs one publication attempt against the history.
// Callers must not run two machines against the same watermark concurrently.
type Machine struct {
	Composer   *content.Composer
	Publisher  publisher.Publisher
	Watermarks watermark.Store
	Thresholds model.Thresholds
	DryRun     bool
	Logger     *slog.Logger
}

// Run selects the newest record after the watermark, composes text, publishes it and commits.
// NoNewData is a successful outcome. In dry-run mode the run stops at ContentReady.
func (m *Machine) Run(ctx context.Context, history []model.Record) (*Outcome, error) {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := &Outcome{State: StateIdle, DryRun: m.DryRun}

	wm, err := m.Watermarks.Load(ctx)
	if err != nil {
		out.State = StateFailed
		return out, fmt.Errorf("%w: %v", ErrWatermark, err)
	}
	if wm.IsSet() {
		if _, err := model.ParseDay(string(wm)); err != nil {
			out.State = StateFailed
			return out, fmt.Errorf("%w: %v", ErrWatermark, err)
		}
	}
	out.Watermark = wm

	candidate, ok := SelectCandidate(history, wm)
	if !ok {
		out.State = StateNoNewData
		logger.Info("no new records to publish", "watermark", string(wm))
		return out, nil
	}
	out.Candidate = &candidate
	out.State = StateCandidateSelected
	logger.Info("candidate selected", "date", candidate.Date, "level", candidate.Level, "watermark", string(wm))

	snap := trend.Analyze(history, candidate, m.Thresholds)
	out.Snapshot = &snap
	c := m.Composer.Compose(ctx, candidate, &snap, m.Thresholds.UpperRedLine)
	out.Content = &c
	out.State = StateContentReady
	logger.Info("content ready", "source", c.Source, "length", len([]rune(c.Text)))

	if m.DryRun {
		logger.Info("dry run, skipping publish and commit", "text", c.Text)
		return out, nil
	}

	postID, err := m.Publisher.Publish(ctx, c.Text)
	if err != nil {
		out.State = StateFailed
		return out, fmt.Errorf("%w via %s: %v", ErrPublish, m.Publisher.Name(), err)
	}
	out.PostID = postID
	out.State = StatePublished
	logger.Info("published", "publisher", m.Publisher.Name(), "post_id", postID, "date", candidate.Date)

	if err := m.Watermarks.Save(ctx, model.Watermark(candidate.Date)); err != nil {
		return out, fmt.Errorf("%w: record %s was published but watermark not saved: %v", ErrCommit, candidate.Date, err)
	}
	out.State = StateCommitted
	logger.Info("watermark committed", "watermark", candidate.Date)
	return out, nil
}

// SelectCandidate returns the newest record dated strictly after the watermark.
// An unset watermark makes every record a candidate.
func SelectCandidate(history []model.Record, wm model.Watermark) (model.Record, bool) {
	var (
		best  model.Record
		found bool
	)
	for _, r := range history {
		if wm.IsSet() && r.Date <= string(wm) {
			continue
		}
		if !found || r.Date > best.Date {
			best = r
			found = true
		}
	}
	return best, found
}
