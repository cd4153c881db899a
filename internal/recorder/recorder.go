// Package recorder keeps an audit trail of ingestion and publication runs.
package recorder

import "time"

// IngestEvent holds the outcome of one feed collection run.
type IngestEvent struct {
	RunID      string    `json:"run_id"`
	At         time.Time `json:"at"`
	Source     string    `json:"source"`
	Fetched    int       `json:"fetched"`
	NewCount   int       `json:"new_count"`
	Dropped    int       `json:"dropped"`
	Total      int       `json:"total"`
	LatestDate string    `json:"latest_date,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// PublicationEvent holds the outcome of one publication run.
type PublicationEvent struct {
	RunID         string    `json:"run_id"`
	At            time.Time `json:"at"`
	State         string    `json:"state"`
	CandidateDate string    `json:"candidate_date,omitempty"`
	Level         float64   `json:"level"`
	ContentSource string    `json:"content_source,omitempty"`
	Text          string    `json:"text,omitempty"`
	PostID        string    `json:"post_id,omitempty"`
	DryRun        bool      `json:"dry_run"`
	Error         string    `json:"error,omitempty"`
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordIngest(evt *IngestEvent) error
	RecordPublication(evt *PublicationEvent) error
	// LastPublication returns the most recent publication run, or nil if none was recorded.
	LastPublication() (*PublicationEvent, error)
	Close() error
}
