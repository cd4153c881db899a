package collector

import (
	"context"

	"KinneretSentinel/internal/model"
)

// Fetcher defines the interface for fetching raw water level readings.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.RawRecord, error)
	Name() string
}
