package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordIngest(_ *IngestEvent) error           { return nil }
func (n *NoopRecorder) RecordPublication(_ *PublicationEvent) error { return nil }
func (n *NoopRecorder) LastPublication() (*PublicationEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                { return nil }
