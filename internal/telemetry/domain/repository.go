package domain

import "context"

// Source is the read surface the snapshot pipeline depends on. A location
// without telemetry yields an empty Reading, never an error.
type Source interface {
	GetLatest(ctx context.Context, locationCode string) (Reading, error)
}

// Repository provides ingestion on top of the read surface.
type Repository interface {
	Source
	RecordSensorReading(ctx context.Context, reading *SensorReading) error
	RecordPestEvent(ctx context.Context, event *PestEvent) error
}
