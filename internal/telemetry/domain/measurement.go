package telemetry

import (
	"context"
	"errors"
	"time"
)

// ErrSensorNotConfigured is reported when a reading arrives for a hardware
// id that has no configured sensor. The reading is discarded, not queued.
var ErrSensorNotConfigured = errors.New("telemetry: sensor not configured")

// Measurement is one immutable reading from a refrigeration sensor.
// SensorID holds the reporting unit's hardware identifier.
type Measurement struct {
	ID           int64
	SensorID     string
	TemperatureC float64
	VoltageV     float64
	TS           time.Time
}

// MeasurementRepository persists sensor readings.
type MeasurementRepository interface {
	Insert(ctx context.Context, m Measurement) error
	// LatestBySensor returns the most recent measurement, or nil when the
	// sensor has none.
	LatestBySensor(ctx context.Context, sensorID string) (*Measurement, error)
	// RecentBySensor returns up to n measurements, newest first.
	RecentBySensor(ctx context.Context, sensorID string, n int) ([]Measurement, error)
}
