package sensors

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("sensors: sensor not found")

// Sensor is a configured refrigeration sensor unit. HardwareID is the
// stable identity reported by the device; FriendlyName is what owners see.
type Sensor struct {
	ID             int64
	HardwareID     string
	FriendlyName   string
	AlertThreshold float64
	OwnerID        int64
	Enabled        bool
	LastAlertSent  *time.Time
}

// SensorRepository persists sensor configuration.
type SensorRepository interface {
	// Upsert creates or updates a sensor keyed by hardware id.
	Upsert(ctx context.Context, sensor Sensor) (*Sensor, error)
	GetByHardwareID(ctx context.Context, hardwareID string) (*Sensor, error)
	ListByOwner(ctx context.Context, ownerID int64, onlyEnabled bool) ([]Sensor, error)
	// FindByNameLike matches friendlyName case-insensitively as a substring,
	// scoped to the owner's sensors. Returns the first match.
	FindByNameLike(ctx context.Context, ownerID int64, query string) (*Sensor, error)
	// Delete removes an owned sensor and cascades to its measurements.
	Delete(ctx context.Context, hardwareID string, ownerID int64) error
	// SetLastAlertSent performs a conditional update keyed on the previously
	// read lastAlertSent value. Returns false when another writer won.
	SetLastAlertSent(ctx context.Context, id int64, prev *time.Time, at time.Time) (bool, error)
}
