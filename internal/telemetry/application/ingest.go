package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	accounts "coldwatch/internal/accounts/domain"
	"coldwatch/internal/alerting"
	"coldwatch/internal/observability/metrics"
	sensors "coldwatch/internal/sensors/domain"
	telemetry "coldwatch/internal/telemetry/domain"

	"go.uber.org/zap"
)

// SensorReader is the sensor access the ingest path needs.
type SensorReader interface {
	GetByHardwareID(ctx context.Context, hardwareID string) (*sensors.Sensor, error)
	SetLastAlertSent(ctx context.Context, id int64, prev *time.Time, at time.Time) (bool, error)
}

// OwnerReader resolves a sensor's owning user.
type OwnerReader interface {
	GetByID(ctx context.Context, id int64) (*accounts.User, error)
}

// MeasurementWriter persists readings.
type MeasurementWriter interface {
	Insert(ctx context.Context, m telemetry.Measurement) error
}

// TextSender dispatches a chat text message.
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// Clock provides time for cooldown arithmetic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// IngestService runs the telemetry ingest pipeline: persist the reading,
// evaluate the alert condition and dispatch at most one notification per
// cooldown window. The guarantee is best-effort: notification dispatch and
// the timestamp update are not transactional.
type IngestService struct {
	sensors      SensorReader
	owners       OwnerReader
	measurements MeasurementWriter
	alerts       TextSender
	cooldown     time.Duration
	clock        Clock
	logger       *zap.Logger
}

// Option configures the service.
type Option func(*IngestService)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(s *IngestService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCooldown overrides the default alert cooldown window.
func WithCooldown(window time.Duration) Option {
	return func(s *IngestService) {
		if window > 0 {
			s.cooldown = window
		}
	}
}

// NewIngestService constructs the ingest pipeline.
func NewIngestService(sensorRepo SensorReader, owners OwnerReader, measurements MeasurementWriter, alerts TextSender, logger *zap.Logger, opts ...Option) (*IngestService, error) {
	if sensorRepo == nil {
		return nil, errors.New("ingest: nil sensor reader")
	}
	if owners == nil {
		return nil, errors.New("ingest: nil owner reader")
	}
	if measurements == nil {
		return nil, errors.New("ingest: nil measurement writer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IngestService{
		sensors:      sensorRepo,
		owners:       owners,
		measurements: measurements,
		alerts:       alerts,
		cooldown:     alerting.DefaultCooldown,
		clock:        systemClock{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest processes one reading. Unknown hardware ids return
// telemetry.ErrSensorNotConfigured and leave no trace; a failed measurement
// write aborts alert evaluation. Notification failures are logged only.
func (s *IngestService) Ingest(ctx context.Context, hardwareID string, temperatureC, voltageV float64) error {
	sensor, err := s.sensors.GetByHardwareID(ctx, hardwareID)
	if errors.Is(err, sensors.ErrNotFound) {
		return telemetry.ErrSensorNotConfigured
	}
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.measurements.Insert(ctx, telemetry.Measurement{
		SensorID:     sensor.HardwareID,
		TemperatureC: temperatureC,
		VoltageV:     voltageV,
		TS:           now,
	}); err != nil {
		return err
	}
	metrics.IncReadingIngested()

	if !alerting.ShouldAlert(temperatureC, sensor.AlertThreshold, sensor.LastAlertSent, now, s.cooldown) {
		if temperatureC > sensor.AlertThreshold {
			metrics.IncAlertSuppressed()
		}
		return nil
	}

	owner, err := s.owners.GetByID(ctx, sensor.OwnerID)
	if err != nil {
		s.logger.Warn("ingest: owner lookup failed",
			zap.String("hardware_id", sensor.HardwareID),
			zap.Error(err),
		)
		return nil
	}
	if owner.WhatsApp == "" {
		// Owner opted out of chat alerts; not an error.
		return nil
	}

	body := fmt.Sprintf("⚠️ Alerta: %s registró %.1f°C (umbral %.1f°C)",
		displayName(sensor), temperatureC, sensor.AlertThreshold)
	if s.alerts != nil {
		if err := s.alerts.SendText(ctx, owner.WhatsApp, body); err != nil {
			s.logger.Error("ingest: alert dispatch failed",
				zap.String("hardware_id", sensor.HardwareID),
				zap.String("to", owner.WhatsApp),
				zap.Error(err),
			)
		} else {
			metrics.IncAlertSent()
		}
	}

	// The timestamp update runs regardless of the send outcome. The update
	// is conditional on the value read above, so of two racing ingests only
	// one advances the cooldown clock.
	updated, err := s.sensors.SetLastAlertSent(ctx, sensor.ID, sensor.LastAlertSent, now)
	if err != nil {
		s.logger.Error("ingest: last alert timestamp update failed",
			zap.String("hardware_id", sensor.HardwareID),
			zap.Error(err),
		)
	} else if !updated {
		s.logger.Warn("ingest: concurrent alert won the cooldown update",
			zap.String("hardware_id", sensor.HardwareID),
		)
	}
	return nil
}

func displayName(sensor *sensors.Sensor) string {
	if sensor.FriendlyName != "" {
		return sensor.FriendlyName
	}
	return sensor.HardwareID
}
