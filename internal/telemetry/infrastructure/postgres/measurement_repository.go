package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	telemetry "coldwatch/internal/telemetry/domain"
)

const defaultMeasurementsTable = "measurements"

// MeasurementRepository is a Postgres implementation for sensor readings.
type MeasurementRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*MeasurementRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *MeasurementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewMeasurementRepository constructs a repository with default table name.
func NewMeasurementRepository(db *sql.DB, opts ...RepositoryOption) *MeasurementRepository {
	repo := &MeasurementRepository{db: db, table: defaultMeasurementsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Insert stores a new measurement. Measurements are append-only.
func (r *MeasurementRepository) Insert(ctx context.Context, m telemetry.Measurement) error {
	if r == nil || r.db == nil {
		return errors.New("measurement repo: nil db")
	}
	if m.SensorID == "" || m.TS.IsZero() {
		return errors.New("measurement repo: invalid measurement")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (sensor_id, temperature_c, voltage_v, ts)
VALUES ($1, $2, $3, $4)`, r.table)

	_, err := r.db.ExecContext(ctx, query, m.SensorID, m.TemperatureC, m.VoltageV, m.TS)
	return err
}

// LatestBySensor returns the most recent measurement, or nil when none exist.
func (r *MeasurementRepository) LatestBySensor(ctx context.Context, sensorID string) (*telemetry.Measurement, error) {
	query := fmt.Sprintf(`
SELECT id, sensor_id, temperature_c, voltage_v, ts
FROM %s
WHERE sensor_id = $1
ORDER BY ts DESC
LIMIT 1`, r.table)

	var m telemetry.Measurement
	err := r.db.QueryRowContext(ctx, query, sensorID).Scan(&m.ID, &m.SensorID, &m.TemperatureC, &m.VoltageV, &m.TS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecentBySensor returns up to n measurements, newest first.
func (r *MeasurementRepository) RecentBySensor(ctx context.Context, sensorID string, n int) ([]telemetry.Measurement, error) {
	if n <= 0 {
		n = 100
	}
	query := fmt.Sprintf(`
SELECT id, sensor_id, temperature_c, voltage_v, ts
FROM %s
WHERE sensor_id = $1
ORDER BY ts DESC
LIMIT $2`, r.table)

	rows, err := r.db.QueryContext(ctx, query, sensorID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []telemetry.Measurement
	for rows.Next() {
		var m telemetry.Measurement
		if err := rows.Scan(&m.ID, &m.SensorID, &m.TemperatureC, &m.VoltageV, &m.TS); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
