package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sensors "coldwatch/internal/sensors/domain"
)

const (
	defaultSensorsTable      = "sensors"
	defaultMeasurementsTable = "measurements"
)

// SensorRepository is a Postgres implementation for sensor configuration.
type SensorRepository struct {
	db                *sql.DB
	table             string
	measurementsTable string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SensorRepository)

// WithTable overrides the default sensors table name.
func WithTable(table string) RepositoryOption {
	return func(repo *SensorRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithMeasurementsTable overrides the table cascaded on delete.
func WithMeasurementsTable(table string) RepositoryOption {
	return func(repo *SensorRepository) {
		if table != "" {
			repo.measurementsTable = table
		}
	}
}

// NewSensorRepository constructs a repository with default table names.
func NewSensorRepository(db *sql.DB, opts ...RepositoryOption) *SensorRepository {
	repo := &SensorRepository{db: db, table: defaultSensorsTable, measurementsTable: defaultMeasurementsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

const sensorColumns = "id, hardware_id, friendly_name, alert_threshold, owner_id, enabled, last_alert_sent"

// Upsert creates or updates a sensor keyed by hardware id. lastAlertSent is
// only touched by the alert path, never by configuration writes.
func (r *SensorRepository) Upsert(ctx context.Context, sensor sensors.Sensor) (*sensors.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if sensor.HardwareID == "" || sensor.OwnerID <= 0 {
		return nil, errors.New("sensor repo: missing hardware id or owner")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (hardware_id, friendly_name, alert_threshold, owner_id, enabled)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (hardware_id)
DO UPDATE SET
	friendly_name = EXCLUDED.friendly_name,
	alert_threshold = EXCLUDED.alert_threshold,
	owner_id = EXCLUDED.owner_id,
	enabled = EXCLUDED.enabled
RETURNING %s`, r.table, sensorColumns)

	row := r.db.QueryRowContext(ctx, query,
		sensor.HardwareID,
		sensor.FriendlyName,
		sensor.AlertThreshold,
		sensor.OwnerID,
		sensor.Enabled,
	)
	return scanSensor(row)
}

// GetByHardwareID loads a sensor by its hardware identity (exact match).
func (r *SensorRepository) GetByHardwareID(ctx context.Context, hardwareID string) (*sensors.Sensor, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE hardware_id = $1`, sensorColumns, r.table)
	return scanSensor(r.db.QueryRowContext(ctx, query, hardwareID))
}

// ListByOwner returns the owner's sensors in insertion order.
func (r *SensorRepository) ListByOwner(ctx context.Context, ownerID int64, onlyEnabled bool) ([]sensors.Sensor, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1`, sensorColumns, r.table)
	if onlyEnabled {
		query += ` AND enabled`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sensors.Sensor
	for rows.Next() {
		sensor, err := scanSensorRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sensor)
	}
	return result, rows.Err()
}

// FindByNameLike returns the first sensor whose friendly name contains the
// query, case-insensitively, among the owner's sensors.
func (r *SensorRepository) FindByNameLike(ctx context.Context, ownerID int64, query string) (*sensors.Sensor, error) {
	if query == "" {
		return nil, sensors.ErrNotFound
	}
	stmt := fmt.Sprintf(`
SELECT %s FROM %s
WHERE owner_id = $1 AND friendly_name ILIKE '%%' || $2 || '%%'
ORDER BY id
LIMIT 1`, sensorColumns, r.table)
	return scanSensor(r.db.QueryRowContext(ctx, stmt, ownerID, query))
}

// Delete removes an owned sensor and all of its measurements in one
// transaction. A hardware id owned by someone else reads as not found.
func (r *SensorRepository) Delete(ctx context.Context, hardwareID string, ownerID int64) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	deleteSensor := fmt.Sprintf(`DELETE FROM %s WHERE hardware_id = $1 AND owner_id = $2`, r.table)
	result, err := tx.ExecContext(ctx, deleteSensor, hardwareID, ownerID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return sensors.ErrNotFound
	}

	deleteMeasurements := fmt.Sprintf(`DELETE FROM %s WHERE sensor_id = $1`, r.measurementsTable)
	if _, err := tx.ExecContext(ctx, deleteMeasurements, hardwareID); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// SetLastAlertSent advances the alert timestamp only when the stored value
// still matches the one the caller read, closing the read-then-write race
// between concurrent ingests of the same sensor.
func (r *SensorRepository) SetLastAlertSent(ctx context.Context, id int64, prev *time.Time, at time.Time) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("sensor repo: nil db")
	}

	prevValue := sql.NullTime{}
	if prev != nil {
		prevValue = sql.NullTime{Time: *prev, Valid: true}
	}
	query := fmt.Sprintf(`
UPDATE %s SET last_alert_sent = $2
WHERE id = $1 AND last_alert_sent IS NOT DISTINCT FROM $3`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, at, prevValue)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row *sql.Row) (*sensors.Sensor, error) {
	sensor, err := scanSensorRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sensors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sensor, nil
}

func scanSensorRow(row rowScanner) (*sensors.Sensor, error) {
	var sensor sensors.Sensor
	var lastAlert sql.NullTime
	err := row.Scan(
		&sensor.ID,
		&sensor.HardwareID,
		&sensor.FriendlyName,
		&sensor.AlertThreshold,
		&sensor.OwnerID,
		&sensor.Enabled,
		&lastAlert,
	)
	if err != nil {
		return nil, err
	}
	if lastAlert.Valid {
		ts := lastAlert.Time
		sensor.LastAlertSent = &ts
	}
	return &sensor, nil
}
