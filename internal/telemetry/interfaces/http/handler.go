package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coldwatch/internal/auth"
	sensors "coldwatch/internal/sensors/domain"
	"coldwatch/internal/telemetry/application"
	telemetry "coldwatch/internal/telemetry/domain"

	"go.uber.org/zap"
)

const defaultHistoryLimit = 100

// SensorReader is the sensor access the query endpoints need.
type SensorReader interface {
	GetByHardwareID(ctx context.Context, hardwareID string) (*sensors.Sensor, error)
	ListByOwner(ctx context.Context, ownerID int64, onlyEnabled bool) ([]sensors.Sensor, error)
}

// Handler serves telemetry ingest and query endpoints.
type Handler struct {
	ingest       *application.IngestService
	sensors      SensorReader
	measurements telemetry.MeasurementRepository
	logger       *zap.Logger
}

// NewHandler constructs a telemetry handler.
func NewHandler(ingest *application.IngestService, sensorRepo SensorReader, measurements telemetry.MeasurementRepository, logger *zap.Logger) (*Handler, error) {
	if ingest == nil {
		return nil, errors.New("telemetry handler: nil ingest service")
	}
	if sensorRepo == nil {
		return nil, errors.New("telemetry handler: nil sensor reader")
	}
	if measurements == nil {
		return nil, errors.New("telemetry handler: nil measurement repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ingest: ingest, sensors: sensorRepo, measurements: measurements, logger: logger}, nil
}

// ServeHTTP routes telemetry requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/data" && r.Method == http.MethodPost:
		h.handleIngest(w, r)
	case r.URL.Path == "/api/latest" && r.Method == http.MethodGet:
		h.handleLatest(w, r)
	case r.URL.Path == "/api/history" && r.Method == http.MethodGet:
		h.handleHistory(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/history/export.") && r.Method == http.MethodGet:
		h.handleExport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type ingestRequest struct {
	SensorID string   `json:"sensorId"`
	TempC    *float64 `json:"tempC"`
	VoltageV *float64 `json:"voltageV"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.SensorID == "" || req.TempC == nil || req.VoltageV == nil {
		http.Error(w, "sensorId, tempC and voltageV are required", http.StatusBadRequest)
		return
	}

	err := h.ingest.Ingest(r.Context(), req.SensorID, *req.TempC, *req.VoltageV)
	if errors.Is(err, telemetry.ErrSensorNotConfigured) {
		h.logger.Warn("ingest: unconfigured sensor", zap.String("sensor_id", req.SensorID))
		http.Error(w, "sensor not configured", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("ingest failed", zap.String("sensor_id", req.SensorID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type latestEntry struct {
	HardwareID   string     `json:"hardwareId"`
	FriendlyName string     `json:"friendlyName"`
	TemperatureC *float64   `json:"temperatureC"`
	VoltageV     *float64   `json:"voltageV"`
	TS           *time.Time `json:"ts"`
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	owned, err := h.sensors.ListByOwner(r.Context(), ownerID, false)
	if err != nil {
		h.logger.Error("latest: sensor list failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	entries := make([]latestEntry, 0, len(owned))
	for _, sensor := range owned {
		entry := latestEntry{HardwareID: sensor.HardwareID, FriendlyName: sensor.FriendlyName}
		latest, err := h.measurements.LatestBySensor(r.Context(), sensor.HardwareID)
		if err != nil {
			h.logger.Error("latest: measurement lookup failed", zap.String("hardware_id", sensor.HardwareID), zap.Error(err))
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		if latest != nil {
			entry.TemperatureC = &latest.TemperatureC
			entry.VoltageV = &latest.VoltageV
			entry.TS = &latest.TS
		}
		entries = append(entries, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, sensor, ok := h.loadOwnedHistory(w, r)
	if !ok {
		return
	}

	type historyEntry struct {
		TemperatureC float64   `json:"temperatureC"`
		VoltageV     float64   `json:"voltageV"`
		TS           time.Time `json:"ts"`
	}
	entries := make([]historyEntry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, historyEntry{TemperatureC: m.TemperatureC, VoltageV: m.VoltageV, TS: m.TS})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"hardwareId":   sensor.HardwareID,
		"friendlyName": sensor.FriendlyName,
		"measurements": entries,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.TrimPrefix(r.URL.Path, "/api/history/export.")
	rows, sensor, ok := h.loadOwnedHistory(w, r)
	if !ok {
		return
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case "csv":
		data, err = buildHistoryCSV(sensor, rows)
		contentType = "text/csv"
	case "xlsx":
		data, err = buildHistoryXLSX(sensor, rows)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = buildHistoryPDF(sensor, rows)
		contentType = "application/pdf"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("history export failed", zap.String("format", format), zap.Error(err))
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="history-`+sensor.HardwareID+`.`+format+`"`)
	_, _ = w.Write(data)
}

// loadOwnedHistory resolves the sensorId/limit query against the caller's
// sensors. A missing or foreign sensor reads as not authorized.
func (h *Handler) loadOwnedHistory(w http.ResponseWriter, r *http.Request) ([]telemetry.Measurement, *sensors.Sensor, bool) {
	hardwareID := r.URL.Query().Get("sensorId")
	if hardwareID == "" {
		http.Error(w, "sensorId is required", http.StatusBadRequest)
		return nil, nil, false
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ownerID := auth.UserIDFromContext(r.Context())
	sensor, err := h.sensors.GetByHardwareID(r.Context(), hardwareID)
	if errors.Is(err, sensors.ErrNotFound) || (err == nil && sensor.OwnerID != ownerID) {
		http.Error(w, "not authorized", http.StatusForbidden)
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error("history: sensor lookup failed", zap.String("hardware_id", hardwareID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return nil, nil, false
	}

	rows, err := h.measurements.RecentBySensor(r.Context(), sensor.HardwareID, limit)
	if err != nil {
		h.logger.Error("history: measurement query failed", zap.String("hardware_id", hardwareID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return rows, sensor, true
}
