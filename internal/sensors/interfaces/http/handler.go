package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"coldwatch/internal/auth"
	"coldwatch/internal/sensors/catalog"
	sensors "coldwatch/internal/sensors/domain"

	"go.uber.org/zap"
)

// Handler serves sensor configuration endpoints.
type Handler struct {
	sensors sensors.SensorRepository
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewHandler constructs a sensor handler.
func NewHandler(repo sensors.SensorRepository, cat *catalog.Catalog, logger *zap.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("sensors handler: nil repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sensors: repo, catalog: cat, logger: logger}, nil
}

// ServeHTTP routes sensor requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/sensors/config" && r.Method == http.MethodPost:
		h.handleUpsert(w, r)
	case r.URL.Path == "/api/sensors/ids" && r.Method == http.MethodGet:
		h.handleIDs(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/sensors/") && r.Method == http.MethodDelete:
		h.handleDelete(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type upsertRequest struct {
	HardwareID     string   `json:"hardwareId"`
	FriendlyName   string   `json:"friendlyName"`
	AlertThreshold *float64 `json:"alertThreshold"`
	Enabled        *bool    `json:"enabled"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.HardwareID = strings.TrimSpace(req.HardwareID)
	if req.HardwareID == "" || req.AlertThreshold == nil {
		http.Error(w, "hardwareId and alertThreshold are required", http.StatusBadRequest)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	// Ownership is forced to the caller regardless of the request body.
	sensor, err := h.sensors.Upsert(r.Context(), sensors.Sensor{
		HardwareID:     req.HardwareID,
		FriendlyName:   strings.TrimSpace(req.FriendlyName),
		AlertThreshold: *req.AlertThreshold,
		OwnerID:        auth.UserIDFromContext(r.Context()),
		Enabled:        enabled,
	})
	if err != nil {
		h.logger.Error("sensor upsert failed", zap.String("hardware_id", req.HardwareID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sensorResponse(sensor))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	hardwareID := strings.TrimPrefix(r.URL.Path, "/api/sensors/")
	if hardwareID == "" || strings.Contains(hardwareID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err := h.sensors.Delete(r.Context(), hardwareID, auth.UserIDFromContext(r.Context()))
	if errors.Is(err, sensors.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("sensor delete failed", zap.String("hardware_id", hardwareID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIDs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ids": h.catalog.IDs()})
}

func sensorResponse(sensor *sensors.Sensor) map[string]any {
	return map[string]any{
		"hardwareId":     sensor.HardwareID,
		"friendlyName":   sensor.FriendlyName,
		"alertThreshold": sensor.AlertThreshold,
		"enabled":        sensor.Enabled,
	}
}
