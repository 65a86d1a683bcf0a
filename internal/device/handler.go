package device

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Clock provides time for heartbeat stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Handler serves the heartbeat report and status endpoints over the shared
// snapshot store.
type Handler struct {
	store  *SnapshotStore
	clock  Clock
	logger *zap.Logger
}

// NewHandler constructs a device handler.
func NewHandler(store *SnapshotStore, logger *zap.Logger) (*Handler, error) {
	if store == nil {
		return nil, errors.New("device handler: nil store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, clock: systemClock{}, logger: logger}, nil
}

// WithClock overrides the clock, for tests.
func (h *Handler) WithClock(clock Clock) *Handler {
	if clock != nil {
		h.clock = clock
	}
	return h
}

// ServeHTTP routes device requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/device/status" && r.Method == http.MethodGet:
		h.handleStatus(w, r)
	case r.URL.Path == "/api/device/heartbeat" && r.Method == http.MethodPost:
		h.handleHeartbeat(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.store.Get())
}

type heartbeatRequest struct {
	Online  bool      `json:"online"`
	IP      string    `json:"ip"`
	Mapping []Mapping `json:"mapping"`
}

func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	now := h.clock.Now()
	h.store.Set(Snapshot{
		Online:    req.Online,
		IP:        req.IP,
		Mapping:   req.Mapping,
		Timestamp: &now,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
