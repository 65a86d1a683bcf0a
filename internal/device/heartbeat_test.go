package device

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestSnapshotStore_LastWriterWins(t *testing.T) {
	store := NewSnapshotStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			store.Set(Snapshot{Online: online, IP: "10.0.0.1"})
		}(i%2 == 0)
	}
	wg.Wait()

	// Whichever writer won, the snapshot is internally consistent.
	got := store.Get()
	if got.IP != "10.0.0.1" {
		t.Fatalf("unexpected ip %q", got.IP)
	}
}

func TestHandler_HeartbeatThenStatus(t *testing.T) {
	store := NewSnapshotStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	handler, err := NewHandler(store, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	handler.WithClock(fixedClock{at: now})

	body := `{"online": true, "ip": "192.168.1.40", "mapping": [{"hardwareId": "ESP32-FRIGO-01", "address": "192.168.1.41"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/device/heartbeat", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("heartbeat: expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/device/status", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", resp.Code)
	}

	var got Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !got.Online || got.IP != "192.168.1.40" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if len(got.Mapping) != 1 || got.Mapping[0].HardwareID != "ESP32-FRIGO-01" {
		t.Fatalf("unexpected mapping: %+v", got.Mapping)
	}
	if got.Timestamp == nil || !got.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp: %v", got.Timestamp)
	}
}

func TestHandler_StatusBeforeFirstHeartbeat(t *testing.T) {
	handler, err := NewHandler(NewSnapshotStore(), nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/device/status", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var got Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.Online || got.Timestamp != nil {
		t.Fatalf("expected zero snapshot before first heartbeat, got %+v", got)
	}
}
