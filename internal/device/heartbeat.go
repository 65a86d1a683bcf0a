package device

import (
	"sync"
	"time"
)

// Mapping pairs a hardware identifier with its network address as reported
// by the field gateway.
type Mapping struct {
	HardwareID string `json:"hardwareId"`
	Address    string `json:"address"`
}

// Snapshot is the last-known device heartbeat. It is ephemeral: the zero
// value is served until the first heartbeat arrives, and nothing survives a
// process restart. Online reflects only what the last writer set; there is
// no timeout-based transition to offline.
type Snapshot struct {
	Online    bool       `json:"online"`
	IP        string     `json:"ip"`
	Mapping   []Mapping  `json:"mapping"`
	Timestamp *time.Time `json:"timestamp"`
}

// SnapshotStore holds the single shared heartbeat snapshot. Writes are
// last-writer-wins under concurrency.
type SnapshotStore struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewSnapshotStore constructs an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Set replaces the snapshot.
func (s *SnapshotStore) Set(snapshot Snapshot) {
	s.mu.Lock()
	s.current = snapshot
	s.mu.Unlock()
}

// Get returns the current snapshot.
func (s *SnapshotStore) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
