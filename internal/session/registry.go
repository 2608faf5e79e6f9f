// Package session bridges accepted transport streams and the coordination
// engine: it assigns player identities and runs one connection actor per
// client.
package session

import (
	"sync"
	"time"

	"github.com/delveworks/sessiond/internal/game"
)

// Info describes one live session for logging and operational inspection.
type Info struct {
	// ID is the player's process-unique identifier.
	ID game.PlayerID
	// RemoteAddr is the client's network address.
	RemoteAddr string
	// TraceID correlates this session's log lines.
	TraceID string
	// ConnectedAt is when the session was registered.
	ConnectedAt time.Time
}

// Registry assigns monotonic PlayerIDs and tracks live sessions. IDs are
// never reused while the process runs, including after release. All methods
// are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	next uint64
	live map[game.PlayerID]Info
}

// NewRegistry creates an empty Registry. The first assigned ID is 0.
func NewRegistry() *Registry {
	return &Registry{
		live: make(map[game.PlayerID]Info),
	}
}

// Register allocates a fresh PlayerID and records the session.
//
// Precondition: remoteAddr and traceID should be non-empty for useful logs.
// Postcondition: Returns an Info with an ID never handed out before.
func (r *Registry) Register(remoteAddr, traceID string) Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{
		ID:          game.PlayerID(r.next),
		RemoteAddr:  remoteAddr,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	r.next++
	r.live[info.ID] = info
	return info
}

// Release removes a session from live tracking. The ID remains burned.
//
// Postcondition: Get(id) reports false; the next Register still returns a
// higher ID.
func (r *Registry) Release(id game.PlayerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// Get returns the session info for id.
//
// Postcondition: Returns (info, true) if the session is live, or
// (zero, false) otherwise.
func (r *Registry) Get(id game.PlayerID) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.live[id]
	return info, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Snapshot returns a copy of all live session records.
//
// Postcondition: Returns a slice safe for the caller to retain.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.live))
	for _, info := range r.live {
		out = append(out, info)
	}
	return out
}
