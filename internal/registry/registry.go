// Package registry tracks live protocol sockets by session id. It records
// which sockets exist; it does not verify they are still connected.
package registry

import (
	"sync"
	"time"

	"github.com/pairgate/pairgate/internal/wa"
)

// Handle is one registered session socket.
type Handle struct {
	SessionID string
	Socket    wa.Socket
	CreatedAt time.Time
}

type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func New() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Put registers or replaces the handle for sessionID.
func (r *Registry) Put(sessionID string, socket wa.Socket) {
	r.mu.Lock()
	r.handles[sessionID] = Handle{SessionID: sessionID, Socket: socket, CreatedAt: time.Now()}
	r.mu.Unlock()
}

// Get returns the handle for sessionID if present.
func (r *Registry) Get(sessionID string) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.handles[sessionID]
	r.mu.RUnlock()
	return h, ok
}

// Remove drops the handle for sessionID. Removing an unknown id is a no-op.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.handles, sessionID)
	r.mu.Unlock()
}

// ListActive returns a point-in-time snapshot of all handles.
func (r *Registry) ListActive() []Handle {
	r.mu.RLock()
	out := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	r.mu.RUnlock()
	return out
}
