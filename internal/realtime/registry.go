package realtime

import (
	"sync"
	"time"

	"github.com/suPer8Hu/lingochat/internal/protocol"
)

// Conn is the transport side of a live connection. Send must not block on
// network I/O; it only queues the event.
type Conn interface {
	ID() string
	Send(ev protocol.Event) error
	Close(reason string)
}

// Handle binds a user to one live connection. It is created on join and
// dropped on leave or disconnect.
type Handle struct {
	UserID   string
	Name     string
	Language string
	JoinedAt time.Time
	conn     Conn
}

func (h *Handle) ConnID() string { return h.conn.ID() }

func (h *Handle) Profile() protocol.Profile {
	return protocol.Profile{ID: h.UserID, Name: h.Name, PreferredLanguage: h.Language}
}

func (h *Handle) Send(ev protocol.Event) error { return h.conn.Send(ev) }

// Registry maps a user id to its current handle.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Handle)}
}

// Register installs a new handle for the user and returns it together with the
// handle it replaced, if any. The replaced connection is not closed here.
func (r *Registry) Register(p protocol.Profile, conn Conn, now time.Time) (h, prev *Handle) {
	h = &Handle{
		UserID:   p.ID,
		Name:     p.Name,
		Language: p.PreferredLanguage,
		JoinedAt: now,
		conn:     conn,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.byUser[p.ID]
	r.byUser[p.ID] = h
	return h, prev
}

func (r *Registry) Lookup(userID string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
}

// RemoveHandle removes h only if it is still the user's current handle.
func (r *Registry) RemoveHandle(h *Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[h.UserID] != h {
		return false
	}
	delete(r.byUser, h.UserID)
	return true
}

// IsCurrent reports whether h is the user's registered handle.
func (r *Registry) IsCurrent(h *Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return h != nil && r.byUser[h.UserID] == h
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
