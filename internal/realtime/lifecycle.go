package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/suPer8Hu/lingochat/internal/protocol"
)

// Leave ends roomID on behalf of h. Leaving a room that is already ended (or
// unknown) is a no-op.
func (e *Engine) Leave(ctx context.Context, h *Handle, roomID string) error {
	now := e.now()

	e.mu.Lock()
	r, ok := e.rooms[roomID]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if !r.has(h) {
		e.mu.Unlock()
		return ErrNotParticipant
	}
	users := e.endLocked(r, h)
	e.mu.Unlock()

	e.registry.RemoveHandle(h)
	e.metrics.SetConnections(e.registry.Len())
	slog.Info("user left chat room", "userId", h.UserID, "chatRoomId", roomID)
	e.afterEnded(ctx, roomID, users, now)
	return nil
}

// Disconnect is called once the transport of h is gone. It removes h from the
// registry and ends the room bound to that exact handle, if any.
func (e *Engine) Disconnect(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	// a replaced handle shares the user's bucket with its successor
	if e.registry.RemoveHandle(h) {
		e.metrics.SetConnections(e.registry.Len())
		e.limiter.Forget(h.UserID)
	}
	e.release(ctx, h)
}

// release ends the room bound to h without touching the registry.
func (e *Engine) release(ctx context.Context, h *Handle) {
	now := e.now()

	e.mu.Lock()
	r := e.byUser[h.UserID]
	if r == nil || !r.has(h) {
		e.mu.Unlock()
		return
	}
	roomID := r.id
	users := e.endLocked(r, h)
	e.mu.Unlock()

	slog.Info("connection released chat room", "userId", h.UserID, "connId", h.ConnID(), "chatRoomId", roomID)
	e.afterEnded(ctx, roomID, users, now)
}

// endLocked removes r from the live table and notifies the participant that
// stayed. It returns the ids of everyone who was in the room.
func (e *Engine) endLocked(r *room, leaver *Handle) []string {
	delete(e.rooms, r.id)
	e.waiting = lo.Filter(e.waiting, func(w *room, _ int) bool { return w != r })

	users := make([]string, 0, 2)
	for _, p := range r.participants() {
		if e.byUser[p.UserID] == r {
			delete(e.byUser, p.UserID)
		}
		users = append(users, p.UserID)
	}
	if other := r.other(leaver); other != nil {
		_ = other.Send(protocol.NewUserLeft(r.id, leaver.UserID))
	}
	e.updateRoomGaugesLocked()
	return users
}

func (e *Engine) afterEnded(ctx context.Context, roomID string, users []string, at time.Time) {
	// the transport may already be gone; the record must still be closed
	ctx = context.WithoutCancel(ctx)
	if _, err := e.log.EndChatRoom(ctx, roomID, at); err != nil {
		slog.Error("persist room end failed", "chatRoomId", roomID, "error", err)
	}
	e.publish(ctx, LifecycleEvent{
		Kind:       EventRoomEnded,
		ChatRoomID: roomID,
		UserIDs:    users,
		At:         at,
	})
}
