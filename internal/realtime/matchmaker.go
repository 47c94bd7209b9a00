package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/suPer8Hu/lingochat/internal/chat"
	"github.com/suPer8Hu/lingochat/internal/protocol"
)

const waitingMessage = "Waiting for another user to join..."

type OutcomeKind int

const (
	OutcomeWaiting OutcomeKind = iota + 1
	OutcomePaired
)

type Outcome struct {
	Kind       OutcomeKind
	ChatRoomID string
	Other      protocol.Profile
}

type room struct {
	id        string
	first     *Handle
	second    *Handle
	createdAt time.Time
}

func (r *room) has(h *Handle) bool {
	return h != nil && (r.first == h || r.second == h)
}

func (r *room) handleOf(userID string) *Handle {
	switch {
	case r.first != nil && r.first.UserID == userID:
		return r.first
	case r.second != nil && r.second.UserID == userID:
		return r.second
	}
	return nil
}

func (r *room) other(h *Handle) *Handle {
	if r.first == h {
		return r.second
	}
	return r.first
}

func (r *room) participants() []*Handle {
	if r.second == nil {
		return []*Handle{r.first}
	}
	return []*Handle{r.first, r.second}
}

// Room is a read-only view of a live chat room.
type Room struct {
	ID           string
	FirstUserID  string
	SecondUserID string
	CreatedAt    time.Time
}

func (r *room) view() Room {
	v := Room{ID: r.id, FirstUserID: r.first.UserID, CreatedAt: r.createdAt}
	if r.second != nil {
		v.SecondUserID = r.second.UserID
	}
	return v
}

// MatchOrWait pairs h with the oldest waiting room it may join, or opens a new
// waiting room for it.
func (e *Engine) MatchOrWait(ctx context.Context, h *Handle) (Outcome, error) {
	e.mu.Lock()
	if err := e.checkEligibleLocked(h); err != nil {
		e.mu.Unlock()
		return Outcome{}, err
	}
	if r := e.takeWaitingLocked(h); r != nil {
		out := e.pairLocked(r, h)
		e.mu.Unlock()
		e.afterPaired(ctx, r.id, r.first.UserID, h.UserID)
		return out, nil
	}
	e.mu.Unlock()

	id, err := e.newRoomID()
	if err != nil {
		return Outcome{}, fmt.Errorf("new room id: %w", err)
	}
	now := e.now()
	rec := &chat.ChatRoom{ID: id, User1ID: h.UserID, IsActive: true, CreatedAt: now}
	if err := e.log.CreateChatRoom(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("create chat room: %w", err)
	}

	// Someone may have opened a waiting room while the record was written;
	// matching must stay exhaustive, so look again before waiting.
	e.mu.Lock()
	if err := e.checkEligibleLocked(h); err != nil {
		e.mu.Unlock()
		e.discardRecord(ctx, id)
		return Outcome{}, err
	}
	if r := e.takeWaitingLocked(h); r != nil {
		out := e.pairLocked(r, h)
		e.mu.Unlock()
		e.discardRecord(ctx, id)
		e.afterPaired(ctx, r.id, r.first.UserID, h.UserID)
		return out, nil
	}
	r := &room{id: id, first: h, createdAt: now}
	e.rooms[id] = r
	e.waiting = append(e.waiting, r)
	e.byUser[h.UserID] = r
	e.updateRoomGaugesLocked()
	_ = h.Send(protocol.NewWaiting(waitingMessage))
	e.mu.Unlock()

	slog.Info("user waiting", "userId", h.UserID, "chatRoomId", id)
	return Outcome{Kind: OutcomeWaiting, ChatRoomID: id}, nil
}

func (e *Engine) checkEligibleLocked(h *Handle) error {
	if !e.registry.IsCurrent(h) {
		return ErrNotJoined
	}
	if e.byUser[h.UserID] != nil {
		return ErrAlreadyInSession
	}
	return nil
}

// takeWaitingLocked removes and returns the oldest waiting room whose owner is
// someone else and still connected.
func (e *Engine) takeWaitingLocked(h *Handle) *room {
	_, i, ok := lo.FindIndexOf(e.waiting, func(r *room) bool {
		return r.first.UserID != h.UserID && e.registry.IsCurrent(r.first)
	})
	if !ok {
		return nil
	}
	r := e.waiting[i]
	e.waiting = slices.Delete(e.waiting, i, i+1)
	return r
}

// pairLocked binds h as second participant and queues user_joined for both,
// so neither side can observe chat traffic before the pairing notice.
func (e *Engine) pairLocked(r *room, h *Handle) Outcome {
	r.second = h
	e.byUser[h.UserID] = r
	e.updateRoomGaugesLocked()

	_ = h.Send(protocol.NewUserJoined(r.id, r.first.Profile()))
	_ = r.first.Send(protocol.NewUserJoined(r.id, h.Profile()))

	return Outcome{Kind: OutcomePaired, ChatRoomID: r.id, Other: r.first.Profile()}
}

func (e *Engine) afterPaired(ctx context.Context, roomID, firstID, secondID string) {
	e.metrics.Paired()
	slog.Info("users paired", "chatRoomId", roomID, "firstUserId", firstID, "secondUserId", secondID)
	if err := e.log.JoinChatRoom(ctx, roomID, secondID); err != nil {
		slog.Error("persist room join failed", "chatRoomId", roomID, "userId", secondID, "error", err)
	}
	e.publish(ctx, LifecycleEvent{
		Kind:       EventRoomPaired,
		ChatRoomID: roomID,
		UserIDs:    []string{firstID, secondID},
		At:         e.now(),
	})
}

// discardRecord ends a room record that never became visible to anyone.
func (e *Engine) discardRecord(ctx context.Context, roomID string) {
	if _, err := e.log.EndChatRoom(ctx, roomID, e.now()); err != nil {
		slog.Error("discard unused room failed", "chatRoomId", roomID, "error", err)
	}
}

// Room returns the live room with the given id. Ended rooms are not live.
func (e *Engine) Room(id string) (Room, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rooms[id]
	if !ok {
		return Room{}, false
	}
	return r.view(), true
}

// WaitingRooms lists the waiting pool, oldest first.
func (e *Engine) WaitingRooms() []Room {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lo.Map(e.waiting, func(r *room, _ int) Room { return r.view() })
}
