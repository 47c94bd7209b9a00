package realtime

import (
	"context"
	"time"
)

type EventKind string

const (
	EventRoomPaired     EventKind = "room_paired"
	EventRoomEnded      EventKind = "room_ended"
	EventMessageCreated EventKind = "message_created"
)

// LifecycleEvent is published for consumers outside the process (analytics,
// archival). Live delivery never depends on it.
type LifecycleEvent struct {
	Kind       EventKind `json:"kind"`
	ChatRoomID string    `json:"chatRoomId"`
	UserIDs    []string  `json:"userIds"`
	MessageID  uint64    `json:"messageId,omitempty"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev LifecycleEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
