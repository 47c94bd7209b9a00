package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/lingochat/internal/realtime"
)

// ErrUnknownKind marks events that will never apply; they are not retried.
var ErrUnknownKind = errors.New("unknown event kind")

type StatsWriter interface {
	RecordRoomPaired(ctx context.Context, roomID string, at time.Time) error
	RecordRoomMessage(ctx context.Context, roomID string) error
	RecordRoomEnded(ctx context.Context, roomID string, at time.Time) error
}

// Archiver folds lifecycle events into per-room statistics.
type Archiver struct {
	stats StatsWriter
}

func New(stats StatsWriter) *Archiver {
	return &Archiver{stats: stats}
}

func (a *Archiver) Apply(ctx context.Context, ev realtime.LifecycleEvent) error {
	if ev.ChatRoomID == "" {
		return fmt.Errorf("%w: missing chatRoomId", ErrUnknownKind)
	}
	switch ev.Kind {
	case realtime.EventRoomPaired:
		return a.stats.RecordRoomPaired(ctx, ev.ChatRoomID, ev.At)
	case realtime.EventMessageCreated:
		return a.stats.RecordRoomMessage(ctx, ev.ChatRoomID)
	case realtime.EventRoomEnded:
		return a.stats.RecordRoomEnded(ctx, ev.ChatRoomID, ev.At)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}
}
