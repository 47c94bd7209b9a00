package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func onRoom(set map[string]any) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_room_id"}},
		DoUpdates: clause.Assignments(set),
	}
}

func (r *Repo) RecordRoomPaired(ctx context.Context, roomID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(onRoom(map[string]any{"paired_at": at, "updated_at": time.Now()})).
		Create(&RoomStat{ChatRoomID: roomID, PairedAt: &at}).Error
}

// RecordRoomMessage counts one relayed message. Redelivered events count again.
func (r *Repo) RecordRoomMessage(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).
		Clauses(onRoom(map[string]any{
			"message_count": gorm.Expr("message_count + 1"),
			"updated_at":    time.Now(),
		})).
		Create(&RoomStat{ChatRoomID: roomID, MessageCount: 1}).Error
}

func (r *Repo) RecordRoomEnded(ctx context.Context, roomID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(onRoom(map[string]any{"ended_at": at, "updated_at": time.Now()})).
		Create(&RoomStat{ChatRoomID: roomID, EndedAt: &at}).Error
}

func (r *Repo) GetRoomStat(ctx context.Context, roomID string) (*RoomStat, error) {
	var s RoomStat
	if err := r.db.WithContext(ctx).First(&s, "chat_room_id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
