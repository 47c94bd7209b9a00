package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateChatRoom(ctx context.Context, room *ChatRoom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// JoinChatRoom records the second participant of a waiting room.
func (r *Repo) JoinChatRoom(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).Model(&ChatRoom{}).
		Where("id = ? AND user2_id IS NULL", roomID).
		Update("user2_id", userID).Error
}

func (r *Repo) GetChatRoom(ctx context.Context, roomID string) (*ChatRoom, error) {
	var room ChatRoom
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// EndChatRoom marks an active room ended. Ending an already ended room is a no-op
// and reports false.
func (r *Repo) EndChatRoom(ctx context.Context, roomID string, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ChatRoom{}).
		Where("id = ? AND is_active = ?", roomID, true).
		Updates(map[string]any{
			"is_active": false,
			"ended_at":  endedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repo) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRoomMessages returns messages in ASC creation order.
func (r *Repo) ListRoomMessages(ctx context.Context, roomID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) InsertDictionaryEntry(ctx context.Context, e *DictionaryEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// ListDictionaryEntries returns entries in DESC id order (newest -> oldest).
func (r *Repo) ListDictionaryEntries(ctx context.Context, userID string, limit int) ([]DictionaryEntry, error) {
	var entries []DictionaryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
