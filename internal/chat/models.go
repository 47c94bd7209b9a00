package chat

import "time"

// ChatRoom is the durable record of a pairing. A room with a nil User2ID is waiting.
type ChatRoom struct {
	ID        string     `gorm:"primaryKey;type:varchar(26)" json:"id"`
	User1ID   string     `gorm:"type:varchar(36);index;not null" json:"user1Id"`
	User2ID   *string    `gorm:"type:varchar(36);index" json:"user2Id"`
	IsActive  bool       `gorm:"index;not null" json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt"`
}

func (ChatRoom) TableName() string { return "chat_rooms" }

type Message struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatRoomID       string    `gorm:"type:varchar(26);index:idx_chat_msg_room_created,priority:1;not null" json:"chatRoomId"`
	SenderID         string    `gorm:"type:varchar(36);index;not null" json:"senderId"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	OriginalLanguage string    `gorm:"type:varchar(16);not null" json:"originalLanguage"`
	CreatedAt        time.Time `gorm:"index:idx_chat_msg_room_created,priority:2" json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }

// DictionaryEntry is a translation the user explicitly chose to keep.
type DictionaryEntry struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string    `gorm:"type:varchar(36);index;not null" json:"-"`
	SourceText     string    `gorm:"type:text;not null" json:"sourceText"`
	TranslatedText string    `gorm:"type:text;not null" json:"translatedText"`
	SourceLanguage string    `gorm:"type:varchar(16);not null" json:"sourceLanguage"`
	TargetLanguage string    `gorm:"type:varchar(16);not null" json:"targetLanguage"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (DictionaryEntry) TableName() string { return "dictionary_entries" }

// RoomStat is the per-room summary maintained by the event archiver.
type RoomStat struct {
	ChatRoomID   string     `gorm:"primaryKey;type:varchar(26)" json:"chatRoomId"`
	MessageCount int64      `gorm:"not null;default:0" json:"messageCount"`
	PairedAt     *time.Time `json:"pairedAt"`
	EndedAt      *time.Time `json:"endedAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (RoomStat) TableName() string { return "room_stats" }
