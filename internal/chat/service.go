package chat

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrInvalidEntry = errors.New("source text, translated text and both languages are required")

// Service owns the read-side rules for rooms and the dictionary. Rooms and
// messages are written by the realtime engine straight through Repo.
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) SaveDictionaryEntry(ctx context.Context, userID string, e DictionaryEntry) (*DictionaryEntry, error) {
	e.ID = 0
	e.UserID = userID
	e.SourceText = strings.TrimSpace(e.SourceText)
	e.TranslatedText = strings.TrimSpace(e.TranslatedText)
	e.SourceLanguage = strings.TrimSpace(e.SourceLanguage)
	e.TargetLanguage = strings.TrimSpace(e.TargetLanguage)
	if e.SourceText == "" || e.TranslatedText == "" || e.SourceLanguage == "" || e.TargetLanguage == "" {
		return nil, ErrInvalidEntry
	}
	if err := s.repo.InsertDictionaryEntry(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) ListDictionary(ctx context.Context, userID string, limit int) ([]DictionaryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.ListDictionaryEntries(ctx, userID, limit)
}

// RoomTranscript returns every message of a room the user took part in.
// Rooms of other users are reported as not found.
func (s *Service) RoomTranscript(ctx context.Context, userID, roomID string) (*ChatRoom, []Message, error) {
	room, err := s.repo.GetChatRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room.User1ID != userID && (room.User2ID == nil || *room.User2ID != userID) {
		return nil, nil, gorm.ErrRecordNotFound
	}
	msgs, err := s.repo.ListRoomMessages(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, msgs, nil
}
