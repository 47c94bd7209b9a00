package protocol

import "time"

// Event is a server to client frame.
type Event interface {
	EventType() Type
}

type Profile struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	PreferredLanguage string `json:"preferredLanguage"`
}

type Waiting struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type UserJoined struct {
	Type       Type    `json:"type"`
	ChatRoomID string  `json:"chatRoomId"`
	OtherUser  Profile `json:"otherUser"`
}

type ChatMessage struct {
	Type             Type      `json:"type"`
	MessageID        uint64    `json:"messageId"`
	ChatRoomID       string    `json:"chatRoomId"`
	SenderID         string    `json:"senderId"`
	Content          string    `json:"content"`
	OriginalLanguage string    `json:"originalLanguage"`
	Timestamp        time.Time `json:"timestamp"`
}

type TypingSignal struct {
	Type     Type   `json:"type"`
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type Translation struct {
	Type              Type   `json:"type"`
	TranslatedContent string `json:"translatedContent"`
	OriginalLanguage  string `json:"originalLanguage"`
	TargetLanguage    string `json:"targetLanguage"`
}

type UserLeft struct {
	Type       Type   `json:"type"`
	ChatRoomID string `json:"chatRoomId"`
	UserID     string `json:"userId"`
}

type Error struct {
	Type  Type   `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (Waiting) EventType() Type      { return TypeWaiting }
func (UserJoined) EventType() Type   { return TypeUserJoined }
func (ChatMessage) EventType() Type  { return TypeMessage }
func (TypingSignal) EventType() Type { return TypeTyping }
func (Translation) EventType() Type  { return TypeTranslation }
func (UserLeft) EventType() Type     { return TypeUserLeft }
func (Error) EventType() Type        { return TypeError }

func NewWaiting(msg string) Waiting {
	return Waiting{Type: TypeWaiting, Message: msg}
}

func NewUserJoined(roomID string, other Profile) UserJoined {
	return UserJoined{Type: TypeUserJoined, ChatRoomID: roomID, OtherUser: other}
}

func NewChatMessage(id uint64, roomID, senderID, content, lang string, at time.Time) ChatMessage {
	return ChatMessage{
		Type:             TypeMessage,
		MessageID:        id,
		ChatRoomID:       roomID,
		SenderID:         senderID,
		Content:          content,
		OriginalLanguage: lang,
		Timestamp:        at,
	}
}

func NewTyping(senderID string, isTyping bool) TypingSignal {
	return TypingSignal{Type: TypeTyping, SenderID: senderID, IsTyping: isTyping}
}

func NewTranslation(text, source, target string) Translation {
	return Translation{Type: TypeTranslation, TranslatedContent: text, OriginalLanguage: source, TargetLanguage: target}
}

func NewUserLeft(roomID, userID string) UserLeft {
	return UserLeft{Type: TypeUserLeft, ChatRoomID: roomID, UserID: userID}
}

func NewError(code, msg string) Error {
	return Error{Type: TypeError, Error: msg, Code: code}
}

// ServerMessage is the union of every server frame, used by clients to decode
// without knowing the type up front.
type ServerMessage struct {
	Type              Type      `json:"type"`
	Message           string    `json:"message,omitempty"`
	ChatRoomID        string    `json:"chatRoomId,omitempty"`
	OtherUser         *Profile  `json:"otherUser,omitempty"`
	MessageID         uint64    `json:"messageId,omitempty"`
	SenderID          string    `json:"senderId,omitempty"`
	Content           string    `json:"content,omitempty"`
	OriginalLanguage  string    `json:"originalLanguage,omitempty"`
	Timestamp         time.Time `json:"timestamp,omitzero"`
	IsTyping          bool      `json:"isTyping,omitempty"`
	TranslatedContent string    `json:"translatedContent,omitempty"`
	TargetLanguage    string    `json:"targetLanguage,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	Error             string    `json:"error,omitempty"`
	Code              string    `json:"code,omitempty"`
}
