package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Type string

const (
	TypeJoin        Type = "join"
	TypeSendMessage Type = "send_message"
	TypeTyping      Type = "typing"
	TypeTranslate   Type = "translate_message"
	TypeLeave       Type = "leave_chat"
	TypeWaiting     Type = "waiting"
	TypeUserJoined  Type = "user_joined"
	TypeMessage     Type = "message"
	TypeTranslation Type = "translation"
	TypeUserLeft    Type = "user_left"
	TypeError       Type = "error"
)

var (
	ErrMalformed   = errors.New("invalid message format")
	ErrUnknownType = errors.New("unknown message type")
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Command is one of Join, SendMessage, Typing, Translate or Leave.
type Command interface {
	Kind() Type
	Sender() string
	command()
}

type Join struct {
	UserID            string `json:"userId" validate:"required,max=36"`
	PreferredLanguage string `json:"preferredLanguage" validate:"required,bcp47_language_tag"`
}

type SendMessage struct {
	UserID     string `json:"userId" validate:"required,max=36"`
	ChatRoomID string `json:"chatRoomId" validate:"required,max=26"`
	Content    string `json:"content" validate:"required,max=4000"`
}

type Typing struct {
	UserID     string `json:"userId" validate:"required,max=36"`
	ChatRoomID string `json:"chatRoomId" validate:"required,max=26"`
	IsTyping   bool   `json:"isTyping"`
}

type Translate struct {
	UserID         string `json:"userId" validate:"required,max=36"`
	Content        string `json:"content" validate:"required,max=4000"`
	SourceLanguage string `json:"sourceLanguage" validate:"omitempty,bcp47_language_tag"`
	TargetLanguage string `json:"targetLanguage" validate:"required,bcp47_language_tag"`
}

type Leave struct {
	UserID     string `json:"userId" validate:"required,max=36"`
	ChatRoomID string `json:"chatRoomId" validate:"required,max=26"`
}

func (Join) Kind() Type        { return TypeJoin }
func (SendMessage) Kind() Type { return TypeSendMessage }
func (Typing) Kind() Type      { return TypeTyping }
func (Translate) Kind() Type   { return TypeTranslate }
func (Leave) Kind() Type       { return TypeLeave }

func (c Join) Sender() string        { return c.UserID }
func (c SendMessage) Sender() string { return c.UserID }
func (c Typing) Sender() string      { return c.UserID }
func (c Translate) Sender() string   { return c.UserID }
func (c Leave) Sender() string       { return c.UserID }

func (Join) command()        {}
func (SendMessage) command() {}
func (Typing) command()      {}
func (Translate) command()   {}
func (Leave) command()       {}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid fields: %v", e.Fields)
}

// Decode parses one client frame into its typed command and validates it.
func Decode(data []byte) (Command, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformed
	}

	var cmd Command
	var err error
	switch env.Type {
	case TypeJoin:
		cmd, err = decodeAs[Join](data)
	case TypeSendMessage:
		cmd, err = decodeAs[SendMessage](data)
	case TypeTyping:
		cmd, err = decodeAs[Typing](data)
	case TypeTranslate:
		cmd, err = decodeAs[Translate](data)
	case TypeLeave:
		cmd, err = decodeAs[Leave](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func decodeAs[T Command](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, ErrMalformed
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return v, &ValidationError{Fields: fields}
		}
		return v, err
	}
	return v, nil
}
