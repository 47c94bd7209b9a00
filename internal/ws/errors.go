package ws

import (
	"errors"

	"github.com/suPer8Hu/lingochat/internal/protocol"
	"github.com/suPer8Hu/lingochat/internal/realtime"
	"github.com/suPer8Hu/lingochat/internal/users"
)

var errUserMismatch = errors.New("userId does not match this connection")

// Error codes carried in the "code" field of error frames.
const (
	CodeInvalidMessage   = "invalid_message"
	CodeUnknownType      = "unknown_type"
	CodeValidationFailed = "validation_failed"
	CodeNotJoined        = "not_joined"
	CodeUserMismatch     = "user_mismatch"
	CodeUserNotFound     = "user_not_found"
	CodeAlreadyInSession = "already_in_session"
	CodeNotParticipant   = "not_participant"
	CodePersistFailed    = "persist_failed"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal"
)

func errorEvent(err error) protocol.Error {
	var verr *protocol.ValidationError
	switch {
	case errors.Is(err, protocol.ErrMalformed):
		return protocol.NewError(CodeInvalidMessage, "Invalid message format")
	case errors.Is(err, protocol.ErrUnknownType):
		return protocol.NewError(CodeUnknownType, "Unknown message type")
	case errors.As(err, &verr):
		return protocol.NewError(CodeValidationFailed, verr.Error())
	case errors.Is(err, realtime.ErrNotJoined):
		return protocol.NewError(CodeNotJoined, realtime.ErrNotJoined.Error())
	case errors.Is(err, errUserMismatch):
		return protocol.NewError(CodeUserMismatch, errUserMismatch.Error())
	case errors.Is(err, users.ErrUserNotFound):
		return protocol.NewError(CodeUserNotFound, "User not found")
	case errors.Is(err, realtime.ErrAlreadyInSession):
		return protocol.NewError(CodeAlreadyInSession, realtime.ErrAlreadyInSession.Error())
	case errors.Is(err, realtime.ErrNotParticipant):
		return protocol.NewError(CodeNotParticipant, realtime.ErrNotParticipant.Error())
	case errors.Is(err, realtime.ErrPersistFailed):
		return protocol.NewError(CodePersistFailed, "Message could not be saved, please retry")
	case errors.Is(err, realtime.ErrRateLimited):
		return protocol.NewError(CodeRateLimited, "Too many messages, slow down")
	default:
		return protocol.NewError(CodeInternal, "Internal error")
	}
}
