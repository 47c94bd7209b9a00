package realtime

import "errors"

var (
	ErrNotJoined        = errors.New("join before sending chat commands")
	ErrAlreadyInSession = errors.New("user already has an open chat room; leave it first")
	ErrNotParticipant   = errors.New("not a participant of this chat room")
	ErrPersistFailed    = errors.New("message could not be saved")
	ErrRateLimited      = errors.New("too many requests")
)
