package errors

import "fmt"

var (
	ErrUserAlreadyExists  = fmt.Errorf("username already taken")
	ErrUserNotRegistered  = fmt.Errorf("user not registered")
	ErrRoomAlreadyExists  = fmt.Errorf("room already exists")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrNotInRoom          = fmt.Errorf("user is not in a room")
	ErrNotInLobby         = fmt.Errorf("user must be in the lobby")
	ErrAlreadyInLobby     = fmt.Errorf("user is already in the lobby")
	ErrTargetUserNotFound = fmt.Errorf("target user not found")
	ErrMalformedCommand   = fmt.Errorf("unknown command or invalid format")
	ErrMailboxUnavailable = fmt.Errorf("mailbox unavailable")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)
