package core

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownUser = errors.New("unknown user")
	ErrInvalidRoom = errors.New("invalid room id")
	ErrRoomClosed  = errors.New("room closed")
	ErrNotMember   = errors.New("not a member of this room")
	ErrNotAdmin    = errors.New("not the room admin")
	ErrRateLimited = errors.New("rate limited")

	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)
