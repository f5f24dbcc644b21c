package domain

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	MaxRoomIDLen = 64
	roomCodeLen  = 6
)

type RoomID string

// NewRoomCode returns a short random code for hosts that don't bring their own.
func NewRoomCode() RoomID {
	id := ulid.Make().String()
	return RoomID(strings.ToLower(id[len(id)-roomCodeLen:]))
}

// ValidRoomID reports whether id may be used as a room code.
func ValidRoomID(id RoomID) bool {
	return id != "" && len(id) <= MaxRoomIDLen
}
