package core

import (
	"context"

	"github.com/dkeye/Doubts/internal/domain"
	"github.com/google/uuid"
)

// Frame is a serialized outbound envelope.
type Frame []byte

// ConnID is issued once per accepted transport and never reused.
type ConnID string

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Store is the persistence gateway. Implementations must be safe for concurrent use.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	// CreateUser inserts or renames the user keyed by email.
	CreateUser(ctx context.Context, name, email string) (*domain.User, error)

	// RoomExists reports whether any doubt row, marker included, references the room.
	RoomExists(ctx context.Context, room domain.RoomID) (bool, error)
	HasMarker(ctx context.Context, user domain.UserID, room domain.RoomID) (bool, error)

	CreateDoubt(ctx context.Context, user domain.UserID, room domain.RoomID, text string) (*domain.Doubt, error)
	// AddVotes applies delta and floors the result at zero.
	AddVotes(ctx context.Context, id domain.DoubtID, delta int) (*domain.Doubt, error)
	MarkAnswered(ctx context.Context, room domain.RoomID, id domain.DoubtID) (*domain.Doubt, error)
	DeleteRoomDoubts(ctx context.Context, room domain.RoomID) (int64, error)
	// ListDoubts returns non-marker doubts ordered by id.
	ListDoubts(ctx context.Context, room domain.RoomID, filter DoubtFilter) ([]domain.Doubt, error)

	Close() error
}

type DoubtFilter int

const (
	AllDoubts DoubtFilter = iota
	AnsweredOnly
)

// SessionEmailKey is where sign-in stores the user's email in the cookie session.
const SessionEmailKey = "email"
