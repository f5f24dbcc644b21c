// Package protocol defines the JSON envelopes exchanged over the signal socket.
package protocol

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
)

// Inbound types.
const (
	TypeJoin         = "join"
	TypeCreate       = "create"
	TypeCheckAdmin   = "check-admin"
	TypeAskDoubt     = "ask-doubt"
	TypeUpvote       = "upvote"
	TypeDownvote     = "downvote"
	TypeMarkAnswered = "mark-answered"
	TypeLeave        = "leave"
	TypeClose        = "close"
	TypePing         = "ping"
	TypeWhoAmI       = "whoami"
)

// Outbound types.
const (
	TypeSystem      = "system"
	TypeError       = "error"
	TypeAdminStatus = "admin-status"
	TypeNewDoubt    = "new doubt triggered"
	TypeUpvoted     = "upvote triggered"
	TypeDownvoted   = "downvote triggered"
	TypeAnswered    = "answered triggered"
	TypeRoomClosed  = "room-closed"
	TypePong        = "pong"
)

var (
	ErrBadEnvelope   = errors.New("bad envelope")
	ErrMissingField  = errors.New("missing required field")
	ErrUnknownType   = errors.New("unknown message type")
	ErrRoomIDTooLong = errors.New("room id too long")
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a raw frame into an envelope. The payload is left raw.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Join(ErrBadEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, ErrBadEnvelope
	}
	return env, nil
}

// DecodePayload unmarshals the payload into v and runs its validation.
func DecodePayload[T interface{ Validate() error }](env Envelope, v T) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return ErrMissingField
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return errors.Join(ErrBadEnvelope, err)
	}
	return v.Validate()
}

type RoomPayload struct {
	Email  string        `json:"email"`
	RoomID domain.RoomID `json:"roomId"`
}

func (p *RoomPayload) Validate() error {
	p.Email = domain.NormalizeEmail(p.Email)
	p.RoomID = domain.RoomID(strings.TrimSpace(string(p.RoomID)))
	if len(p.RoomID) > domain.MaxRoomIDLen {
		return ErrRoomIDTooLong
	}
	return nil
}

type AskPayload struct {
	RoomPayload
	Doubt string `json:"doubt"`
}

func (p *AskPayload) Validate() error {
	if err := p.RoomPayload.Validate(); err != nil {
		return err
	}
	p.Doubt = strings.TrimSpace(p.Doubt)
	if p.RoomID == "" || p.Doubt == "" {
		return ErrMissingField
	}
	return nil
}

type DoubtPayload struct {
	RoomPayload
	DoubtID domain.DoubtID `json:"doubtId"`
}

func (p *DoubtPayload) Validate() error {
	if err := p.RoomPayload.Validate(); err != nil {
		return err
	}
	if p.DoubtID <= 0 {
		return ErrMissingField
	}
	return nil
}

type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (o Outbound) Frame() core.Frame {
	b, err := json.Marshal(o)
	if err != nil {
		// payloads are plain structs; only a programming error lands here
		panic(err)
	}
	return b
}

type SystemPayload struct {
	Msg    string        `json:"msg"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

func System(msg string, room domain.RoomID) Outbound {
	return Outbound{TypeSystem, SystemPayload{Msg: msg, RoomID: room}}
}

type ErrorPayload struct {
	Msg string `json:"msg"`
}

func Error(msg string) Outbound {
	return Outbound{TypeError, ErrorPayload{Msg: msg}}
}

type AdminStatusPayload struct {
	IsAdmin bool `json:"isAdmin"`
}

func AdminStatus(isAdmin bool) Outbound {
	return Outbound{TypeAdminStatus, AdminStatusPayload{IsAdmin: isAdmin}}
}

type NewDoubtPayload struct {
	Doubt     string         `json:"doubt"`
	UserEmail string         `json:"userEmail"`
	DoubtID   domain.DoubtID `json:"doubtId"`
}

func NewDoubt(d *domain.Doubt, email string) Outbound {
	return Outbound{TypeNewDoubt, NewDoubtPayload{Doubt: d.Text, UserEmail: email, DoubtID: d.ID}}
}

type VotePayload struct {
	DoubtID domain.DoubtID `json:"doubtId"`
	Upvotes int            `json:"upvotes"`
}

// Voted builds the vote-changed broadcast. The count never goes below zero.
func Voted(d *domain.Doubt, delta int) Outbound {
	t := TypeUpvoted
	if delta < 0 {
		t = TypeDownvoted
	}
	return Outbound{t, VotePayload{DoubtID: d.ID, Upvotes: max(d.Upvotes, 0)}}
}

type AnsweredPayload struct {
	DoubtID domain.DoubtID `json:"doubtId"`
}

func Answered(id domain.DoubtID) Outbound {
	return Outbound{TypeAnswered, AnsweredPayload{DoubtID: id}}
}

type RoomClosedPayload struct {
	Message string        `json:"message"`
	RoomID  domain.RoomID `json:"roomId"`
}

func RoomClosed(room domain.RoomID) Outbound {
	return Outbound{TypeRoomClosed, RoomClosedPayload{Message: "The host has closed this room", RoomID: room}}
}

type WhoAmIPayload struct {
	Email   string        `json:"email,omitempty"`
	RoomID  domain.RoomID `json:"roomId,omitempty"`
	IsAdmin bool          `json:"isAdmin"`
}

func WhoAmI(email string, room domain.RoomID, isAdmin bool) Outbound {
	return Outbound{TypeWhoAmI, WhoAmIPayload{Email: email, RoomID: room, IsAdmin: isAdmin}}
}

func Pong() Outbound {
	return Outbound{TypePong, struct{}{}}
}
