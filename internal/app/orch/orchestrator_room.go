package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Doubts/internal/app"
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/dkeye/Doubts/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Create makes id the admin of room, generating a code when room is empty.
// A fresh create reopens a closed room with the same code.
func (o *Orchestrator) Create(ctx context.Context, id core.ConnID, email string, room domain.RoomID) (domain.RoomID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	email = o.identity(id, email)
	if room == "" {
		room = domain.NewRoomCode()
	}
	user, err := o.resolveUser(ctx, email)
	if err != nil {
		return "", err
	}

	// one marker per (user, room) so reconnecting hosts don't pile them up
	has, err := o.Store.HasMarker(ctx, user.ID, room)
	if err != nil {
		return "", fmt.Errorf("check marker: %w", err)
	}
	if !has {
		if _, err := o.Store.CreateDoubt(ctx, user.ID, room, ""); err != nil {
			return "", fmt.Errorf("create marker: %w", err)
		}
	}

	o.detach(id, room)
	o.Rooms.EnsureRoom(room)
	o.Rooms.ClearClosed(room)
	o.Rooms.SetAdmin(room, email)
	o.Rooms.AddMember(room, id)
	o.Registry.Associate(id, app.ConnContext{UserID: user.ID, Email: email, RoomID: room, IsAdmin: true})
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Str("email", email).Msg("room created")
	return room, nil
}

// Join adds id to an existing, open room as a regular member.
func (o *Orchestrator) Join(ctx context.Context, id core.ConnID, email string, room domain.RoomID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if room == "" {
		return core.ErrInvalidRoom
	}
	if o.Rooms.IsClosed(room) {
		return core.ErrRoomClosed
	}
	exists, err := o.Store.RoomExists(ctx, room)
	if err != nil {
		return fmt.Errorf("check room: %w", err)
	}
	if !exists {
		return core.ErrInvalidRoom
	}
	email = o.identity(id, email)
	user, err := o.resolveUser(ctx, email)
	if err != nil {
		return err
	}

	o.detach(id, room)
	o.Rooms.AddMember(room, id)
	o.Registry.Associate(id, app.ConnContext{UserID: user.ID, Email: email, RoomID: room})
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Msg("joined")
	return nil
}

// CheckAdmin compares the room's admin record with email. When the asking
// connection is in that room under that email its admin flag is synced.
func (o *Orchestrator) CheckAdmin(id core.ConnID, email string, room domain.RoomID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	email = o.identity(id, email)
	if room == "" {
		room = c.RoomID
	}
	admin, has := o.Rooms.Admin(room)
	isAdmin := has && email != "" && admin == email
	if ok && c.RoomID == room && c.Email == email && c.IsAdmin != isAdmin {
		o.Registry.SetAdmin(id, isAdmin)
		log.Info().Str("module", "orch").Str("conn", string(id)).Bool("admin", isAdmin).Msg("admin flag synced")
	}
	return isAdmin
}

// Leave drops id from room, or from its current room when room is empty,
// and returns the room it left. Leaving a room one is not in is a no-op.
func (o *Orchestrator) Leave(id core.ConnID, room domain.RoomID) domain.RoomID {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if room == "" {
		room = c.RoomID
	}
	if room == "" {
		return ""
	}
	o.Rooms.RemoveMember(room, id)
	if ok && c.RoomID == room {
		o.Registry.ClearRoom(id)
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Msg("left")
	return room
}

// Close marks the room closed, tells every member, then wipes its doubts.
// Members stay in the directory until they leave.
func (o *Orchestrator) Close(ctx context.Context, id core.ConnID, room domain.RoomID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if !ok {
		return core.ErrNotAdmin
	}
	if room == "" {
		room = c.RoomID
	}
	admin, has := o.Rooms.Admin(room)
	if !has || c.Email == "" || c.Email != admin {
		log.Warn().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Str("email", c.Email).Msg("close rejected")
		return core.ErrNotAdmin
	}

	o.Rooms.MarkClosed(room)
	o.Fanout.Broadcast(room, protocol.RoomClosed(room).Frame())

	n, err := o.Store.DeleteRoomDoubts(ctx, room)
	if err != nil {
		return fmt.Errorf("delete doubts: %w", err)
	}
	log.Info().Str("module", "orch").Str("room", string(room)).Int64("deleted", n).Msg("room closed")
	return nil
}
