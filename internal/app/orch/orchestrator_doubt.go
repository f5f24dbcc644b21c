package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/dkeye/Doubts/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Ask persists a doubt and broadcasts it to the room, sender included.
func (o *Orchestrator) Ask(ctx context.Context, id core.ConnID, email string, room domain.RoomID, text string) (*domain.Doubt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Rooms.IsClosed(room) {
		return nil, core.ErrRoomClosed
	}
	c, ok := o.Registry.Lookup(id)
	if !ok || c.RoomID != room || !o.Rooms.IsMember(room, id) {
		return nil, core.ErrNotMember
	}
	exists, err := o.Store.RoomExists(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("check room: %w", err)
	}
	if !exists {
		return nil, core.ErrInvalidRoom
	}
	email = o.identity(id, email)
	user, err := o.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}

	d, err := o.Store.CreateDoubt(ctx, user.ID, room, text)
	if err != nil {
		return nil, fmt.Errorf("create doubt: %w", err)
	}
	res := o.Fanout.Broadcast(room, protocol.NewDoubt(d, email).Frame())
	log.Info().Str("module", "orch").Str("room", string(room)).Int64("doubt", int64(d.ID)).Int("sent_to", res.SentTo).Msg("doubt asked")
	return d, nil
}

// Vote moves a doubt's count by delta and broadcasts the new count to the
// doubt's room.
func (o *Orchestrator) Vote(ctx context.Context, id core.ConnID, doubt domain.DoubtID, delta int) (*domain.Doubt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, err := o.Store.AddVotes(ctx, doubt, delta)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("add votes: %w", err)
	}
	// room markers are never votable, whatever the store let through
	if d.IsMarker() {
		return nil, core.ErrNotFound
	}
	o.Fanout.Broadcast(d.RoomID, protocol.Voted(d, delta).Frame())
	log.Debug().Str("module", "orch").Str("conn", string(id)).Int64("doubt", int64(d.ID)).Int("delta", delta).Msg("vote")
	return d, nil
}

// MarkAnswered flags a doubt as answered. Admin only.
func (o *Orchestrator) MarkAnswered(ctx context.Context, id core.ConnID, room domain.RoomID, doubt domain.DoubtID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	c, ok := o.Registry.Lookup(id)
	if room == "" {
		room = c.RoomID
	}
	admin, has := o.Rooms.Admin(room)
	if !ok || !has || c.Email != admin {
		return core.ErrNotAdmin
	}
	d, err := o.Store.MarkAnswered(ctx, room, doubt)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("mark answered: %w", err)
	}
	if d.IsMarker() {
		return core.ErrNotFound
	}
	o.Fanout.Broadcast(room, protocol.Answered(d.ID).Frame())
	return nil
}
