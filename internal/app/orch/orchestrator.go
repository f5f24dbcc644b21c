package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Doubts/internal/app"
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator owns the registry and directory. Every command runs under mu,
// including its store calls, so admin and closed checks never go stale mid-command.
type Orchestrator struct {
	mu       sync.Mutex
	Registry *app.Registry
	Rooms    *app.Directory
	Store    core.Store
	Fanout   *app.Broadcaster
}

func New(store core.Store, policy app.Policy) *Orchestrator {
	reg := app.NewRegistry()
	rooms := app.NewDirectory()
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Store:    store,
		Fanout:   &app.Broadcaster{Registry: reg, Rooms: rooms, Policy: policy},
	}
}

// Connect starts tracking a freshly accepted transport.
func (o *Orchestrator) Connect(id core.ConnID, conn core.SignalConnection, email string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Registry.Register(id, conn, domain.NormalizeEmail(email), cancel)
	log.Info().Str("module", "orch").Str("conn", string(id)).Int("conns", o.Registry.Count()).Msg("connected")
}

// Disconnect reaps a closed transport. Safe to call more than once.
func (o *Orchestrator) Disconnect(id core.ConnID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.Registry.Remove(id)
	if !ok {
		return
	}
	if c.Joined() {
		o.Rooms.RemoveMember(c.RoomID, id)
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(c.RoomID)).Int("conns", o.Registry.Count()).Msg("disconnected")
}

func (o *Orchestrator) Whoami(id core.ConnID) (app.ConnContext, bool) {
	return o.Registry.Lookup(id)
}

// Identity is the email a command from id is attributed to: the payload
// email when given, else the one remembered on the connection.
func (o *Orchestrator) Identity(id core.ConnID, email string) string {
	return domain.NormalizeEmail(o.identity(id, email))
}

// identity falls back to the email remembered on the connection.
func (o *Orchestrator) identity(id core.ConnID, email string) string {
	if email != "" {
		return email
	}
	c, _ := o.Registry.Lookup(id)
	return c.Email
}

func (o *Orchestrator) resolveUser(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, core.ErrUnknownUser
	}
	u, err := o.Store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnknownUser
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}

// detach removes id from any room other than keep.
func (o *Orchestrator) detach(id core.ConnID, keep domain.RoomID) {
	c, ok := o.Registry.Lookup(id)
	if !ok || !c.Joined() || c.RoomID == keep {
		return
	}
	o.Rooms.RemoveMember(c.RoomID, id)
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("from_room", string(c.RoomID)).Msg("left previous room")
}
