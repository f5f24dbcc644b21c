package app

import (
	"context"
	"sync"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/rs/zerolog/log"
)

// ConnContext is what the server knows about a live connection.
// An empty RoomID means connected but not joined.
type ConnContext struct {
	UserID  domain.UserID
	Email   string
	RoomID  domain.RoomID
	IsAdmin bool
}

func (c ConnContext) Joined() bool { return c.RoomID != "" }

type connEntry struct {
	Conn   core.SignalConnection
	Ctx    ConnContext
	Cancel context.CancelFunc
}

// Registry maps live connections to their context. It never touches the Directory.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.ConnID]*connEntry)}
}

// Register starts tracking conn. email is the identity remembered from sign-in, if any.
func (r *Registry) Register(id core.ConnID, conn core.SignalConnection, email string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{Conn: conn, Ctx: ConnContext{Email: email}, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

// Associate overwrites the context of a registered connection. Last writer wins.
func (r *Registry) Associate(id core.ConnID, c ConnContext) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Ctx = c
	log.Info().
		Str("module", "app.registry").
		Str("conn", string(id)).
		Str("room", string(c.RoomID)).
		Str("email", c.Email).
		Bool("admin", c.IsAdmin).
		Msg("associated connection")
	return true
}

func (r *Registry) Lookup(id core.ConnID) (ConnContext, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Ctx, true
	}
	return ConnContext{}, false
}

func (r *Registry) Conn(id core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// ClearRoom drops the room association but keeps the identity.
func (r *Registry) ClearRoom(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Ctx.RoomID = ""
		e.Ctx.IsAdmin = false
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("removed room association")
}

func (r *Registry) SetAdmin(id core.ConnID, isAdmin bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Ctx.IsAdmin = isAdmin
	}
}

// Remove forgets the connection and returns its last context.
func (r *Registry) Remove(id core.ConnID) (ConnContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return ConnContext{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("removed connection")
	return e.Ctx, true
}

func (r *Registry) Cancel(id core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
