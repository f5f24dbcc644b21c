package app

import (
	"sort"
	"sync"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomEntry keeps membership, admin and the closed marker as independent fields.
type roomEntry struct {
	members map[core.ConnID]struct{}
	admin   string
	closed  bool
}

type RoomInfo struct {
	ID      domain.RoomID `json:"roomId"`
	Members int           `json:"members"`
	Closed  bool          `json:"closed"`
}

// Directory maps room codes to their members, admin email and closed marker.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomID]*roomEntry)}
}

// entry must be called with mu held for writing.
func (d *Directory) entry(room domain.RoomID) *roomEntry {
	e, ok := d.rooms[room]
	if !ok {
		e = &roomEntry{members: make(map[core.ConnID]struct{})}
		d.rooms[room] = e
	}
	return e
}

func (d *Directory) EnsureRoom(room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entry(room)
}

// AddMember is idempotent; it reports whether id was newly added.
func (d *Directory) AddMember(room domain.RoomID, id core.ConnID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.entry(room)
	if _, ok := e.members[id]; ok {
		return false
	}
	e.members[id] = struct{}{}
	log.Info().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(id)).Msg("member added")
	return true
}

// RemoveMember drops id from the room. An empty room is pruned only when it
// carries neither an admin record nor a closed marker.
func (d *Directory) RemoveMember(room domain.RoomID, id core.ConnID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rooms[room]
	if !ok {
		return
	}
	if _, ok := e.members[id]; !ok {
		return
	}
	delete(e.members, id)
	log.Info().Str("module", "app.directory").Str("room", string(room)).Str("conn", string(id)).Msg("member removed")
	if len(e.members) == 0 && e.admin == "" && !e.closed {
		delete(d.rooms, room)
		log.Debug().Str("module", "app.directory").Str("room", string(room)).Msg("room pruned")
	}
}

func (d *Directory) IsMember(room domain.RoomID, id core.ConnID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.rooms[room]; ok {
		_, ok = e.members[id]
		return ok
	}
	return false
}

func (d *Directory) SetAdmin(room domain.RoomID, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.entry(room)
	if e.admin != "" && e.admin != email {
		log.Warn().Str("module", "app.directory").Str("room", string(room)).Str("old", e.admin).Str("new", email).Msg("room admin replaced")
	}
	e.admin = email
}

func (d *Directory) Admin(room domain.RoomID) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.rooms[room]; ok && e.admin != "" {
		return e.admin, true
	}
	return "", false
}

func (d *Directory) MarkClosed(room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entry(room).closed = true
	log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room closed")
}

func (d *Directory) IsClosed(room domain.RoomID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.rooms[room]
	return ok && e.closed
}

func (d *Directory) ClearClosed(room domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.rooms[room]; ok && e.closed {
		e.closed = false
		log.Info().Str("module", "app.directory").Str("room", string(room)).Msg("room reopened")
	}
}

// Members returns a copy of the member set, safe to iterate without the lock.
func (d *Directory) Members(room domain.RoomID) []core.ConnID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.rooms[room]
	if !ok {
		return nil
	}
	out := make([]core.ConnID, 0, len(e.members))
	for id := range e.members {
		out = append(out, id)
	}
	return out
}

func (d *Directory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, e := range d.rooms {
		out = append(out, RoomInfo{ID: id, Members: len(e.members), Closed: e.closed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
