// Package memory is a Store kept entirely in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/domain"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	doubts    map[domain.DoubtID]*domain.Doubt
	nextUser  domain.UserID
	nextDoubt domain.DoubtID
}

func New() *Store {
	return &Store{
		users:  make(map[string]*domain.User),
		doubts: make(map[domain.DoubtID]*domain.Doubt),
	}
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, name, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		s.nextUser++
		u = &domain.User{ID: s.nextUser, Email: email}
		s.users[email] = u
	}
	u.Name = name
	cp := *u
	return &cp, nil
}

func (s *Store) RoomExists(_ context.Context, room domain.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.doubts {
		if d.RoomID == room {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) HasMarker(_ context.Context, user domain.UserID, room domain.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.doubts {
		if d.RoomID == room && d.UserID == user && d.IsMarker() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateDoubt(_ context.Context, user domain.UserID, room domain.RoomID, text string) (*domain.Doubt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDoubt++
	d := &domain.Doubt{ID: s.nextDoubt, UserID: user, RoomID: room, Text: text, CreatedAt: time.Now()}
	s.doubts[d.ID] = d
	cp := *d
	return &cp, nil
}

func (s *Store) AddVotes(_ context.Context, id domain.DoubtID, delta int) (*domain.Doubt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doubts[id]
	if !ok || d.IsMarker() {
		return nil, core.ErrNotFound
	}
	d.Upvotes = max(d.Upvotes+delta, 0)
	cp := *d
	return &cp, nil
}

func (s *Store) MarkAnswered(_ context.Context, room domain.RoomID, id domain.DoubtID) (*domain.Doubt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doubts[id]
	if !ok || d.RoomID != room || d.IsMarker() {
		return nil, core.ErrNotFound
	}
	d.Answered = true
	cp := *d
	return &cp, nil
}

func (s *Store) DeleteRoomDoubts(_ context.Context, room domain.RoomID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, d := range s.doubts {
		if d.RoomID == room {
			delete(s.doubts, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListDoubts(_ context.Context, room domain.RoomID, filter core.DoubtFilter) ([]domain.Doubt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Doubt{}
	for _, d := range s.doubts {
		if d.RoomID != room || d.IsMarker() {
			continue
		}
		if filter == core.AnsweredOnly && !d.Answered {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Close() error { return nil }
