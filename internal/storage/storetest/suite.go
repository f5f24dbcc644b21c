// Package storetest holds a behavioural suite every core.Store must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/Doubts/internal/core"
)

func Run(t *testing.T, newStore func(t *testing.T) core.Store) {
	t.Run("UserUpsert", func(t *testing.T) { testUserUpsert(t, newStore(t)) })
	t.Run("RoomMarker", func(t *testing.T) { testRoomMarker(t, newStore(t)) })
	t.Run("MarkerIsReadOnly", func(t *testing.T) { testMarkerIsReadOnly(t, newStore(t)) })
	t.Run("VotesFloorAtZero", func(t *testing.T) { testVotes(t, newStore(t)) })
	t.Run("ListAndAnswer", func(t *testing.T) { testListAndAnswer(t, newStore(t)) })
	t.Run("DeleteRoom", func(t *testing.T) { testDeleteRoom(t, newStore(t)) })
}

func testUserUpsert(t *testing.T, s core.Store) {
	ctx := context.Background()
	if _, err := s.FindUserByEmail(ctx, "a@x.edu"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	u1, err := s.CreateUser(ctx, "Ana", "a@x.edu")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u2, err := s.CreateUser(ctx, "Ana B", "a@x.edu")
	if err != nil {
		t.Fatalf("CreateUser again: %v", err)
	}
	if u1.ID != u2.ID || u2.Name != "Ana B" {
		t.Fatalf("expected upsert by email, got %+v then %+v", u1, u2)
	}
	found, err := s.FindUserByEmail(ctx, "a@x.edu")
	if err != nil || found.ID != u1.ID {
		t.Fatalf("FindUserByEmail = %+v, %v", found, err)
	}
}

func testRoomMarker(t *testing.T, s core.Store) {
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Ana", "a@x.edu")
	if ok, _ := s.RoomExists(ctx, "R1"); ok {
		t.Fatal("room should not exist yet")
	}
	if _, err := s.CreateDoubt(ctx, u.ID, "R1", ""); err != nil {
		t.Fatalf("CreateDoubt marker: %v", err)
	}
	if ok, _ := s.RoomExists(ctx, "R1"); !ok {
		t.Fatal("marker should make the room known")
	}
	if ok, _ := s.HasMarker(ctx, u.ID, "R1"); !ok {
		t.Fatal("HasMarker should see the marker")
	}
	if ok, _ := s.HasMarker(ctx, u.ID, "R2"); ok {
		t.Fatal("HasMarker leaked across rooms")
	}
	list, _ := s.ListDoubts(ctx, "R1", core.AllDoubts)
	if len(list) != 0 {
		t.Fatalf("markers must not be listed, got %+v", list)
	}
}

func testMarkerIsReadOnly(t *testing.T, s core.Store) {
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Ana", "a@x.edu")
	m, err := s.CreateDoubt(ctx, u.ID, "R1", "")
	if err != nil {
		t.Fatalf("CreateDoubt marker: %v", err)
	}
	if _, err := s.AddVotes(ctx, m.ID, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("AddVotes on marker: expected ErrNotFound, got %v", err)
	}
	if _, err := s.MarkAnswered(ctx, "R1", m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("MarkAnswered on marker: expected ErrNotFound, got %v", err)
	}
	if list, _ := s.ListDoubts(ctx, "R1", core.AnsweredOnly); len(list) != 0 {
		t.Fatalf("marker surfaced as answered: %+v", list)
	}
}

func testVotes(t *testing.T, s core.Store) {
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Ana", "a@x.edu")
	d, _ := s.CreateDoubt(ctx, u.ID, "R1", "why?")

	for i := 0; i < 3; i++ {
		got, err := s.AddVotes(ctx, d.ID, -1)
		if err != nil {
			t.Fatalf("AddVotes: %v", err)
		}
		if got.Upvotes != 0 {
			t.Fatalf("downvote below zero: %d", got.Upvotes)
		}
	}
	got, _ := s.AddVotes(ctx, d.ID, 1)
	if got.Upvotes != 1 || got.RoomID != "R1" {
		t.Fatalf("unexpected doubt after upvote: %+v", got)
	}
	if _, err := s.AddVotes(ctx, d.ID+100, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing doubt, got %v", err)
	}
}

func testListAndAnswer(t *testing.T, s core.Store) {
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Ana", "a@x.edu")
	first, _ := s.CreateDoubt(ctx, u.ID, "R1", "first")
	second, _ := s.CreateDoubt(ctx, u.ID, "R1", "second")
	s.CreateDoubt(ctx, u.ID, "R2", "elsewhere")

	if _, err := s.MarkAnswered(ctx, "R2", second.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("MarkAnswered across rooms should be ErrNotFound, got %v", err)
	}
	if _, err := s.MarkAnswered(ctx, "R1", second.ID); err != nil {
		t.Fatalf("MarkAnswered: %v", err)
	}

	all, _ := s.ListDoubts(ctx, "R1", core.AllDoubts)
	if len(all) != 2 || all[0].ID != first.ID || all[1].ID != second.ID {
		t.Fatalf("expected ascending ids, got %+v", all)
	}
	answered, _ := s.ListDoubts(ctx, "R1", core.AnsweredOnly)
	if len(answered) != 1 || answered[0].ID != second.ID || !answered[0].Answered {
		t.Fatalf("unexpected answered list %+v", answered)
	}
}

func testDeleteRoom(t *testing.T, s core.Store) {
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, "Ana", "a@x.edu")
	s.CreateDoubt(ctx, u.ID, "R1", "")
	s.CreateDoubt(ctx, u.ID, "R1", "q")
	s.CreateDoubt(ctx, u.ID, "R2", "q")

	n, err := s.DeleteRoomDoubts(ctx, "R1")
	if err != nil || n != 2 {
		t.Fatalf("DeleteRoomDoubts = %d, %v", n, err)
	}
	if ok, _ := s.RoomExists(ctx, "R1"); ok {
		t.Fatal("room still known after delete")
	}
	if ok, _ := s.RoomExists(ctx, "R2"); !ok {
		t.Fatal("delete touched another room")
	}
}
