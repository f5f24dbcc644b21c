package orch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Doubts/internal/app"
	"github.com/dkeye/Doubts/internal/core"
	"github.com/dkeye/Doubts/internal/core/coretest"
	"github.com/dkeye/Doubts/internal/domain"
	"github.com/dkeye/Doubts/internal/protocol"
	"github.com/dkeye/Doubts/internal/storage/memory"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

type fixture struct {
	o     *Orchestrator
	store *memory.Store
}

func newFixture(t *testing.T, emails ...string) *fixture {
	t.Helper()
	s := memory.New()
	for _, e := range emails {
		if _, err := s.CreateUser(context.Background(), e, e); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	return &fixture{o: New(s, app.ClosePolicy{}), store: s}
}

func (f *fixture) connect() (core.ConnID, *coretest.Conn) {
	id := core.NewConnID()
	conn := coretest.NewConn(16)
	f.o.Connect(id, conn, "", nil)
	return id, conn
}

func TestCreateMakesAdmin(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	c1, _ := f.connect()

	room, err := f.o.Create(context.Background(), c1, "a@x.edu", "R1")
	if err != nil || room != "R1" {
		t.Fatalf("Create = %q, %v", room, err)
	}
	if admin, _ := f.o.Rooms.Admin("R1"); admin != "a@x.edu" {
		t.Fatalf("admin(R1) = %q", admin)
	}
	if !f.o.CheckAdmin(c1, "a@x.edu", "R1") {
		t.Fatal("creator should be admin")
	}
	if ctx, _ := f.o.Registry.Lookup(c1); !ctx.IsAdmin || ctx.RoomID != "R1" {
		t.Fatalf("unexpected registry context %+v", ctx)
	}
}

func TestCreateDoesNotDuplicateMarker(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	c1, _ := f.connect()
	c2, _ := f.connect()
	f.o.Create(context.Background(), c1, "a@x.edu", "R1")
	f.o.Create(context.Background(), c2, "a@x.edu", "R1")

	n, _ := f.store.DeleteRoomDoubts(context.Background(), "R1")
	if n != 1 {
		t.Fatalf("expected a single marker row, got %d", n)
	}
}

func TestCreateGeneratesCode(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	c1, _ := f.connect()
	room, err := f.o.Create(context.Background(), c1, "a@x.edu", "")
	if err != nil || !domain.ValidRoomID(room) {
		t.Fatalf("Create with empty code = %q, %v", room, err)
	}
}

func TestUnknownUserIsSilentDrop(t *testing.T) {
	f := newFixture(t)
	c1, conn := f.connect()
	if _, err := f.o.Create(context.Background(), c1, "ghost@x.edu", "R1"); !errors.Is(err, core.ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
	if len(f.o.Rooms.Members("R1")) != 0 {
		t.Fatal("unknown user must not become a member")
	}
	conn.Empty(t)
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t, "b@x.edu")
	c2, _ := f.connect()
	if err := f.o.Join(context.Background(), c2, "b@x.edu", "R1"); !errors.Is(err, core.ErrInvalidRoom) {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
	if len(f.o.Rooms.Members("R1")) != 0 {
		t.Fatal("R1 member set changed")
	}
}

func TestJoinUsesRememberedEmail(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	c1, _ := f.connect()
	f.o.Create(context.Background(), c1, "a@x.edu", "R1")

	c2 := core.NewConnID()
	f.o.Connect(c2, coretest.NewConn(4), "B@x.edu", nil)
	if err := f.o.Join(context.Background(), c2, "", "R1"); err != nil {
		t.Fatalf("Join with session email: %v", err)
	}
	if ctx, _ := f.o.Registry.Lookup(c2); ctx.Email != "b@x.edu" || ctx.IsAdmin {
		t.Fatalf("unexpected context %+v", ctx)
	}
}

func TestMembershipAcrossJoinLeaveDisconnect(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu", "c@x.edu")
	ctx := context.Background()
	c1, _ := f.connect()
	c2, _ := f.connect()
	c3, _ := f.connect()

	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	f.o.Join(ctx, c3, "c@x.edu", "R1")
	f.o.Leave(c2, "R1")
	f.o.Leave(c2, "R1")
	f.o.Disconnect(c3)
	f.o.Disconnect(c3)

	members := f.o.Rooms.Members("R1")
	if len(members) != 1 || members[0] != c1 {
		t.Fatalf("expected only c1, got %v", members)
	}
	if ctx, ok := f.o.Registry.Lookup(c2); !ok || ctx.Joined() {
		t.Fatalf("c2 should be connected but not joined, got %+v", ctx)
	}
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, _ := f.connect()
	c2, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Create(ctx, c1, "a@x.edu", "R2")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R2")

	if f.o.Rooms.IsMember("R1", c1) || f.o.Rooms.IsMember("R1", c2) {
		t.Fatal("connections still listed in their previous room")
	}
	if len(f.o.Rooms.Members("R2")) != 2 {
		t.Fatalf("expected both in R2, got %v", f.o.Rooms.Members("R2"))
	}
}

func TestAskBroadcastsPersistedID(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")

	d, err := f.o.Ask(ctx, c2, "b@x.edu", "R1", "what is a monad?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	for _, c := range []*coretest.Conn{conn1, conn2} {
		var p protocol.NewDoubtPayload
		c.Expect(t, protocol.TypeNewDoubt).Decode(t, &p)
		if p.DoubtID != d.ID || p.Doubt != "what is a monad?" || p.UserEmail != "b@x.edu" {
			t.Fatalf("unexpected payload %+v", p)
		}
	}
}

func TestAskRequiresMembership(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Create(ctx, c2, "b@x.edu", "R2")

	if _, err := f.o.Ask(ctx, c2, "b@x.edu", "R1", "spoofed"); !errors.Is(err, core.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	conn1.Empty(t)
}

func TestCloseByNonAdminIsRejected(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")

	if err := f.o.Close(ctx, c2, "R1"); !errors.Is(err, core.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if f.o.Rooms.IsClosed("R1") {
		t.Fatal("room closed by non-admin")
	}
	conn1.Empty(t)
}

func TestCloseThenAskFails(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	f.o.Ask(ctx, c2, "b@x.edu", "R1", "q")
	conn1.Expect(t, protocol.TypeNewDoubt)
	conn2.Expect(t, protocol.TypeNewDoubt)

	if err := f.o.Close(ctx, c1, "R1"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	conn1.Expect(t, protocol.TypeRoomClosed)
	conn2.Expect(t, protocol.TypeRoomClosed)
	if len(f.o.Rooms.Members("R1")) != 2 {
		t.Fatal("close must not evict members")
	}

	if _, err := f.o.Ask(ctx, c2, "b@x.edu", "R1", "late"); !errors.Is(err, core.ErrRoomClosed) {
		t.Fatalf("expected ErrRoomClosed, got %v", err)
	}
	conn1.Empty(t)
	if list, _ := f.store.ListDoubts(ctx, "R1", core.AllDoubts); len(list) != 0 {
		t.Fatalf("doubts survived close: %+v", list)
	}

	c3, _ := f.connect()
	if err := f.o.Join(ctx, c3, "b@x.edu", "R1"); !errors.Is(err, core.ErrRoomClosed) {
		t.Fatalf("join on closed room: %v", err)
	}
}

func TestClosedMarkerSurvivesEmptyRoomUntilRecreate(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	ctx := context.Background()
	c1, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Close(ctx, c1, "R1")
	f.o.Leave(c1, "R1")

	if !f.o.Rooms.IsClosed("R1") {
		t.Fatal("closed marker cleared when room emptied")
	}
	c2, _ := f.connect()
	if _, err := f.o.Create(ctx, c2, "a@x.edu", "R1"); err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if f.o.Rooms.IsClosed("R1") {
		t.Fatal("fresh create should reopen the room")
	}
}

func TestUpvoteBroadcastsToRoom(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	d, _ := f.o.Ask(ctx, c1, "a@x.edu", "R1", "q")
	conn1.Expect(t, protocol.TypeNewDoubt)
	conn2.Expect(t, protocol.TypeNewDoubt)

	if _, err := f.o.Vote(ctx, c2, d.ID, 1); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	for _, c := range []*coretest.Conn{conn1, conn2} {
		var p protocol.VotePayload
		c.Expect(t, protocol.TypeUpvoted).Decode(t, &p)
		if p.DoubtID != d.ID || p.Upvotes != 1 {
			t.Fatalf("unexpected vote payload %+v", p)
		}
	}
}

func TestRoomMarkerIsNotVotable(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	d, _ := f.o.Ask(ctx, c1, "a@x.edu", "R1", "q")
	conn1.Expect(t, protocol.TypeNewDoubt)
	conn2.Expect(t, protocol.TypeNewDoubt)

	// the marker written by Create takes the id just before the first doubt
	marker := d.ID - 1
	if _, err := f.o.Vote(ctx, c2, marker, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("vote on marker: expected ErrNotFound, got %v", err)
	}
	if err := f.o.MarkAnswered(ctx, c1, "R1", marker); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("answer marker: expected ErrNotFound, got %v", err)
	}
	conn1.Empty(t)
	conn2.Empty(t)
}

func TestDownvoteNeverNegative(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	d, _ := f.o.Ask(ctx, c1, "a@x.edu", "R1", "q")
	conn1.Expect(t, protocol.TypeNewDoubt)

	for i := 0; i < 3; i++ {
		f.o.Vote(ctx, c1, d.ID, -1)
		var p protocol.VotePayload
		conn1.Expect(t, protocol.TypeDownvoted).Decode(t, &p)
		if p.Upvotes < 0 {
			t.Fatalf("negative count broadcast: %d", p.Upvotes)
		}
	}
}

func TestVoteMissingDoubt(t *testing.T) {
	f := newFixture(t, "a@x.edu")
	c1, conn1 := f.connect()
	f.o.Create(context.Background(), c1, "a@x.edu", "R1")
	if _, err := f.o.Vote(context.Background(), c1, 999, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	conn1.Empty(t)
}

func TestMarkAnsweredAdminOnly(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Join(ctx, c2, "b@x.edu", "R1")
	d, _ := f.o.Ask(ctx, c2, "b@x.edu", "R1", "q")
	conn1.Expect(t, protocol.TypeNewDoubt)
	conn2.Expect(t, protocol.TypeNewDoubt)

	if err := f.o.MarkAnswered(ctx, c2, "R1", d.ID); !errors.Is(err, core.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := f.o.MarkAnswered(ctx, c1, "R1", d.ID); err != nil {
		t.Fatalf("MarkAnswered: %v", err)
	}
	conn2.Expect(t, protocol.TypeAnswered)
	list, _ := f.store.ListDoubts(ctx, "R1", core.AnsweredOnly)
	if len(list) != 1 {
		t.Fatalf("expected one answered doubt, got %+v", list)
	}
}

func TestAdminSurvivesReconnect(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Disconnect(c1)

	c1b, _ := f.connect()
	if err := f.o.Join(ctx, c1b, "a@x.edu", "R1"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !f.o.CheckAdmin(c1b, "a@x.edu", "R1") {
		t.Fatal("admin record should be keyed by email, not connection")
	}
	if c, _ := f.o.Registry.Lookup(c1b); !c.IsAdmin {
		t.Fatal("check-admin should promote the rejoined admin connection")
	}
	if err := f.o.Close(ctx, c1b, "R1"); err != nil {
		t.Fatalf("reconnected admin could not close: %v", err)
	}
}

func TestCheckAdminDemotes(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	c1, _ := f.connect()
	c2, _ := f.connect()
	f.o.Create(ctx, c1, "a@x.edu", "R1")
	f.o.Create(ctx, c2, "b@x.edu", "R1")

	if f.o.CheckAdmin(c1, "a@x.edu", "R1") {
		t.Fatal("a@x.edu is no longer admin")
	}
	if c, _ := f.o.Registry.Lookup(c1); c.IsAdmin {
		t.Fatal("stale admin flag not demoted")
	}
}

func TestConcurrentJoinsAndVotes(t *testing.T) {
	f := newFixture(t, "a@x.edu", "b@x.edu")
	ctx := context.Background()
	host, _ := f.connect()
	f.o.Create(ctx, host, "a@x.edu", "R1")
	d, _ := f.o.Ask(ctx, host, "a@x.edu", "R1", "q")

	var wg sync.WaitGroup
	ids := make([]core.ConnID, 20)
	for i := range ids {
		ids[i], _ = f.connect()
		wg.Add(1)
		go func(id core.ConnID) {
			defer wg.Done()
			f.o.Join(ctx, id, "b@x.edu", "R1")
			f.o.Vote(ctx, id, d.ID, 1)
		}(ids[i])
	}
	wg.Wait()

	if got := len(f.o.Rooms.Members("R1")); got != 21 {
		t.Fatalf("expected 21 members, got %d", got)
	}
	final, _ := f.store.AddVotes(ctx, d.ID, 0)
	if final.Upvotes != 20 {
		t.Fatalf("expected 20 upvotes, got %d", final.Upvotes)
	}
}
