package app

import (
	"testing"

	"github.com/dkeye/Doubts/internal/core"
)

func TestDirectoryMembershipIsASet(t *testing.T) {
	d := NewDirectory()
	a, b := core.NewConnID(), core.NewConnID()

	if !d.AddMember("R1", a) {
		t.Fatal("first add should report added")
	}
	if d.AddMember("R1", a) {
		t.Fatal("second add of the same conn should be a no-op")
	}
	d.AddMember("R1", b)
	if got := len(d.Members("R1")); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}

	d.RemoveMember("R1", a)
	d.RemoveMember("R1", a)
	if d.IsMember("R1", a) || !d.IsMember("R1", b) {
		t.Fatal("unexpected membership after remove")
	}

	d.RemoveMember("R1", b)
	if len(d.List()) != 0 {
		t.Fatalf("empty room without admin should be pruned, got %+v", d.List())
	}
}

func TestDirectoryClosedSurvivesPruning(t *testing.T) {
	d := NewDirectory()
	a := core.NewConnID()
	d.AddMember("R1", a)
	d.SetAdmin("R1", "a@x.edu")
	d.MarkClosed("R1")
	d.RemoveMember("R1", a)

	if !d.IsClosed("R1") {
		t.Fatal("closed marker lost when membership hit zero")
	}
	if admin, ok := d.Admin("R1"); !ok || admin != "a@x.edu" {
		t.Fatalf("admin record lost: %q %v", admin, ok)
	}

	d.ClearClosed("R1")
	if d.IsClosed("R1") {
		t.Fatal("ClearClosed did not reopen the room")
	}
}

func TestDirectoryMembersIsACopy(t *testing.T) {
	d := NewDirectory()
	a := core.NewConnID()
	d.AddMember("R1", a)
	snap := d.Members("R1")
	d.RemoveMember("R1", a)
	if len(snap) != 1 || snap[0] != a {
		t.Fatalf("snapshot changed under removal: %v", snap)
	}
}
