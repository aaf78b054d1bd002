package admission

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/laba_meet/internal/room"
)

func req(roomID string, userID room.UserID) Request {
	return Request{RoomID: roomID, UserID: userID, DisplayName: string(userID), ConnID: room.ConnID("conn-" + userID)}
}

func TestUnknownRoomNeedsLookup(t *testing.T) {
	c := New(room.NewRegistry())
	assert.Equal(t, NeedsExternalLookup, c.Decide(req("r1", "a")).Outcome)
}

func TestDecideResolvedWithoutRecordIsAdHoc(t *testing.T) {
	rooms := room.NewRegistry()
	c := New(rooms)

	d := c.DecideResolved(req("r2", "c"), nil)
	assert.Equal(t, AutoApproved, d.Outcome)
	_, ok := rooms.Get("r2")
	assert.False(t, ok, "ad-hoc rooms are created on the formal join")
}

func TestDecideResolvedUsesRecordCreator(t *testing.T) {
	rooms := room.NewRegistry()
	c := New(rooms)
	m := &Meeting{RoomID: "r1", Type: room.TypePrivate, CreatorID: "host", CreatorName: "Host"}

	d := c.DecideResolved(req("r1", "guest"), m)
	assert.Equal(t, Queued, d.Outcome)
	assert.True(t, d.Added)

	info, ok := rooms.Get("r1")
	require.True(t, ok)
	assert.Equal(t, room.UserID("host"), info.CreatorID)

	assert.Equal(t, AutoApproved, c.DecideResolved(req("r1", "host"), m).Outcome)
}

func TestResolveDoesNotOverwriteRacingCreate(t *testing.T) {
	rooms := room.NewRegistry()
	c := New(rooms)

	rooms.Create("r1", "first", "First", room.TypePublic)
	info, ok := c.Resolve("r1", &Meeting{Type: room.TypePrivate, CreatorID: "late"})
	require.True(t, ok)
	assert.Equal(t, room.UserID("first"), info.CreatorID)
	assert.Equal(t, room.TypePublic, info.Type)
}

func TestPublicRoomAutoApproves(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePublic)
	c := New(rooms)

	assert.Equal(t, AutoApproved, c.Decide(req("r1", "b")).Outcome)
	assert.Empty(t, rooms.WaitingList("r1"))
}

func TestPrivateRoomQueuesOnce(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	d := c.Decide(req("r1", "b"))
	assert.Equal(t, Queued, d.Outcome)
	assert.True(t, d.Added)

	d = c.Decide(req("r1", "b"))
	assert.Equal(t, Queued, d.Outcome)
	assert.False(t, d.Added)
	assert.Len(t, rooms.WaitingList("r1"), 1)
}

func TestDenialIsPermanentForRoomLifetime(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	c.Decide(req("r1", "b"))
	_, ok := c.Deny("r1", "b")
	require.True(t, ok)

	for range 5 {
		d := c.Decide(req("r1", "b"))
		assert.Equal(t, Denied, d.Outcome)
		assert.Equal(t, ReasonPreviouslyDenied, d.Reason)
	}
	assert.Empty(t, rooms.WaitingList("r1"))
	assert.Equal(t, Denied, c.MayJoin(req("r1", "b")).Outcome)

	// once the room is gone the history goes with it
	deleted, _ := rooms.DeleteIfEmpty("r1")
	require.True(t, deleted)
	rooms.Create("r1", "a", "A", room.TypePrivate)
	assert.Equal(t, Queued, c.Decide(req("r1", "b")).Outcome)
}

func TestCreatorOverride(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	for i := range 10 {
		u := room.UserID(fmt.Sprintf("u%d", i))
		c.Decide(req("r1", u))
		if i%2 == 0 {
			c.Deny("r1", u)
		}
	}

	assert.Equal(t, AutoApproved, c.Decide(req("r1", "a")).Outcome)
	assert.Equal(t, AutoApproved, c.MayJoin(req("r1", "a")).Outcome)
	assert.True(t, c.IsCreator("r1", "a"))
	assert.False(t, c.IsCreator("r1", "u1"))
}

func TestApproveAndDenyWithoutPendingAreNoops(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	_, ok := c.Approve("r1", "ghost")
	assert.False(t, ok)
	_, ok = c.Deny("r1", "ghost")
	assert.False(t, ok)
	assert.False(t, rooms.IsDenied("r1", "ghost"))
}

func TestApproveLetsUserJoin(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	assert.Equal(t, Queued, c.Decide(req("r1", "b")).Outcome)
	pending, ok := c.Approve("r1", "b")
	require.True(t, ok)
	assert.Equal(t, room.ConnID("conn-b"), pending.ConnID)
	assert.Empty(t, rooms.WaitingList("r1"))

	assert.Equal(t, AutoApproved, c.MayJoin(req("r1", "b")).Outcome)
}

func TestApprovedUserAskingAgainIsNotRequeued(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	c.Decide(req("r1", "b"))
	_, ok := c.Approve("r1", "b")
	require.True(t, ok)

	d := c.Decide(req("r1", "b"))
	assert.Equal(t, AutoApproved, d.Outcome)
	assert.False(t, d.Added)
	assert.Empty(t, rooms.WaitingList("r1"))
}

func TestMayJoinQueuesUnapprovedUser(t *testing.T) {
	rooms := room.NewRegistry()
	rooms.Create("r1", "a", "A", room.TypePrivate)
	c := New(rooms)

	d := c.MayJoin(req("r1", "sneaky"))
	assert.Equal(t, Queued, d.Outcome)
	assert.Len(t, rooms.WaitingList("r1"), 1)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "queued", Queued.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
