package admission

import (
	"errors"
	"fmt"

	"github.com/rx3lixir/laba_meet/internal/room"
)

// Outcome of an admission request
type Outcome int

const (
	AutoApproved Outcome = iota
	Queued
	Denied
	NeedsExternalLookup
)

func (o Outcome) String() string {
	switch o {
	case AutoApproved:
		return "auto-approved"
	case Queued:
		return "queued"
	case Denied:
		return "denied"
	case NeedsExternalLookup:
		return "needs-external-lookup"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Reasons sent to clients with a denial
const (
	ReasonPreviouslyDenied = "previously denied"
	ReasonDeniedByHost     = "denied by host"
	ReasonRoomClosed       = "room closed"
	ReasonMeetingEnded     = "meeting ended"
)

type Decision struct {
	Outcome Outcome
	Reason  string
	// Added is true when a Queued decision created a new waiting-room entry
	Added bool
}

// Request is a user asking to enter a room over a specific connection
type Request struct {
	RoomID      string
	UserID      room.UserID
	DisplayName string
	ConnID      room.ConnID
}

// Meeting is the subset of a persisted meeting record admission cares about
type Meeting struct {
	RoomID      string
	Type        room.Type
	CreatorID   room.UserID
	CreatorName string
	Title       string
}

// Controller decides who may enter a room. It owns no state of its own;
// everything lives in the registry it was built with.
type Controller struct {
	rooms *room.Registry
}

func New(rooms *room.Registry) *Controller {
	return &Controller{rooms: rooms}
}

// Decide evaluates a pre-join request against the current registry state.
// A room the registry does not know yet yields NeedsExternalLookup.
func (c *Controller) Decide(req Request) Decision {
	info, ok := c.rooms.Get(req.RoomID)
	if !ok {
		return Decision{Outcome: NeedsExternalLookup}
	}
	return c.decide(info, req)
}

// DecideResolved finishes a decision after the external lookup returned.
// The registry is re-checked first; the room may have been created while the
// lookup was in flight.
func (c *Controller) DecideResolved(req Request, m *Meeting) Decision {
	info, ok := c.Resolve(req.RoomID, m)
	if !ok {
		// no record: brand new ad-hoc meeting, created on the formal join
		return Decision{Outcome: AutoApproved}
	}
	return c.decide(info, req)
}

// Resolve makes sure a room backed by a meeting record exists in the registry.
// With a nil record only an already existing room is returned.
func (c *Controller) Resolve(roomID string, m *Meeting) (room.Info, bool) {
	if info, ok := c.rooms.Get(roomID); ok {
		return info, true
	}
	if m == nil {
		return room.Info{}, false
	}

	typ := m.Type
	if typ == "" {
		typ = room.TypePublic
	}
	info, _ := c.rooms.Create(roomID, m.CreatorID, m.CreatorName, typ)
	return info, true
}

// decide applies the checks in order: creator, denial list, room type,
// earlier approval, queue
func (c *Controller) decide(info room.Info, req Request) Decision {
	if info.IsCreator(req.UserID) {
		return Decision{Outcome: AutoApproved}
	}
	if c.rooms.IsDenied(info.ID, req.UserID) {
		return Decision{Outcome: Denied, Reason: ReasonPreviouslyDenied}
	}
	if info.Type == room.TypePublic {
		return Decision{Outcome: AutoApproved}
	}
	if c.rooms.IsApproved(info.ID, req.UserID) {
		return Decision{Outcome: AutoApproved}
	}
	return c.enqueue(info.ID, req)
}

func (c *Controller) enqueue(roomID string, req Request) Decision {
	added, err := c.rooms.Enqueue(roomID, room.PendingRequest{
		UserID:   req.UserID,
		UserName: req.DisplayName,
		ConnID:   req.ConnID,
	})
	switch {
	case errors.Is(err, room.ErrUserDenied):
		return Decision{Outcome: Denied, Reason: ReasonPreviouslyDenied}
	case errors.Is(err, room.ErrAlreadyJoined):
		return Decision{Outcome: AutoApproved}
	case errors.Is(err, room.ErrRoomNotFound):
		return Decision{Outcome: NeedsExternalLookup}
	case err != nil:
		return Decision{Outcome: Denied, Reason: err.Error()}
	}
	return Decision{Outcome: Queued, Added: added}
}

// MayJoin gates the formal join of a user into an existing room. Users that
// skipped the pre-join request of a private room are queued here instead.
func (c *Controller) MayJoin(req Request) Decision {
	info, ok := c.rooms.Get(req.RoomID)
	if !ok {
		return Decision{Outcome: NeedsExternalLookup}
	}
	if info.IsCreator(req.UserID) {
		return Decision{Outcome: AutoApproved}
	}
	if c.rooms.IsDenied(info.ID, req.UserID) {
		return Decision{Outcome: Denied, Reason: ReasonPreviouslyDenied}
	}
	if info.Type == room.TypePublic {
		return Decision{Outcome: AutoApproved}
	}
	if c.rooms.IsApproved(info.ID, req.UserID) {
		return Decision{Outcome: AutoApproved}
	}
	if _, joined := c.rooms.Participant(info.ID, req.UserID); joined {
		return Decision{Outcome: AutoApproved}
	}
	return c.enqueue(info.ID, req)
}

// Approve admits a pending user. ok is false when there was no pending entry.
func (c *Controller) Approve(roomID string, userID room.UserID) (room.PendingRequest, bool) {
	req, ok := c.rooms.TakePending(roomID, userID)
	if !ok {
		return room.PendingRequest{}, false
	}
	if err := c.rooms.Approve(roomID, userID); err != nil {
		return room.PendingRequest{}, false
	}
	return req, true
}

// Deny rejects a pending user for the rest of the room's life.
// ok is false when there was no pending entry.
func (c *Controller) Deny(roomID string, userID room.UserID) (room.PendingRequest, bool) {
	req, ok := c.rooms.TakePending(roomID, userID)
	if !ok {
		return room.PendingRequest{}, false
	}
	if err := c.rooms.Deny(roomID, userID); err != nil {
		return room.PendingRequest{}, false
	}
	return req, true
}

func (c *Controller) IsCreator(roomID string, userID room.UserID) bool {
	info, ok := c.rooms.Get(roomID)
	return ok && info.IsCreator(userID)
}
