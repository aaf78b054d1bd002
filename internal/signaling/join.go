package signaling

import (
	"github.com/rx3lixir/laba_meet/internal/admission"
	"github.com/rx3lixir/laba_meet/internal/room"
)

const waitingMessage = "Waiting for the host to let you in"

// identify works out who is speaking on a connection. An authenticated
// connection always speaks as its token's user; guests supply their own id.
func (h *Hub) identify(c *Client, rawUserID any, rawName string) (room.UserID, string, bool) {
	if c.identity != nil {
		name := c.identity.UserName
		if rawName != "" {
			name = rawName
		}
		return c.identity.UserID, name, true
	}

	userID := room.NormalizeUserID(rawUserID)
	if userID == "" {
		h.sendError(c, "userId is required")
		return "", "", false
	}
	if rawName == "" {
		rawName = string(userID)
	}
	return userID, rawName, true
}

func (h *Hub) bind(c *Client, roomID string, userID room.UserID, name string) {
	c.roomID = roomID
	c.userID = userID
	c.userName = name
}

// handleRequestJoin: request-join-room(roomId, userId, displayName)
func (h *Hub) handleRequestJoin(c *Client, msg Message) {
	roomID := msg.Text(0)
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}
	userID, name, ok := h.identify(c, msg.Arg(1), msg.Text(2))
	if !ok {
		return
	}

	if c.state == stateAdmitted && c.roomID != roomID {
		h.leave(c)
	}
	h.bind(c, roomID, userID, name)

	req := admission.Request{RoomID: roomID, UserID: userID, DisplayName: name, ConnID: c.id}

	decision := h.admission.Decide(req)
	if decision.Outcome != admission.NeedsExternalLookup {
		h.answerAdmission(c, req, decision)
		return
	}

	h.lookup(c, roomID, func(m *admission.Meeting) {
		h.answerAdmission(c, req, h.admission.DecideResolved(req, m))
	})
}

func (h *Hub) answerAdmission(c *Client, req admission.Request, d admission.Decision) {
	h.log.Debug("admission decided",
		"room_id", req.RoomID,
		"user_id", req.UserID,
		"outcome", d.Outcome,
	)

	switch d.Outcome {
	case admission.AutoApproved:
		if c.state == stateAwaitingAdmission {
			c.state = stateConnected
		}
		h.deliver(c, NewMessage(EventJoinApproved, req.RoomID))

	case admission.Queued:
		c.state = stateAwaitingAdmission
		h.deliver(c, NewMessage(EventWaitingForApproval, waitingMessage))
		if d.Added {
			h.notifyCreatorOfRequest(req.RoomID, req.UserID)
		}

	case admission.Denied:
		c.state = stateConnected
		h.deliver(c, NewMessage(EventJoinDenied, d.Reason))

	default:
		// the room vanished between lookup and decision; treat as ad-hoc
		h.deliver(c, NewMessage(EventJoinApproved, req.RoomID))
	}
}

// notifyCreatorOfRequest tells a connected creator about a new pending entry
// and then sends the full waiting list
func (h *Hub) notifyCreatorOfRequest(roomID string, userID room.UserID) {
	creator, ok := h.creatorParticipant(roomID)
	if !ok {
		return
	}

	for _, p := range h.rooms.WaitingList(roomID) {
		if p.UserID == userID {
			h.deliverTo(creator.ConnID, NewMessage(EventJoinRequest, p))
			break
		}
	}
	h.pushWaitingList(roomID)
}

func (h *Hub) pushWaitingList(roomID string) {
	creator, ok := h.creatorParticipant(roomID)
	if !ok {
		return
	}
	h.deliverTo(creator.ConnID, NewMessage(EventWaitingRoomUpdated, h.rooms.WaitingList(roomID)))
}

func (h *Hub) creatorParticipant(roomID string) (room.Participant, bool) {
	info, ok := h.rooms.Get(roomID)
	if !ok {
		return room.Participant{}, false
	}
	return h.rooms.Participant(roomID, info.CreatorID)
}

// handleJoinRoom: join-room(roomId, userId, displayName, roomType?)
func (h *Hub) handleJoinRoom(c *Client, msg Message) {
	roomID := msg.Text(0)
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}
	userID, name, ok := h.identify(c, msg.Arg(1), msg.Text(2))
	if !ok {
		return
	}
	typ, ok := room.ParseType(msg.Text(3))
	if !ok {
		typ = room.TypePublic
	}

	if c.state == stateAdmitted && c.roomID != roomID {
		h.leave(c)
	}
	h.bind(c, roomID, userID, name)

	req := admission.Request{RoomID: roomID, UserID: userID, DisplayName: name, ConnID: c.id}

	if _, exists := h.rooms.Get(roomID); exists {
		h.completeJoin(c, req)
		return
	}

	h.lookup(c, roomID, func(m *admission.Meeting) {
		if _, ok := h.admission.Resolve(roomID, m); !ok {
			info, created := h.rooms.Create(roomID, userID, name, typ)
			if created {
				h.log.Info("room created", "room_id", roomID, "creator_id", userID, "room_type", info.Type)
			}
		}
		h.completeJoin(c, req)
	})
}

func (h *Hub) completeJoin(c *Client, req admission.Request) {
	// callers resolve or create the room on the hub goroutine first
	d := h.admission.MayJoin(req)

	switch d.Outcome {
	case admission.Denied:
		c.state = stateConnected
		h.deliver(c, NewMessage(EventJoinDenied, d.Reason))
		return
	case admission.Queued:
		h.answerAdmission(c, req, d)
		return
	}

	if existing, ok := h.rooms.Participant(req.RoomID, req.UserID); ok {
		if existing.ConnID == c.id {
			// repeated join on the same connection: refresh, no new calls
			c.state = stateAdmitted
			h.deliver(c, NewMessage(EventCreatorStatus, existing.IsCreator))
			h.deliver(c, NewMessage(EventAllParticipants, h.rooms.ListParticipants(req.RoomID)))
			return
		}
		h.replaceSession(existing)
	}

	joined, err := h.rooms.AddParticipant(req.RoomID, req.UserID, req.DisplayName, c.id)
	if err != nil {
		h.log.Warn("failed to add participant", "room_id", req.RoomID, "user_id", req.UserID, "error", err)
		c.state = stateConnected
		h.deliver(c, NewMessage(EventJoinDenied, err.Error()))
		return
	}
	c.state = stateAdmitted

	list := h.rooms.ListParticipants(req.RoomID)

	h.log.Info("participant joined",
		"room_id", req.RoomID,
		"user_id", joined.UserID,
		"is_creator", joined.IsCreator,
		"participants", len(list),
	)

	h.deliver(c, NewMessage(EventCreatorStatus, joined.IsCreator))
	h.deliver(c, NewMessage(EventAllParticipants, list))

	// Incumbents call the newcomer; the newcomer never calls anyone
	call := CallUser{
		TargetUserID:       joined.UserID,
		TargetUserName:     joined.UserName,
		TargetConnectionID: joined.ConnID,
	}
	for _, p := range list {
		if p.ConnID == c.id {
			continue
		}
		h.deliverTo(p.ConnID, NewMessage(EventUserJoined, joined))
		h.deliverTo(p.ConnID, NewMessage(EventAllParticipants, list))
		h.deliverTo(p.ConnID, NewMessage(EventCallUser, call))
	}

	if joined.IsCreator {
		if waiting := h.rooms.WaitingList(req.RoomID); len(waiting) > 0 {
			h.deliver(c, NewMessage(EventWaitingRoomUpdated, waiting))
		}
	}
}

// replaceSession drops a participant's old connection when the same user joins
// again on a new one. The rest of the room sees the old session leave.
func (h *Hub) replaceSession(old room.Participant) {
	if oldClient, ok := h.clients[old.ConnID]; ok {
		h.deliver(oldClient, NewMessage(EventSessionReplaced, oldClient.roomID))
		oldClient.state = stateConnected
		oldClient.roomID = ""
	}

	userID, roomID, ok := h.rooms.RemoveByConnection(old.ConnID)
	if !ok {
		return
	}

	h.log.Info("participant reconnected, replacing old session",
		"room_id", roomID,
		"user_id", userID,
		"old_connection_id", old.ConnID,
	)

	list := h.rooms.ListParticipants(roomID)
	for _, p := range list {
		h.deliverTo(p.ConnID, NewMessage(EventUserLeft, userID))
		h.deliverTo(p.ConnID, NewMessage(EventAllParticipants, list))
	}
}
