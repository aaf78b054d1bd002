package signaling

import (
	"context"

	"github.com/rx3lixir/laba_meet/internal/admission"
	"github.com/rx3lixir/laba_meet/internal/room"
)

// leave takes c out of the room it is in, tells the rest of the room and
// removes the room once nobody is left
func (h *Hub) leave(c *Client) {
	userID, roomID, ok := h.rooms.RemoveByConnection(c.id)
	c.state = stateConnected
	if !ok {
		return
	}

	list := h.rooms.ListParticipants(roomID)

	h.log.Info("participant left",
		"room_id", roomID,
		"user_id", userID,
		"remaining", len(list),
	)

	for _, p := range list {
		h.deliverTo(p.ConnID, NewMessage(EventUserLeft, userID))
		h.deliverTo(p.ConnID, NewMessage(EventAllParticipants, list))
	}

	h.removeIfEmpty(roomID)
}

func (h *Hub) removeIfEmpty(roomID string) {
	deleted, orphaned := h.rooms.DeleteIfEmpty(roomID)
	if !deleted {
		return
	}

	h.log.Info("room deleted", "room_id", roomID, "orphaned_requests", len(orphaned))

	for _, req := range orphaned {
		if tc, ok := h.clients[req.ConnID]; ok {
			tc.state = stateConnected
			h.deliver(tc, NewMessage(EventJoinDenied, admission.ReasonRoomClosed))
		}
	}
}

// handleDisconnect cleans up after a connection that went away
func (h *Hub) handleDisconnect(c *Client) {
	h.leave(c)

	for _, roomID := range h.rooms.PurgePendingByConnection(c.id) {
		h.log.Debug("dropped pending request of closed connection", "room_id", roomID, "connection_id", c.id)
		h.pushWaitingList(roomID)
		h.rooms.DeleteIfIdle(roomID)
	}

	if c.roomID != "" {
		h.rooms.DeleteIfIdle(c.roomID)
	}
	c.deferred = nil
}

// handleLeaveRoom: leave-room(roomId)
func (h *Hub) handleLeaveRoom(c *Client, msg Message) {
	roomID, _, ok := h.rooms.ParticipantByConn(c.id)
	if !ok {
		return
	}
	if claimed := msg.Text(0); claimed != "" && claimed != roomID {
		h.sendError(c, "not in room")
		return
	}
	h.leave(c)
	c.roomID = ""
}

// handleEndMeeting: end-meeting(roomId). Host only.
func (h *Hub) handleEndMeeting(c *Client, msg Message) {
	roomID := msg.Text(0)
	if !h.requireCreator(c, roomID, "end the meeting") {
		return
	}

	h.closeRoom(roomID, admission.ReasonMeetingEnded)

	h.persist("meeting end", roomID, func(ctx context.Context) error {
		return h.meetings.EndMeeting(ctx, roomID)
	})
}

// closeRoom removes a live room outright: participants get meeting-ended and
// anyone still waiting is turned away with reason
func (h *Hub) closeRoom(roomID, reason string) {
	participants, waiting, ok := h.rooms.Delete(roomID)
	if !ok {
		return
	}

	h.log.Info("room closed",
		"room_id", roomID,
		"participants", len(participants),
		"waiting", len(waiting),
		"reason", reason,
	)

	for _, p := range participants {
		tc, ok := h.clients[p.ConnID]
		if !ok {
			continue
		}
		tc.state = stateConnected
		tc.roomID = ""
		h.deliver(tc, NewMessage(EventMeetingEnded, roomID))
	}

	for _, req := range waiting {
		tc, ok := h.clients[req.ConnID]
		if !ok {
			continue
		}
		tc.state = stateConnected
		h.deliver(tc, NewMessage(EventJoinDenied, reason))
	}
}

// handleCheckCreatorStatus: check-creator-status(roomId, userId?)
func (h *Hub) handleCheckCreatorStatus(c *Client, msg Message) {
	roomID := msg.Text(0)
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return
	}

	userID := c.userID
	if c.identity != nil {
		userID = c.identity.UserID
	} else if raw := room.NormalizeUserID(msg.Arg(1)); raw != "" {
		userID = raw
	}
	if userID == "" {
		h.deliver(c, NewMessage(EventCreatorStatus, false))
		return
	}

	if info, ok := h.rooms.Get(roomID); ok {
		h.deliver(c, NewMessage(EventCreatorStatus, info.IsCreator(userID)))
		return
	}

	h.lookup(c, roomID, func(m *admission.Meeting) {
		h.deliver(c, NewMessage(EventCreatorStatus, m != nil && m.CreatorID == userID))
	})
}
