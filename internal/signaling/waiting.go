package signaling

import (
	"github.com/rx3lixir/laba_meet/internal/admission"
	"github.com/rx3lixir/laba_meet/internal/room"
)

// isCreatorConn reports whether c is the connection the room's creator joined on.
// Privileged room actions are only honored from that connection.
func (h *Hub) isCreatorConn(c *Client, roomID string) bool {
	creator, ok := h.creatorParticipant(roomID)
	return ok && creator.ConnID == c.id
}

func (h *Hub) requireCreator(c *Client, roomID, action string) bool {
	if roomID == "" {
		h.sendError(c, "roomId is required")
		return false
	}
	if !h.isCreatorConn(c, roomID) {
		h.log.Warn("rejected privileged action from non-creator",
			"action", action,
			"room_id", roomID,
			"connection_id", c.id,
			"user_id", c.userID,
		)
		h.sendError(c, "only the host can "+action)
		return false
	}
	return true
}

// handleApprove: approve-join(roomId, userId)
func (h *Hub) handleApprove(c *Client, msg Message) {
	roomID := msg.Text(0)
	if !h.requireCreator(c, roomID, "approve join requests") {
		return
	}
	target := room.NormalizeUserID(msg.Arg(1))

	pending, ok := h.admission.Approve(roomID, target)
	if ok {
		h.log.Info("join request approved", "room_id", roomID, "user_id", target)
		if tc, found := h.clients[pending.ConnID]; found {
			if tc.state == stateAwaitingAdmission {
				tc.state = stateConnected
			}
			h.deliver(tc, NewMessage(EventJoinApproved, roomID))
		}
	}

	h.deliver(c, NewMessage(EventWaitingRoomUpdated, h.rooms.WaitingList(roomID)))
}

// handleDeny: deny-join(roomId, userId)
func (h *Hub) handleDeny(c *Client, msg Message) {
	roomID := msg.Text(0)
	if !h.requireCreator(c, roomID, "deny join requests") {
		return
	}
	target := room.NormalizeUserID(msg.Arg(1))

	pending, ok := h.admission.Deny(roomID, target)
	if ok {
		h.log.Info("join request denied", "room_id", roomID, "user_id", target)
		if tc, found := h.clients[pending.ConnID]; found {
			tc.state = stateConnected
			h.deliver(tc, NewMessage(EventJoinDenied, admission.ReasonDeniedByHost))
		}
	}

	h.deliver(c, NewMessage(EventWaitingRoomUpdated, h.rooms.WaitingList(roomID)))
}

// handleGetWaitingRoom: get-waiting-room(roomId)
func (h *Hub) handleGetWaitingRoom(c *Client, msg Message) {
	roomID := msg.Text(0)
	if !h.requireCreator(c, roomID, "view the waiting room") {
		return
	}
	h.deliver(c, NewMessage(EventWaitingRoomUpdated, h.rooms.WaitingList(roomID)))
}
