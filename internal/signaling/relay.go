package signaling

import (
	"context"

	"github.com/rx3lixir/laba_meet/internal/room"
)

// participantOf resolves the participant behind a connection. Relay events are
// only accepted from admitted connections, and a roomId argument, when sent,
// must name the room the connection is in.
func (h *Hub) participantOf(c *Client, claimedRoomID string) (string, room.Participant, bool) {
	roomID, p, ok := h.rooms.ParticipantByConn(c.id)
	if !ok || (claimedRoomID != "" && claimedRoomID != roomID) {
		h.sendError(c, "not in room")
		return "", room.Participant{}, false
	}
	return roomID, p, true
}

// handleToggle covers toggle-video, toggle-audio (roomId, userId, enabled?)
// and start/stop-screen-share (roomId, userId). A missing flag flips the current value.
func (h *Hub) handleToggle(c *Client, msg Message, media room.Media, forced *bool) {
	roomID, p, ok := h.participantOf(c, msg.Text(0))
	if !ok {
		return
	}

	var enabled bool
	switch {
	case forced != nil:
		enabled = *forced
	default:
		v, present := msg.Bool(2)
		if !present {
			v = !mediaFlag(p, media)
		}
		enabled = v
	}

	updated, err := h.rooms.SetMedia(roomID, p.UserID, media, enabled)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	event := EventParticipantVideoToggle
	switch media {
	case room.MediaAudio:
		event = EventParticipantAudioToggle
	case room.MediaScreenShare:
		event = EventParticipantScreenShare
	}

	h.broadcast(roomID, NewMessage(event, updated.UserID, enabled), c.id)
}

func mediaFlag(p room.Participant, media room.Media) bool {
	switch media {
	case room.MediaVideo:
		return p.VideoEnabled
	case room.MediaAudio:
		return p.AudioEnabled
	default:
		return p.IsScreenSharing
	}
}

// handleSendMessage: send-message(roomId, message, userId, displayName)
func (h *Hub) handleSendMessage(c *Client, msg Message) {
	roomID, p, ok := h.participantOf(c, msg.Text(0))
	if !ok {
		return
	}

	text := msg.Text(1)
	if text == "" {
		return
	}

	info, _ := h.rooms.Get(roomID)
	chat := ChatMessage{
		Message:   text,
		UserID:    p.UserID,
		UserName:  p.UserName,
		IsCreator: info.IsCreator(p.UserID),
		Timestamp: h.now().UTC(),
	}

	h.broadcast(roomID, NewMessage(EventReceiveMessage, chat), "")

	h.persist("chat message", roomID, func(ctx context.Context) error {
		return h.meetings.AppendMessage(ctx, roomID, chat)
	})
}

// handleSignal: signal(targetConnectionId, payload). The payload is forwarded
// untouched, tagged with the sender's connection id. Signals are only relayed
// between participants of the same room; anything else is dropped silently.
func (h *Hub) handleSignal(c *Client, msg Message) {
	target := room.ConnID(msg.Text(0))

	roomID, _, ok := h.rooms.ParticipantByConn(c.id)
	if !ok {
		h.log.Debug("dropping signal from connection outside a room", "connection_id", c.id)
		return
	}
	targetRoom, _, ok := h.rooms.ParticipantByConn(target)
	if !ok || targetRoom != roomID {
		h.log.Debug("dropping signal to unknown target", "connection_id", c.id, "target", target)
		return
	}

	h.deliverTo(target, NewMessage(EventSignal, c.id, msg.Arg(1)))
}

// handleMessageHistory relays history one participant sends to another:
// message-history(roomId, targetUserId, messages). Without a target the
// persisted history of the room is sent back to the caller.
func (h *Hub) handleMessageHistory(c *Client, msg Message) {
	roomID, _, ok := h.participantOf(c, msg.Text(0))
	if !ok {
		return
	}

	if target := room.NormalizeUserID(msg.Arg(1)); target != "" {
		if p, found := h.rooms.Participant(roomID, target); found {
			h.deliverTo(p.ConnID, NewMessage(EventMessageHistory, msg.Arg(2)))
		}
		return
	}

	if h.meetings == nil {
		h.deliver(c, NewMessage(EventMessageHistory, []ChatMessage{}))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.LookupTimeout)
		defer cancel()

		history, err := h.meetings.Messages(ctx, roomID)
		h.post(func() {
			if err != nil {
				h.log.Warn("failed to load message history", "room_id", roomID, "error", err)
				history = []ChatMessage{}
			}
			if history == nil {
				history = []ChatMessage{}
			}
			h.deliver(c, NewMessage(EventMessageHistory, history))
		})
	}()
}
