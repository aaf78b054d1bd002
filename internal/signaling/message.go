package signaling

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rx3lixir/laba_meet/internal/room"
)

// Client -> Server
const (
	EventRequestJoinRoom    = "request-join-room"
	EventJoinRoom           = "join-room"
	EventApproveJoin        = "approve-join"
	EventDenyJoin           = "deny-join"
	EventGetWaitingRoom     = "get-waiting-room"
	EventToggleVideo        = "toggle-video"
	EventToggleAudio        = "toggle-audio"
	EventStartScreenShare   = "start-screen-share"
	EventStopScreenShare    = "stop-screen-share"
	EventSendMessage        = "send-message"
	EventLeaveRoom          = "leave-room"
	EventEndMeeting         = "end-meeting"
	EventCheckCreatorStatus = "check-creator-status"
)

// Both directions
const (
	EventSignal         = "signal"
	EventMessageHistory = "message-history"
)

// Server -> Client
const (
	EventConnected              = "connected"
	EventJoinApproved           = "join-approved"
	EventWaitingForApproval     = "waiting-for-approval"
	EventJoinDenied             = "join-denied"
	EventJoinRequest            = "join-request"
	EventWaitingRoomUpdated     = "waiting-room-updated"
	EventCreatorStatus          = "creator-status"
	EventAllParticipants        = "all-participants"
	EventUserJoined             = "user-joined"
	EventCallUser               = "call-user"
	EventUserLeft               = "user-left"
	EventParticipantVideoToggle = "participant-video-toggle"
	EventParticipantAudioToggle = "participant-audio-toggle"
	EventParticipantScreenShare = "participant-screen-share"
	EventReceiveMessage         = "receive-message"
	EventMeetingEnded           = "meeting-ended"
	EventSessionReplaced        = "session-replaced"
	EventError                  = "error"
)

// Message is the envelope of every frame: a named event with positional arguments
type Message struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

func NewMessage(event string, args ...any) Message {
	if args == nil {
		args = []any{}
	}
	return Message{Event: event, Args: args}
}

// Arg returns the i-th argument or nil
func (m Message) Arg(i int) any {
	if i < 0 || i >= len(m.Args) {
		return nil
	}
	return m.Args[i]
}

func (m Message) HasArg(i int) bool {
	return m.Arg(i) != nil
}

// Text reads the i-th argument as text. Numbers are accepted for ids.
func (m Message) Text(i int) string {
	switch v := m.Arg(i).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return string(room.NormalizeUserID(v))
	}
}

// Bool reads the i-th argument as a flag; ok is false when it is absent or not a flag
func (m Message) Bool(i int) (value bool, ok bool) {
	switch v := m.Arg(i).(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	case json.Number:
		f, err := v.Float64()
		return f != 0, err == nil
	case float64:
		return v != 0, true
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint:
		return room.NormalizeUserID(v) != "0", true
	default:
		return false, false
	}
}

// Identity claimed by an authenticated connection
type Identity struct {
	UserID   room.UserID
	UserName string
}

// CallUser tells an incumbent participant to open a peer connection to a newcomer
type CallUser struct {
	TargetUserID       room.UserID `json:"targetUserId"`
	TargetUserName     string      `json:"targetUserName"`
	TargetConnectionID room.ConnID `json:"targetConnectionId"`
}

// ChatMessage is both the live broadcast payload and a persisted history entry
type ChatMessage struct {
	Message   string      `json:"message"`
	UserID    room.UserID `json:"userId"`
	UserName  string      `json:"userName"`
	IsCreator bool        `json:"isCreator"`
	Timestamp time.Time   `json:"timestamp"`
}
