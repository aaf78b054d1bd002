package meeting

import (
	"errors"
	"time"

	"github.com/rx3lixir/laba_meet/internal/room"
)

var (
	ErrNotFound       = errors.New("meeting not found")
	ErrForbidden      = errors.New("not allowed for this user")
	ErrEnded          = errors.New("meeting has ended")
	ErrAlreadyStarted = errors.New("meeting has already started")
	ErrUnavailable    = errors.New("meeting storage is unavailable")
	ErrInvalid        = errors.New("invalid meeting request")
)

type Settings struct {
	AllowChat               bool `bson:"allowChat" json:"allowChat"`
	AllowScreenShare        bool `bson:"allowScreenShare" json:"allowScreenShare"`
	MuteParticipantsOnEntry bool `bson:"muteParticipantsOnEntry" json:"muteParticipantsOnEntry"`
}

func DefaultSettings() Settings {
	return Settings{AllowChat: true, AllowScreenShare: true}
}

type Participant struct {
	UserID   string    `bson:"userId" json:"userId"`
	Username string    `bson:"username" json:"username"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Message is one persisted chat line
type Message struct {
	Sender        string    `bson:"sender" json:"sender"`
	SenderName    string    `bson:"senderName" json:"senderName"`
	Content       string    `bson:"content" json:"content"`
	IsFromCreator bool      `bson:"isFromCreator" json:"isFromCreator"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// Meeting is the persisted record of a room. MeetingID doubles as the room id.
type Meeting struct {
	MeetingID    string        `bson:"meetingId" json:"meetingId"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Creator      string        `bson:"creator" json:"creator"`
	CreatorName  string        `bson:"creatorName" json:"creatorName"`
	RoomType     room.Type     `bson:"roomType" json:"roomType"`
	Participants []Participant `bson:"participants" json:"participants"`
	StartTime    time.Time     `bson:"startTime" json:"startTime"`
	ScheduledAt  *time.Time    `bson:"scheduledAt,omitempty" json:"scheduledAt,omitempty"`
	EndTime      *time.Time    `bson:"endTime,omitempty" json:"endTime,omitempty"`
	IsActive     bool          `bson:"isActive" json:"isActive"`
	IsScheduled  bool          `bson:"isScheduled" json:"isScheduled"`
	Settings     Settings      `bson:"settings" json:"settings"`
	Messages     []Message     `bson:"messages" json:"-"`
}

func (m *Meeting) IsCreator(userID string) bool {
	return m.Creator != "" && m.Creator == userID
}

func (m *Meeting) HasParticipant(userID string) bool {
	if m.IsCreator(userID) {
		return true
	}
	for _, p := range m.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

type CreateMeetingRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RoomType    string    `json:"roomType"`
	Settings    *Settings `json:"settings"`
}

type ScheduleMeetingRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RoomType    string    `json:"roomType"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Settings    *Settings `json:"settings"`
}

type SaveMessageRequest struct {
	Content string `json:"content"`
}

type MeetingResponse struct {
	Meeting   *Meeting `json:"meeting"`
	IsCreator bool     `json:"isCreator"`
}

type MeetingsResponse struct {
	Meetings []*Meeting `json:"meetings"`
}

type MessagesResponse struct {
	Messages []Message `json:"messages"`
}

type TranscriptResponse struct {
	URL string `json:"url"`
}
