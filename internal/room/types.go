package room

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrUserDenied      = errors.New("user was denied entry to this room")
	ErrAlreadyJoined   = errors.New("user is already a participant")
	ErrCreatorDenial   = errors.New("the creator cannot be denied")
	ErrNotParticipant  = errors.New("user is not a participant")
	ErrEmptyIdentifier = errors.New("empty identifier")
)

// Type controls admission: public rooms auto-admit, private rooms go through the waiting room
type Type string

const (
	TypePublic  Type = "public"
	TypePrivate Type = "private"
)

// ParseType accepts the wire form of a room type. Unknown values report false.
func ParseType(v string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(v))) {
	case TypePublic:
		return TypePublic, true
	case TypePrivate:
		return TypePrivate, true
	default:
		return "", false
	}
}

// Media names a participant flag that can be toggled
type Media int

const (
	MediaVideo Media = iota
	MediaAudio
	MediaScreenShare
)

func (m Media) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaScreenShare:
		return "screen-share"
	default:
		return "unknown"
	}
}

// Info is a read-only snapshot of a room
type Info struct {
	ID               string    `json:"roomId"`
	Type             Type      `json:"roomType"`
	CreatorID        UserID    `json:"creatorId"`
	CreatorName      string    `json:"creatorName"`
	CreatedAt        time.Time `json:"createdAt"`
	ParticipantCount int       `json:"participantCount"`
	WaitingCount     int       `json:"waitingCount"`
	DeniedCount      int       `json:"deniedCount"`
}

// IsCreator compares identities in their canonical form
func (i Info) IsCreator(userID UserID) bool {
	return userID != "" && userID == i.CreatorID
}

type Participant struct {
	UserID          UserID    `json:"userId"`
	UserName        string    `json:"userName"`
	ConnID          ConnID    `json:"connectionId"`
	IsCreator       bool      `json:"isCreator"`
	VideoEnabled    bool      `json:"videoEnabled"`
	AudioEnabled    bool      `json:"audioEnabled"`
	IsScreenSharing bool      `json:"isScreenSharing"`
	JoinedAt        time.Time `json:"joinedAt"`
}

type PendingRequest struct {
	UserID      UserID    `json:"userId"`
	UserName    string    `json:"userName"`
	ConnID      ConnID    `json:"connectionId"`
	RequestedAt time.Time `json:"requestedAt"`
}
