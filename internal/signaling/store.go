package signaling

import (
	"context"

	"github.com/rx3lixir/laba_meet/internal/admission"
)

// MeetingStore is what the hub needs from persisted meetings.
// A nil store runs the hub purely in memory.
type MeetingStore interface {
	// FindMeetingByRoomID returns nil without error when there is no record
	FindMeetingByRoomID(ctx context.Context, roomID string) (*admission.Meeting, error)
	AppendMessage(ctx context.Context, roomID string, msg ChatMessage) error
	Messages(ctx context.Context, roomID string) ([]ChatMessage, error)
	EndMeeting(ctx context.Context, roomID string) error
}
