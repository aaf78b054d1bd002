package meeting

import (
	"context"
	"time"
)

// Store defines what storage operations meeting records have
type Store interface {
	Insert(ctx context.Context, m *Meeting) error
	FindByMeetingID(ctx context.Context, meetingID string) (*Meeting, error)
	AddParticipant(ctx context.Context, meetingID string, p Participant) error
	AppendMessage(ctx context.Context, meetingID string, msg Message) error
	MarkEnded(ctx context.Context, meetingID string, at time.Time) error
	Delete(ctx context.Context, meetingID string) error
	ListForUser(ctx context.Context, userID string) ([]*Meeting, error)
	Upcoming(ctx context.Context, userID string, after time.Time) ([]*Meeting, error)
}
