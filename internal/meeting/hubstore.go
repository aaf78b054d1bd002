package meeting

import (
	"context"
	"errors"

	"github.com/rx3lixir/laba_meet/internal/admission"
	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/internal/signaling"
)

// HubStore exposes meeting records to the signaling hub. Rooms without a
// record are ad-hoc: lookups return nil and chat is not persisted.
type HubStore struct {
	svc *Service
}

func NewHubStore(svc *Service) *HubStore {
	return &HubStore{svc: svc}
}

var _ signaling.MeetingStore = (*HubStore)(nil)

// FindMeetingByRoomID returns the record behind a room. Ended meetings are
// still returned so their creator keeps host rights.
func (s *HubStore) FindMeetingByRoomID(ctx context.Context, roomID string) (*admission.Meeting, error) {
	m, err := s.svc.Get(ctx, roomID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &admission.Meeting{
		RoomID:      m.MeetingID,
		Type:        m.RoomType,
		CreatorID:   room.NormalizeUserID(m.Creator),
		CreatorName: m.CreatorName,
		Title:       m.Title,
	}, nil
}

func (s *HubStore) AppendMessage(ctx context.Context, roomID string, msg signaling.ChatMessage) error {
	err := s.svc.AppendMessage(ctx, roomID, Message{
		Sender:        msg.UserID.String(),
		SenderName:    msg.UserName,
		Content:       msg.Message,
		IsFromCreator: msg.IsCreator,
		Timestamp:     msg.Timestamp,
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *HubStore) Messages(ctx context.Context, roomID string) ([]signaling.ChatMessage, error) {
	stored, err := s.svc.Messages(ctx, roomID)
	if errors.Is(err, ErrNotFound) {
		return []signaling.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]signaling.ChatMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, signaling.ChatMessage{
			Message:   m.Content,
			UserID:    room.NormalizeUserID(m.Sender),
			UserName:  m.SenderName,
			IsCreator: m.IsFromCreator,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

func (s *HubStore) EndMeeting(ctx context.Context, roomID string) error {
	err := s.svc.Finish(ctx, roomID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
