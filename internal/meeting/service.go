package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/internal/transcript"
)

// RoomCloser ends the live room of a meeting
type RoomCloser interface {
	CloseRoom(ctx context.Context, roomID string) error
}

// Archiver keeps transcripts of ended meetings
type Archiver interface {
	Archive(ctx context.Context, t transcript.Transcript) (string, error)
	PresignedURL(ctx context.Context, meetingID string) (string, error)
}

// Caller is the authenticated user acting on a meeting
type Caller struct {
	UserID   string
	Username string
}

// Service implements meeting bookkeeping. A nil store makes every call
// fail with ErrUnavailable; a nil archiver disables transcripts.
type Service struct {
	store       Store
	rooms       RoomCloser
	transcripts Archiver
	now         func() time.Time
	log         *slog.Logger
}

func NewService(store Store, transcripts Archiver, log *slog.Logger) *Service {
	return &Service{
		store:       store,
		transcripts: transcripts,
		now:         time.Now,
		log:         log,
	}
}

// SetRoomCloser attaches the live-room side once the signaling hub exists
func (s *Service) SetRoomCloser(rc RoomCloser) {
	s.rooms = rc
}

func (s *Service) Available() bool {
	return s.store != nil
}

func (s *Service) Create(ctx context.Context, caller Caller, req CreateMeetingRequest) (*Meeting, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	m, err := s.newMeeting(caller, req.Title, req.Description, req.RoomType, req.Settings)
	if err != nil {
		return nil, err
	}
	m.StartTime = s.now().UTC()
	m.Participants = []Participant{{UserID: caller.UserID, Username: caller.Username, JoinedAt: m.StartTime}}

	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info("meeting created", "meeting_id", m.MeetingID, "creator_id", caller.UserID, "room_type", m.RoomType)
	return m, nil
}

func (s *Service) Schedule(ctx context.Context, caller Caller, req ScheduleMeetingRequest) (*Meeting, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	now := s.now().UTC()
	if !req.ScheduledAt.After(now) {
		return nil, fmt.Errorf("%w: scheduledAt must be in the future", ErrInvalid)
	}

	m, err := s.newMeeting(caller, req.Title, req.Description, req.RoomType, req.Settings)
	if err != nil {
		return nil, err
	}
	at := req.ScheduledAt.UTC()
	m.ScheduledAt = &at
	m.StartTime = at
	m.IsScheduled = true

	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.log.Info("meeting scheduled", "meeting_id", m.MeetingID, "creator_id", caller.UserID, "scheduled_at", at)
	return m, nil
}

func (s *Service) newMeeting(caller Caller, title, description, roomType string, settings *Settings) (*Meeting, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}

	typ := room.TypePublic
	if roomType != "" {
		parsed, ok := room.ParseType(roomType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown room type %q", ErrInvalid, roomType)
		}
		typ = parsed
	}

	st := DefaultSettings()
	if settings != nil {
		st = *settings
	}

	return &Meeting{
		MeetingID:    uuid.NewString(),
		Title:        title,
		Description:  strings.TrimSpace(description),
		Creator:      caller.UserID,
		CreatorName:  caller.Username,
		RoomType:     typ,
		Participants: []Participant{},
		Messages:     []Message{},
		IsActive:     true,
		Settings:     st,
	}, nil
}

func (s *Service) Get(ctx context.Context, meetingID string) (*Meeting, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	return s.store.FindByMeetingID(ctx, meetingID)
}

// Join records the caller as a participant of an active meeting
func (s *Service) Join(ctx context.Context, caller Caller, meetingID string) (*Meeting, error) {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, ErrEnded
	}

	if !m.HasParticipant(caller.UserID) {
		p := Participant{UserID: caller.UserID, Username: caller.Username, JoinedAt: s.now().UTC()}
		if err := s.store.AddParticipant(ctx, meetingID, p); err != nil {
			return nil, err
		}
		m.Participants = append(m.Participants, p)
	}
	return m, nil
}

// End is the creator ending a meeting: the record is closed, the transcript
// archived and the live room torn down
func (s *Service) End(ctx context.Context, caller Caller, meetingID string) error {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if !m.IsCreator(caller.UserID) {
		return ErrForbidden
	}

	if err := s.finish(ctx, m); err != nil {
		return err
	}

	if s.rooms != nil {
		if err := s.rooms.CloseRoom(ctx, meetingID); err != nil {
			s.log.Warn("failed to close live room", "meeting_id", meetingID, "error", err)
		}
	}
	return nil
}

// Finish closes the record of a meeting whose live room already ended
func (s *Service) Finish(ctx context.Context, meetingID string) error {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	return s.finish(ctx, m)
}

func (s *Service) finish(ctx context.Context, m *Meeting) error {
	endedAt := s.now().UTC()
	if m.IsActive {
		if err := s.store.MarkEnded(ctx, m.MeetingID, endedAt); err != nil {
			return err
		}
		m.IsActive = false
		m.EndTime = &endedAt
	} else if m.EndTime != nil {
		endedAt = *m.EndTime
	}

	s.log.Info("meeting ended", "meeting_id", m.MeetingID, "messages", len(m.Messages))

	if s.transcripts == nil {
		return nil
	}

	t := transcript.Transcript{
		MeetingID: m.MeetingID,
		Title:     m.Title,
		Creator:   m.Creator,
		StartedAt: m.StartTime,
		EndedAt:   endedAt,
		Entries:   make([]transcript.Entry, 0, len(m.Messages)),
	}
	for _, msg := range m.Messages {
		t.Entries = append(t.Entries, transcript.Entry(msg))
	}

	if _, err := s.transcripts.Archive(ctx, t); err != nil {
		// the meeting is ended either way
		s.log.Error("failed to archive transcript", "meeting_id", m.MeetingID, "error", err)
	}
	return nil
}

// Cancel deletes a scheduled meeting that has not started yet
func (s *Service) Cancel(ctx context.Context, caller Caller, meetingID string) error {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if !m.IsCreator(caller.UserID) {
		return ErrForbidden
	}
	if !m.IsScheduled || m.ScheduledAt == nil || !m.ScheduledAt.After(s.now()) {
		return ErrAlreadyStarted
	}

	if err := s.store.Delete(ctx, meetingID); err != nil {
		return err
	}
	s.log.Info("meeting cancelled", "meeting_id", meetingID)
	return nil
}

func (s *Service) ListForUser(ctx context.Context, caller Caller) ([]*Meeting, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	return s.store.ListForUser(ctx, caller.UserID)
}

func (s *Service) Upcoming(ctx context.Context, caller Caller) ([]*Meeting, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	return s.store.Upcoming(ctx, caller.UserID, s.now().UTC())
}

// SaveMessage stores a chat line sent over REST. Only participants may post.
func (s *Service) SaveMessage(ctx context.Context, caller Caller, meetingID, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: content is required", ErrInvalid)
	}

	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return Message{}, err
	}
	if !m.HasParticipant(caller.UserID) {
		return Message{}, ErrForbidden
	}
	if !m.Settings.AllowChat {
		return Message{}, ErrForbidden
	}

	msg := Message{
		Sender:        caller.UserID,
		SenderName:    caller.Username,
		Content:       content,
		IsFromCreator: m.IsCreator(caller.UserID),
		Timestamp:     s.now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, meetingID, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// AppendMessage stores a chat line relayed live. The live room already
// checked the sender.
func (s *Service) AppendMessage(ctx context.Context, meetingID string, msg Message) error {
	if !s.Available() {
		return ErrUnavailable
	}
	return s.store.AppendMessage(ctx, meetingID, msg)
}

func (s *Service) Messages(ctx context.Context, meetingID string) ([]Message, error) {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Messages == nil {
		return []Message{}, nil
	}
	return m.Messages, nil
}

// TranscriptURL returns a download link for the transcript of an ended meeting
func (s *Service) TranscriptURL(ctx context.Context, caller Caller, meetingID string) (string, error) {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return "", err
	}
	if !m.HasParticipant(caller.UserID) {
		return "", ErrForbidden
	}
	if s.transcripts == nil {
		return "", ErrUnavailable
	}

	url, err := s.transcripts.PresignedURL(ctx, meetingID)
	if errors.Is(err, transcript.ErrNotArchived) {
		return "", ErrNotFound
	}
	return url, err
}
