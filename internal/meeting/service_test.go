package meeting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/internal/transcript"
	"github.com/rx3lixir/laba_meet/pkg/logger"
)

// memStore is an in-memory Store for tests
type memStore struct {
	mu       sync.Mutex
	meetings map[string]*Meeting
	failWith error
}

func newMemStore() *memStore {
	return &memStore{meetings: make(map[string]*Meeting)}
}

func (s *memStore) Insert(_ context.Context, m *Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	cp := *m
	s.meetings[m.MeetingID] = &cp
	return nil
}

func (s *memStore) FindByMeetingID(_ context.Context, id string) (*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	cp.Participants = append([]Participant(nil), m.Participants...)
	cp.Messages = append([]Message(nil), m.Messages...)
	return &cp, nil
}

func (s *memStore) AddParticipant(_ context.Context, id string, p Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range m.Participants {
		if existing.UserID == p.UserID {
			return nil
		}
	}
	m.Participants = append(m.Participants, p)
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (s *memStore) MarkEnded(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	if m.IsActive {
		m.IsActive = false
		m.EndTime = &at
	}
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[id]; !ok {
		return ErrNotFound
	}
	delete(s.meetings, id)
	return nil
}

func (s *memStore) ListForUser(_ context.Context, userID string) ([]*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Meeting{}
	for _, m := range s.meetings {
		if m.HasParticipant(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) Upcoming(_ context.Context, userID string, after time.Time) ([]*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Meeting{}
	for _, m := range s.meetings {
		if m.IsScheduled && m.ScheduledAt != nil && m.ScheduledAt.After(after) && m.HasParticipant(userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []transcript.Transcript
	fail     bool
}

func (a *fakeArchiver) Archive(_ context.Context, t transcript.Transcript) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return "", errors.New("bucket gone")
	}
	a.archived = append(a.archived, t)
	return transcript.ObjectName(t.MeetingID), nil
}

func (a *fakeArchiver) PresignedURL(_ context.Context, meetingID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, t := range a.archived {
		if t.MeetingID == meetingID {
			return "https://s3.local/" + transcript.ObjectName(meetingID), nil
		}
	}
	return "", transcript.ErrNotArchived
}

type fakeRooms struct {
	closed []string
}

func (f *fakeRooms) CloseRoom(_ context.Context, roomID string) error {
	f.closed = append(f.closed, roomID)
	return nil
}

var (
	alice = Caller{UserID: "alice-id", Username: "alice"}
	bob   = Caller{UserID: "bob-id", Username: "bob"}
)

func newTestService(t *testing.T) (*Service, *memStore, *fakeArchiver, *fakeRooms) {
	t.Helper()
	store := newMemStore()
	arch := &fakeArchiver{}
	rooms := &fakeRooms{}

	svc := NewService(store, arch, logger.Discard())
	svc.SetRoomCloser(rooms)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, store, arch, rooms
}

func TestCreateMeeting(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "  Weekly sync ", RoomType: "private"})
	require.NoError(t, err)

	assert.NotEmpty(t, m.MeetingID)
	assert.Equal(t, "Weekly sync", m.Title)
	assert.Equal(t, room.TypePrivate, m.RoomType)
	assert.True(t, m.IsActive)
	assert.True(t, m.Settings.AllowChat)
	require.Len(t, m.Participants, 1)
	assert.Equal(t, alice.UserID, m.Participants[0].UserID)

	got, err := svc.Get(ctx, m.MeetingID)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, got.Creator)
}

func TestCreateMeetingValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), alice, CreateMeetingRequest{Title: " "})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(context.Background(), alice, CreateMeetingRequest{Title: "x", RoomType: "secret"})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestScheduleAndCancel(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Schedule(ctx, alice, ScheduleMeetingRequest{Title: "Past", ScheduledAt: svc.now().Add(-time.Hour)})
	require.ErrorIs(t, err, ErrInvalid)

	m, err := svc.Schedule(ctx, alice, ScheduleMeetingRequest{Title: "Retro", ScheduledAt: svc.now().Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.True(t, m.IsScheduled)

	upcoming, err := svc.Upcoming(ctx, alice)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	require.ErrorIs(t, svc.Cancel(ctx, bob, m.MeetingID), ErrForbidden)
	require.NoError(t, svc.Cancel(ctx, alice, m.MeetingID))

	_, err = svc.Get(ctx, m.MeetingID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelStartedMeeting(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "Now"})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Cancel(ctx, alice, m.MeetingID), ErrAlreadyStarted)
}

func TestJoinAndEnd(t *testing.T) {
	svc, _, arch, rooms := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "Demo"})
	require.NoError(t, err)

	joined, err := svc.Join(ctx, bob, m.MeetingID)
	require.NoError(t, err)
	assert.True(t, joined.HasParticipant(bob.UserID))

	_, err = svc.Join(ctx, bob, m.MeetingID)
	require.NoError(t, err)
	got, _ := svc.Get(ctx, m.MeetingID)
	assert.Len(t, got.Participants, 2)

	_, err = svc.SaveMessage(ctx, bob, m.MeetingID, "hello")
	require.NoError(t, err)

	require.ErrorIs(t, svc.End(ctx, bob, m.MeetingID), ErrForbidden)
	require.NoError(t, svc.End(ctx, alice, m.MeetingID))

	assert.Equal(t, []string{m.MeetingID}, rooms.closed)
	require.Len(t, arch.archived, 1)
	require.Len(t, arch.archived[0].Entries, 1)
	assert.Equal(t, "hello", arch.archived[0].Entries[0].Content)

	_, err = svc.Join(ctx, bob, m.MeetingID)
	require.ErrorIs(t, err, ErrEnded)

	url, err := svc.TranscriptURL(ctx, bob, m.MeetingID)
	require.NoError(t, err)
	assert.Contains(t, url, "transcripts/"+m.MeetingID+".json")
}

func TestEndSurvivesArchiveFailure(t *testing.T) {
	svc, _, arch, _ := newTestService(t)
	arch.fail = true
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "Demo"})
	require.NoError(t, err)
	require.NoError(t, svc.End(ctx, alice, m.MeetingID))

	got, _ := svc.Get(ctx, m.MeetingID)
	assert.False(t, got.IsActive)
	require.NotNil(t, got.EndTime)
}

func TestSaveMessageRules(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "Demo"})
	require.NoError(t, err)

	_, err = svc.SaveMessage(ctx, bob, m.MeetingID, "let me in")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SaveMessage(ctx, alice, m.MeetingID, "   ")
	require.ErrorIs(t, err, ErrInvalid)

	msg, err := svc.SaveMessage(ctx, alice, m.MeetingID, "welcome")
	require.NoError(t, err)
	assert.True(t, msg.IsFromCreator)

	msgs, err := svc.Messages(ctx, m.MeetingID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestTranscriptNotArchived(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "Demo"})
	require.NoError(t, err)

	_, err = svc.TranscriptURL(ctx, alice, m.MeetingID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnavailableService(t *testing.T) {
	svc := NewService(nil, nil, logger.Discard())
	ctx := context.Background()

	_, err := svc.Create(ctx, alice, CreateMeetingRequest{Title: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = svc.Get(ctx, "m1")
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, svc.AppendMessage(ctx, "m1", Message{}), ErrUnavailable)
}
