package room

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type room struct {
	id           string
	typ          Type
	creatorID    UserID
	creatorName  string
	createdAt    time.Time
	participants map[UserID]*Participant
	waiting      []PendingRequest
	denied       map[UserID]struct{}
	approved     map[UserID]struct{}
}

func (r *room) info() Info {
	return Info{
		ID:               r.id,
		Type:             r.typ,
		CreatorID:        r.creatorID,
		CreatorName:      r.creatorName,
		CreatedAt:        r.createdAt,
		ParticipantCount: len(r.participants),
		WaitingCount:     len(r.waiting),
		DeniedCount:      len(r.denied),
	}
}

func (r *room) waitingIndex(userID UserID) int {
	return slices.IndexFunc(r.waiting, func(p PendingRequest) bool { return p.UserID == userID })
}

type connRef struct {
	roomID string
	userID UserID
}

// Registry holds the state of every live room in the process.
// All methods are safe for concurrent use and return copies.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns map[ConnID]connRef
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[ConnID]connRef),
		now:   time.Now,
	}
}

// Create registers a room. When the room already exists it is returned
// unchanged and created is false.
func (g *Registry) Create(roomID string, creatorID UserID, creatorName string, typ Type) (Info, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.rooms[roomID]; ok {
		return r.info(), false
	}

	if typ == "" {
		typ = TypePublic
	}

	r := &room{
		id:           roomID,
		typ:          typ,
		creatorID:    creatorID,
		creatorName:  creatorName,
		createdAt:    g.now(),
		participants: make(map[UserID]*Participant),
		denied:       make(map[UserID]struct{}),
		approved:     make(map[UserID]struct{}),
	}
	g.rooms[roomID] = r

	return r.info(), true
}

func (g *Registry) Get(roomID string) (Info, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Info{}, false
	}
	return r.info(), true
}

// AddParticipant admits a user into the room on the given connection.
// A user already present on another connection is rebound to connID.
func (g *Registry) AddParticipant(roomID string, userID UserID, name string, connID ConnID) (Participant, error) {
	if userID == "" || connID == "" {
		return Participant{}, ErrEmptyIdentifier
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Participant{}, ErrRoomNotFound
	}
	if _, denied := r.denied[userID]; denied {
		return Participant{}, ErrUserDenied
	}

	if i := r.waitingIndex(userID); i >= 0 {
		r.waiting = slices.Delete(r.waiting, i, i+1)
	}
	delete(r.approved, userID)

	if existing, ok := r.participants[userID]; ok {
		if existing.ConnID != connID {
			delete(g.conns, existing.ConnID)
			existing.ConnID = connID
			g.conns[connID] = connRef{roomID: roomID, userID: userID}
		}
		if name != "" {
			existing.UserName = name
		}
		return *existing, nil
	}

	p := &Participant{
		UserID:       userID,
		UserName:     name,
		ConnID:       connID,
		IsCreator:    r.creatorID == userID,
		VideoEnabled: true,
		AudioEnabled: true,
		JoinedAt:     g.now(),
	}
	r.participants[userID] = p
	g.conns[connID] = connRef{roomID: roomID, userID: userID}

	return *p, nil
}

// RemoveByConnection drops the participant bound to connID.
// ok is false when the connection was never admitted to a room.
func (g *Registry) RemoveByConnection(connID ConnID) (userID UserID, roomID string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ref, found := g.conns[connID]
	if !found {
		return "", "", false
	}
	delete(g.conns, connID)

	r, found := g.rooms[ref.roomID]
	if !found {
		return "", "", false
	}

	p, found := r.participants[ref.userID]
	if !found || p.ConnID != connID {
		return "", "", false
	}
	delete(r.participants, ref.userID)

	return ref.userID, ref.roomID, true
}

// ListParticipants returns the room's participants ordered by join time
func (g *Registry) ListParticipants(roomID string) []Participant {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return []Participant{}
	}

	list := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		list = append(list, *p)
	}
	slices.SortFunc(list, func(a, b Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.UserID), string(b.UserID))
	})

	return list
}

func (g *Registry) Participant(roomID string, userID UserID) (Participant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Participant{}, false
	}
	p, ok := r.participants[userID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// ParticipantByConn resolves a connection to the room and participant it represents
func (g *Registry) ParticipantByConn(connID ConnID) (string, Participant, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ref, ok := g.conns[connID]
	if !ok {
		return "", Participant{}, false
	}
	r, ok := g.rooms[ref.roomID]
	if !ok {
		return "", Participant{}, false
	}
	p, ok := r.participants[ref.userID]
	if !ok || p.ConnID != connID {
		return "", Participant{}, false
	}
	return ref.roomID, *p, true
}

// DeleteIfEmpty removes a room with no participants together with its waiting
// room and denial list. Requests still waiting are returned so callers can tell them.
func (g *Registry) DeleteIfEmpty(roomID string) (bool, []PendingRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok || len(r.participants) > 0 {
		return false, nil
	}
	delete(g.rooms, roomID)

	return true, r.waiting
}

// DeleteIfIdle removes a room that has neither participants nor waiting requests
func (g *Registry) DeleteIfIdle(roomID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok || len(r.participants) > 0 || len(r.waiting) > 0 {
		return false
	}
	delete(g.rooms, roomID)

	return true
}

// Delete removes a room unconditionally and returns what it held
func (g *Registry) Delete(roomID string) ([]Participant, []PendingRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return nil, nil, false
	}
	delete(g.rooms, roomID)

	participants := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		delete(g.conns, p.ConnID)
		participants = append(participants, *p)
	}

	return participants, r.waiting, true
}

// Enqueue appends a request to the waiting room. A user already waiting keeps
// their place and only has the connection rebound; added reports a new entry.
func (g *Registry) Enqueue(roomID string, req PendingRequest) (added bool, err error) {
	if req.UserID == "" {
		return false, ErrEmptyIdentifier
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return false, ErrRoomNotFound
	}
	if _, denied := r.denied[req.UserID]; denied {
		return false, ErrUserDenied
	}
	if _, joined := r.participants[req.UserID]; joined {
		return false, ErrAlreadyJoined
	}

	if i := r.waitingIndex(req.UserID); i >= 0 {
		r.waiting[i].ConnID = req.ConnID
		if req.UserName != "" {
			r.waiting[i].UserName = req.UserName
		}
		return false, nil
	}

	if req.RequestedAt.IsZero() {
		req.RequestedAt = g.now()
	}
	r.waiting = append(r.waiting, req)

	return true, nil
}

// WaitingList returns pending requests in request order
func (g *Registry) WaitingList(roomID string) []PendingRequest {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return []PendingRequest{}
	}
	return slices.Clone(r.waiting)
}

// TakePending removes and returns a user's pending request
func (g *Registry) TakePending(roomID string, userID UserID) (PendingRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return PendingRequest{}, false
	}

	i := r.waitingIndex(userID)
	if i < 0 {
		return PendingRequest{}, false
	}
	req := r.waiting[i]
	r.waiting = slices.Delete(r.waiting, i, i+1)

	return req, true
}

// PurgePendingByConnection drops waiting entries bound to a closed connection
// and returns the rooms whose waiting room changed
func (g *Registry) PurgePendingByConnection(connID ConnID) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var changed []string
	for id, r := range g.rooms {
		before := len(r.waiting)
		r.waiting = slices.DeleteFunc(r.waiting, func(p PendingRequest) bool { return p.ConnID == connID })
		if len(r.waiting) != before {
			changed = append(changed, id)
		}
	}
	slices.Sort(changed)

	return changed
}

// Deny adds a user to the room's denial list for the rest of the room's life
func (g *Registry) Deny(roomID string, userID UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if r.creatorID == userID {
		return ErrCreatorDenial
	}
	if _, joined := r.participants[userID]; joined {
		return ErrAlreadyJoined
	}

	if i := r.waitingIndex(userID); i >= 0 {
		r.waiting = slices.Delete(r.waiting, i, i+1)
	}
	delete(r.approved, userID)
	r.denied[userID] = struct{}{}

	return nil
}

func (g *Registry) IsDenied(roomID string, userID UserID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return false
	}
	_, denied := r.denied[userID]
	return denied
}

// Approve lets a user past the waiting room on their next formal join
func (g *Registry) Approve(roomID string, userID UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if _, denied := r.denied[userID]; denied {
		return ErrUserDenied
	}
	r.approved[userID] = struct{}{}

	return nil
}

func (g *Registry) IsApproved(roomID string, userID UserID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return false
	}
	_, approved := r.approved[userID]
	return approved
}

// SetMedia updates one media flag of a participant
func (g *Registry) SetMedia(roomID string, userID UserID, media Media, enabled bool) (Participant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return Participant{}, ErrRoomNotFound
	}
	p, ok := r.participants[userID]
	if !ok {
		return Participant{}, ErrNotParticipant
	}

	switch media {
	case MediaVideo:
		p.VideoEnabled = enabled
	case MediaAudio:
		p.AudioEnabled = enabled
	case MediaScreenShare:
		p.IsScreenSharing = enabled
	}

	return *p, nil
}

func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Snapshot lists every live room ordered by id
func (g *Registry) Snapshot() []Info {
	g.mu.RLock()
	defer g.mu.RUnlock()

	infos := make([]Info, 0, len(g.rooms))
	for _, r := range g.rooms {
		infos = append(infos, r.info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })

	return infos
}

// Clear drops all rooms, used on shutdown
func (g *Registry) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rooms = make(map[string]*room)
	g.conns = make(map[ConnID]connRef)
}
