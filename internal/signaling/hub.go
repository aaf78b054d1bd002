package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rx3lixir/laba_meet/internal/admission"
	"github.com/rx3lixir/laba_meet/internal/room"
)

var ErrHubClosed = errors.New("signaling hub is closed")

type inbound struct {
	client *Client
	msg    Message
}

type Options struct {
	// Bounds a meeting-record lookup. On timeout the room is treated as ad-hoc.
	LookupTimeout time.Duration
	// Bounds chat persistence and end-of-meeting bookkeeping
	PersistTimeout time.Duration
	// How often empty rooms are swept
	SweepInterval time.Duration
	// Rooms with nobody in them and nobody waiting are swept after this long
	IdleRoomTTL time.Duration
}

func (o *Options) withDefaults() {
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 3 * time.Second
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 5 * time.Second
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 30 * time.Second
	}
	if o.IdleRoomTTL <= 0 {
		o.IdleRoomTTL = time.Minute
	}
}

// Hub is the session coordinator. A single goroutine running Run owns every
// connection and all room state; everything else talks to it over channels.
type Hub struct {
	rooms     *room.Registry
	admission *admission.Controller
	meetings  MeetingStore

	// Registered clients (only accessed by hub goroutine)
	clients map[room.ConnID]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Inbound events from clients
	inbound chan inbound

	// Closures run on the hub goroutine: async results and external queries
	control chan func()

	// Clients whose send buffer overflowed during the current event
	evictions []*Client

	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	// Background persistence
	background sync.WaitGroup

	// Metrics
	metrics         *HubMetrics
	persistFailures atomic.Int64

	now  func() time.Time
	opts Options
	log  *slog.Logger
}

type HubMetrics struct {
	ConnectedClients int       `json:"connectedClients"`
	MessagesSent     int64     `json:"messagesSent"`
	MessagesDropped  int64     `json:"messagesDropped"`
	ClientsEvicted   int64     `json:"clientsEvicted"`
	EventsHandled    int64     `json:"eventsHandled"`
	LookupsStarted   int64     `json:"lookupsStarted"`
	LookupFailures   int64     `json:"lookupFailures"`
	PersistFailures  int64     `json:"persistFailures"`
	LastActivity     time.Time `json:"lastActivity"`
}

// Stats is a point-in-time view of the hub
type Stats struct {
	Metrics HubMetrics  `json:"metrics"`
	Rooms   []room.Info `json:"rooms"`
}

// NewHub builds a hub around an explicitly constructed registry.
// meetings may be nil.
func NewHub(rooms *room.Registry, meetings MeetingStore, opts Options, log *slog.Logger) *Hub {
	opts.withDefaults()

	return &Hub{
		rooms:      rooms,
		admission:  admission.New(rooms),
		meetings:   meetings,
		clients:    make(map[room.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		control:    make(chan func()),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    &HubMetrics{LastActivity: time.Now()},
		now:        time.Now,
		opts:       opts,
		log:        log,
	}
}

// Run is the main event loop - handles ALL state changes sequentially
func (h *Hub) Run() {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.handleInbound(in.client, in.msg)

		case fn := <-h.control:
			h.safely("control", fn)

		case <-ticker.C:
			h.handleHealthCheck()

		case <-h.shutdown:
			h.handleShutdown()
			return
		}

		h.flushEvictions()
	}
}

// Register hands a new connection to the hub
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister tells the hub a connection is gone. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Dispatch queues an inbound event. It reports false once the hub has stopped.
func (h *Hub) Dispatch(c *Client, msg Message) bool {
	select {
	case h.inbound <- inbound{client: c, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// post runs fn on the hub goroutine; used by background work to report back
func (h *Hub) post(fn func()) bool {
	select {
	case h.control <- fn:
		return true
	case <-h.done:
		return false
	}
}

// call runs fn on the hub goroutine and waits for it to finish
func (h *Hub) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.control <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubClosed
	}
}

// Stats returns the hub metrics and a snapshot of every live room
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.call(ctx, func() {
		s.Metrics = *h.metrics
		s.Metrics.PersistFailures = h.persistFailures.Load()
		s.Rooms = h.rooms.Snapshot()
	})
	return s, err
}

// CloseRoom ends a live room from outside the hub, e.g. when a meeting is
// ended over the REST API. Closing a room that is not live is not an error.
func (h *Hub) CloseRoom(ctx context.Context, roomID string) error {
	return h.call(ctx, func() {
		h.closeRoom(roomID, admission.ReasonMeetingEnded)
	})
}

// Shutdown stops the loop, closes every connection and waits for background
// persistence to finish or ctx to expire
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() { close(h.shutdown) })

	select {
	case <-h.done:
	case <-ctx.Done():
		return fmt.Errorf("hub did not stop: %w", ctx.Err())
	}

	flushed := make(chan struct{})
	go func() {
		h.background.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background persistence still running: %w", ctx.Err())
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.clients[client.id] = client
	h.metrics.ConnectedClients = len(h.clients)
	h.metrics.LastActivity = h.now()

	h.log.Info("client registered",
		"connection_id", client.id,
		"codec", client.codec.Name(),
		"authenticated", client.identity != nil,
		"total_clients", len(h.clients),
	)

	h.deliver(client, NewMessage(EventConnected, client.id))
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client.id]; !ok || client.closed {
		return
	}

	delete(h.clients, client.id)
	client.closed = true
	close(client.send) // Signal client to stop
	h.metrics.ConnectedClients = len(h.clients)

	h.log.Info("client unregistered",
		"connection_id", client.id,
		"room_id", client.roomID,
		"user_id", client.userID,
		"remaining_clients", len(h.clients),
	)

	h.safely("disconnect", func() { h.handleDisconnect(client) })
}

// handleInbound runs one client event. Events that arrive while a lookup for
// the same connection is outstanding wait so per-connection order is kept.
func (h *Hub) handleInbound(c *Client, msg Message) {
	if c.closed {
		return
	}
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	h.metrics.LastActivity = h.now()

	if c.awaiting {
		c.deferred = append(c.deferred, msg)
		return
	}

	h.dispatch(c, msg)
}

func (h *Hub) dispatch(c *Client, msg Message) {
	h.metrics.EventsHandled++
	h.safely(msg.Event, func() { h.route(c, msg) })
}

func (h *Hub) route(c *Client, msg Message) {
	switch msg.Event {
	case EventRequestJoinRoom:
		h.handleRequestJoin(c, msg)
	case EventJoinRoom:
		h.handleJoinRoom(c, msg)
	case EventApproveJoin:
		h.handleApprove(c, msg)
	case EventDenyJoin:
		h.handleDeny(c, msg)
	case EventGetWaitingRoom:
		h.handleGetWaitingRoom(c, msg)
	case EventToggleVideo:
		h.handleToggle(c, msg, room.MediaVideo, nil)
	case EventToggleAudio:
		h.handleToggle(c, msg, room.MediaAudio, nil)
	case EventStartScreenShare:
		enabled := true
		h.handleToggle(c, msg, room.MediaScreenShare, &enabled)
	case EventStopScreenShare:
		enabled := false
		h.handleToggle(c, msg, room.MediaScreenShare, &enabled)
	case EventSendMessage:
		h.handleSendMessage(c, msg)
	case EventSignal:
		h.handleSignal(c, msg)
	case EventMessageHistory:
		h.handleMessageHistory(c, msg)
	case EventLeaveRoom:
		h.handleLeaveRoom(c, msg)
	case EventEndMeeting:
		h.handleEndMeeting(c, msg)
	case EventCheckCreatorStatus:
		h.handleCheckCreatorStatus(c, msg)
	default:
		h.log.Debug("unknown event", "event", msg.Event, "connection_id", c.id)
		h.sendError(c, "unknown event: "+msg.Event)
	}
}

// safely keeps a panicking handler from taking the loop down with it
func (h *Hub) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("handler panicked",
				"handler", what,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// deliver queues a message for one client. A client that cannot keep up is
// evicted once the current event has been handled.
func (h *Hub) deliver(c *Client, msg Message) {
	if c == nil || c.closed {
		return
	}

	select {
	case c.send <- msg:
		h.metrics.MessagesSent++
	default:
		h.log.Warn("client buffer full, disconnecting",
			"connection_id", c.id,
			"room_id", c.roomID,
			"event", msg.Event,
		)
		h.metrics.MessagesDropped++
		h.evictions = append(h.evictions, c)
	}
}

func (h *Hub) deliverTo(connID room.ConnID, msg Message) {
	h.deliver(h.clients[connID], msg)
}

// broadcast sends msg to every participant of the room except the given connection
func (h *Hub) broadcast(roomID string, msg Message, except room.ConnID) {
	for _, p := range h.rooms.ListParticipants(roomID) {
		if p.ConnID == except {
			continue
		}
		h.deliverTo(p.ConnID, msg)
	}
}

func (h *Hub) sendError(c *Client, text string) {
	h.deliver(c, NewMessage(EventError, text))
}

func (h *Hub) flushEvictions() {
	for len(h.evictions) > 0 {
		c := h.evictions[0]
		h.evictions = h.evictions[1:]
		if c.closed {
			continue
		}
		h.metrics.ClientsEvicted++
		h.handleUnregister(c)
	}
}

// lookup resolves a meeting record off the loop and continues with then on
// the loop. Lookup errors are treated as "no record".
func (h *Hub) lookup(c *Client, roomID string, then func(m *admission.Meeting)) {
	if h.meetings == nil {
		then(nil)
		return
	}

	c.awaiting = true
	h.metrics.LookupsStarted++

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.LookupTimeout)
		defer cancel()

		m, err := h.meetings.FindMeetingByRoomID(ctx, roomID)

		h.post(func() {
			if err != nil {
				h.metrics.LookupFailures++
				h.log.Warn("meeting lookup failed, treating room as ad-hoc",
					"room_id", roomID,
					"error", err,
				)
				m = nil
			}

			c.awaiting = false
			if c.closed {
				return
			}

			h.safely("lookup", func() { then(m) })
			h.flushDeferred(c)
		})
	}()
}

func (h *Hub) flushDeferred(c *Client) {
	for !c.awaiting && !c.closed && len(c.deferred) > 0 {
		msg := c.deferred[0]
		c.deferred = c.deferred[1:]
		h.dispatch(c, msg)
	}
}

// persist runs store work in the background. Failures are logged and counted.
func (h *Hub) persist(what, roomID string, fn func(ctx context.Context) error) {
	if h.meetings == nil {
		return
	}

	h.background.Add(1)
	go func() {
		defer h.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.opts.PersistTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			h.persistFailures.Add(1)
			h.log.Error("failed to persist", "what", what, "room_id", roomID, "error", err)
		}
	}()
}

func (h *Hub) handleHealthCheck() {
	now := h.now()
	for _, info := range h.rooms.Snapshot() {
		if info.ParticipantCount > 0 || info.WaitingCount > 0 {
			continue
		}
		if now.Sub(info.CreatedAt) < h.opts.IdleRoomTTL {
			continue
		}
		if h.rooms.DeleteIfIdle(info.ID) {
			h.log.Info("swept idle room", "room_id", info.ID)
		}
	}

	h.log.Debug("hub health",
		"clients", len(h.clients),
		"rooms", h.rooms.Len(),
		"messages_sent", h.metrics.MessagesSent,
		"messages_dropped", h.metrics.MessagesDropped,
	)
}

func (h *Hub) handleShutdown() {
	h.log.Info("shutting down hub", "clients", len(h.clients), "rooms", h.rooms.Len())

	// Gracefully close all clients
	for id, client := range h.clients {
		client.closed = true
		close(client.send)
		delete(h.clients, id)
	}

	h.rooms.Clear()
	h.metrics.ConnectedClients = 0
	close(h.done)
}
