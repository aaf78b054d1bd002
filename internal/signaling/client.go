package signaling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rx3lixir/laba_meet/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer. SDP offers are a few KB.
	defaultMaxMessageSize = 64 * 1024
)

type connState int

const (
	stateConnected connState = iota
	stateAwaitingAdmission
	stateAdmitted
)

func (s connState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateAwaitingAdmission:
		return "awaiting-admission"
	case stateAdmitted:
		return "admitted"
	default:
		return "unknown"
	}
}

// Client represents a single WebSocket connection
type Client struct {
	id       room.ConnID
	identity *Identity
	conn     *websocket.Conn
	codec    Codec
	hub      *Hub
	send     chan Message
	limiter  *rate.Limiter
	log      *slog.Logger

	// Owned by the hub goroutine
	state    connState
	roomID   string
	userID   room.UserID
	userName string
	awaiting bool
	deferred []Message
	closed   bool
}

type ClientOptions struct {
	Identity   *Identity
	Codec      Codec
	SendBuffer int
	RateLimit  rate.Limit
	RateBurst  int
}

// NewClient creates a new client instance. conn may be nil for connections
// that are driven without a transport.
func NewClient(conn *websocket.Conn, hub *Hub, opts ClientOptions, log *slog.Logger) *Client {
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Inf
	}

	id := room.ConnID(uuid.NewString())

	return &Client{
		id:       id,
		identity: opts.Identity,
		conn:     conn,
		codec:    opts.Codec,
		hub:      hub,
		send:     make(chan Message, opts.SendBuffer),
		limiter:  rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		log:      log.With("connection_id", id),
	}
}

func (c *Client) ID() room.ConnID { return c.id }

// readPump pumps messages from the WebSocket connection to the hub.
// It blocks until the connection fails and then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure ||
				status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				c.log.Debug("client disconnected normally")
			} else {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn("client exceeded message rate, dropping frame")
			continue
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.log.Debug("dropping malformed frame", "error", err)
			continue
		}

		if !c.hub.Dispatch(c, msg) {
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				c.conn.Close(websocket.StatusNormalClosure, "hub closed channel")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.writeMessage(writeCtx, message)
			cancel()

			if err != nil {
				c.log.Warn("failed to write message", "event", message.Event, "error", err)
				return
			}

		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(writeCtx)
			cancel()

			if err != nil {
				c.log.Warn("failed to send ping", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// writeMessage writes a message to the WebSocket connection
func (c *Client) writeMessage(ctx context.Context, message Message) error {
	data, err := c.codec.Encode(message)
	if err != nil {
		return err
	}

	return c.conn.Write(ctx, c.codec.FrameType(), data)
}
