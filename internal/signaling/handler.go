package signaling

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/rx3lixir/laba_meet/internal/auth"
	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/pkg/httputil"
)

type HandlerOptions struct {
	AllowedOrigins []string
	AllowGuests    bool
	MaxMessageSize int64
	SendBuffer     int
	RateLimit      float64
	RateBurst      int
}

type Handler struct {
	hub    *Hub
	tokens auth.TokenValidator
	opts   HandlerOptions
	log    *slog.Logger
}

func NewHandler(hub *Hub, tokens auth.TokenValidator, opts HandlerOptions, log *slog.Logger) *Handler {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	return &Handler{
		hub:    hub,
		tokens: tokens,
		opts:   opts,
		log:    log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.HandleConnection)
	r.Get("/api/stats", httputil.Handler(h.handleStats, h.log))
}

// HandleConnection upgrades the request and serves the connection until it closes.
// A token is optional when guests are allowed, but a bad one is always refused.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var identity *Identity

	if token := auth.TokenFromRequest(r); token != "" {
		claims, err := h.tokens.ValidateAccessToken(token)
		if err != nil {
			h.log.Debug("websocket token rejected", "error", err)
			httputil.RespondError(w, r, httputil.Unauthorized("invalid or expired token"), h.log)
			return
		}
		identity = &Identity{
			UserID:   room.UserID(claims.UserID.String()),
			UserName: claims.Username,
		}
	} else if !h.opts.AllowGuests {
		httputil.RespondError(w, r, httputil.Unauthorized("missing authorization token"), h.log)
		return
	}

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(h.opts.MaxMessageSize)

	limit := rate.Inf
	if h.opts.RateLimit > 0 {
		limit = rate.Limit(h.opts.RateLimit)
	}

	client := NewClient(conn, h.hub, ClientOptions{
		Identity:   identity,
		Codec:      CodecFor(r.URL.Query().Get("codec")),
		SendBuffer: h.opts.SendBuffer,
		RateLimit:  limit,
		RateBurst:  h.opts.RateBurst,
	}, h.log)

	ctx := r.Context()
	if err := h.hub.Register(ctx, client); err != nil {
		h.log.Warn("failed to register client", "error", err)
		conn.Close(websocket.StatusTryAgainLater, "server shutting down")
		return
	}

	go client.writePump(ctx)
	client.readPump(ctx)
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range h.opts.AllowedOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
		} else {
			opts.OriginPatterns = append(opts.OriginPatterns, origin)
		}
	}
	return opts
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.hub.Stats(r.Context())
	if err != nil {
		return httputil.Unavailable("signaling hub is not running", err)
	}
	if stats.Rooms == nil {
		stats.Rooms = []room.Info{}
	}
	return httputil.RespondJSON(w, http.StatusOK, stats)
}
