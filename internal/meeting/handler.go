package meeting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rx3lixir/laba_meet/internal/auth"
	"github.com/rx3lixir/laba_meet/pkg/httputil"
)

type Handler struct {
	svc       *Service
	log       *slog.Logger
	dbTimeout time.Duration
}

func NewHandler(svc *Service, log *slog.Logger, dbTimeout time.Duration) *Handler {
	if dbTimeout == 0 {
		dbTimeout = 5 * time.Second
	}
	return &Handler{svc: svc, log: log, dbTimeout: dbTimeout}
}

// RegisterRoutes registers meeting endpoints. The router is expected to be
// behind auth.Middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create", httputil.Handler(h.HandleCreate, h.log))
	r.Post("/schedule", httputil.Handler(h.HandleSchedule, h.log))
	r.Get("/upcoming", httputil.Handler(h.HandleUpcoming, h.log))
	r.Get("/mine", httputil.Handler(h.HandleMine, h.log))

	r.Route("/{meetingID}", func(r chi.Router) {
		r.Get("/", httputil.Handler(h.HandleGet, h.log))
		r.Post("/join", httputil.Handler(h.HandleJoin, h.log))
		r.Post("/end", httputil.Handler(h.HandleEnd, h.log))
		r.Delete("/cancel", httputil.Handler(h.HandleCancel, h.log))
		r.Post("/messages", httputil.Handler(h.HandleSaveMessage, h.log))
		r.Get("/messages", httputil.Handler(h.HandleMessages, h.log))
		r.Get("/transcript", httputil.Handler(h.HandleTranscript, h.log))
	})
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

func caller(r *http.Request) (Caller, error) {
	userID := auth.GetUserID(r.Context())
	if userID == uuid.Nil {
		return Caller{}, httputil.Unauthorized("User ID is invalid")
	}
	return Caller{UserID: userID.String(), Username: auth.GetUsername(r.Context())}, nil
}

// toHTTP maps service errors onto response statuses
func toHTTP(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httputil.NotFound("Meeting not found")
	case errors.Is(err, ErrForbidden):
		return httputil.Forbidden("Not allowed for this meeting")
	case errors.Is(err, ErrEnded):
		return httputil.Gone("Meeting has ended")
	case errors.Is(err, ErrAlreadyStarted):
		return httputil.Conflict("Meeting has already started")
	case errors.Is(err, ErrUnavailable):
		return httputil.Unavailable("Meeting storage is unavailable", err)
	case errors.Is(err, ErrInvalid):
		return httputil.BadRequest("Validation failed", map[string]string{
			"validation_error": strings.TrimPrefix(err.Error(), ErrInvalid.Error()+": "),
		})
	default:
		return httputil.Internal(err)
	}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}

	req := new(CreateMeetingRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.svc.Create(ctx, c, *req)
	if err != nil {
		return toHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, MeetingResponse{Meeting: m, IsCreator: true})
}

func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}

	req := new(ScheduleMeetingRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.svc.Schedule(ctx, c, *req)
	if err != nil {
		return toHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, MeetingResponse{Meeting: m, IsCreator: true})
}

func (h *Handler) HandleUpcoming(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	meetings, err := h.svc.Upcoming(ctx, c)
	if err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, MeetingsResponse{Meetings: meetings})
}

func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	meetings, err := h.svc.ListForUser(ctx, c)
	if err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, MeetingsResponse{Meetings: meetings})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.svc.Get(ctx, meetingID)
	if err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, MeetingResponse{Meeting: m, IsCreator: m.IsCreator(c.UserID)})
}

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.svc.Join(ctx, c, meetingID)
	if err != nil {
		return toHTTP(err)
	}

	h.log.Debug("user joined meeting", "meeting_id", meetingID, "user_id", c.UserID)
	return httputil.RespondJSON(w, http.StatusOK, MeetingResponse{Meeting: m, IsCreator: m.IsCreator(c.UserID)})
}

func (h *Handler) HandleEnd(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.svc.End(ctx, c, meetingID); err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "Meeting ended successfully"})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.svc.Cancel(ctx, c, meetingID); err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, map[string]string{"message": "Meeting cancelled"})
}

func (h *Handler) HandleSaveMessage(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	req := new(SaveMessageRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	msg, err := h.svc.SaveMessage(ctx, c, meetingID, req.Content)
	if err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.svc.Get(ctx, meetingID)
	if err != nil {
		return toHTTP(err)
	}
	if !m.HasParticipant(c.UserID) {
		return toHTTP(ErrForbidden)
	}

	messages := m.Messages
	if messages == nil {
		messages = []Message{}
	}
	return httputil.RespondJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

func (h *Handler) HandleTranscript(w http.ResponseWriter, r *http.Request) error {
	c, err := caller(r)
	if err != nil {
		return err
	}
	meetingID, err := httputil.URLParam(r, "meetingID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	url, err := h.svc.TranscriptURL(ctx, c, meetingID)
	if err != nil {
		return toHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, TranscriptResponse{URL: url})
}
