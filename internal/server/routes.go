package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rx3lixir/laba_meet/internal/auth"
	"github.com/rx3lixir/laba_meet/internal/meeting"
	"github.com/rx3lixir/laba_meet/internal/rtcconfig"
	"github.com/rx3lixir/laba_meet/internal/signaling"
	"github.com/rx3lixir/laba_meet/internal/user"
	"github.com/rx3lixir/laba_meet/pkg/httputil"
)

const healthPath = "/health"

type RouterConfig struct {
	// UserHandler is nil when Postgres is unavailable; its routes answer 503
	UserHandler      *user.Handler
	MeetingHandler   *meeting.Handler
	SignalingHandler *signaling.Handler
	RTCHandler       *rtcconfig.Handler
	Tokens           auth.TokenValidator
	AllowedOrigins   []string
	Log              *slog.Logger
}

func NewRouter(config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(config.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Websocket upgrade and hub stats
	if config.SignalingHandler != nil {
		config.SignalingHandler.RegisterRoutes(r)
	}
	if config.RTCHandler != nil {
		config.RTCHandler.RegisterRoutes(r)
	}

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no middleware)
		r.Route("/auth", func(r chi.Router) {
			if config.UserHandler == nil {
				r.HandleFunc("/*", unavailable("user store is not available", config.Log))
				return
			}
			config.UserHandler.RegisterAuthRoutes(r)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(config.Tokens, config.Log))

			r.Route("/user", func(r chi.Router) {
				if config.UserHandler == nil {
					r.HandleFunc("/*", unavailable("user store is not available", config.Log))
					return
				}
				config.UserHandler.RegisterUserRoutes(r)
			})

			if config.MeetingHandler != nil {
				r.Route("/meetings", config.MeetingHandler.RegisterRoutes)
			}
		})
	})

	return r
}

func unavailable(msg string, log *slog.Logger) http.HandlerFunc {
	return httputil.Handler(func(w http.ResponseWriter, r *http.Request) error {
		return httputil.Unavailable(msg, nil)
	}, log)
}
