package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rx3lixir/laba_meet/pkg/httputil"
	"github.com/rx3lixir/laba_meet/pkg/jwt"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userEmailKey contextKey = "user_email"
	userNameKey  contextKey = "username"
)

// TokenValidator is the part of the jwt service the middleware needs
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// Middleware rejects requests without a valid bearer token
func Middleware(tokens TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.RespondError(w, r, httputil.Unauthorized("authorization required"), log)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputil.RespondError(w, r, httputil.Unauthorized("invalid authorization format"), log)
				return
			}

			claims, err := tokens.ValidateAccessToken(parts[1])
			if err != nil {
				log.Debug("token rejected", "error", err)
				httputil.RespondError(w, r, httputil.Unauthorized("invalid token"), log)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// TokenFromRequest reads a bearer token from the Authorization header or,
// for browsers that cannot set headers on websocket upgrades, the token query param
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// WithClaims stores the authenticated identity in ctx
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, userIDKey, claims.UserID)
	ctx = context.WithValue(ctx, userEmailKey, claims.Email)
	ctx = context.WithValue(ctx, userNameKey, claims.Username)
	return ctx
}

// Helper functions to extract from context
func GetUserID(ctx context.Context) uuid.UUID {
	userID, _ := ctx.Value(userIDKey).(uuid.UUID)
	return userID
}

func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(userEmailKey).(string)
	return email
}

func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(userNameKey).(string)
	return username
}
