package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/laba_meet/pkg/jwt"
	"github.com/rx3lixir/laba_meet/pkg/logger"
)

func TestMiddleware(t *testing.T) {
	svc := jwt.NewService("secret", time.Minute, time.Hour)
	id := uuid.New()
	token, err := svc.GenerateAccessToken(id, "host@example.com", "host")
	require.NoError(t, err)

	var gotID uuid.UUID
	var gotName string
	h := Middleware(svc, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserID(r.Context())
		gotName = GetUsername(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/meetings/mine", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, id, gotID)
	assert.Equal(t, "host", gotName)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=fromquery", nil)
	assert.Equal(t, "fromquery", TokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer fromheader")
	assert.Equal(t, "fromheader", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, "", TokenFromRequest(req))
}
