package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/laba_meet/internal/auth"
	"github.com/rx3lixir/laba_meet/pkg/jwt"
	"github.com/rx3lixir/laba_meet/pkg/logger"
)

type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]*User)}
}

func (s *memStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (s *memStore) GetAllUsers(_ context.Context, limit, offset int) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*User{}
	for _, u := range s.users {
		out = append(out, u)
	}
	if offset >= len(out) {
		return []*User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) UpdateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.UpdatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *memStore, *jwt.Service) {
	t.Helper()

	store := newMemStore()
	tokens := jwt.NewService("test-secret", 15*time.Minute, time.Hour)
	h := NewHandler(store, tokens, logger.Discard(), 0)

	r := chi.NewRouter()
	r.Route("/api/auth", h.RegisterAuthRoutes)
	r.Route("/api/user", func(r chi.Router) {
		r.Use(auth.Middleware(tokens, logger.Discard()))
		h.RegisterUserRoutes(r)
	})
	return r, store, tokens
}

func call(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func signup(t *testing.T, router http.Handler, name, email string) AuthResponse {
	t.Helper()

	body := `{"username":"` + name + `","email":"` + email + `","password":"Passw0rd!"}`
	rec := call(t, router, http.MethodPost, "/api/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignupSigninRefresh(t *testing.T) {
	router, _, tokens := newTestRouter(t)

	resp := signup(t, router, "alice", " Alice@Example.com ")
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	rec := call(t, router, http.MethodPost, "/api/auth/signup", "",
		`{"username":"alice2","email":"alice@example.com","password":"Passw0rd!"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/signin", "",
		`{"email":"ALICE@example.com","password":"Passw0rd!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/signin", "",
		`{"email":"alice@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/signin", "",
		`{"email":"nobody@example.com","password":"Passw0rd!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/refresh", "",
		`{"refresh_token":"`+resp.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"garbage"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/auth/refresh", "",
		`{"refresh_token":"`+resp.AccessToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := call(t, router, http.MethodPost, "/api/auth/signup", "",
		`{"username":"alice","email":"alice@example.com","password":"weak"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")

	rec = call(t, router, http.MethodPost, "/api/auth/signup", "", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileRoutes(t *testing.T) {
	router, store, _ := newTestRouter(t)

	alice := signup(t, router, "alice", "alice@example.com")
	signup(t, router, "bob", "bob@example.com")

	rec := call(t, router, http.MethodGet, "/api/user/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/me", alice.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, alice.User.ID, me.ID)

	rec = call(t, router, http.MethodPut, "/api/user/me", alice.AccessToken, `{"username":"Alice L."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := store.GetUserByID(context.Background(), alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", stored.Username)

	// profile updates leave the password hash alone
	rec = call(t, router, http.MethodPost, "/api/auth/signin", "",
		`{"email":"alice@example.com","password":"Passw0rd!"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodPut, "/api/user/me", alice.AccessToken, `{"email":"bob@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, router, http.MethodPut, "/api/user/me", alice.AccessToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/email/BOB@example.com", alice.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/email/zed@example.com", alice.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/"+uuid.NewString(), alice.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/not-a-uuid", alice.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/?limit=1", alice.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list GetAllUsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Users, 1)
	assert.Equal(t, 1, list.Limit)

	rec = call(t, router, http.MethodDelete, "/api/user/me", alice.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/user/me", alice.AccessToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
