package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rx3lixir/laba_meet/internal/auth"
	"github.com/rx3lixir/laba_meet/pkg/httputil"
	"github.com/rx3lixir/laba_meet/pkg/password"
)

// TokenIssuer mints and checks the token pair handed out on signin
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, email, username string) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, error)
	ValidateRefreshToken(token string) (uuid.UUID, error)
}

type Handler struct {
	store     Store
	tokens    TokenIssuer
	log       *slog.Logger
	dbTimeout time.Duration
}

func NewHandler(store Store, tokens TokenIssuer, log *slog.Logger, dbTimeout time.Duration) *Handler {
	if dbTimeout == 0 {
		dbTimeout = 5 * time.Second
	}
	return &Handler{store, tokens, log, dbTimeout}
}

// RegisterUserRoutes registers all user-related endpoints under the provided router.
// The router is expected to carry the auth middleware.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Get("/", httputil.Handler(h.HandleGetAllUsers, h.log))
	r.Get("/me", httputil.Handler(h.HandleMe, h.log))
	r.Put("/me", httputil.Handler(h.HandleUpdateMe, h.log))
	r.Delete("/me", httputil.Handler(h.HandleDeleteMe, h.log))
	r.Get("/email/{email}", httputil.Handler(h.HandleGetUserByEmail, h.log))
	r.Get("/{id}", httputil.Handler(h.HandleGetUserByID, h.log))
}

// RegisterAuthRoutes registers authentication-related endpoints (signup, signin refresh).
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Post("/signup", httputil.Handler(h.HandleSignup, h.log))
	r.Post("/signin", httputil.Handler(h.HandleSignin, h.log))
	r.Post("/refresh", httputil.Handler(h.HandleRefreshToken, h.log))
}

// Context that handles database requests
func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

func (h *Handler) lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return httputil.NotFound("User not found")
	}
	return httputil.Internal(err)
}

func currentUser(r *http.Request) (uuid.UUID, error) {
	userID := auth.GetUserID(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, httputil.Unauthorized("User ID is invalid")
	}
	return userID, nil
}

// HandleMe returns the currently authenticated user's profile.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		return h.lookupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, toResponse(user))
}

// HandleUpdateMe changes the display name or email of the caller
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	req := new(UpdateProfileRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}
	if err := validateUpdateProfileRequest(req); err != nil {
		return httputil.BadRequest("Validation failed", map[string]string{
			"validation_error": err.Error(),
		})
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		return h.lookupError(err)
	}

	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		user.Email = normalizeEmail(*req.Email)
	}

	if err := h.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return httputil.Conflict("User with this email already exists")
		}
		return h.lookupError(err)
	}

	h.log.Debug("Profile updated", "user_id", user.ID)

	return httputil.RespondJSON(w, http.StatusOK, toResponse(user))
}

// HandleGetUserByID retrieves a user by their UUID.
func (h *Handler) HandleGetUserByID(w http.ResponseWriter, r *http.Request) error {
	userID, err := httputil.ParseUUID(r, "id")
	if err != nil {
		return err
	}

	h.log.Debug("Fetching user by ID", "user_id", userID)

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		return h.lookupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, toResponse(user))
}

// HandleGetAllUsers returns a paginated list of users.
func (h *Handler) HandleGetAllUsers(w http.ResponseWriter, r *http.Request) error {
	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = min(parsedLimit, 100)
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	users, err := h.store.GetAllUsers(ctx, limit, offset)
	if err != nil {
		h.log.Error("Failed to retrieve users", "error", err)
		return httputil.Internal(err)
	}

	userResponses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		userResponses = append(userResponses, toResponse(user))
	}

	return httputil.RespondJSON(w, http.StatusOK, GetAllUsersResponse{
		Users:      userResponses,
		TotalCount: len(userResponses),
		Limit:      limit,
		Offset:     offset,
	})
}

// HandleGetUserByEmail retrieves a user by their email address (case-insensitive).
func (h *Handler) HandleGetUserByEmail(w http.ResponseWriter, r *http.Request) error {
	email := normalizeEmail(chi.URLParam(r, "email"))
	if email == "" {
		return httputil.BadRequest("email is required")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		h.log.Debug("failed to retrieve user from database", "email", email, "error", err)
		return h.lookupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, toResponse(user))
}

// HandleDeleteMe permanently removes the caller's account.
func (h *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.store.DeleteUser(ctx, userID); err != nil {
		return h.lookupError(err)
	}

	h.log.Info("User deleted", "user_id", userID)

	return httputil.RespondJSON(w, http.StatusOK, DeleteUserResponse{
		Message: "User deleted successfully",
		ID:      userID,
	})
}

// HandleSignup creates a new user account and immediately returns access + refresh JWT tokens.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) error {
	req := new(SignupRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	h.log.Debug("Signup attempt", "email", req.Email)

	if err := validateSignupRequest(req); err != nil {
		return httputil.BadRequest("Validation failed", map[string]string{
			"validation_error": err.Error(),
		})
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	email := normalizeEmail(req.Email)

	exists, err := h.store.ExistsByEmail(ctx, email)
	if err != nil {
		h.log.Error("Failed to check email", "email", email, "error", err)
		return httputil.Internal(err)
	}
	if exists {
		return httputil.Conflict("User with this email already exists")
	}

	hashedPassword, err := password.Hash(req.Password)
	if err != nil {
		h.log.Error("Failed to hash password", "error", err)
		return httputil.Internal(err)
	}

	newUser := &User{
		Username: strings.TrimSpace(req.Username),
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := h.store.CreateUser(ctx, newUser); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return httputil.Conflict("User with this email already exists")
		}
		h.log.Error("Failed to create user", "error", err)
		return httputil.Internal(err)
	}

	response, err := h.issue(newUser)
	if err != nil {
		return err
	}

	h.log.Info("User signed up", "user_id", newUser.ID)

	return httputil.RespondJSON(w, http.StatusCreated, response)
}

// HandleSignin authenticates a user and returns JWT pair of tokens
func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) error {
	req := new(SigninRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if req.Email == "" {
		return httputil.BadRequest("Email is required")
	}
	if req.Password == "" {
		return httputil.BadRequest("Password is required")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	email := normalizeEmail(req.Email)
	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return httputil.Internal(err)
		}
		h.log.Warn("Signin failed - user not found", "email", email)
		return httputil.Unauthorized("Invalid email or password")
	}

	if !password.Verify(req.Password, user.Password) {
		h.log.Warn("Signin failed - invalid password", "email", email)
		return httputil.Unauthorized("Invalid email or password")
	}

	response, err := h.issue(user)
	if err != nil {
		return err
	}

	h.log.Debug("User signed in", "user_id", user.ID)

	return httputil.RespondJSON(w, http.StatusOK, response)
}

// HandleRefreshToken generates new tokens using a refresh token
func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) error {
	req := new(RefreshTokenRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	if req.RefreshToken == "" {
		return httputil.BadRequest("Refresh token is required")
	}

	userID, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.log.Debug("Invalid or expired refresh token", "error", err)
		return httputil.Unauthorized("Invalid or expired refresh token")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		h.log.Warn("User not found during token refresh", "user_id", userID, "error", err)
		return h.lookupError(err)
	}

	response, err := h.issue(user)
	if err != nil {
		return err
	}

	return httputil.RespondJSON(w, http.StatusOK, response)
}

func (h *Handler) issue(user *User) (AuthResponse, error) {
	accessToken, err := h.tokens.GenerateAccessToken(user.ID, user.Email, user.Username)
	if err != nil {
		h.log.Error("Failed to generate access token", "error", err)
		return AuthResponse{}, httputil.Internal(err)
	}

	refreshToken, err := h.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		h.log.Error("Failed to generate refresh token", "error", err)
		return AuthResponse{}, httputil.Internal(err)
	}

	return AuthResponse{
		User:         toResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}
