package handlers

import (
	"context"
	"net/mail"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/homeduty/homeduty/internal/server/api/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	queries       *database.Queries
	jwtSecret     string
	jwtExpiry     time.Duration
	refreshExpiry time.Duration
}

func NewAuthHandler(db *pgxpool.Pool, jwtSecret string, jwtExpiry, refreshExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		queries:       database.New(db),
		jwtSecret:     jwtSecret,
		jwtExpiry:     jwtExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// --- Input types ---

type RegisterInput struct {
	Body struct {
		Username    string `json:"username" minLength:"1" doc:"Username"`
		Password    string `json:"password" minLength:"8" doc:"Password"`
		Email       string `json:"email" minLength:"1" format:"email" doc:"Email address"`
		DisplayName string `json:"display_name,omitempty" doc:"Name shown on the duty board"`
	}
}

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Username"`
		Password string `json:"password" minLength:"1" doc:"Password"`
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token from login"`
	}
}

type EmptyInput struct{}

// --- DTO types ---

type RegisterDTO struct {
	ID       string `json:"id" doc:"User ID"`
	Username string `json:"username" doc:"Username"`
}

type TokenUserDTO struct {
	ID          string `json:"id" doc:"User ID"`
	Username    string `json:"username" doc:"Username"`
	DisplayName string `json:"display_name" doc:"Display name"`
	Role        string `json:"role" doc:"User role"`
}

type TokenDTO struct {
	Token        string       `json:"token" doc:"JWT access token"`
	RefreshToken string       `json:"refresh_token" doc:"JWT refresh token"`
	ExpiresIn    int          `json:"expires_in" doc:"Access token lifetime in seconds"`
	User         TokenUserDTO `json:"user" doc:"User info"`
}

type MeDTO struct {
	ID          string `json:"id" doc:"User ID"`
	Username    string `json:"username" doc:"Username"`
	Email       string `json:"email" doc:"Email"`
	DisplayName string `json:"display_name" doc:"Display name"`
	AvatarURL   string `json:"avatar_url" doc:"Avatar URL"`
	Role        string `json:"role" doc:"User role"`
	APIKey      string `json:"api_key" doc:"API key"`
}

type APIKeyDTO struct {
	APIKey string `json:"api_key" doc:"New API key"`
}

// --- Handlers ---

func (h *AuthHandler) Register(ctx context.Context, input *RegisterInput) (*DataOutput[RegisterDTO], error) {
	if _, err := mail.ParseAddress(input.Body.Email); err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Body.Password), 12)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to hash password")
	}

	user, err := h.queries.CreateUser(ctx, database.CreateUserParams{
		Username:    input.Body.Username,
		Email:       input.Body.Email,
		Password:    string(hash),
		DisplayName: input.Body.DisplayName,
		Role:        "member",
	})
	if err != nil {
		return nil, huma.Error409Conflict("username or email already taken")
	}

	return OK(RegisterDTO{
		ID:       util.UUIDToStr(user.ID),
		Username: user.Username,
	}), nil
}

func (h *AuthHandler) Login(ctx context.Context, input *LoginInput) (*DataOutput[TokenDTO], error) {
	user, err := h.queries.GetUserByUsername(ctx, input.Body.Username)
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Body.Password)); err != nil {
		return nil, huma.Error401Unauthorized("invalid username or password")
	}

	if !user.IsActive {
		return nil, huma.Error403Forbidden("account is disabled")
	}

	return h.issueTokens(util.UUIDToStr(user.ID), user.Username, user.DisplayName, user.Role)
}

func (h *AuthHandler) Refresh(ctx context.Context, input *RefreshInput) (*DataOutput[TokenDTO], error) {
	userID, _, err := middleware.ParseRefreshToken(input.Body.RefreshToken, h.jwtSecret)
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid refresh token")
	}

	// Re-read the user: role changes and deactivation take effect on
	// refresh, not only at next login.
	user, err := h.queries.GetUserByID(ctx, util.TextToUUID(userID))
	if err != nil {
		return nil, huma.Error401Unauthorized("unknown user")
	}
	if !user.IsActive {
		return nil, huma.Error403Forbidden("account is disabled")
	}

	return h.issueTokens(util.UUIDToStr(user.ID), user.Username, user.DisplayName, user.Role)
}

func (h *AuthHandler) issueTokens(id, username, displayName, role string) (*DataOutput[TokenDTO], error) {
	token, err := middleware.GenerateJWT(id, role, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to generate token")
	}
	refresh, err := middleware.GenerateRefreshJWT(id, role, h.jwtSecret, h.refreshExpiry)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to generate refresh token")
	}

	return OK(TokenDTO{
		Token:        token,
		RefreshToken: refresh,
		ExpiresIn:    int(h.jwtExpiry.Seconds()),
		User:         TokenUserDTO{ID: id, Username: username, DisplayName: displayName, Role: role},
	}), nil
}

func (h *AuthHandler) Me(ctx context.Context, _ *EmptyInput) (*DataOutput[MeDTO], error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	user, err := h.queries.GetUserByID(ctx, uid)
	if err != nil {
		return nil, huma.Error404NotFound("user not found")
	}

	return OK(MeDTO{
		ID:          util.UUIDToStr(user.ID),
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Role:        user.Role,
		APIKey:      util.UUIDToStr(user.ApiKey),
	}), nil
}

func (h *AuthHandler) RegenerateAPIKey(ctx context.Context, _ *EmptyInput) (*DataOutput[APIKeyDTO], error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	user, err := h.queries.RegenerateAPIKey(ctx, uid)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to regenerate API key")
	}

	return OK(APIKeyDTO{APIKey: util.UUIDToStr(user.ApiKey)}), nil
}
