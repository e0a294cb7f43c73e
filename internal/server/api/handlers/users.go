package handlers

import (
	"context"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/homeduty/homeduty/internal/server/api/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersHandler struct {
	queries *database.Queries
}

func NewUsersHandler(db *pgxpool.Pool) *UsersHandler {
	return &UsersHandler{queries: database.New(db)}
}

type UserDTO struct {
	ID          string `json:"id" doc:"User ID"`
	Username    string `json:"username" doc:"Username"`
	Email       string `json:"email" doc:"Email"`
	DisplayName string `json:"display_name" doc:"Display name"`
	AvatarURL   string `json:"avatar_url" doc:"Avatar URL"`
	Role        string `json:"role" doc:"Role"`
	IsActive    bool   `json:"is_active" doc:"Eligible for duty assignment"`
}

func userDTO(u database.User) UserDTO {
	return UserDTO{
		ID:          util.UUIDToStr(u.ID),
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		IsActive:    u.IsActive,
	}
}

type ListUsersInput struct {
	Limit  int `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

func (h *UsersHandler) List(ctx context.Context, input *ListUsersInput) (*DataOutput[[]UserDTO], error) {
	users, err := h.queries.ListUsers(ctx, database.ListUsersParams{
		Limit:  int32(input.Limit),
		Offset: int32(input.Offset),
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list users", err)
	}

	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = userDTO(u)
	}
	return OK(out), nil
}

type UpdateProfileInput struct {
	Body struct {
		DisplayName string `json:"display_name" minLength:"1" maxLength:"64" doc:"Display name"`
	}
}

func (h *UsersHandler) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*DataOutput[UserDTO], error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	user, err := h.queries.UpdateProfile(ctx, database.UpdateProfileParams{
		ID:          uid,
		DisplayName: input.Body.DisplayName,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to update profile", err)
	}
	return OK(userDTO(user)), nil
}

type UpdateAvatarInput struct {
	Body struct {
		AvatarURL string `json:"avatar_url" minLength:"1" maxLength:"512" doc:"Avatar image URL"`
	}
}

func (h *UsersHandler) UpdateAvatar(ctx context.Context, input *UpdateAvatarInput) (*DataOutput[UserDTO], error) {
	u, err := url.Parse(input.Body.AvatarURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, huma.Error422UnprocessableEntity("avatar_url must be an http(s) URL")
	}

	uid := util.TextToUUID(middleware.GetUserID(ctx))
	user, err := h.queries.UpdateAvatar(ctx, database.UpdateAvatarParams{
		ID:        uid,
		AvatarURL: input.Body.AvatarURL,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to update avatar", err)
	}
	return OK(userDTO(user)), nil
}

type UserIDInput struct {
	ID string `path:"id" format:"uuid" doc:"User ID"`
}

func (h *UsersHandler) Delete(ctx context.Context, input *UserIDInput) (*MsgOutput, error) {
	if input.ID == middleware.GetUserID(ctx) {
		return nil, huma.Error409Conflict("cannot delete your own account")
	}
	if err := h.queries.DeleteUser(ctx, util.TextToUUID(input.ID)); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete user", err)
	}
	return Msg("user deleted"), nil
}

type SetActiveInput struct {
	ID   string `path:"id" format:"uuid" doc:"User ID"`
	Body struct {
		IsActive bool `json:"is_active" doc:"Whether the member is eligible for duty assignment"`
	}
}

// SetActive toggles roster eligibility. Deactivated members keep their
// account and history but drop out of future arrangements.
func (h *UsersHandler) SetActive(ctx context.Context, input *SetActiveInput) (*DataOutput[UserDTO], error) {
	user, err := h.queries.SetUserActive(ctx, database.SetUserActiveParams{
		ID:       util.TextToUUID(input.ID),
		IsActive: input.Body.IsActive,
	})
	if err != nil {
		return nil, huma.Error404NotFound("user not found")
	}
	return OK(userDTO(user)), nil
}
