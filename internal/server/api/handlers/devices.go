package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/homeduty/homeduty/internal/server/api/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DevicesHandler struct {
	queries *database.Queries
}

func NewDevicesHandler(db *pgxpool.Pool) *DevicesHandler {
	return &DevicesHandler{queries: database.New(db)}
}

type DeviceDTO struct {
	Token    string `json:"token" doc:"Push token"`
	Platform string `json:"platform" doc:"Device platform"`
}

type SaveDeviceInput struct {
	Body struct {
		Token    string `json:"token" minLength:"1" maxLength:"512" doc:"Push token"`
		Platform string `json:"platform,omitempty" maxLength:"16" doc:"Device platform (ios, android, web)"`
	}
}

func (h *DevicesHandler) Save(ctx context.Context, input *SaveDeviceInput) (*DataOutput[DeviceDTO], error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	d, err := h.queries.SaveDeviceToken(ctx, database.SaveDeviceTokenParams{
		Token:    input.Body.Token,
		UserID:   uid,
		Platform: input.Body.Platform,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to save device token", err)
	}
	return OK(DeviceDTO{Token: d.Token, Platform: d.Platform}), nil
}

type DeleteDeviceInput struct {
	Token string `path:"token" minLength:"1" doc:"Push token"`
}

func (h *DevicesHandler) Delete(ctx context.Context, input *DeleteDeviceInput) (*MsgOutput, error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	affected, err := h.queries.DeleteDeviceToken(ctx, database.DeleteDeviceTokenParams{
		Token:  input.Token,
		UserID: uid,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to delete device token", err)
	}
	if affected == 0 {
		return nil, huma.Error404NotFound("device token not found")
	}
	return Msg("device token deleted"), nil
}

func (h *DevicesHandler) List(ctx context.Context, _ *EmptyInput) (*DataOutput[[]DeviceDTO], error) {
	uid := util.TextToUUID(middleware.GetUserID(ctx))

	tokens, err := h.queries.ListDeviceTokens(ctx, uid)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list device tokens", err)
	}
	out := make([]DeviceDTO, len(tokens))
	for i, d := range tokens {
		out[i] = DeviceDTO{Token: d.Token, Platform: d.Platform}
	}
	return OK(out), nil
}
