package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/homeduty/homeduty/internal/core/duty"
	"github.com/homeduty/homeduty/internal/server/api/handlers"
	"github.com/homeduty/homeduty/internal/server/api/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type RouterConfig struct {
	DB            *pgxpool.Pool
	JWTSecret     string
	JWTExpiry     time.Duration
	RefreshExpiry time.Duration
	Coordinator   *duty.Coordinator
	Timezone      *time.Location
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
	}))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(20)))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	config := huma.DefaultConfig("Homeduty API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api/v1"}}
	config.Info.Description = "Household management: members, push devices and a fair cleaning-duty rotation"
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"BearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "JWT Bearer token",
		},
		"ApiKeyAuth": {
			Type:        "apiKey",
			In:          "header",
			Name:        "X-API-Key",
			Description: "API key",
		},
	}

	handlers.InitErrors()
	api := humaecho.NewWithGroup(e, v1, config)

	authMw := middleware.Auth(cfg.JWTSecret, cfg.DB)
	adminMw := middleware.AdminOnly()
	authed := []map[string][]string{{"BearerAuth": {}}, {"ApiKeyAuth": {}}}

	authHandler := handlers.NewAuthHandler(cfg.DB, cfg.JWTSecret, cfg.JWTExpiry, cfg.RefreshExpiry)
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new household member",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, authHandler.Register)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login and get access + refresh tokens",
		Tags:        []string{"Auth"},
	}, authHandler.Login)

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Exchange a refresh token for new tokens",
		Tags:        []string{"Auth"},
	}, authHandler.Refresh)

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get current user info",
		Tags:        []string{"Auth"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, authHandler.Me)

	huma.Register(api, huma.Operation{
		OperationID: "regenerate-api-key",
		Method:      http.MethodPost,
		Path:        "/auth/apikey/regenerate",
		Summary:     "Regenerate API key",
		Tags:        []string{"Auth"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, authHandler.RegenerateAPIKey)

	usersHandler := handlers.NewUsersHandler(cfg.DB)
	huma.Register(api, huma.Operation{
		OperationID: "users-update-profile",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update own display name",
		Tags:        []string{"Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, usersHandler.UpdateProfile)

	huma.Register(api, huma.Operation{
		OperationID: "users-update-avatar",
		Method:      http.MethodPut,
		Path:        "/users/me/avatar",
		Summary:     "Update own avatar URL",
		Tags:        []string{"Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, usersHandler.UpdateAvatar)

	huma.Register(api, huma.Operation{
		OperationID: "admin-users-list",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List all members",
		Tags:        []string{"Admin - Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, usersHandler.List)

	huma.Register(api, huma.Operation{
		OperationID: "admin-users-delete",
		Method:      http.MethodDelete,
		Path:        "/users/{id}",
		Summary:     "Delete a member",
		Tags:        []string{"Admin - Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, usersHandler.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "admin-users-set-active",
		Method:      http.MethodPatch,
		Path:        "/users/{id}/active",
		Summary:     "Set a member's duty eligibility",
		Tags:        []string{"Admin - Users"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, usersHandler.SetActive)

	devicesHandler := handlers.NewDevicesHandler(cfg.DB)
	huma.Register(api, huma.Operation{
		OperationID:   "devices-save",
		Method:        http.MethodPost,
		Path:          "/devices",
		Summary:       "Register a push notification token",
		Tags:          []string{"Devices"},
		Security:      authed,
		Middlewares:   huma.Middlewares{authMw},
		DefaultStatus: http.StatusCreated,
	}, devicesHandler.Save)

	huma.Register(api, huma.Operation{
		OperationID: "devices-list",
		Method:      http.MethodGet,
		Path:        "/devices",
		Summary:     "List own push tokens",
		Tags:        []string{"Devices"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, devicesHandler.List)

	huma.Register(api, huma.Operation{
		OperationID: "devices-delete",
		Method:      http.MethodDelete,
		Path:        "/devices/{token}",
		Summary:     "Delete a push notification token",
		Tags:        []string{"Devices"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, devicesHandler.Delete)

	dutiesHandler := handlers.NewDutiesHandler(cfg.DB, cfg.Coordinator, cfg.Timezone)
	huma.Register(api, huma.Operation{
		OperationID: "duties-arrange",
		Method:      http.MethodPost,
		Path:        "/duties/arrange",
		Summary:     "Arrange duties for the current or given period",
		Description: "Idempotent per period: an already committed period is returned as-is with already_arranged set.",
		Tags:        []string{"Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, dutiesHandler.Arrange)

	huma.Register(api, huma.Operation{
		OperationID: "duties-get",
		Method:      http.MethodGet,
		Path:        "/duties/{year}/{month}",
		Summary:     "Get committed assignments for a period",
		Tags:        []string{"Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, dutiesHandler.Get)

	huma.Register(api, huma.Operation{
		OperationID: "admin-duties-rearrange",
		Method:      http.MethodPost,
		Path:        "/duties/{year}/{month}/rearrange",
		Summary:     "Override a committed period with a new generation",
		Tags:        []string{"Admin - Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, dutiesHandler.ReArrange)

	huma.Register(api, huma.Operation{
		OperationID: "admin-duties-history",
		Method:      http.MethodGet,
		Path:        "/duties/{year}/{month}/history",
		Summary:     "Get all committed generations for a period",
		Tags:        []string{"Admin - Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, dutiesHandler.History)

	huma.Register(api, huma.Operation{
		OperationID: "duties-catalog-list",
		Method:      http.MethodGet,
		Path:        "/duties/catalog",
		Summary:     "List the duty catalog",
		Tags:        []string{"Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw},
	}, dutiesHandler.ListCatalog)

	huma.Register(api, huma.Operation{
		OperationID:   "admin-duties-create",
		Method:        http.MethodPost,
		Path:          "/duties/catalog",
		Summary:       "Add a duty to the catalog",
		Tags:          []string{"Admin - Duties"},
		Security:      authed,
		Middlewares:   huma.Middlewares{authMw, adminMw},
		DefaultStatus: http.StatusCreated,
	}, dutiesHandler.CreateDuty)

	huma.Register(api, huma.Operation{
		OperationID: "admin-duties-update",
		Method:      http.MethodPatch,
		Path:        "/duties/catalog/{id}",
		Summary:     "Update a duty's label or weight",
		Tags:        []string{"Admin - Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, dutiesHandler.UpdateDuty)

	huma.Register(api, huma.Operation{
		OperationID: "admin-duties-retire",
		Method:      http.MethodDelete,
		Path:        "/duties/catalog/{id}",
		Summary:     "Retire a duty (history is kept)",
		Tags:        []string{"Admin - Duties"},
		Security:    authed,
		Middlewares: huma.Middlewares{authMw, adminMw},
	}, dutiesHandler.RetireDuty)
}
