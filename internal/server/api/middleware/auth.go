package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/golang-jwt/jwt/v5"
	"github.com/homeduty/homeduty/internal/core/util"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func GetUserRole(ctx context.Context) string {
	v, _ := ctx.Value(UserRoleKey).(string)
	return v
}

// Auth accepts a Bearer access token or an X-API-Key header and places
// the user id and role on the request context.
func Auth(jwtSecret string, db *pgxpool.Pool) func(ctx huma.Context, next func(huma.Context)) {
	queries := database.New(db)

	return func(ctx huma.Context, next func(huma.Context)) {
		echoCtx := humaecho.Unwrap(ctx)
		auth := ctx.Header("Authorization")

		setCtx := func(userID, role string) {
			r := echoCtx.Request()
			newCtx := context.WithValue(r.Context(), UserIDKey, userID)
			newCtx = context.WithValue(newCtx, UserRoleKey, role)
			echoCtx.SetRequest(r.WithContext(newCtx))
		}

		// Try JWT Bearer token
		if strings.HasPrefix(auth, "Bearer ") {
			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims, err := parseToken(tokenStr, jwtSecret)
			if err != nil {
				writeUnauthorized(ctx, "invalid token")
				return
			}
			if use, _ := claims["use"].(string); use == "refresh" {
				// Refresh tokens only mint new access tokens; they never
				// authorize API calls.
				writeUnauthorized(ctx, "refresh token not accepted here")
				return
			}

			userID, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			setCtx(userID, role)
			next(ctx)
			return
		}

		// Try API key
		apiKey := ctx.Header("X-API-Key")
		if apiKey == "" {
			apiKey = ctx.Query("api_key")
		}

		if apiKey != "" {
			uid := util.TextToUUID(apiKey)
			if !uid.Valid {
				writeUnauthorized(ctx, "invalid api key")
				return
			}

			user, err := queries.GetUserByAPIKey(echoCtx.Request().Context(), uid)
			if err != nil {
				writeUnauthorized(ctx, "invalid api key")
				return
			}
			if !user.IsActive {
				writeForbidden(ctx, "account disabled")
				return
			}

			setCtx(util.UUIDToStr(user.ID), user.Role)
			next(ctx)
			return
		}

		log.Debug().Str("path", ctx.URL().Path).Msg("authentication failed - no valid credentials")
		writeUnauthorized(ctx, "authentication required")
	}
}

// AdminOnly requires the authenticated user to hold the admin role.
// Must run after Auth.
func AdminOnly() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		echoCtx := humaecho.Unwrap(ctx)
		role := GetUserRole(echoCtx.Request().Context())
		if role != "admin" {
			writeForbidden(ctx, "admin access required")
			return
		}
		next(ctx)
	}
}

// GenerateJWT mints an access token for the user.
func GenerateJWT(userID, role, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// GenerateRefreshJWT mints a long-lived token usable only at the
// refresh endpoint.
func GenerateRefreshJWT(userID, role, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"use":  "refresh",
		"iat":  now.Unix(),
		"exp":  now.Add(expiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseRefreshToken validates a refresh token and returns (userID, role).
func ParseRefreshToken(tokenStr, secret string) (string, string, error) {
	claims, err := parseToken(tokenStr, secret)
	if err != nil {
		return "", "", err
	}
	if use, _ := claims["use"].(string); use != "refresh" {
		return "", "", jwt.ErrTokenInvalidClaims
	}
	userID, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	return userID, role, nil
}

func parseToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func writeUnauthorized(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusUnauthorized),
		Status: http.StatusUnauthorized,
		Detail: msg,
	})
}

func writeForbidden(ctx huma.Context, msg string) {
	ctx.SetStatus(http.StatusForbidden)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(huma.ErrorModel{
		Title:  http.StatusText(http.StatusForbidden),
		Status: http.StatusForbidden,
		Detail: msg,
	})
}
