package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/homeduty/homeduty/internal/config"
	"github.com/homeduty/homeduty/internal/core/duty"
	"github.com/homeduty/homeduty/internal/database"
	"github.com/homeduty/homeduty/internal/server/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = randomHex(32)
		if err != nil {
			return fmt.Errorf("jwt secret: %w", err)
		}
		log.Warn().Msg("auth.jwt_secret not configured; generated an ephemeral secret, tokens will not survive a restart")
	}

	adminPassword, err := ensureAdmin(ctx, pool, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin setup: %w", err)
	}
	if adminPassword != "" {
		log.Info().Str("username", cfg.Auth.AdminUsername).Str("password", adminPassword).
			Msg("created admin account; change this password after first login")
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	jwtExpiry, err := time.ParseDuration(cfg.Auth.JWTExpiry)
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}
	refreshExpiry, err := time.ParseDuration(cfg.Auth.RefreshExpiry)
	if err != nil {
		refreshExpiry = 30 * 24 * time.Hour
	}

	coordinator := duty.NewCoordinator(
		database.NewDutyStore(pool),
		database.NewRoster(pool),
		duty.Policy{Exclusive: cfg.Scheduler.Exclusive},
	)

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		DB:            pool,
		JWTSecret:     jwtSecret,
		JWTExpiry:     jwtExpiry,
		RefreshExpiry: refreshExpiry,
		Coordinator:   coordinator,
		Timezone:      loc,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Str("timezone", loc.String()).
			Bool("exclusive", cfg.Scheduler.Exclusive).Msg("homeduty listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-runCtx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// ensureAdmin creates the admin account on first boot. Returns the
// generated password when one was created with no configured password,
// so it can be printed once.
func ensureAdmin(ctx context.Context, pool *pgxpool.Pool, username, password string) (string, error) {
	queries := database.New(pool)

	_, err := queries.GetUserByUsername(ctx, username)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	generated := ""
	if password == "" {
		password, err = randomHex(8)
		if err != nil {
			return "", err
		}
		generated = password
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}

	if _, err := queries.CreateUser(ctx, database.CreateUserParams{
		Username:    username,
		Email:       username + "@localhost",
		Password:    string(hash),
		DisplayName: "Administrator",
		Role:        "admin",
	}); err != nil {
		return "", err
	}
	return generated, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
