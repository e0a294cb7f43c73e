package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host": "0.0.0.0",
		"server.port": 8080,

		"database.max_connections": 25,

		"auth.jwt_expiry":     "24h",
		"auth.refresh_expiry": "720h",
		"auth.admin_username": "admin",

		"scheduler.exclusive": true,
		"scheduler.timezone":  "UTC",

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}
