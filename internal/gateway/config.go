package gateway

import (
	"time"

	"github.com/JakkuSakura/openclaw/internal/config"
)

// Config holds HTTP gateway configuration. It mirrors config.GatewayConfig
// field-for-field; defaults fills in what the YAML loader left at zero.
type Config = config.GatewayConfig

// AuthConfig configures bearer-token authentication for the admin surface.
type AuthConfig = config.AuthConfig

// withDefaults fills zero values with sensible defaults, in a single
// defaulting pass run once at construction time.
func withDefaults(c Config) Config {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// IsConfigured reports whether bearer auth is set up.
func isConfigured(a AuthConfig) bool {
	return a.BearerToken != ""
}
