// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for openclaw.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Cron     CronConfig     `yaml:"cron"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Security SecurityConfig `yaml:"security"`
	MCP      MCPConfig      `yaml:"mcp"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// CronConfig configures the scheduler core.
type CronConfig struct {
	// RunCommand is the argv[0] written onto crontab execution lines.
	RunCommand string `yaml:"run_command"`

	// DefaultAgentID names the agent a main-session job targets when it
	// doesn't set AgentID itself.
	DefaultAgentID string `yaml:"default_agent_id"`

	// WebhookToken is sent as a bearer token on outbound webhook delivery.
	WebhookToken string `yaml:"webhook_token"`
}

// GatewayConfig configures the HTTP admin/health/metrics surface.
type GatewayConfig struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures the gateway's admin-surface authentication.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds isolated-turn and webhook call rates.
type RateLimitConfig struct {
	ToolCallsPerMin int `yaml:"tool_calls_per_min"`
}

// MCPConfig configures the MCP stdio tool server wrapping the RPC facade.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}
