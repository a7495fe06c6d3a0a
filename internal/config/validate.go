package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate checks the structural validity of a Config: the version field,
// the gateway bind address, and the webhook token shape. Each check is
// independent; every failure is collected via errors.Join rather than
// stopping at the first one, so a caller sees the full picture in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateGateway(cfg.Gateway)...)
	errs = append(errs, validateSecurity(cfg.Security)...)
	errs = append(errs, validateTracing(cfg.Tracing)...)

	return errors.Join(errs...)
}

func validateGateway(g GatewayConfig) []error {
	var errs []error
	if g.Bind == "" {
		errs = append(errs, errors.New("config: gateway.bind is required"))
	} else if _, _, err := net.SplitHostPort(g.Bind); err != nil {
		errs = append(errs, fmt.Errorf("config: gateway.bind %q is not a valid host:port: %w", g.Bind, err))
	}
	if g.ReadTimeout < 0 || g.WriteTimeout < 0 || g.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("config: gateway timeouts must not be negative"))
	}
	return errs
}

func validateSecurity(s SecurityConfig) []error {
	var errs []error
	if s.RateLimit.ToolCallsPerMin < 0 {
		errs = append(errs, errors.New("config: security.rate_limit.tool_calls_per_min must not be negative"))
	}
	return errs
}

func validateTracing(t TracingConfig) []error {
	var errs []error
	if t.Enabled && t.OTLPEndpoint == "" {
		errs = append(errs, errors.New("config: tracing.enabled is true but tracing.otlp_endpoint is empty"))
	}
	return errs
}
