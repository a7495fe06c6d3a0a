package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Version: "1",
		Gateway: GatewayConfig{Bind: "127.0.0.1:8080"},
	}
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()

	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Version = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error should mention version: %v", err)
	}
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Version = "99"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error should mention unsupported: %v", err)
	}
}

func TestValidate_MissingGatewayBind(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Gateway.Bind = ""
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing gateway.bind")
	}
	if !strings.Contains(err.Error(), "gateway.bind") {
		t.Errorf("error should mention gateway.bind: %v", err)
	}
}

func TestValidate_MalformedGatewayBind(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Gateway.Bind = "not-a-host-port"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for malformed gateway.bind")
	}
	if !strings.Contains(err.Error(), "not a valid host:port") {
		t.Errorf("error should mention host:port: %v", err)
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Security.RateLimit.ToolCallsPerMin = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative rate limit")
	}
	if !strings.Contains(err.Error(), "tool_calls_per_min") {
		t.Errorf("error should mention tool_calls_per_min: %v", err)
	}
}

func TestValidate_TracingEnabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Tracing.Enabled = true
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for tracing enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "otlp_endpoint") {
		t.Errorf("error should mention otlp_endpoint: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()

	cfg := &Config{Version: "99"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported") || !strings.Contains(err.Error(), "gateway.bind") {
		t.Errorf("expected both version and gateway errors joined, got: %v", err)
	}
}
