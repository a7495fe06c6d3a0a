package security

import (
	"context"
	"errors"
	"net"
	"testing"
)

func resolverFor(ips ...string) func(context.Context, string) ([]net.IP, error) {
	parsed := make([]net.IP, len(ips))
	for i, s := range ips {
		parsed[i] = net.ParseIP(s)
	}
	return func(context.Context, string) ([]net.IP, error) {
		return parsed, nil
	}
}

func TestSSRFGuard_BlocksLoopback(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("127.0.0.1")})

	if err := g.Check(context.Background(), "http://localhost/admin"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked, got %v", err)
	}
}

func TestSSRFGuard_BlocksPrivateRange(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("192.168.1.1")})

	if err := g.Check(context.Background(), "http://internal.example.com/hook"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked, got %v", err)
	}
}

func TestSSRFGuard_BlocksLinkLocalMetadataEndpoint(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("169.254.169.254")})

	if err := g.Check(context.Background(), "http://metadata.example.com/latest/meta-data/"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked for cloud metadata endpoint, got %v", err)
	}
}

func TestSSRFGuard_AllowsPublicAddress(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("93.184.216.34")})

	if err := g.Check(context.Background(), "https://example.com/webhook"); err != nil {
		t.Errorf("expected public address to be allowed, got %v", err)
	}
}

func TestSSRFGuard_BlocksDisallowedScheme(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("93.184.216.34")})

	if err := g.Check(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked for file scheme, got %v", err)
	}
}

func TestSSRFGuard_BlocksRebindingAfterDNSChange(t *testing.T) {
	t.Parallel()

	calls := 0
	resolutions := [][]string{{"93.184.216.34"}, {"127.0.0.1"}}
	g := NewSSRFGuard(SSRFGuardConfig{Resolver: func(context.Context, string) ([]net.IP, error) {
		ips := resolutions[calls%len(resolutions)]
		calls++
		out := make([]net.IP, len(ips))
		for i, s := range ips {
			out[i] = net.ParseIP(s)
		}
		return out, nil
	}})

	if err := g.Check(context.Background(), "https://rebinder.example.com"); err != nil {
		t.Fatalf("first resolution should be allowed: %v", err)
	}
	if err := g.Check(context.Background(), "https://rebinder.example.com"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("second resolution should be blocked, got %v", err)
	}
}

func TestSSRFGuard_AllowPrivateTargetsBypassesRangeCheck(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{AllowPrivateTargets: true})

	if err := g.Check(context.Background(), "http://127.0.0.1:8080/hook"); err != nil {
		t.Errorf("expected AllowPrivateTargets to bypass the guard, got %v", err)
	}
}

func TestSSRFGuard_EmptyHostname(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("93.184.216.34")})

	if err := g.Check(context.Background(), "/relative/path"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked for empty hostname, got %v", err)
	}
}

func TestSSRFGuard_BlocksCGNATRange(t *testing.T) {
	t.Parallel()

	g := NewSSRFGuard(SSRFGuardConfig{Resolver: resolverFor("100.64.0.5")})

	if err := g.Check(context.Background(), "https://cgnat.example.com"); !errors.Is(err, ErrSSRFBlocked) {
		t.Errorf("expected ErrSSRFBlocked for CGNAT range, got %v", err)
	}
}
