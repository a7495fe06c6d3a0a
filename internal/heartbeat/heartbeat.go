// Package heartbeat bridges cron dispatch to a live agent session: when
// a main-session job fires with wake mode "now" or "next-heartbeat", the
// session holding its event queue is poked so the queued event is acted
// on instead of sitting until the session's own next poll. cron(8) owns
// all periodic firing in this system, so there is no ticker loop here,
// only the out-of-band wake.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

// SessionPoker delivers a wake-up to a single session. It is the one
// call the hosting agent runtime must provide.
type SessionPoker interface {
	Poke(ctx context.Context, sessionID string) error
}

// Signaler implements cron.HeartbeatSignaler over a SessionPoker.
type Signaler struct {
	poker  SessionPoker
	logger *slog.Logger
}

// Compile-time check: Signaler satisfies the cron package's narrow
// HeartbeatSignaler contract.
var _ cron.HeartbeatSignaler = (*Signaler)(nil)

// New creates a Signaler around poker. logger may be nil.
func New(poker SessionPoker, logger *slog.Logger) (*Signaler, error) {
	if poker == nil {
		return nil, errors.New("heartbeat: nil SessionPoker")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Signaler{poker: poker, logger: logger}, nil
}

// Wake pokes sessionKey immediately. reason is recorded for diagnostics
// only; the poked session decides what to do with its queue.
func (s *Signaler) Wake(ctx context.Context, sessionKey, reason string) error {
	s.logger.Debug("heartbeat wake", "session_key", sessionKey, "reason", reason)
	if err := s.poker.Poke(ctx, sessionKey); err != nil {
		return fmt.Errorf("heartbeat: waking session %q: %w", sessionKey, err)
	}
	return nil
}
