package cron

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// maxBufferedEvents bounds each session's in-memory queue. When the
// buffer is full the oldest event is dropped, so Enqueue never blocks
// the dispatcher behind a session that has stopped draining.
const maxBufferedEvents = 256

// InMemoryEventSink is a minimal EventSink that records enqueued events
// per session key instead of handing them to a real interactive runtime.
// It is useful for tests and for hosts that have not wired a session
// manager; production deployments supply their own EventSink adapter.
type InMemoryEventSink struct {
	mu     sync.Mutex
	events map[string][]string
}

// NewInMemoryEventSink creates an empty InMemoryEventSink.
func NewInMemoryEventSink() *InMemoryEventSink {
	return &InMemoryEventSink{events: make(map[string][]string)}
}

// Enqueue records text under sessionKey, in FIFO order, dropping the
// oldest buffered event once the session's buffer is full.
func (s *InMemoryEventSink) Enqueue(_ context.Context, sessionKey, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.events[sessionKey]
	if len(q) >= maxBufferedEvents {
		q = q[1:]
	}
	s.events[sessionKey] = append(q, text)
	return nil
}

// Events returns a copy of everything enqueued for sessionKey, in order.
func (s *InMemoryEventSink) Events(sessionKey string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events[sessionKey]))
	copy(out, s.events[sessionKey])
	return out
}

// SubprocessIsolatedRunner runs an isolated agent turn as a child
// process: a bounded, timeout-governed exec.Command rather than an
// in-process call, so one runaway isolated turn can never wedge the
// scheduler.
type SubprocessIsolatedRunner struct {
	// Command is the executable that runs a single isolated agent turn.
	// It receives the job's message on stdin and is expected to print a
	// one-line JSON-free summary on stdout; a non-zero exit is an error.
	Command string
	Args    []string

	// DefaultTimeout bounds turns whose payload omits TimeoutSeconds.
	DefaultTimeout time.Duration
}

// Run implements IsolatedRunner.
func (r SubprocessIsolatedRunner) Run(ctx context.Context, req IsolatedTurnRequest) (IsolatedTurnResult, error) {
	timeout := r.DefaultTimeout
	if s := req.Job.Payload.TimeoutSeconds; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := r.Command
	if command == "" {
		command = "openclaw"
	}
	args := append([]string{}, r.Args...)

	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Stdin = bytes.NewBufferString(req.Message)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return IsolatedTurnResult{
			Status: string(RunStatusError),
			Error:  fmt.Sprintf("%v: %s", err, stderr.String()),
		}, nil
	}

	return IsolatedTurnResult{
		Status:  string(RunStatusOK),
		Summary: stdout.String(),
	}, nil
}
