package cron

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store owns the crontab as openclaw's only durable state. Every mutating
// call performs a fresh read-modify-write cycle: the crontab is read at
// call time, the change is applied in memory, and the whole file is
// rewritten. A process-local mutex serializes the write sequence; it
// shrinks but does not eliminate the cross-process race window, where
// concurrent external edits still last-writer-win.
type Store struct {
	io CrontabIO
	mu sync.Mutex
	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewStore creates a Store backed by the given CrontabIO.
func NewStore(io CrontabIO) *Store {
	return &Store{io: io, now: time.Now}
}

// Read loads and decodes the current crontab without modifying it.
func (s *Store) Read(ctx context.Context) (Snapshot, error) {
	lines, err := s.io.Read(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cron: reading crontab: %w", err)
	}
	content := joinLines(lines)
	snap := Decode(content)
	s.recompute(snap.Jobs)
	return snap, nil
}

// recompute refreshes state.NextRunAtMs on every decoded job.
func (s *Store) recompute(jobs []Job) {
	now := s.now()
	for i := range jobs {
		jobs[i].State.NextRunAtMs = computeJobNextRunAtMs(jobs[i], now)
	}
}

// Mutate performs one read-modify-write cycle: it reads the current
// snapshot, lets fn mutate the job list in memory, recomputes derived
// state, and writes the result back. fn receives the jobs decoded from
// the crontab read at the start of this call and returns the jobs that
// should now be persisted.
func (s *Store) Mutate(ctx context.Context, fn func(current []Job, unrelated []string) ([]Job, error)) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.io.Read(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cron: reading crontab: %w", err)
	}
	content := joinLines(lines)
	snap := Decode(content)
	unrelated := stripTagged(snap.Lines)

	next, err := fn(snap.Jobs, unrelated)
	if err != nil {
		return Snapshot{}, err
	}

	s.recompute(next)

	if err := s.io.Write(ctx, Encode(next, unrelated)); err != nil {
		return Snapshot{}, fmt.Errorf("cron: writing crontab: %w", err)
	}

	return Snapshot{Jobs: next}, nil
}

// stripTagged removes every line containing Tag, preserving everything else verbatim.
func stripTagged(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !strings.Contains(l, Tag) {
			out = append(out, l)
		}
	}
	return out
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
