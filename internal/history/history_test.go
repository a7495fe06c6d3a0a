package history

import (
	"context"
	"testing"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

type fakeSource struct {
	name  string
	lines []string
	err   error
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Lines(context.Context, string, int) ([]string, error) {
	return f.lines, f.err
}

func TestReader_ParsesCronLogLine(t *testing.T) {
	t.Parallel()

	src := fakeSource{lines: []string{
		"Jun 15 09:00:01 host CRON[1234]: (user) CMD (openclaw cron run job-abc)",
	}}
	r := NewReader(src)

	entries, err := r.Runs(context.Background(), "job-abc", 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].JobID != "job-abc" || entries[0].Status != cron.RunStatusOK {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestReader_FallsThroughToNextSource(t *testing.T) {
	t.Parallel()

	empty := fakeSource{name: "first"}
	populated := fakeSource{name: "second", lines: []string{
		"Jun 15 09:00:01 host CRON[1234]: (user) CMD (openclaw cron run job-xyz)",
	}}
	r := NewReader(empty, populated)

	entries, err := r.Runs(context.Background(), "job-xyz", 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestReader_NoSourceAvailableReturnsEmptyNotError(t *testing.T) {
	t.Parallel()

	r := NewReader(fakeSource{err: context.DeadlineExceeded}, fakeSource{})

	entries, err := r.Runs(context.Background(), "job-abc", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestReader_IgnoresUnrelatedJobIDs(t *testing.T) {
	t.Parallel()

	src := fakeSource{lines: []string{
		"Jun 15 09:00:01 host CRON[1234]: (user) CMD (openclaw cron run some-other-job)",
	}}
	r := NewReader(src)

	entries, err := r.Runs(context.Background(), "job-abc", 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestReader_DetectsFailureStatus(t *testing.T) {
	t.Parallel()

	src := fakeSource{lines: []string{
		"Jun 15 09:00:01 host CRON[1234]: (user) CMD (openclaw cron run job-abc) error",
	}}
	r := NewReader(src)

	entries, err := r.Runs(context.Background(), "job-abc", 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Status != cron.RunStatusError {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestReader_NewestFirstWithJournaldTimestamps(t *testing.T) {
	t.Parallel()

	src := fakeSource{lines: []string{
		"2026-08-01T09:00:01+0000 host openclaw[1]: openclaw cron run JOB123 ok",
		"2026-08-02T09:00:01+0000 host openclaw[2]: openclaw cron run JOB123 error",
		"2026-08-03T09:00:01+0000 host openclaw[3]: openclaw cron run JOB123 ok",
	}}
	r := NewReader(src)

	entries, err := r.Runs(context.Background(), "JOB123", 10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Ts <= entries[1].Ts || entries[1].Ts <= entries[2].Ts {
		t.Errorf("entries not newest-first: %+v", entries)
	}
	if entries[1].Status != cron.RunStatusError {
		t.Errorf("middle entry should be error: %+v", entries[1])
	}
}
