package cron_test

import (
	"context"
	"strings"
	"testing"

	"github.com/JakkuSakura/openclaw/internal/cron"
	"github.com/JakkuSakura/openclaw/internal/cron/crontest"
)

func TestStore_MutateRoundTripsThroughEncodeDecode(t *testing.T) {
	t.Parallel()

	io := crontest.NewMockCrontabIO("# a pre-existing hand-written line\n")
	store := cron.NewStore(io)
	ctx := context.Background()

	job := cron.Job{
		ID:            "s1",
		Name:          "added via mutate",
		Enabled:       true,
		Schedule:      cron.Schedule{Kind: cron.ScheduleKindCron, Expr: "*/10 * * * *"},
		SessionTarget: cron.SessionTargetMain,
		WakeMode:      cron.WakeModeNow,
		Payload:       cron.Payload{Kind: cron.PayloadKindSystemEvent, Text: "hi"},
	}

	_, err := store.Mutate(ctx, func(current []cron.Job, unrelated []string) ([]cron.Job, error) {
		if len(current) != 0 {
			t.Fatalf("expected an empty starting crontab, got %+v", current)
		}
		return append(current, job), nil
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}

	if !strings.Contains(io.Content(), "# a pre-existing hand-written line") {
		t.Error("Mutate() must preserve unrelated crontab lines")
	}

	snap, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].ID != "s1" {
		t.Fatalf("Read() after Mutate() = %+v", snap.Jobs)
	}
	if snap.Jobs[0].State.NextRunAtMs == nil {
		t.Error("expected NextRunAtMs to be recomputed on read")
	}
}

func TestStore_MutateErrorAbortsWrite(t *testing.T) {
	t.Parallel()

	io := crontest.NewMockCrontabIO("")
	store := cron.NewStore(io)
	ctx := context.Background()

	_, err := store.Mutate(ctx, func(current []cron.Job, unrelated []string) ([]cron.Job, error) {
		return nil, errInjected
	})
	if err == nil {
		t.Fatal("expected Mutate() to propagate the callback's error")
	}

	_, writes := io.Counts()
	if writes != 0 {
		t.Errorf("expected no write when the callback rejects the change, got %d writes", writes)
	}
}

var errInjected = &stringError{"rejected"}

type stringError struct{ s string }

func (e *stringError) Error() string { return e.s }
