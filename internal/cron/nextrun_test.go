package cron

import (
	"testing"
	"time"
)

func TestComputeJobNextRunAtMs_Disabled(t *testing.T) {
	t.Parallel()

	job := Job{Enabled: false, Schedule: Schedule{Kind: ScheduleKindCron, Expr: "* * * * *"}}
	if got := computeJobNextRunAtMs(job, time.Now()); got != nil {
		t.Errorf("expected nil next-run for a disabled job, got %v", *got)
	}
}

func TestComputeJobNextRunAtMs_CronSchedule(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleKindCron, Expr: "0 * * * *"}}
	got := computeJobNextRunAtMs(job, now)
	if got == nil {
		t.Fatal("expected a non-nil next-run time")
	}
	want := time.Date(2026, 8, 3, 11, 0, 0, 0, time.UTC).UnixMilli()
	if *got != want {
		t.Errorf("next run = %d, want %d", *got, want)
	}
}

func TestComputeJobNextRunAtMs_AtSchedule(t *testing.T) {
	t.Parallel()

	fireTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleKindAt, At: fireTime.Format(time.RFC3339)}}
	got := computeJobNextRunAtMs(job, time.Now())
	if got == nil || *got != fireTime.UnixMilli() {
		t.Errorf("next run = %v, want %d", got, fireTime.UnixMilli())
	}
}

func TestComputeJobNextRunAtMs_UnresolvableScheduleIsNil(t *testing.T) {
	t.Parallel()

	job := Job{Enabled: true, Schedule: Schedule{Kind: ScheduleKindCron, Expr: "garbage"}}
	if got := computeJobNextRunAtMs(job, time.Now()); got != nil {
		t.Errorf("expected nil for an unresolvable schedule, got %v", *got)
	}
}
