package cron

import (
	"time"

	"github.com/robfig/cron/v3"
)

// dueTolerance is the window within which a schedule's most recent fire
// time must fall for isJobDue to consider the job currently due. cron(8)
// itself only ever invokes the run-command within the same minute as the
// matching tick, so one minute of slack comfortably covers clock skew
// between this process and cron(8) without ever skipping a legitimate run.
const dueTolerance = time.Minute

// computeJobNextRunAtMs returns the job's next scheduled fire time in
// epoch milliseconds, or nil if the job is disabled or its schedule
// cannot be resolved. It is a pure function of (job, now), recomputed on
// every store read and write.
func computeJobNextRunAtMs(job Job, now time.Time) *int64 {
	if !job.Enabled {
		return nil
	}

	if job.Schedule.Kind == ScheduleKindAt {
		t, err := parseAt(job.Schedule.At)
		if err != nil {
			return nil
		}
		ms := t.UnixMilli()
		return &ms
	}

	sched, ok := parseSchedule(job.Schedule)
	if !ok {
		return nil
	}
	next := sched.Next(now)
	ms := next.UnixMilli()
	return &ms
}

// isJobDue reports whether job should fire right now under "due" mode.
// Disabled jobs are never due. forced is accepted for symmetry with the
// RunMode the gate is evaluating but carries no extra meaning here; the
// Run Gate itself short-circuits force mode before calling this.
func isJobDue(job Job, now time.Time, forced bool) bool {
	if forced {
		return true
	}
	if !job.Enabled {
		return false
	}

	if job.Schedule.Kind == ScheduleKindAt {
		t, err := parseAt(job.Schedule.At)
		if err != nil {
			return false
		}
		return !t.After(now) && now.Sub(t) <= dueTolerance
	}

	sched, ok := parseSchedule(job.Schedule)
	if !ok {
		return false
	}
	prevWindowStart := now.Add(-dueTolerance)
	fire := sched.Next(prevWindowStart)
	return !fire.After(now) && fire.After(prevWindowStart)
}

func parseAt(at string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return time.Parse(time.RFC3339, at)
	}
	return t, nil
}

// parseSchedule resolves job.Schedule to a crontab expression and parses
// it into a robfig/cron Schedule, ready for Next().
func parseSchedule(s Schedule) (cron.Schedule, bool) {
	resolved := Resolve(s)
	if !resolved.OK {
		return nil, false
	}
	sched, err := fiveFieldParser.Parse(resolved.Expr)
	if err != nil {
		return nil, false
	}
	return sched, true
}

// resolveJobNextRun is the entry point used by the dispatcher after a
// run completes.
func resolveJobNextRun(job Job, now time.Time) *int64 {
	return computeJobNextRunAtMs(job, now)
}
