package cron

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is the sentinel wrapped by every resolution failure.
// Callers that need the literal reason for user-facing text should use
// Resolve's returned error message directly rather than errors.Is against
// this sentinel.
var ErrInvalidSchedule = errors.New("cron: invalid schedule")

// fiveFieldParser validates the crontab(1) five-field grammar without
// seconds support. It is used purely for syntax feasibility and next-run
// computation; openclaw never evaluates the expression to fire anything,
// cron(8) does.
var fiveFieldParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Resolved is the outcome of translating a Schedule into crontab-representable form.
type Resolved struct {
	OK    bool
	Expr  string
	TZ    string
	Error string
}

// Resolve validates and translates a Schedule into a five-field crontab
// expression, or returns a resolution with OK=false and a user-facing
// Error describing exactly why the schedule cannot be represented in a
// crontab entry. It never panics and never returns a Go error; the
// rejection reason is data.
func Resolve(s Schedule) Resolved {
	switch s.Kind {
	case ScheduleKindCron:
		return resolveCron(s)
	case ScheduleKindEvery:
		return resolveEvery(s)
	case ScheduleKindAt:
		return resolveAt(s)
	default:
		return Resolved{Error: fmt.Sprintf("unknown schedule kind %q", s.Kind)}
	}
}

func resolveCron(s Schedule) Resolved {
	if s.TZ != "" {
		return Resolved{Error: "cron schedules cannot carry a per-job timezone: crontab has no representation for it"}
	}
	if s.StaggerMs > 0 {
		return Resolved{Error: "cron schedules cannot carry stagger: crontab fires all matching jobs at the same instant"}
	}

	expr := strings.TrimSpace(s.Expr)
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5:
		// ok
	case 6:
		return Resolved{Error: "cron expression has 6 fields: no seconds support"}
	default:
		return Resolved{Error: fmt.Sprintf("cron expression must have 5 fields, got %d", len(fields))}
	}

	if _, err := fiveFieldParser.Parse(expr); err != nil {
		return Resolved{Error: fmt.Sprintf("cron expression is not valid: %v", err)}
	}

	return Resolved{OK: true, Expr: strings.Join(fields, " ")}
}

// everyMinuteMs is the 1-minute granularity floor crontab can represent.
const everyMinuteMs = 60_000

func resolveEvery(s Schedule) Resolved {
	if s.AnchorMs != 0 {
		return Resolved{Error: "every schedules cannot carry an anchor when backed by crontab"}
	}
	if s.EveryMs <= 0 {
		return Resolved{Error: "every schedule interval must be a positive number of milliseconds"}
	}
	if s.EveryMs%everyMinuteMs != 0 {
		return Resolved{Error: "every schedule interval is not a multiple of one minute"}
	}

	minutes := s.EveryMs / everyMinuteMs

	if minutes == 1 {
		return Resolved{OK: true, Expr: "* * * * *"}
	}
	if minutes > 0 && minutes < 60 && 60%minutes == 0 {
		return Resolved{OK: true, Expr: fmt.Sprintf("*/%d * * * *", minutes)}
	}

	if minutes%60 == 0 {
		hours := minutes / 60
		if hours == 1 {
			return Resolved{OK: true, Expr: "0 * * * *"}
		}
		if hours > 0 && hours < 24 && 24%hours == 0 {
			return Resolved{OK: true, Expr: fmt.Sprintf("0 */%d * * *", hours)}
		}
		if hours%24 == 0 {
			days := hours / 24
			if days == 1 {
				return Resolved{OK: true, Expr: "0 0 * * *"}
			}
			if days > 0 && days <= 31 {
				return Resolved{OK: true, Expr: fmt.Sprintf("0 0 */%d * *", days)}
			}
		}
	}

	return Resolved{Error: "every schedule interval is not representable in crontab"}
}

func resolveAt(s Schedule) Resolved {
	at := strings.TrimSpace(s.At)
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		// Fall back to the no-fractional-seconds form.
		t, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return Resolved{Error: fmt.Sprintf("at schedule is not a valid ISO-8601 instant: %v", err)}
		}
	}

	if t.Nanosecond() != 0 || t.Second() != 0 {
		t = t.Truncate(time.Minute).Add(time.Minute)
	}

	expr := fmt.Sprintf("%d %d %d %d *",
		t.Minute(), t.Hour(), t.Day(), int(t.Month()))
	return Resolved{OK: true, Expr: expr}
}

// Describe renders a five-field crontab expression as a short human
// sentence, used by cron.list and the CLI table. It recognizes the shapes
// Resolve produces and falls back to echoing the raw expression for
// anything else (e.g. a hand-edited crontab line).
func Describe(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if n, ok := stepOf(minute); ok && hour == "*" && dom == "*" && month == "*" && dow == "*" {
		return fmt.Sprintf("every %d minutes", n)
	}
	if minute == "0" {
		if n, ok := stepOf(hour); ok && dom == "*" && month == "*" && dow == "*" {
			return fmt.Sprintf("every %d hours", n)
		}
		if hour == "0" {
			if n, ok := stepOf(dom); ok && month == "*" && dow == "*" {
				return fmt.Sprintf("every %d days", n)
			}
			if dom == "*" && month == "*" && dow == "*" && minute == "0" && hour == "0" {
				return "daily at midnight"
			}
		}
	}
	return expr
}

// stepOf parses a "*/N" step expression and returns N.
func stepOf(field string) (int, bool) {
	rest, ok := strings.CutPrefix(field, "*/")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
