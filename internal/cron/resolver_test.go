package cron

import "testing"

func TestResolve_Cron(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Schedule
		ok   bool
	}{
		{"valid five field", Schedule{Kind: ScheduleKindCron, Expr: "*/5 * * * *"}, true},
		{"six fields rejected", Schedule{Kind: ScheduleKindCron, Expr: "0 */5 * * * *"}, false},
		{"garbage rejected", Schedule{Kind: ScheduleKindCron, Expr: "not a schedule"}, false},
		{"tz not representable", Schedule{Kind: ScheduleKindCron, Expr: "* * * * *", TZ: "UTC"}, false},
		{"stagger not representable", Schedule{Kind: ScheduleKindCron, Expr: "* * * * *", StaggerMs: 1000}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(tc.in)
			if got.OK != tc.ok {
				t.Errorf("Resolve(%+v) = %+v, want OK=%v", tc.in, got, tc.ok)
			}
		})
	}
}

func TestResolve_Every(t *testing.T) {
	t.Parallel()

	cases := []struct {
		everyMs  int64
		wantExpr string
		ok       bool
	}{
		{60_000, "* * * * *", true},
		{5 * 60_000, "*/5 * * * *", true},
		{60 * 60_000, "0 * * * *", true},
		{3 * 60 * 60_000, "0 */3 * * *", true},
		{24 * 60 * 60_000, "0 0 * * *", true},
		{90_000, "", false},     // not a multiple of a minute
		{0, "", false},          // non-positive
		{7 * 60_000, "", false}, // 7 does not evenly divide 60
	}
	for _, tc := range cases {
		got := Resolve(Schedule{Kind: ScheduleKindEvery, EveryMs: tc.everyMs})
		if got.OK != tc.ok {
			t.Errorf("Resolve(every=%d) = %+v, want OK=%v", tc.everyMs, got, tc.ok)
			continue
		}
		if tc.ok && got.Expr != tc.wantExpr {
			t.Errorf("Resolve(every=%d).Expr = %q, want %q", tc.everyMs, got.Expr, tc.wantExpr)
		}
	}

	if got := Resolve(Schedule{Kind: ScheduleKindEvery, EveryMs: 60_000, AnchorMs: 123}); got.OK {
		t.Error("expected anchor to be rejected for a crontab-backed every schedule")
	}
}

func TestResolve_At(t *testing.T) {
	t.Parallel()

	got := Resolve(Schedule{Kind: ScheduleKindAt, At: "2026-08-03T15:04:00Z"})
	if !got.OK {
		t.Fatalf("Resolve(at) = %+v, want OK", got)
	}
	if got.Expr != "4 15 3 8 *" {
		t.Errorf("Resolve(at).Expr = %q, want %q", got.Expr, "4 15 3 8 *")
	}

	bad := Resolve(Schedule{Kind: ScheduleKindAt, At: "not a timestamp"})
	if bad.OK {
		t.Error("expected an invalid timestamp to be rejected")
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	t.Parallel()
	got := Resolve(Schedule{Kind: "bogus"})
	if got.OK {
		t.Error("expected unknown schedule kind to be rejected")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"*/5 * * * *": "every 5 minutes",
		"0 */3 * * *": "every 3 hours",
		"0 0 */2 * *": "every 2 days",
		"1 2 3 4 5":   "1 2 3 4 5",
	}
	for expr, want := range cases {
		if got := Describe(expr); got != want {
			t.Errorf("Describe(%q) = %q, want %q", expr, got, want)
		}
	}
}
