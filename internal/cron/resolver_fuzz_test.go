package cron

import "testing"

func FuzzResolveCronExpr(f *testing.F) {
	f.Add("*/5 * * * *")
	f.Add("0 0 * * *")
	f.Add("0 0 1 1 *")
	f.Add("* * * * *")
	f.Add("0 */5 * * * *")
	f.Add("invalid")
	f.Add("")
	f.Add("60 * * * *")
	f.Add("0 25 * * *")

	f.Fuzz(func(t *testing.T, expr string) {
		// Must not panic; rejections are expected and acceptable, but a
		// resolution must always be internally consistent.
		got := Resolve(Schedule{Kind: ScheduleKindCron, Expr: expr})
		if got.OK && got.Error != "" {
			t.Errorf("Resolve(%q) accepted with a non-empty error %q", expr, got.Error)
		}
		if !got.OK && got.Error == "" {
			t.Errorf("Resolve(%q) rejected without a reason", expr)
		}
	})
}
