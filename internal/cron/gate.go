package cron

import "time"

// ShouldRunJob is the run gate: force mode always fires, due mode defers
// to isJobDue.
func ShouldRunJob(job Job, mode RunMode, now time.Time) bool {
	if mode == RunModeForce {
		return true
	}
	return isJobDue(job, now, false)
}
