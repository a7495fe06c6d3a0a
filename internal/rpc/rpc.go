// Package rpc implements the facade that routes validated parameters to
// the cron core's codec, gate, and dispatcher, and exposes scheduler.status.
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JakkuSakura/openclaw/internal/cron"
	"github.com/JakkuSakura/openclaw/internal/history"
)

// Error codes surfaced to RPC callers.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInternalError  = "internal_error"
)

// Error is the shape every RPC method reports on failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

func internal(format string, args ...any) *Error {
	return &Error{Code: CodeInternalError, Message: fmt.Sprintf(format, args...)}
}

// Facade routes cron.* and scheduler.status calls. It holds no state of
// its own beyond its collaborators; the crontab remains the only durable
// state.
type Facade struct {
	Store   *cron.Store
	Config  cron.Config
	Deps    cron.Deps
	History *history.Reader
	Now     func() time.Time

	// Dispatch overrides how Run invokes the dispatcher. Nil means
	// cron.Dispatch itself; hosts that want every run traced supply
	// telemetry.TracedDispatch(tracer) instead.
	Dispatch func(ctx context.Context, cfg cron.Config, deps cron.Deps, job cron.Job, mode cron.RunMode) cron.RunResult
}

func (f *Facade) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Facade) dispatch() func(ctx context.Context, cfg cron.Config, deps cron.Deps, job cron.Job, mode cron.RunMode) cron.RunResult {
	if f.Dispatch != nil {
		return f.Dispatch
	}
	return cron.Dispatch
}

// ListParams is the input to cron.list.
type ListParams struct {
	IncludeDisabled bool
	Limit           int
	Offset          int
	Query           string
	Enabled         string // "all" | "enabled" | "disabled"
	SortBy          string // "nextRunAtMs" | "updatedAtMs" | "name"
	SortDir         string // "asc" | "desc"
}

// ListResult is the output of cron.list.
type ListResult struct {
	Jobs []cron.Job
	Meta struct {
		Total  int
		Limit  int
		Offset int
	}
}

// List implements cron.list.
func (f *Facade) List(ctx context.Context, p ListParams) (ListResult, *Error) {
	snap, err := f.Store.Read(ctx)
	if err != nil {
		return ListResult{}, internal("reading crontab: %v", err)
	}

	jobs := make([]cron.Job, 0, len(snap.Jobs))
	q := strings.ToLower(strings.TrimSpace(p.Query))
	for _, j := range snap.Jobs {
		switch p.Enabled {
		case "enabled":
			if !j.Enabled {
				continue
			}
		case "disabled":
			if j.Enabled {
				continue
			}
		case "all":
			// no filtering
		default:
			if !j.Enabled && !p.IncludeDisabled {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(j.Name), q) {
			continue
		}
		jobs = append(jobs, j)
	}

	sortJobs(jobs, p.SortBy, p.SortDir)

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(jobs)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	result := ListResult{Jobs: jobs[offset:end]}
	result.Meta.Total = total
	result.Meta.Limit = limit
	result.Meta.Offset = offset
	return result, nil
}

func sortJobs(jobs []cron.Job, sortBy, sortDir string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "nextRunAtMs":
			a, b := nextRunOrMax(jobs[i]), nextRunOrMax(jobs[j])
			return a < b
		case "name":
			return jobs[i].Name < jobs[j].Name
		default: // updatedAtMs
			return jobs[i].UpdatedAtMs < jobs[j].UpdatedAtMs
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if sortDir == "desc" {
			return less(j, i)
		}
		return less(i, j)
	})
}

func nextRunOrMax(j cron.Job) int64 {
	if j.State.NextRunAtMs == nil {
		return 1<<63 - 1
	}
	return *j.State.NextRunAtMs
}

// StatusResult is the output of cron.status.
type StatusResult struct {
	Enabled bool
	Jobs    int
}

// Status implements cron.status.
func (f *Facade) Status(ctx context.Context) (StatusResult, *Error) {
	snap, err := f.Store.Read(ctx)
	if err != nil {
		return StatusResult{}, internal("reading crontab: %v", err)
	}
	return StatusResult{Enabled: len(snap.Jobs) > 0, Jobs: len(snap.Jobs)}, nil
}

// AddParams mirrors CronJobCreate: every Job field except
// id/createdAtMs/updatedAtMs/state. Enabled is a pointer so an absent
// field defaults to enabled rather than to a silently-disabled job.
type AddParams struct {
	Name           string
	Description    string
	Enabled        *bool
	AgentID        string
	SessionKey     string
	DeleteAfterRun bool
	Schedule       cron.Schedule
	SessionTarget  cron.SessionTarget
	WakeMode       cron.WakeMode
	Payload        cron.Payload
	Delivery       *cron.Delivery
}

// Add implements cron.add.
func (f *Facade) Add(ctx context.Context, p AddParams) (cron.Job, *Error) {
	if p.Name == "" {
		return cron.Job{}, invalid("name is required")
	}
	if resolved := cron.Resolve(p.Schedule); !resolved.OK {
		return cron.Job{}, invalid("schedule is not feasible: %s", resolved.Error)
	}
	if p.SessionTarget != cron.SessionTargetMain && p.SessionTarget != cron.SessionTargetIsolated {
		return cron.Job{}, invalid("sessionTarget must be main or isolated")
	}

	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}

	now := f.now().UnixMilli()
	job := cron.Job{
		ID:             uuid.NewString(),
		Name:           p.Name,
		Description:    p.Description,
		Enabled:        enabled,
		AgentID:        p.AgentID,
		SessionKey:     p.SessionKey,
		DeleteAfterRun: p.DeleteAfterRun,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
		Schedule:       p.Schedule,
		SessionTarget:  p.SessionTarget,
		WakeMode:       p.WakeMode,
		Payload:        p.Payload,
		Delivery:       p.Delivery,
	}

	var created cron.Job
	_, err := f.Store.Mutate(ctx, func(current []Job, unrelated []string) ([]Job, error) {
		created = job
		return append(current, job), nil
	})
	if err != nil {
		return cron.Job{}, internal("writing crontab: %v", err)
	}
	return created, nil
}

// Job is a local alias so Mutate's callback signature reads naturally
// without importing cron twice under different names in this file.
type Job = cron.Job

// UpdateParams is the input to cron.update.
type UpdateParams struct {
	ID    string
	Patch JobPatch
}

// JobPatch is the partial update applied to an existing job. Payload and
// Delivery merge shallowly onto the existing values when non-nil.
type JobPatch struct {
	Name           *string
	Description    *string
	Enabled        *bool
	AgentID        *string
	SessionKey     *string
	DeleteAfterRun *bool
	Schedule       *cron.Schedule
	SessionTarget  *cron.SessionTarget
	WakeMode       *cron.WakeMode
	Payload        *cron.Payload
	Delivery       *cron.Delivery
}

// patchRejected is a sentinel wrapped by validation failures discovered
// inside the Mutate callback, so Update can tell "the patch itself is
// invalid" apart from "the crontab write failed" without ever persisting
// a rejected patch.
type patchRejected struct{ reason string }

func (e *patchRejected) Error() string { return e.reason }

// Update implements cron.update.
func (f *Facade) Update(ctx context.Context, p UpdateParams) (cron.Job, *Error) {
	if p.ID == "" {
		return cron.Job{}, invalid("id is required")
	}

	var updated cron.Job
	_, err := f.Store.Mutate(ctx, func(current []Job, unrelated []string) ([]Job, error) {
		idx := -1
		for i := range current {
			if current[i].ID == p.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &patchRejected{reason: fmt.Sprintf("no job with id %q", p.ID)}
		}

		candidate := current[idx]
		if p.Patch.Payload != nil && p.Patch.Payload.Kind != "" && p.Patch.Payload.Kind != candidate.Payload.Kind {
			// A shallow merge across a changed payload kind is
			// ill-defined; require a full replacement instead.
			return nil, &patchRejected{reason: "patch.payload.kind differs from the job's current payload kind; send a complete payload replacement"}
		}
		applyPatch(&candidate, p.Patch)
		if !cron.Resolve(candidate.Schedule).OK {
			resolved := cron.Resolve(candidate.Schedule)
			return nil, &patchRejected{reason: fmt.Sprintf("schedule is not feasible after patch: %s", resolved.Error)}
		}
		candidate.UpdatedAtMs = f.now().UnixMilli()

		updated = candidate
		out := append([]Job(nil), current...)
		out[idx] = candidate
		return out, nil
	})
	if err != nil {
		var rejected *patchRejected
		if errors.As(err, &rejected) {
			return cron.Job{}, invalid("%s", rejected.reason)
		}
		return cron.Job{}, internal("writing crontab: %v", err)
	}
	return updated, nil
}

func applyPatch(job *cron.Job, patch JobPatch) {
	if patch.Name != nil {
		job.Name = *patch.Name
	}
	if patch.Description != nil {
		job.Description = *patch.Description
	}
	if patch.Enabled != nil {
		job.Enabled = *patch.Enabled
	}
	if patch.AgentID != nil {
		job.AgentID = *patch.AgentID
	}
	if patch.SessionKey != nil {
		job.SessionKey = *patch.SessionKey
	}
	if patch.DeleteAfterRun != nil {
		job.DeleteAfterRun = *patch.DeleteAfterRun
	}
	if patch.Schedule != nil {
		job.Schedule = *patch.Schedule
	}
	if patch.SessionTarget != nil {
		job.SessionTarget = *patch.SessionTarget
	}
	if patch.WakeMode != nil {
		job.WakeMode = *patch.WakeMode
	}
	if patch.Payload != nil {
		mergePayload(&job.Payload, *patch.Payload)
	}
	if patch.Delivery != nil {
		if job.Delivery == nil {
			job.Delivery = &cron.Delivery{}
		}
		mergeDelivery(job.Delivery, *patch.Delivery)
	}
}

func mergePayload(dst *cron.Payload, src cron.Payload) {
	if src.Kind != "" {
		dst.Kind = src.Kind
	}
	if src.Text != "" {
		dst.Text = src.Text
	}
	if src.Message != "" {
		dst.Message = src.Message
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Thinking != "" {
		dst.Thinking = src.Thinking
	}
	if src.TimeoutSeconds != 0 {
		dst.TimeoutSeconds = src.TimeoutSeconds
	}
	dst.AllowUnsafeExternalContent = src.AllowUnsafeExternalContent || dst.AllowUnsafeExternalContent
	dst.Deliver = src.Deliver || dst.Deliver
	if src.Channel != "" {
		dst.Channel = src.Channel
	}
	if src.To != "" {
		dst.To = src.To
	}
	dst.BestEffortDeliver = src.BestEffortDeliver || dst.BestEffortDeliver
}

func mergeDelivery(dst *cron.Delivery, src cron.Delivery) {
	if src.Mode != "" {
		dst.Mode = src.Mode
	}
	if src.Channel != "" {
		dst.Channel = src.Channel
	}
	if src.To != "" {
		dst.To = src.To
	}
	dst.BestEffort = src.BestEffort || dst.BestEffort
}

// RemoveResult is the output of cron.remove.
type RemoveResult struct {
	Removed bool
}

// Remove implements cron.remove.
func (f *Facade) Remove(ctx context.Context, id string) (RemoveResult, *Error) {
	if id == "" {
		return RemoveResult{}, invalid("id is required")
	}
	var removed bool
	_, err := f.Store.Mutate(ctx, func(current []Job, unrelated []string) ([]Job, error) {
		out := make([]Job, 0, len(current))
		for _, j := range current {
			if j.ID == id {
				removed = true
				continue
			}
			out = append(out, j)
		}
		return out, nil
	})
	if err != nil {
		return RemoveResult{}, internal("writing crontab: %v", err)
	}
	return RemoveResult{Removed: removed}, nil
}

// RunParams is the input to cron.run.
type RunParams struct {
	ID   string
	Mode cron.RunMode
}

// Run implements cron.run: resolve the job, dispatch it, and, for
// deleteAfterRun at-schedule jobs that actually ran, remove it.
func (f *Facade) Run(ctx context.Context, p RunParams) (cron.RunResult, *Error) {
	if p.ID == "" {
		return cron.RunResult{}, invalid("id is required")
	}
	mode := p.Mode
	if mode == "" {
		mode = cron.RunModeDue
	}

	snap, err := f.Store.Read(ctx)
	if err != nil {
		return cron.RunResult{}, internal("reading crontab: %v", err)
	}
	var job *cron.Job
	for i := range snap.Jobs {
		if snap.Jobs[i].ID == p.ID {
			job = &snap.Jobs[i]
			break
		}
	}
	if job == nil {
		return cron.RunResult{}, invalid("no job with id %q", p.ID)
	}

	result := f.dispatch()(ctx, f.Config, f.Deps, *job, mode)

	if result.Ran && job.Schedule.Kind == cron.ScheduleKindAt && job.DeleteAfterRun {
		if _, rmErr := f.Remove(ctx, job.ID); rmErr != nil {
			return result, rmErr
		}
	}

	return result, nil
}

// RunsParams is the input to cron.runs.
type RunsParams struct {
	ID     string
	Limit  int
	Offset int
	Scope  string
}

// RunsResult is the output of cron.runs.
type RunsResult struct {
	Entries    []cron.RunLogEntry
	Total      int
	HasMore    bool
	NextOffset *int
}

// Runs implements cron.runs.
func (f *Facade) Runs(ctx context.Context, p RunsParams) (RunsResult, *Error) {
	if p.ID == "" {
		return RunsResult{}, invalid("id is required")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.History == nil {
		return RunsResult{Entries: []cron.RunLogEntry{}}, nil
	}
	entries, err := f.History.Runs(ctx, p.ID, limit)
	if err != nil {
		return RunsResult{}, internal("reading run history: %v", err)
	}
	return RunsResult{Entries: entries, Total: len(entries), HasMore: false, NextOffset: nil}, nil
}

// SchedulerStatusResult is the output of scheduler.status: each probed
// command's stdout, or an error string if it failed.
type SchedulerStatusResult struct {
	CrontabList string
	ListTimers  string
	ListUnits   string
	Errors      map[string]string
}

// SchedulerStatus implements scheduler.status by shelling out to the same
// diagnostic commands an operator would run by hand.
func (f *Facade) SchedulerStatus(ctx context.Context) SchedulerStatusResult {
	result := SchedulerStatusResult{Errors: make(map[string]string)}

	result.CrontabList = runCapture(ctx, &result, "crontab", "crontab", "-l")
	result.ListTimers = runCapture(ctx, &result, "listTimers", "systemctl", "--user", "list-timers", "--no-pager")
	result.ListUnits = runCapture(ctx, &result, "listUnits", "systemctl", "--user", "list-units", "--no-pager", "cron*")

	return result
}

func runCapture(ctx context.Context, into *SchedulerStatusResult, key, name string, args ...string) string {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		into.Errors[key] = fmt.Sprintf("%v: %s", err, strings.TrimSpace(stderr.String()))
		return ""
	}
	return stdout.String()
}
