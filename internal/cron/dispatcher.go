package cron

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventSink posts a system event into a session's inbound queue. It is
// the narrow boundary to the interactive agent runtime; the runtime's
// internals are not this package's concern.
type EventSink interface {
	Enqueue(ctx context.Context, sessionKey, text string) error
}

// HeartbeatSignaler nudges a session to act on its queue immediately (or
// at the next periodic heartbeat), per the job's WakeMode.
type HeartbeatSignaler interface {
	Wake(ctx context.Context, sessionKey, reason string) error
}

// IsolatedTurnRequest is what the Dispatcher hands to an IsolatedRunner.
type IsolatedTurnRequest struct {
	Job     Job
	Message string
}

// IsolatedTurnResult is what an IsolatedRunner hands back. Status is
// optional; an empty Status means "ok".
type IsolatedTurnResult struct {
	Status     string
	Error      string
	Summary    string
	SessionID  string
	SessionKey string
}

// IsolatedRunner executes a one-shot, fresh-session agent turn. Only the
// request/result shape matters here; the turn-running agent itself lives
// behind this boundary.
type IsolatedRunner interface {
	Run(ctx context.Context, req IsolatedTurnRequest) (IsolatedTurnResult, error)
}

// WebhookDeliverer delivers a run's outcome to job.Delivery's target.
type WebhookDeliverer interface {
	Deliver(ctx context.Context, job Job, outcome RunOutcome) (delivered bool, err error)
}

// Config carries the cross-cutting defaults the Dispatcher needs when a
// job omits its own routing hints.
type Config struct {
	DefaultAgentID string
	MainKeyPrefix  string // combined with AgentID to derive a default session key
}

// Deps bundles the narrow external collaborators the Dispatcher calls into.
type Deps struct {
	Events    EventSink
	Heartbeat HeartbeatSignaler
	Isolated  IsolatedRunner
	Webhook   WebhookDeliverer
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Dispatch runs a single job under the given run mode: gate, route to the
// main-session or isolated branch, deliver the outcome, and compute the
// next fire time.
func Dispatch(ctx context.Context, cfg Config, deps Deps, job Job, mode RunMode) RunResult {
	now := deps.now()

	if !ShouldRunJob(job, mode, now) {
		return RunResult{OK: true, Ran: false, Reason: RunReasonNotDue}
	}

	var outcome RunOutcome
	var dispatchErr error

	switch job.SessionTarget {
	case SessionTargetMain:
		outcome, dispatchErr = dispatchMain(ctx, cfg, deps, job)
	case SessionTargetIsolated:
		outcome, dispatchErr = dispatchIsolated(ctx, deps, job)
	default:
		dispatchErr = fmt.Errorf("unknown session target %q", job.SessionTarget)
	}

	if dispatchErr != nil {
		return RunResult{OK: false, Error: dispatchErr.Error()}
	}

	if job.Delivery != nil && job.Delivery.Mode == DeliveryModeWebhook && deps.Webhook != nil {
		_, err := deps.Webhook.Deliver(ctx, job, outcome)
		if err != nil {
			bestEffort := job.Delivery.BestEffort
			if !bestEffort {
				outcome = RunOutcome{
					Status:    RunStatusError,
					Error:     err.Error(),
					ErrorKind: "delivery-target",
				}
			}
		}
	}

	next := resolveJobNextRun(job, now)
	return RunResult{OK: true, Ran: true, Outcome: &outcome, NextRunAtMs: next}
}

func dispatchMain(ctx context.Context, cfg Config, deps Deps, job Job) (RunOutcome, error) {
	if job.Payload.Kind != PayloadKindSystemEvent {
		return RunOutcome{}, errors.New("main session jobs require systemEvent payload")
	}

	agentID := job.AgentID
	if agentID == "" {
		agentID = cfg.DefaultAgentID
	}
	sessionKey := job.SessionKey
	if sessionKey == "" {
		sessionKey = cfg.MainKeyPrefix + agentID
	}

	if deps.Events != nil {
		if err := deps.Events.Enqueue(ctx, sessionKey, job.Payload.Text); err != nil {
			// An enqueue failure surfaces as a dispatch-kind outcome
			// error, not a hard RunResult failure: the session target
			// itself was resolved correctly.
			return RunOutcome{
				Status:     RunStatusError,
				Error:      fmt.Sprintf("enqueue system event: %v", err),
				ErrorKind:  "dispatch",
				SessionKey: sessionKey,
			}, nil
		}
	}

	if deps.Heartbeat != nil && (job.WakeMode == WakeModeNow || job.WakeMode == WakeModeNextHeartbeat) {
		_ = deps.Heartbeat.Wake(ctx, sessionKey, "cron")
	}

	return RunOutcome{Status: RunStatusOK, SessionKey: sessionKey}, nil
}

func dispatchIsolated(ctx context.Context, deps Deps, job Job) (RunOutcome, error) {
	if job.Payload.Kind != PayloadKindAgentTurn {
		return RunOutcome{}, errors.New("isolated session jobs require agentTurn payload")
	}
	if deps.Isolated == nil {
		return RunOutcome{}, errors.New("no isolated runner configured")
	}

	result, err := deps.Isolated.Run(ctx, IsolatedTurnRequest{Job: job, Message: job.Payload.Message})
	if err != nil {
		return RunOutcome{}, fmt.Errorf("isolated agent turn: %w", err)
	}

	status := RunStatus(result.Status)
	if status == "" {
		status = RunStatusOK
	}
	return RunOutcome{
		Status:     status,
		Summary:    result.Summary,
		Error:      result.Error,
		SessionID:  result.SessionID,
		SessionKey: result.SessionKey,
	}, nil
}
