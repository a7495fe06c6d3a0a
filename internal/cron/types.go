// Package cron implements openclaw's crontab-backed job scheduler: the
// schedule resolver, the crontab codec, the run gate, and the dispatcher.
// cron(8) is the only component that ever waits for a clock tick; this
// package only translates, persists, and reacts.
package cron

// SessionTarget selects where a job's payload is delivered.
type SessionTarget string

// Session targets.
const (
	SessionTargetMain     SessionTarget = "main"
	SessionTargetIsolated SessionTarget = "isolated"
)

// WakeMode controls how a main-session job nudges its session.
type WakeMode string

// Wake modes.
const (
	WakeModeNow           WakeMode = "now"
	WakeModeNextHeartbeat WakeMode = "next-heartbeat"
)

// ScheduleKind tags the variant held by Schedule.
type ScheduleKind string

// Schedule kinds.
const (
	ScheduleKindCron  ScheduleKind = "cron"
	ScheduleKindEvery ScheduleKind = "every"
	ScheduleKindAt    ScheduleKind = "at"
)

// Schedule is the tagged union of ways a job's recurrence can be expressed.
// Exactly one of the kind-specific field groups is meaningful, selected by Kind.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// Kind == cron
	Expr      string `json:"expr,omitempty"`
	TZ        string `json:"tz,omitempty"`
	StaggerMs int64  `json:"staggerMs,omitempty"`

	// Kind == every
	EveryMs  int64 `json:"everyMs,omitempty"`
	AnchorMs int64 `json:"anchorMs,omitempty"`

	// Kind == at
	At string `json:"at,omitempty"`
}

// PayloadKind tags the variant held by Payload.
type PayloadKind string

// Payload kinds.
const (
	PayloadKindSystemEvent PayloadKind = "systemEvent"
	PayloadKindAgentTurn   PayloadKind = "agentTurn"
)

// Payload is the tagged union describing what a job does when it fires.
type Payload struct {
	Kind PayloadKind `json:"kind"`

	// Kind == systemEvent
	Text string `json:"text,omitempty"`

	// Kind == agentTurn
	Message                    string `json:"message,omitempty"`
	Model                      string `json:"model,omitempty"`
	Thinking                   string `json:"thinking,omitempty"`
	TimeoutSeconds             int    `json:"timeoutSeconds,omitempty"`
	AllowUnsafeExternalContent bool   `json:"allowUnsafeExternalContent,omitempty"`
	Deliver                    bool   `json:"deliver,omitempty"`
	Channel                    string `json:"channel,omitempty"`
	To                         string `json:"to,omitempty"`
	BestEffortDeliver          bool   `json:"bestEffortDeliver,omitempty"`
}

// DeliveryMode selects how a run's outcome is announced.
type DeliveryMode string

// Delivery modes.
const (
	DeliveryModeNone     DeliveryMode = "none"
	DeliveryModeAnnounce DeliveryMode = "announce"
	DeliveryModeWebhook  DeliveryMode = "webhook"
)

// Delivery describes what happens to a run's outcome after dispatch.
type Delivery struct {
	Mode       DeliveryMode `json:"mode"`
	Channel    string       `json:"channel,omitempty"`
	To         string       `json:"to,omitempty"`
	BestEffort bool         `json:"bestEffort,omitempty"`
}

// JobState holds derived, recomputed-on-write runtime state.
type JobState struct {
	NextRunAtMs *int64 `json:"nextRunAtMs,omitempty"`
}

// Job is the primary entity: a single crontab-backed scheduled action.
type Job struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Enabled        bool          `json:"enabled"`
	AgentID        string        `json:"agentId,omitempty"`
	SessionKey     string        `json:"sessionKey,omitempty"`
	DeleteAfterRun bool          `json:"deleteAfterRun,omitempty"`
	CreatedAtMs    int64         `json:"createdAtMs"`
	UpdatedAtMs    int64         `json:"updatedAtMs"`
	Schedule       Schedule      `json:"schedule"`
	SessionTarget  SessionTarget `json:"sessionTarget"`
	WakeMode       WakeMode      `json:"wakeMode"`
	Payload        Payload       `json:"payload"`
	Delivery       *Delivery     `json:"delivery,omitempty"`
	State          JobState      `json:"state"`
}

// RunStatus is the outcome status of a single run.
type RunStatus string

// Run statuses.
const (
	RunStatusOK    RunStatus = "ok"
	RunStatusError RunStatus = "error"
)

// RunOutcome is the result of dispatching one job run.
type RunOutcome struct {
	Status     RunStatus `json:"status"`
	Summary    string    `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	SessionKey string    `json:"sessionKey,omitempty"`
}

// RunLogEntry is one reconstructed history entry for a job, as read back
// from the OS's own logs (see internal/history).
type RunLogEntry struct {
	Ts     int64     `json:"ts"`
	JobID  string    `json:"jobId"`
	Status RunStatus `json:"status"`
}

// RunMode selects between the Run Gate's due-check and an unconditional fire.
type RunMode string

// Run modes.
const (
	RunModeDue   RunMode = "due"
	RunModeForce RunMode = "force"
)

// RunReason explains why a dispatch did not actually run the job.
type RunReason string

// Run reasons.
const (
	RunReasonNotDue         RunReason = "not-due"
	RunReasonAlreadyRunning RunReason = "already-running"
)

// RunResult is the Dispatcher's output for a single cron.run invocation.
type RunResult struct {
	OK          bool
	Ran         bool
	Reason      RunReason
	Outcome     *RunOutcome
	NextRunAtMs *int64
	Error       string
}
