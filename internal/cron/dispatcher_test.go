package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeHeartbeat struct {
	woken []string
}

func (f *fakeHeartbeat) Wake(_ context.Context, sessionKey, _ string) error {
	f.woken = append(f.woken, sessionKey)
	return nil
}

type fakeIsolated struct {
	result IsolatedTurnResult
	err    error
}

func (f fakeIsolated) Run(_ context.Context, _ IsolatedTurnRequest) (IsolatedTurnResult, error) {
	return f.result, f.err
}

type fakeWebhook struct {
	delivered bool
	err       error
	calls     int
}

func (f *fakeWebhook) Deliver(_ context.Context, _ Job, _ RunOutcome) (bool, error) {
	f.calls++
	return f.delivered, f.err
}

type erroringEventSink struct{ err error }

func (e erroringEventSink) Enqueue(_ context.Context, _, _ string) error { return e.err }

func mainJob(id string) Job {
	return Job{
		ID:            id,
		Name:          "main job",
		Enabled:       true,
		Schedule:      Schedule{Kind: ScheduleKindCron, Expr: "* * * * *"},
		SessionTarget: SessionTargetMain,
		WakeMode:      WakeModeNow,
		Payload:       Payload{Kind: PayloadKindSystemEvent, Text: "hello"},
	}
}

func TestDispatch_NotDueSkipsEntirely(t *testing.T) {
	t.Parallel()

	job := mainJob("j1")
	job.Schedule = Schedule{Kind: ScheduleKindCron, Expr: "0 0 1 1 *"} // far future
	result := Dispatch(context.Background(), Config{}, Deps{}, job, RunModeDue)

	if !result.OK || result.Ran {
		t.Fatalf("Dispatch() = %+v, want OK and not-ran", result)
	}
	if result.Reason != RunReasonNotDue {
		t.Errorf("Reason = %q, want %q", result.Reason, RunReasonNotDue)
	}
}

func TestDispatch_MainSession_EnqueuesAndWakes(t *testing.T) {
	t.Parallel()

	events := NewInMemoryEventSink()
	hb := &fakeHeartbeat{}
	job := mainJob("j2")

	result := Dispatch(context.Background(), Config{MainKeyPrefix: "main:"}, Deps{Events: events, Heartbeat: hb}, job, RunModeForce)

	if !result.OK || !result.Ran {
		t.Fatalf("Dispatch() = %+v, want ran", result)
	}
	if result.Outcome.Status != RunStatusOK {
		t.Errorf("outcome status = %q, want ok", result.Outcome.Status)
	}
	if got := events.Events(result.Outcome.SessionKey); len(got) != 1 || got[0] != "hello" {
		t.Errorf("events for %q = %v, want [\"hello\"]", result.Outcome.SessionKey, got)
	}
	if len(hb.woken) != 1 {
		t.Errorf("expected exactly one heartbeat wake, got %d", len(hb.woken))
	}
}

func TestDispatch_MainSession_EnqueueFailureSurfacesAsDispatchError(t *testing.T) {
	t.Parallel()

	job := mainJob("j3")
	result := Dispatch(context.Background(), Config{}, Deps{Events: erroringEventSink{err: errors.New("boom")}}, job, RunModeForce)

	if !result.OK || !result.Ran {
		t.Fatalf("Dispatch() = %+v, want ran=true (the dispatch itself succeeded structurally)", result)
	}
	if result.Outcome.Status != RunStatusError || result.Outcome.ErrorKind != "dispatch" {
		t.Errorf("outcome = %+v, want status=error errorKind=dispatch", result.Outcome)
	}
}

func TestDispatch_MainSession_WrongPayloadKindIsHardError(t *testing.T) {
	t.Parallel()

	job := mainJob("j4")
	job.Payload = Payload{Kind: PayloadKindAgentTurn, Message: "oops"}
	result := Dispatch(context.Background(), Config{}, Deps{}, job, RunModeForce)

	if result.OK {
		t.Fatal("expected a hard error for a main-session job with an agentTurn payload")
	}
}

func TestDispatch_Isolated_RunsAgentTurn(t *testing.T) {
	t.Parallel()

	job := Job{
		ID:            "j5",
		Name:          "isolated job",
		Enabled:       true,
		Schedule:      Schedule{Kind: ScheduleKindCron, Expr: "* * * * *"},
		SessionTarget: SessionTargetIsolated,
		Payload:       Payload{Kind: PayloadKindAgentTurn, Message: "summarize"},
	}
	runner := fakeIsolated{result: IsolatedTurnResult{Summary: "done", SessionID: "sess-1"}}
	result := Dispatch(context.Background(), Config{}, Deps{Isolated: runner}, job, RunModeForce)

	if !result.OK || !result.Ran {
		t.Fatalf("Dispatch() = %+v, want ran", result)
	}
	if result.Outcome.Status != RunStatusOK || result.Outcome.Summary != "done" {
		t.Errorf("outcome = %+v", result.Outcome)
	}
}

func TestDispatch_Isolated_NoRunnerConfiguredIsHardError(t *testing.T) {
	t.Parallel()

	job := Job{
		ID:            "j6",
		Enabled:       true,
		Schedule:      Schedule{Kind: ScheduleKindCron, Expr: "* * * * *"},
		SessionTarget: SessionTargetIsolated,
		Payload:       Payload{Kind: PayloadKindAgentTurn, Message: "x"},
	}
	result := Dispatch(context.Background(), Config{}, Deps{}, job, RunModeForce)
	if result.OK {
		t.Fatal("expected a hard error when no isolated runner is configured")
	}
}

func TestDispatch_WebhookDeliveryBestEffortSwallowsError(t *testing.T) {
	t.Parallel()

	job := mainJob("j7")
	job.Delivery = &Delivery{Mode: DeliveryModeWebhook, To: "https://example.com", BestEffort: true}
	hook := &fakeWebhook{err: errors.New("unreachable")}

	result := Dispatch(context.Background(), Config{}, Deps{Events: NewInMemoryEventSink(), Webhook: hook}, job, RunModeForce)

	if !result.OK || !result.Ran {
		t.Fatalf("Dispatch() = %+v, want ran", result)
	}
	if result.Outcome.Status != RunStatusOK {
		t.Errorf("best-effort delivery failure must not override a successful run outcome, got %+v", result.Outcome)
	}
	if hook.calls != 1 {
		t.Errorf("expected exactly one delivery attempt, got %d", hook.calls)
	}
}

func TestDispatch_WebhookDeliveryNonBestEffortOverridesOutcome(t *testing.T) {
	t.Parallel()

	job := mainJob("j8")
	job.Delivery = &Delivery{Mode: DeliveryModeWebhook, To: "https://example.com", BestEffort: false}
	hook := &fakeWebhook{err: errors.New("unreachable")}

	result := Dispatch(context.Background(), Config{}, Deps{Events: NewInMemoryEventSink(), Webhook: hook}, job, RunModeForce)

	if !result.OK || !result.Ran {
		t.Fatalf("Dispatch() = %+v, want ran", result)
	}
	if result.Outcome.Status != RunStatusError || result.Outcome.ErrorKind != "delivery-target" {
		t.Errorf("outcome = %+v, want a delivery-target error", result.Outcome)
	}
}

func TestDispatch_PopulatesNextRunAtMs(t *testing.T) {
	t.Parallel()

	job := mainJob("j9")
	result := Dispatch(context.Background(), Config{}, Deps{Events: NewInMemoryEventSink()}, job, RunModeForce)
	if result.NextRunAtMs == nil {
		t.Error("expected NextRunAtMs to be populated after a successful run")
	}
}
