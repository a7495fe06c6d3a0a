package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

var errBlocked = errors.New("blocked")

type allowGuard struct{ err error }

func (g allowGuard) Check(context.Context, string) error { return g.err }

func TestDeliverer_PostsOutcomeWithBearerAuth(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody deliveryBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(Config{Token: "secret-token", Guard: allowGuard{}})
	job := cron.Job{ID: "job-1", Name: "nightly-report", Delivery: &cron.Delivery{Mode: cron.DeliveryModeWebhook, To: srv.URL}}

	delivered, err := d.Deliver(context.Background(), job, cron.RunOutcome{Status: cron.RunStatusOK, Summary: "done"})
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !delivered {
		t.Fatal("expected delivered = true")
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q, want Bearer secret-token", gotAuth)
	}
	if gotBody.JobID != "job-1" || gotBody.Status != string(cron.RunStatusOK) {
		t.Errorf("unexpected body: %+v", gotBody)
	}
}

func TestDeliverer_RejectsSSRFTarget(t *testing.T) {
	t.Parallel()

	d := New(Config{Guard: allowGuard{err: errBlocked}})
	job := cron.Job{ID: "job-2", Delivery: &cron.Delivery{Mode: cron.DeliveryModeWebhook, To: "http://169.254.169.254/"}}

	_, err := d.Deliver(context.Background(), job, cron.RunOutcome{Status: cron.RunStatusOK})
	if err == nil {
		t.Fatal("expected an error for a blocked target")
	}
}

func TestDeliverer_MissingTarget(t *testing.T) {
	t.Parallel()

	d := New(Config{})
	job := cron.Job{ID: "job-3"}

	_, err := d.Deliver(context.Background(), job, cron.RunOutcome{Status: cron.RunStatusOK})
	if err == nil {
		t.Fatal("expected an error when no delivery target is configured")
	}
}

func TestDeliverer_NonSuccessStatusIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(Config{Guard: allowGuard{}})
	job := cron.Job{ID: "job-4", Delivery: &cron.Delivery{Mode: cron.DeliveryModeWebhook, To: srv.URL}}

	_, err := d.Deliver(context.Background(), job, cron.RunOutcome{Status: cron.RunStatusOK})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
