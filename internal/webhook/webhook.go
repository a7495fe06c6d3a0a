// Package webhook delivers cron run outcomes to an external HTTP target.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

// deliverTimeout bounds every outbound delivery attempt. Ten seconds is
// generous for a JSON POST and short enough that one unreachable target
// never stalls a batch of due jobs behind it.
const deliverTimeout = 10 * time.Second

// TargetGuard validates a delivery target before it is dialed.
type TargetGuard interface {
	Check(ctx context.Context, rawURL string) error
}

// Config configures a Deliverer.
type Config struct {
	// URL is the fixed delivery endpoint. A job's Delivery.To, when set,
	// overrides this per-call.
	URL    string
	Token  string // sent as "Authorization: Bearer <Token>" when non-empty
	Guard  TargetGuard
	Client *http.Client
	Logger *slog.Logger
}

// Deliverer posts run outcomes to a webhook target, guarded against SSRF.
type Deliverer struct {
	cfg Config
}

// Compile-time interface check against the cron package's narrow contract.
var _ cron.WebhookDeliverer = (*Deliverer)(nil)

// New creates a Deliverer from cfg.
func New(cfg Config) *Deliverer {
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout: deliverTimeout,
			// Redirects are never followed: a redirect to a blocked
			// address must not be chased transparently after the SSRF
			// guard has already cleared the original target.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Deliverer{cfg: cfg}
}

// deliveryBody is the wire shape POSTed to the webhook target:
// {jobId, name, status, summary, error, sessionId, sessionKey}.
type deliveryBody struct {
	JobID      string `json:"jobId"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	Error      string `json:"error,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
}

// Deliver implements cron.WebhookDeliverer: it normalizes the target,
// runs it past the SSRF guard, and POSTs the outcome as JSON with bearer
// auth, all within deliverTimeout.
func (d *Deliverer) Deliver(ctx context.Context, job cron.Job, outcome cron.RunOutcome) (bool, error) {
	target := d.cfg.URL
	if job.Delivery != nil && job.Delivery.To != "" {
		target = job.Delivery.To
	}
	if target == "" {
		return false, fmt.Errorf("webhook: no delivery target configured for job %q", job.ID)
	}

	parsed, err := url.Parse(target)
	if err != nil || (strings.ToLower(parsed.Scheme) != "http" && strings.ToLower(parsed.Scheme) != "https") {
		return false, fmt.Errorf("webhook: invalid webhook url")
	}

	if d.cfg.Guard != nil {
		if err := d.cfg.Guard.Check(ctx, target); err != nil {
			return false, fmt.Errorf("webhook: target rejected: %w", err)
		}
	}

	payload := deliveryBody{
		JobID:      job.ID,
		Name:       job.Name,
		Status:     string(outcome.Status),
		Summary:    outcome.Summary,
		Error:      outcome.Error,
		SessionID:  outcome.SessionID,
		SessionKey: outcome.SessionKey,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("webhook: marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return false, fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	resp, err := d.cfg.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("webhook: failed: %s", resp.Status)
	}

	d.cfg.Logger.Debug("webhook delivered", "job_id", job.ID, "target", target, "status", resp.StatusCode)
	return true, nil
}
