package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Enabled       bool    `json:"enabled"`
	Jobs          int     `json:"jobs"`
}

// handleStatus returns an http.HandlerFunc for GET /status, reporting the
// live crontab state via the RPC facade rather than any cached snapshot.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, rpcErr := g.facade.Status(r.Context())
		if rpcErr != nil {
			http.Error(w, rpcErr.Message, http.StatusInternalServerError)
			return
		}

		g.metrics.SetJobsScheduled(status.Jobs)

		resp := StatusResponse{
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Enabled:       status.Enabled,
			Jobs:          status.Jobs,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
