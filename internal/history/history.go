// Package history reconstructs best-effort cron run history from the
// operating system's own logs, since openclaw keeps no run ledger of its
// own.
package history

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

// runCommandMarker is the literal substring a history line must contain
// to be considered a cron invocation record, matching the run-command
// argv written onto crontab execution lines.
const runCommandMarker = "openclaw cron run"

// LogSource yields raw cron(8) log lines mentioning jobID, oldest first
// (the natural order journalctl and flat log files produce). Reader
// tries sources in order and uses the first one that produces output.
type LogSource interface {
	Name() string
	Lines(ctx context.Context, jobID string, limit int) ([]string, error)
}

// Reader reconstructs RunLogEntry history by walking a chain of LogSource
// backends until one produces lines, mirroring cron(8)'s own
// platform-dependent logging destinations: journald on systemd hosts
// (cron.service, falling back to crond.service), then the classic flat
// files elsewhere.
type Reader struct {
	sources []LogSource
}

// NewReader builds a Reader that tries sources in order. With no
// arguments it uses the default chain: journalctl cron.service,
// journalctl crond.service, /var/log/cron, /var/log/syslog.
func NewReader(sources ...LogSource) *Reader {
	if len(sources) == 0 {
		sources = []LogSource{
			JournalctlSource{Unit: "cron.service"},
			JournalctlSource{Unit: "crond.service"},
			FileSource{Path: "/var/log/cron"},
			FileSource{Path: "/var/log/syslog"},
		}
	}
	return &Reader{sources: sources}
}

// Runs returns up to limit reconstructed history entries for jobID,
// newest first. It is best-effort: if every source fails or finds
// nothing, Runs returns an empty slice and no error, since the absence of
// OS logging is not itself a fault in the scheduler.
func (r *Reader) Runs(ctx context.Context, jobID string, limit int) ([]cron.RunLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	for _, src := range r.sources {
		lines, err := src.Lines(ctx, jobID, limit*8)
		if err != nil || len(lines) == 0 {
			continue
		}
		entries := parseLines(lines, jobID, limit)
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return []cron.RunLogEntry{}, nil
}

// leadingTimestamp matches a leading "YYYY-MM-DD HH:MM:SS" (or
// journalctl's ISO-with-T variant) at the start of a log line.
var leadingTimestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ](\d{2}:\d{2}:\d{2})`)

// syslogTimestamp matches the classic "Mon D HH:MM:SS" cron(8)/syslog
// prefix, which carries no year; the current year is assumed.
var syslogTimestamp = regexp.MustCompile(`^(\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)

// parseLines iterates lines newest-first (the input is oldest-first, so
// it walks in reverse), keeping only lines that mention both the
// run-command marker and jobID, and stops once limit entries are
// collected.
func parseLines(lines []string, jobID string, limit int) []cron.RunLogEntry {
	var out []cron.RunLogEntry
	now := time.Now().UTC()

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !strings.Contains(line, runCommandMarker) || !strings.Contains(line, jobID) {
			continue
		}

		ts := now
		if m := leadingTimestamp.FindStringSubmatch(line); m != nil {
			if t, err := time.Parse("2006-01-02 15:04:05", m[1]+" "+m[2]); err == nil {
				ts = t.UTC()
			}
		} else if m := syslogTimestamp.FindStringSubmatch(line); m != nil {
			if t, err := time.Parse("Jan 2 15:04:05 2006", m[1]+" "+strconv.Itoa(now.Year())); err == nil {
				ts = t.UTC()
			}
		}

		status := cron.RunStatusOK
		if strings.Contains(strings.ToLower(line), "error") {
			status = cron.RunStatusError
		}

		out = append(out, cron.RunLogEntry{Ts: ts.UnixMilli(), JobID: jobID, Status: status})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// JournalctlSource reads cron invocation records from systemd-journald via
// the journalctl(1) CLI, the log destination on most modern Linux hosts.
type JournalctlSource struct {
	Unit string
}

// Name identifies the source for diagnostics.
func (s JournalctlSource) Name() string { return "journalctl:" + s.Unit }

// Lines execs "journalctl -u <unit> --no-pager -o short-iso -n <limit>".
func (s JournalctlSource) Lines(ctx context.Context, _ string, limit int) ([]string, error) {
	unit := s.Unit
	if unit == "" {
		unit = "cron.service"
	}
	cmd := exec.CommandContext(ctx, "journalctl", "-u", unit, "--no-pager", "-o", "short-iso", "-n", strconv.Itoa(limit))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("history: journalctl -u %s failed: %w (%s)", unit, err, strings.TrimSpace(stderr.String()))
	}
	return splitNonEmpty(stdout.String()), nil
}

// FileSource reads a flat cron log file, the fallback on non-systemd hosts.
type FileSource struct {
	Path string
}

// Name identifies the source for diagnostics.
func (s FileSource) Name() string { return s.Path }

// Lines reads the file's last lines, tailing it manually since these logs
// are typically small enough to scan in full.
func (s FileSource) Lines(_ context.Context, _ string, limit int) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s: %w", s.Path, err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("history: reading %s: %w", s.Path, err)
	}

	if limit <= 0 || limit > len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

func splitNonEmpty(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
