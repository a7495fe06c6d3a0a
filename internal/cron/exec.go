package cron

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CrontabIO is the only component allowed to touch the OS crontab. It
// exists as an interface so the rest of the package (and its tests) never
// shells out directly.
type CrontabIO interface {
	Read(ctx context.Context) ([]string, error)
	Write(ctx context.Context, content string) error
}

// ExecCrontabIO invokes the real crontab(1) binary.
type ExecCrontabIO struct{}

// Compile-time interface check.
var _ CrontabIO = ExecCrontabIO{}

// Read execs "crontab -l". A "no crontab for <user>" stderr is normalized
// to an empty list rather than an error.
func (ExecCrontabIO) Read(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "crontab", "-l")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(stderr.String()), "no crontab") {
			return nil, nil
		}
		return nil, fmt.Errorf("cron: crontab -l failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	out := stdout.String()
	if out == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n"), nil
}

// Write execs "crontab -" with content piped to stdin, replacing the
// user's entire crontab atomically (from the OS's perspective: the spool
// file is swapped, not appended to).
func (ExecCrontabIO) Write(ctx context.Context, content string) error {
	cmd := exec.CommandContext(ctx, "crontab", "-")
	cmd.Stdin = strings.NewReader(content)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cron: crontab - failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
