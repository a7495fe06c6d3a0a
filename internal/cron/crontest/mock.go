// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"strings"
	"sync"

	"github.com/JakkuSakura/openclaw/internal/cron"
)

// MockCrontabIO is an in-memory stand-in for cron.ExecCrontabIO, letting
// tests exercise the read-modify-write cycle without shelling out.
type MockCrontabIO struct {
	mu      sync.Mutex
	content string
	reads   int
	writes  int

	ReadErr  error
	WriteErr error
}

// Compile-time interface check.
var _ cron.CrontabIO = (*MockCrontabIO)(nil)

// NewMockCrontabIO seeds the mock with initial crontab content (may be "").
func NewMockCrontabIO(initial string) *MockCrontabIO {
	return &MockCrontabIO{content: initial}
}

// Read returns the current content split into lines.
func (m *MockCrontabIO) Read(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if m.content == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimSuffix(m.content, "\n"), "\n"), nil
}

// Write replaces the stored content.
func (m *MockCrontabIO) Write(_ context.Context, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.content = content
	return nil
}

// Content returns the raw stored crontab text, for assertions.
func (m *MockCrontabIO) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content
}

// Counts returns the number of Read/Write calls observed so far.
func (m *MockCrontabIO) Counts() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}
