package stats

import (
	"fmt"
	"sync"
)

// MockProgress records every Stats update it receives.
type MockProgress struct {
	mu       sync.Mutex
	updates  []Stats
	outcomes []string
	lines    []string
}

func NewMockProgress() *MockProgress {
	return &MockProgress{}
}

func (m *MockProgress) Update(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, s)
}

// Updates returns a copy of the recorded updates.
func (m *MockProgress) Updates() []Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Stats(nil), m.updates...)
}

// Outcome records a per-table outcome line.
func (m *MockProgress) Outcome(table string, status string, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, table+": "+status)
}

// Printf records formatted output.
func (m *MockProgress) Printf(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
}

// Outcomes returns "table: status" for every recorded outcome.
func (m *MockProgress) Outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes...)
}

// Lines returns every formatted line.
func (m *MockProgress) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}
