// Package stats records execution statistics.
//
// A Manager is an explicit, process-scoped object. It is off by default and
// records only after SetRecording(true). All methods are safe for concurrent
// use.
package stats

import (
	"slices"
	"sync"
	"time"
)

// Labels used by this module.
const (
	LabelDecode     = "Call Decoding"
	LabelExpansion  = "Template Expansion"
	LabelEvaluation = "Query Execution"
)

// Statistics is one recorded measurement.
type Statistics struct {
	Label     string        `json:"label"`
	Context   string        `json:"context"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// Manager collects Statistics and notifies subscribers of changes.
type Manager struct {
	mu          sync.Mutex
	recording   bool
	stats       []Statistics
	subscribers map[int]func()
	nextID      int
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecording sets the initial recording state.
func WithRecording(enabled bool) Option {
	return func(m *Manager) {
		m.recording = enabled
	}
}

// WithClock replaces time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager that is not recording.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		subscribers: make(map[int]func()),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRecording turns recording on or off.
func (m *Manager) SetRecording(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recording = enabled
}

// IsRecording reports whether Add currently records.
func (m *Manager) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// Add records values and notifies subscribers. It does nothing when the
// manager is not recording.
func (m *Manager) Add(values ...Statistics) {
	if !m.AddSilently(values...) {
		return
	}
	m.notify()
}

// AddSilently records values without notifying subscribers. It reports
// whether anything was recorded.
func (m *Manager) AddSilently(values ...Statistics) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.recording || len(values) == 0 {
		return false
	}
	m.stats = append(m.stats, values...)
	return true
}

// Start begins timing label. Calling the returned function records the
// measurement.
func (m *Manager) Start(label, context string) func() {
	started := m.now()
	return func() {
		m.Add(Statistics{
			Label:     label,
			Context:   context,
			Duration:  m.now().Sub(started),
			StartedAt: started,
		})
	}
}

// Statistics returns a copy of everything recorded so far.
func (m *Manager) Statistics() []Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stats)
}

// TotalDuration sums the durations recorded under label.
func (m *Manager) TotalDuration(label string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total time.Duration
	for _, s := range m.stats {
		if s.Label == label {
			total += s.Duration
		}
	}
	return total
}

// Reset discards all statistics and notifies subscribers.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.stats = nil
	m.mu.Unlock()
	m.notify()
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func()) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// notify calls subscribers outside the lock so they may read the manager.
func (m *Manager) notify() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
