// Package toast is the single notification surface of the dashboard.
//
// Every component that wants to tell staff something goes through one
// Manager. The manager caps how many notifications are visible at once
// (oldest evicted first), expires them after their duration, and folds an
// identical notification that is still on screen into the existing one, so
// several producers reporting the same thing produce one popup.
package toast

import (
	"fmt"
	"sync"
	"time"

	"github.com/betweencoffee/baristaboard/internal/timers"
)

// Severity of a notification.
type Severity string

const (
	Success Severity = "success"
	Error   Severity = "error"
	Info    Severity = "info"
	Warning Severity = "warning"
)

// ParseSeverity maps free-form strings (e.g. a frame's message_type) to a
// severity, defaulting to Info.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case Success, Error, Warning:
		return Severity(s)
	case "danger":
		return Error
	default:
		return Info
	}
}

const (
	DefaultMax      = 5
	DefaultDuration = 4 * time.Second
)

// Options describe one notification. A nil Duration uses the default;
// a zero duration keeps the notification until hidden.
type Options struct {
	Title    string
	Message  string
	Severity Severity
	Duration *time.Duration
}

// Sticky returns a pointer to a zero duration.
func Sticky() *time.Duration {
	d := time.Duration(0)
	return &d
}

// For returns a pointer to d.
func For(d time.Duration) *time.Duration {
	return &d
}

// Toast is a visible notification.
type Toast struct {
	ID       string
	Title    string
	Message  string
	Severity Severity
	Duration time.Duration
	Shown    time.Time
	Repeats  int
}

// Status summarizes the facility.
type Status struct {
	Visible         int
	Max             int
	DefaultDuration time.Duration
	Shown           int
}

// Manager owns the visible notifications.
type Manager struct {
	mu       sync.Mutex
	visible  []Toast
	seq      int
	max      int
	duration time.Duration
	timers   *timers.Registry
	onChange func()
	now      func() time.Time
}

// NewManager creates a manager with the default cap and duration.
func NewManager() *Manager {
	return &Manager{
		max:      DefaultMax,
		duration: DefaultDuration,
		timers:   timers.NewRegistry(),
		now:      time.Now,
	}
}

// OnChange sets a callback run after every change, outside the lock.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// SetConfig changes the cap and default duration. Non-positive values keep
// the current setting. Shrinking the cap evicts the oldest.
func (m *Manager) SetConfig(max int, duration time.Duration) {
	m.mu.Lock()
	if max > 0 {
		m.max = max
	}
	if duration > 0 {
		m.duration = duration
	}
	evicted := m.enforceCapLocked()
	m.mu.Unlock()
	m.cancelTimers(evicted)
	m.changed()
}

// Show displays a notification and returns its id. An identical
// notification already visible is reused and its timer restarted.
func (m *Manager) Show(opts Options) string {
	if opts.Severity == "" {
		opts.Severity = Info
	}

	m.mu.Lock()
	duration := m.duration
	if opts.Duration != nil {
		duration = *opts.Duration
	}

	for i := range m.visible {
		t := &m.visible[i]
		if t.Severity == opts.Severity && t.Title == opts.Title && t.Message == opts.Message {
			t.Repeats++
			t.Shown = m.now()
			t.Duration = duration
			id := t.ID
			m.mu.Unlock()
			m.schedule(id, duration)
			m.changed()
			return id
		}
	}

	m.seq++
	t := Toast{
		ID:       fmt.Sprintf("toast-%d", m.seq),
		Title:    opts.Title,
		Message:  opts.Message,
		Severity: opts.Severity,
		Duration: duration,
		Shown:    m.now(),
	}
	m.visible = append(m.visible, t)
	evicted := m.enforceCapLocked()
	m.mu.Unlock()

	m.cancelTimers(evicted)
	m.schedule(t.ID, duration)
	m.changed()
	return t.ID
}

// Hide removes a notification. Unknown ids are ignored.
func (m *Manager) Hide(id string) {
	m.mu.Lock()
	removed := false
	for i, t := range m.visible {
		if t.ID == id {
			m.visible = append(m.visible[:i:i], m.visible[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	m.timers.Cancel(id)
	if removed {
		m.changed()
	}
}

// ClearAll removes every notification.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	had := len(m.visible) > 0
	m.visible = nil
	m.mu.Unlock()

	m.timers.CancelAll()
	if had {
		m.changed()
	}
}

// Visible returns the notifications on screen, oldest first.
func (m *Manager) Visible() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Toast, len(m.visible))
	copy(out, m.visible)
	return out
}

// Status reports counters and configuration.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Visible:         len(m.visible),
		Max:             m.max,
		DefaultDuration: m.duration,
		Shown:           m.seq,
	}
}

// Close cancels every expiry timer.
func (m *Manager) Close() {
	m.timers.Close()
}

func (m *Manager) schedule(id string, d time.Duration) {
	if d <= 0 {
		m.timers.Cancel(id)
		return
	}
	m.timers.After(id, d, func() { m.Hide(id) })
}

func (m *Manager) enforceCapLocked() []string {
	var evicted []string
	for len(m.visible) > m.max {
		evicted = append(evicted, m.visible[0].ID)
		m.visible = m.visible[1:]
	}
	return evicted
}

func (m *Manager) cancelTimers(ids []string) {
	for _, id := range ids {
		m.timers.Cancel(id)
	}
}

func (m *Manager) changed() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}
