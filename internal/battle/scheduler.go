package battle

import (
	"sync"
	"time"
)

// Scheduler runs a callback after a delay. The returned func cancels it if it has not run.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler runs callbacks on the wall clock.
type TimerScheduler struct{}

// After implements Scheduler with time.AfterFunc.
func (TimerScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type manualTask struct {
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

// ManualScheduler queues callbacks until a test steps them.
// Time is virtual: stepping a task advances the clock to its due time.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

// NewManualScheduler creates an empty queue at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After implements Scheduler.
func (m *ManualScheduler) After(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &manualTask{at: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, task)
	return func() {
		m.mu.Lock()
		task.cancelled = true
		m.mu.Unlock()
	}
}

// next removes and returns the earliest live task.
func (m *ManualScheduler) next() *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := -1
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
	for i, t := range m.tasks {
		if best == -1 || t.at < m.tasks[best].at || (t.at == m.tasks[best].at && t.seq < m.tasks[best].seq) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	task := m.tasks[best]
	m.tasks = append(m.tasks[:best], m.tasks[best+1:]...)
	if task.at > m.now {
		m.now = task.at
	}
	return task
}

// Step runs the earliest pending callback. It reports whether one ran.
func (m *ManualScheduler) Step() bool {
	task := m.next()
	if task == nil {
		return false
	}
	task.fn()
	return true
}

// RunAll steps until the queue is empty, including callbacks scheduled along the way.
// It returns the number of callbacks run.
func (m *ManualScheduler) RunAll() int {
	n := 0
	for m.Step() {
		n++
	}
	return n
}

// Pending returns the number of queued, uncancelled callbacks.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Now returns the virtual clock.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

var (
	_ Scheduler = TimerScheduler{}
	_ Scheduler = (*ManualScheduler)(nil)
)
