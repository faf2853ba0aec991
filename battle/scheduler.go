package battle

import (
	"sync"
	"time"
)

// Scheduler runs deferred work such as the opponent's reply turn.
type Scheduler interface {
	Schedule(delay time.Duration, task func())
}

// TimerScheduler runs each task on its own timer.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, task func()) {
	time.AfterFunc(delay, task)
}

// ManualScheduler queues tasks until RunPending is called.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (m *ManualScheduler) Schedule(_ time.Duration, task func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, task)
}

func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// RunPending runs every queued task, including tasks queued while running, and returns how many ran.
func (m *ManualScheduler) RunPending() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return ran
		}
		task := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		task()
		ran++
	}
}
