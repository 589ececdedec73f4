package battle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_RunsInDueOrder(t *testing.T) {
	m := NewManualScheduler()
	var order []string
	m.After(300*time.Millisecond, func() { order = append(order, "c") })
	m.After(100*time.Millisecond, func() { order = append(order, "a") })
	m.After(100*time.Millisecond, func() { order = append(order, "b") })

	assert.Equal(t, 3, m.Pending())
	assert.Equal(t, 3, m.RunAll())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 300*time.Millisecond, m.Now())
}

func TestManualScheduler_Cancel(t *testing.T) {
	m := NewManualScheduler()
	ran := false
	cancel := m.After(time.Second, func() { ran = true })
	cancel()

	assert.Zero(t, m.Pending())
	assert.False(t, m.Step())
	assert.False(t, ran)
}

func TestManualScheduler_NestedSchedulingUsesVirtualClock(t *testing.T) {
	m := NewManualScheduler()
	var at []time.Duration
	m.After(200*time.Millisecond, func() {
		at = append(at, m.Now())
		m.After(50*time.Millisecond, func() { at = append(at, m.Now()) })
	})

	assert.Equal(t, 2, m.RunAll())
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 250 * time.Millisecond}, at)
}

func TestTimerScheduler_Fires(t *testing.T) {
	done := make(chan struct{})
	TimerScheduler{}.After(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}
