package input

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_OnlyLastScheduleRuns(t *testing.T) {
	clock := &fakeClock{}
	d := NewDebouncer(time.Second, clock.after)
	var got []string
	d.Schedule("a", func() { got = append(got, "first") })
	d.Schedule("a", func() { got = append(got, "second") })
	d.Schedule("b", func() { got = append(got, "b") })

	assert.Equal(t, 2, clock.fire())
	assert.ElementsMatch(t, []string{"second", "b"}, got)
	assert.False(t, d.Pending("a"))
}

func TestDebouncer_CancelAndFlush(t *testing.T) {
	clock := &fakeClock{}
	d := NewDebouncer(time.Second, clock.after)
	ran := 0
	d.Schedule("a", func() { ran++ })
	assert.True(t, d.Cancel("a"))
	assert.False(t, d.Cancel("a"))
	clock.fire()
	assert.Equal(t, 0, ran)

	d.Schedule("a", func() { ran++ })
	assert.True(t, d.Flush("a"))
	assert.Equal(t, 1, ran)
	assert.False(t, d.Flush("a"))
	clock.fire()
	assert.Equal(t, 1, ran, "a flushed task does not run again")
}

func TestDebouncer_StaleTimerIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	d := NewDebouncer(time.Second, clock.after)
	ran := ""
	d.Schedule("a", func() { ran = "old" })
	stale := clock.timers[0].fn
	d.Schedule("a", func() { ran = "new" })

	// The first timer lost the race with Stop and fires anyway.
	stale()
	assert.Equal(t, "", ran)
	assert.True(t, d.Pending("a"))
	clock.fire()
	assert.Equal(t, "new", ran)
}

func TestDebouncer_Rekey(t *testing.T) {
	clock := &fakeClock{}
	d := NewDebouncer(time.Second, clock.after)
	ran := 0
	d.Schedule("tmp-1", func() { ran++ })
	d.Rekey("tmp-1", "n1")
	assert.False(t, d.Pending("tmp-1"))
	assert.True(t, d.Pending("n1"))
	clock.fire()
	assert.Equal(t, 1, ran)
}

func TestDebouncer_CancelAll(t *testing.T) {
	clock := &fakeClock{}
	d := NewDebouncer(time.Second, clock.after)
	d.Schedule("b", func() {})
	d.Schedule("a", func() {})
	assert.Equal(t, []string{"a", "b"}, d.CancelAll())
	assert.Equal(t, 0, clock.fire())
}

func TestDebouncer_RealTimer(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)
	var ran atomic.Int32
	done := make(chan struct{})
	d.Schedule("a", func() { ran.Add(1); close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced task never ran")
	}
	assert.Equal(t, int32(1), ran.Load())
}
