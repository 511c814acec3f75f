package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")

	state, ok := tr.State(id)
	require.True(t, ok)
	assert.Equal(t, StateQueued, state.State)
	assert.False(t, state.At.IsZero())

	tr.Admit(id)
	tr.Run(id, 1)
	tr.Succeed(id)

	state, ok = tr.State(id)
	require.True(t, ok)
	assert.Equal(t, StateSucceeded, state.State)
	assert.True(t, state.State.Terminal())
}

func TestTracker_WatchDeliversFullSequence(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	ch := tr.Watch(id)

	tr.Admit(id)
	tr.Run(id, 1)
	tr.Run(id, 2)
	tr.Succeed(id)

	var states []State
	var attempts []int
	for transition := range ch {
		states = append(states, transition.State)
		attempts = append(attempts, transition.Attempt)
	}

	assert.Equal(t, []State{StateQueued, StateAdmitted, StateRunning, StateRunning, StateSucceeded}, states)
	assert.Equal(t, []int{0, 0, 1, 2, 0}, attempts)
}

func TestTracker_LateSubscriberGetsCurrentOnly(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Admit(id)
	tr.Run(id, 1)

	ch := tr.Watch(id)
	first := <-ch
	assert.Equal(t, StateRunning, first.State, "no replay of missed history")

	tr.Succeed(id)
	second, open := <-ch
	require.True(t, open)
	assert.Equal(t, StateSucceeded, second.State)

	_, open = <-ch
	assert.False(t, open, "channel closes after terminal delivery")
}

func TestTracker_WatchUnknownOperation(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	ch := tr.Watch(uuid.New())
	_, open := <-ch
	assert.False(t, open)
}

func TestTracker_WatchTerminalOperation(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Fail(id, "quota_exceeded")

	ch := tr.Watch(id)
	transition, open := <-ch
	require.True(t, open)
	assert.Equal(t, StateFailed, transition.State)
	assert.Equal(t, "quota_exceeded", transition.Detail)

	_, open = <-ch
	assert.False(t, open)
}

func TestTracker_TerminalStateIsFinal(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Succeed(id)

	tr.Fail(id, "late failure")

	state, _ := tr.State(id)
	assert.Equal(t, StateSucceeded, state.State, "second terminal transition dropped")
}

func TestTracker_BackwardTransitionDropped(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Admit(id)
	tr.Run(id, 1)

	tr.Admit(id)

	state, _ := tr.State(id)
	assert.Equal(t, StateRunning, state.State)
}

func TestTracker_CancelIsCooperative(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Run(id, 1)

	assert.False(t, tr.CancelRequested(id))
	tr.Cancel(id)
	assert.True(t, tr.CancelRequested(id))

	// The flag alone changes no state; the writer applies the terminal.
	state, _ := tr.State(id)
	assert.Equal(t, StateRunning, state.State)

	tr.MarkCancelled(id)
	state, _ = tr.State(id)
	assert.Equal(t, StateCancelled, state.State)
}

func TestTracker_CancelAfterTerminalIsNoop(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Succeed(id)

	tr.Cancel(id)
	assert.False(t, tr.CancelRequested(id))
}

func TestTracker_Ack(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	live := uuid.New()
	tr.Begin(live, "basic")

	done := uuid.New()
	tr.Begin(done, "basic")
	tr.Succeed(done)

	tr.Ack(live)
	_, ok := tr.State(live)
	assert.True(t, ok, "live operations survive Ack")

	tr.Ack(done)
	_, ok = tr.State(done)
	assert.False(t, ok, "terminal records released on Ack")
}

func TestTracker_SweepReleasesExpiredRecords(t *testing.T) {
	tr := NewTracker(WithRetention(time.Minute))
	defer tr.Close()

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	current := base
	tr.now = func() time.Time { return current }

	expired := uuid.New()
	tr.Begin(expired, "basic")
	tr.Succeed(expired)

	current = base.Add(30 * time.Second)
	fresh := uuid.New()
	tr.Begin(fresh, "basic")
	tr.Succeed(fresh)

	live := uuid.New()
	tr.Begin(live, "basic")

	current = base.Add(90 * time.Second)
	tr.sweep()

	_, ok := tr.State(expired)
	assert.False(t, ok)
	_, ok = tr.State(fresh)
	assert.True(t, ok, "within retention window")
	_, ok = tr.State(live)
	assert.True(t, ok, "live operations are never swept")
}

func TestTracker_DuplicateBeginIgnored(t *testing.T) {
	tr := NewTracker()
	defer tr.Close()

	id := uuid.New()
	tr.Begin(id, "basic")
	tr.Run(id, 1)
	tr.Begin(id, "basic")

	state, _ := tr.State(id)
	assert.Equal(t, StateRunning, state.State)
}

func TestEstimatedDuration(t *testing.T) {
	assert.Equal(t, 8*time.Second, EstimatedDuration("1K"))
	assert.Equal(t, 12*time.Second, EstimatedDuration("2K"))
	assert.Equal(t, 18*time.Second, EstimatedDuration("4K"))
	assert.Equal(t, 10*time.Second, EstimatedDuration("unknown"))
}
