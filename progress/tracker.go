// Package progress tracks the lifecycle of in-flight generation operations
// and publishes state transitions to observers. Each operation is owned by
// exactly one writer (the orchestrator); any number of readers may watch it.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is one step in an operation's lifecycle.
type State string

const (
	// StateQueued exists only while the operation waits on quota admission.
	StateQueued State = "queued"

	StateAdmitted State = "admitted"
	StateRunning  State = "running"

	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// rank orders states so transitions can be checked for monotonicity.
// Running repeats once per retry attempt.
func (s State) rank() int {
	switch s {
	case StateQueued:
		return 0
	case StateAdmitted:
		return 1
	case StateRunning:
		return 2
	default:
		return 3
	}
}

// Transition is one observed state change.
type Transition struct {
	State State

	// Attempt is the 1-based backend attempt for Running transitions.
	Attempt int

	// Detail carries the error kind for Failed transitions.
	Detail string

	At time.Time
}

// estimatedDurations holds expected generation times per resolution tier,
// for observers rendering progress against an expected span.
var estimatedDurations = map[string]time.Duration{
	"1K": 8 * time.Second,
	"2K": 12 * time.Second,
	"4K": 18 * time.Second,
}

// EstimatedDuration returns the expected generation time for a resolution
// tier. Unknown tiers get a conservative 10s.
func EstimatedDuration(size string) time.Duration {
	if d, ok := estimatedDurations[size]; ok {
		return d
	}
	return 10 * time.Second
}

type operation struct {
	mode      string
	current   Transition
	cancelled bool
	watchers  []chan Transition
	doneAt    time.Time
}

// Tracker records per-operation state. Records for completed operations are
// released on Ack or swept by a janitor after the retention window.
type Tracker struct {
	mu  sync.Mutex
	ops map[uuid.UUID]*operation

	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRetention sets how long terminal records are kept before the janitor
// discards them.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		t.retention = d
	}
}

// WithLogger sets a structured logger for the tracker.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a Tracker and starts its janitor. Call Close to stop it.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		ops:       make(map[uuid.UUID]*operation),
		retention: 10 * time.Minute,
		logger:    slog.Default(),
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.wg.Add(1)
	go t.janitor()

	return t
}

// Close stops the janitor. Open watch channels on live operations remain
// open until their operations terminate.
func (t *Tracker) Close() {
	close(t.stop)
	t.wg.Wait()
}

// Begin registers a new operation in the Queued state. Mode is carried for
// logging only.
func (t *Tracker) Begin(id uuid.UUID, mode string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ops[id]; exists {
		return
	}
	t.ops[id] = &operation{
		mode:    mode,
		current: Transition{State: StateQueued, At: t.now()},
	}
}

// Admit marks the operation as admitted by the quota ledger.
func (t *Tracker) Admit(id uuid.UUID) {
	t.transition(id, Transition{State: StateAdmitted})
}

// Run marks a backend attempt. Repeated Run calls with increasing attempt
// numbers represent retries.
func (t *Tracker) Run(id uuid.UUID, attempt int) {
	t.transition(id, Transition{State: StateRunning, Attempt: attempt})
}

// Succeed marks the operation's terminal success.
func (t *Tracker) Succeed(id uuid.UUID) {
	t.transition(id, Transition{State: StateSucceeded})
}

// Fail marks the operation's terminal failure. Detail is the error kind.
func (t *Tracker) Fail(id uuid.UUID, detail string) {
	t.transition(id, Transition{State: StateFailed, Detail: detail})
}

// MarkCancelled records the Cancelled terminal state.
func (t *Tracker) MarkCancelled(id uuid.UUID) {
	t.transition(id, Transition{State: StateCancelled})
}

// Cancel requests cooperative cancellation. It cannot interrupt an in-flight
// backend call; the orchestrator checks the flag between attempts. Cancel on
// an operation already in a terminal state is a no-op.
func (t *Tracker) Cancel(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[id]
	if !ok || op.current.State.Terminal() {
		return
	}
	op.cancelled = true
}

// CancelRequested reports whether cancellation has been requested.
func (t *Tracker) CancelRequested(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[id]
	return ok && op.cancelled
}

// State returns the operation's current transition.
func (t *Tracker) State(id uuid.UUID) (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[id]
	if !ok {
		return Transition{}, false
	}
	return op.current, true
}

// Watch returns a channel that delivers the operation's current state
// followed by subsequent transitions, and closes once a terminal state has
// been delivered. A late subscriber receives only the current state, not
// history. Watching an unknown operation returns a closed channel.
func (t *Tracker) Watch(id uuid.UUID) <-chan Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Transition, 16)

	op, ok := t.ops[id]
	if !ok {
		close(ch)
		return ch
	}

	ch <- op.current
	if op.current.State.Terminal() {
		close(ch)
		return ch
	}

	op.watchers = append(op.watchers, ch)
	return ch
}

// Ack releases a terminal operation's record immediately instead of waiting
// for the retention sweep. Acking a live operation is a no-op.
func (t *Tracker) Ack(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[id]
	if !ok || !op.current.State.Terminal() {
		return
	}
	delete(t.ops, id)
}

// transition applies a state change if it is monotonic. Terminal states are
// final: a second terminal transition for the same operation is dropped.
func (t *Tracker) transition(id uuid.UUID, tr Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[id]
	if !ok {
		return
	}
	if op.current.State.Terminal() {
		return
	}
	if tr.State.rank() < op.current.State.rank() {
		t.logger.Warn("dropping backward state transition",
			"operation_id", id.String(),
			"from", string(op.current.State),
			"to", string(tr.State),
		)
		return
	}

	tr.At = t.now()
	op.current = tr

	for _, ch := range op.watchers {
		select {
		case ch <- tr:
		default:
			// Slow observer; drop rather than block the writer.
		}
	}

	if tr.State.Terminal() {
		op.doneAt = tr.At
		for _, ch := range op.watchers {
			close(ch)
		}
		op.watchers = nil

		t.logger.Debug("operation reached terminal state",
			"operation_id", id.String(),
			"mode", op.mode,
			"state", string(tr.State),
			"detail", tr.Detail,
		)
	}
}

// janitor sweeps terminal records older than the retention window.
func (t *Tracker) janitor() {
	defer t.wg.Done()

	interval := t.retention / 2
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

func (t *Tracker) sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)
	for id, op := range t.ops {
		if op.current.State.Terminal() && op.doneAt.Before(cutoff) {
			delete(t.ops, id)
		}
	}
}
