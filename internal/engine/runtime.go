package engine

import (
	"fmt"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// RUNTIME
// =============================================================================

// Runtime wraps one engine with the plumbing the scheduler needs: the inbox,
// tick bookkeeping, and the panic fence. The inbox is filled from bus
// delivery and swapped at tick time; both happen on the cooperative loop
// thread, so no locking is required by design.
type Runtime struct {
	eng   Engine
	inbox []*types.Signal

	subID     string // bus subscription, owned by the loop
	lastTick  time.Time
	ticks     uint64
	processed uint64
	errStatus bool   // a tick failure overrides self-reported status
	errDebug  string
}

// NewRuntime wraps an engine.
func NewRuntime(e Engine) *Runtime {
	return &Runtime{eng: e}
}

// Engine returns the wrapped engine.
func (r *Runtime) Engine() Engine { return r.eng }

// SetSubscription records the bus subscription id for teardown.
func (r *Runtime) SetSubscription(id string) { r.subID = id }

// Subscription returns the recorded bus subscription id.
func (r *Runtime) Subscription() string { return r.subID }

// Enqueue appends a delivered signal to the inbox.
func (r *Runtime) Enqueue(s *types.Signal) {
	r.inbox = append(r.inbox, s)
}

// Due reports whether the engine's interval has elapsed.
func (r *Runtime) Due(now time.Time) bool {
	return now.Sub(r.lastTick) >= r.eng.TickInterval()
}

// Tick atomically swaps the inbox and runs Process (non-empty) or OnIdle
// (empty). Panics and returned errors are contained here: the engine is
// marked error with a debug string and the frame continues.
func (r *Runtime) Tick(sv *Services, now time.Time) {
	r.lastTick = now
	r.ticks++
	r.errStatus = false
	r.errDebug = ""

	batch := r.inbox
	r.inbox = nil

	defer func() {
		if rec := recover(); rec != nil {
			r.errStatus = true
			r.errDebug = fmt.Sprintf("panic: %v", rec)
			logging.Get(logging.CategoryEngine).Errorf("engine %s panicked: %v", r.eng.ID(), rec)
		}
	}()

	if len(batch) == 0 {
		r.eng.OnIdle(sv)
		return
	}

	r.processed += uint64(len(batch))
	if err := r.eng.Process(sv, batch); err != nil {
		r.errStatus = true
		r.errDebug = err.Error()
		logging.Get(logging.CategoryEngine).Errorf("engine %s: %v", r.eng.ID(), err)
	}
}

// Snapshot projects the runtime and the engine's self-reported status into a
// read-only view.
func (r *Runtime) Snapshot() Snapshot {
	status, debug := r.eng.Status()
	if r.errStatus {
		status = types.StatusError
		debug = r.errDebug
	}
	return Snapshot{
		ID:         r.eng.ID(),
		Zone:       r.eng.Zone(),
		Status:     status,
		Debug:      debug,
		LastTick:   r.lastTick,
		Ticks:      r.ticks,
		Processed:  r.processed,
		InboxDepth: len(r.inbox),
	}
}
