// Package loop implements the cognitive scheduler: one cooperative step per
// frame ticks every due engine, flushes the bus exactly once, advances the
// self-state, evaluates drives, and publishes a coalesced snapshot. All of it
// runs on a single goroutine (the loop thread); bridges inject results back
// through the bus from their own goroutines.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/bus"
	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config tunes the scheduler.
type Config struct {
	NotifyEveryFrames uint64        // force an observer notification at least this often
	PersistEvery      time.Duration // cadence of the periodic state save, 0 = off
}

// DefaultConfig returns the house scheduling defaults.
func DefaultConfig() Config {
	return Config{
		NotifyEveryFrames: 30,
		PersistEvery:      10 * time.Second,
	}
}

// =============================================================================
// SNAPSHOT AND OBSERVERS
// =============================================================================

// Snapshot is the read-only, per-frame projection handed to observers.
type Snapshot struct {
	Frame   uint64              `json:"frame"`
	Engines []engine.Snapshot   `json:"engines"`
	State   *selfstate.Snapshot `json:"state"`
	Recent  []*types.Signal     `json:"recent"`  // delivered this frame
	Pending int                 `json:"pending"` // queue depth after flush
	Dropped uint64              `json:"dropped"` // cumulative TTL expiries
}

// Observer receives coalesced snapshots on the loop thread. It must not
// block; heavy consumers copy and hand off.
type Observer func(*Snapshot)

// PersistFunc saves the self-state snapshot on the slow periodic cadence.
type PersistFunc func(*selfstate.Snapshot) error

// =============================================================================
// LOOP
// =============================================================================

// Loop owns the bus, the self-state store, and the engine registry.
type Loop struct {
	cfg   Config
	bus   *bus.Bus
	state *selfstate.Store
	sv    *engine.Services

	runtimes []*engine.Runtime
	byID     map[string]*engine.Runtime

	observers []Observer
	persist   PersistFunc

	driver    FrameDriver
	cancel    context.CancelFunc
	done      chan struct{}
	destroyed bool

	frame           uint64
	framesSinceNote uint64
	lastPersist     time.Time
}

// New creates a loop over the given bus and state store.
func New(cfg Config, b *bus.Bus, state *selfstate.Store, driver FrameDriver) *Loop {
	if cfg.NotifyEveryFrames == 0 {
		cfg.NotifyEveryFrames = DefaultConfig().NotifyEveryFrames
	}
	l := &Loop{
		cfg:    cfg,
		bus:    b,
		state:  state,
		driver: driver,
		byID:   make(map[string]*engine.Runtime),
	}
	l.sv = &engine.Services{Emit: b.Emit, State: state}
	return l
}

// Register adds an engine and wires its inbox to the bus. Must be called
// before Start; duplicate ids are rejected.
func (l *Loop) Register(e engine.Engine) error {
	if _, exists := l.byID[e.ID()]; exists {
		return fmt.Errorf("engine %q already registered", e.ID())
	}
	rt := engine.NewRuntime(e)
	subID := l.bus.Subscribe(e.ID(), e.Subscriptions(), rt.Enqueue)
	rt.SetSubscription(subID)
	l.runtimes = append(l.runtimes, rt)
	l.byID[e.ID()] = rt
	logging.Loop("registered engine %s (zone=%s interval=%s)", e.ID(), e.Zone(), e.TickInterval())
	return nil
}

// OnSnapshot registers an observer. Must be called before Start.
func (l *Loop) OnSnapshot(o Observer) {
	l.observers = append(l.observers, o)
}

// SetPersist installs the periodic state-save hook. Must be called before
// Start.
func (l *Loop) SetPersist(p PersistFunc) {
	l.persist = p
}

// Step executes one cooperative frame. Exposed so tests (and alternative
// drivers) can drive the loop with a synthetic clock.
func (l *Loop) Step(now time.Time) {
	if l.destroyed {
		return
	}
	l.frame++

	// 1. Tick every due engine. A broken engine must not stop the frame;
	//    the runtime contains panics and errors per engine.
	ticked := 0
	for _, rt := range l.runtimes {
		if rt.Due(now) {
			rt.Tick(l.sv, now)
			ticked++
		}
	}

	// 2. One flush. Signals emitted during this frame's ticks were queued
	//    before this point and go out now; signals emitted by delivery
	//    handlers wait for the next frame (cascade bounding).
	delivered := l.bus.Flush()

	// 3. Advance the self-state.
	stateChanged := l.state.Update(now)

	// 4. Drives: each pulse becomes a signal and a stream entry.
	for _, pulse := range l.state.EvaluateDrives(now) {
		l.bus.Emit(types.Signal{
			Type:     types.SignalDrivePulse,
			Source:   "self-state",
			Payload:  pulse,
			Priority: types.PriorityHigh,
		})
		l.state.PushStream(selfstate.StreamEntry{
			Text:      fmt.Sprintf("I feel the pull to %s", pulse.Drive),
			Source:    "self-state",
			Flavor:    "drive",
			Timestamp: now,
			Intensity: pulse.Intensity,
		})
	}

	// 5. Coalesced notification: observable change this frame, or the
	//    forced-cadence fallback so observers never starve entirely.
	if ticked > 0 || len(delivered) > 0 {
		logging.Loop("frame %d: ticked=%d delivered=%d", l.frame, ticked, len(delivered))
	}

	l.framesSinceNote++
	if stateChanged || len(delivered) > 0 || l.framesSinceNote >= l.cfg.NotifyEveryFrames {
		l.notify(delivered)
		l.framesSinceNote = 0
	}

	// Slow periodic persistence; tolerant of losing the last few seconds.
	if l.persist != nil && l.cfg.PersistEvery > 0 && now.Sub(l.lastPersist) >= l.cfg.PersistEvery {
		l.lastPersist = now
		if err := l.persist(l.state.Get()); err != nil {
			logging.Get(logging.CategoryLoop).Warnf("periodic state save failed: %v", err)
		}
	}
}

func (l *Loop) notify(delivered []*types.Signal) {
	if len(l.observers) == 0 {
		return
	}
	snap := l.buildSnapshot(delivered)
	for _, o := range l.observers {
		o(snap)
	}
}

func (l *Loop) buildSnapshot(delivered []*types.Signal) *Snapshot {
	engines := make([]engine.Snapshot, 0, len(l.runtimes))
	for _, rt := range l.runtimes {
		engines = append(engines, rt.Snapshot())
	}
	return &Snapshot{
		Frame:   l.frame,
		Engines: engines,
		State:   l.state.Get(),
		Recent:  delivered,
		Pending: l.bus.Pending(),
		Dropped: l.bus.Dropped(),
	}
}

// Snapshot rebuilds the current projection on demand (UI pull path).
func (l *Loop) Snapshot() *Snapshot {
	return l.buildSnapshot(nil)
}

// Stream exposes the consciousness stream for read-only consumers.
func (l *Loop) Stream() []selfstate.StreamEntry {
	return l.state.GetStream()
}

// History exposes the bus history ring for read-only consumers.
func (l *Loop) History() []*types.Signal {
	return l.bus.History()
}

// Start begins scheduling frames. No-op when already running or destroyed.
func (l *Loop) Start() {
	if l.cancel != nil || l.destroyed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	logging.Boot("cognitive loop starting with %d engines", len(l.runtimes))
	go func() {
		defer close(l.done)
		l.driver.Run(ctx, l.Step)
	}()
}

// Stop stops scheduling the next frame and waits for the in-flight one.
// The loop can be started again.
func (l *Loop) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil
}

// Destroy stops the loop, destroys every engine, removes their
// subscriptions, and clears the bus. No engine is ticked afterwards.
func (l *Loop) Destroy() {
	l.Stop()
	if l.destroyed {
		return
	}
	l.destroyed = true
	if l.persist != nil {
		if err := l.persist(l.state.Get()); err != nil {
			logging.Get(logging.CategoryLoop).Warnf("final state save failed: %v", err)
		}
	}
	for _, rt := range l.runtimes {
		l.bus.Unsubscribe(rt.Subscription())
		rt.Engine().Destroy()
	}
	l.bus.Clear()
	logging.Boot("cognitive loop destroyed after %d frames", l.frame)
}
