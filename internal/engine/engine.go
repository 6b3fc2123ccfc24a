// Package engine defines the schedulable unit contract: an id/zone/interval
// triple, a subscription list, and the Process/OnIdle pair the scheduler
// invokes. Engines never call each other; everything flows through the bus.
package engine

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// ENGINE CONTRACT
// =============================================================================

// Services is what the scheduler hands an engine each tick: the only two
// capabilities an engine has are emitting signals and touching the shared
// self-state through its bounded mutators.
type Services struct {
	Emit  func(types.Signal) *types.Signal
	State *selfstate.Store
}

// Engine is one independently ticked cognitive unit.
type Engine interface {
	// ID is the stable engine id used for signal targeting.
	ID() string

	// Zone is the coarse architectural grouping, for observability only.
	Zone() types.Zone

	// TickInterval is the engine's cadence. The scheduler supports spreads
	// from ~16ms reflexes to ~30s reflection without per-engine timers.
	TickInterval() time.Duration

	// Subscriptions lists the signal types routed to this engine's inbox.
	// nil means every type.
	Subscriptions() []types.SignalType

	// Process handles the batch swapped out of the inbox at tick time.
	// A returned error marks the engine status error for this tick; it is
	// ticked again on schedule regardless.
	Process(sv *Services, batch []*types.Signal) error

	// OnIdle runs when the engine is ticked with an empty inbox.
	OnIdle(sv *Services)

	// Status is the engine's self-reported status and debug string.
	Status() (types.EngineStatus, string)

	// Destroy releases engine-owned resources. Called once by the loop.
	Destroy()
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only projection of one engine, rebuilt by the scheduler
// on demand. Engines never see or mutate it.
type Snapshot struct {
	ID         string             `json:"id"`
	Zone       types.Zone         `json:"zone"`
	Status     types.EngineStatus `json:"status"`
	Debug      string             `json:"debug,omitempty"`
	LastTick   time.Time          `json:"last_tick"`
	Ticks      uint64             `json:"ticks"`
	Processed  uint64             `json:"processed"`
	InboxDepth int                `json:"inbox_depth"`
}
