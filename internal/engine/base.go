package engine

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// BASE ENGINE
// =============================================================================

// Base carries the fixed identity triple and the self-reported status shared
// by every concrete engine. Embed it and override Process and/or OnIdle.
type Base struct {
	EngineID   string
	EngineZone types.Zone
	Interval   time.Duration
	Kinds      []types.SignalType // nil = all

	status types.EngineStatus
	debug  string
}

// NewBase builds the common engine core.
func NewBase(id string, zone types.Zone, interval time.Duration, kinds []types.SignalType) Base {
	return Base{
		EngineID:   id,
		EngineZone: zone,
		Interval:   interval,
		Kinds:      kinds,
		status:     types.StatusIdle,
	}
}

func (b *Base) ID() string                        { return b.EngineID }
func (b *Base) Zone() types.Zone                  { return b.EngineZone }
func (b *Base) TickInterval() time.Duration       { return b.Interval }
func (b *Base) Subscriptions() []types.SignalType { return b.Kinds }

// SetStatus records the engine's self-reported status. Observational only;
// the scheduler never interprets it.
func (b *Base) SetStatus(s types.EngineStatus, debug string) {
	b.status = s
	b.debug = debug
}

// Status returns the current self-reported status.
func (b *Base) Status() (types.EngineStatus, string) {
	return b.status, b.debug
}

// Process defaults to dropping the batch. Concrete engines override it.
func (b *Base) Process(*Services, []*types.Signal) error { return nil }

// OnIdle defaults to a no-op.
func (b *Base) OnIdle(*Services) {}

// Destroy defaults to a no-op; engines holding resources override it.
func (b *Base) Destroy() {}
