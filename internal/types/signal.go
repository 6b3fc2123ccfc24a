// Package types holds the shared enums and signal payload shapes used across
// the cognitive core. It is a leaf package: everything imports it, it imports
// nothing of ours, which keeps the bus/engine/loop packages cycle-free.
package types

import (
	"time"
)

// =============================================================================
// SIGNAL TYPES
// =============================================================================

// SignalType tags a signal envelope. The set is closed: every type maps to
// exactly one payload shape (see payload.go).
type SignalType string

const (
	// SignalTextInput carries external user/world text into the system.
	SignalTextInput SignalType = "text-input"

	// SignalTextOutput carries a finished utterance out of the system.
	SignalTextOutput SignalType = "text-output"

	// SignalEmotionShift carries per-dimension deltas for the self-state.
	SignalEmotionShift SignalType = "emotion-shift"

	// SignalThoughtRequest asks the thought bridge for external inference.
	SignalThoughtRequest SignalType = "thought-request"

	// SignalThoughtResult is the bridge's answer (or fallback) to a request.
	SignalThoughtResult SignalType = "thought-result"

	// SignalDrivePulse is a threshold-triggered impulse from the self-state.
	SignalDrivePulse SignalType = "drive-pulse"

	// SignalMemoryStore asks the memory keeper to persist a record.
	SignalMemoryStore SignalType = "memory-store"

	// SignalMemoryRecall carries recalled records back to whoever asked.
	SignalMemoryRecall SignalType = "memory-recall"

	// SignalSafetyAlert is emitted at top priority by the safety reflex.
	SignalSafetyAlert SignalType = "safety-alert"

	// SignalBodyIntent is an abstract physical intent for the body bridge.
	SignalBodyIntent SignalType = "body-intent"

	// SignalBodyFeedback is asynchronous task feedback from the body HAL.
	SignalBodyFeedback SignalType = "body-feedback"

	// SignalBodyCapability re-broadcasts the body's capability manifest.
	SignalBodyCapability SignalType = "body-capability"

	// SignalSystemNote is a low-priority internal annotation.
	SignalSystemNote SignalType = "system-note"
)

// =============================================================================
// PRIORITIES
// =============================================================================

// Signal priorities. Higher is serviced first; equal priorities keep
// emission order. Any int is legal on the wire, these are the house levels.
const (
	PriorityBackground = 10
	PriorityNormal     = 50
	PriorityHigh       = 80
	PriorityCritical   = 100
)

// =============================================================================
// ZONES AND ENGINE STATUS
// =============================================================================

// Zone is a coarse architectural grouping for engines. Zones never affect
// delivery; they exist for observability and visualization.
type Zone string

const (
	ZoneSensor      Zone = "sensor"
	ZoneEmotion     Zone = "emotion"
	ZoneIntegration Zone = "integration"
	ZoneBody        Zone = "body"
)

// EngineStatus is self-reported by engines each tick. The scheduler records
// it in snapshots but never interprets it.
type EngineStatus string

const (
	StatusIdle       EngineStatus = "idle"
	StatusProcessing EngineStatus = "processing"
	StatusWaiting    EngineStatus = "waiting"
	StatusError      EngineStatus = "error"
)

// =============================================================================
// SIGNAL ENVELOPE
// =============================================================================

// Signal is the only inter-engine communication primitive: an immutable typed
// envelope with priority and expiry. Fields are fixed at emit time; only the
// envelope's position in the pending queue ever changes.
type Signal struct {
	ID        uint64        // process-unique, monotonically increasing
	Type      SignalType    // closed enumeration above
	Source    string        // emitting engine id
	Target    []string      // nil = broadcast to every matching subscriber
	Payload   Payload       // shape fixed by Type
	Priority  int           // higher first
	Timestamp time.Time     // assigned at emit
	TTL       time.Duration // discarded unconsumed after this age
}

// Expired reports whether the signal's TTL has elapsed at now.
func (s *Signal) Expired(now time.Time) bool {
	return now.Sub(s.Timestamp) >= s.TTL
}

// TargetedAt reports whether the signal should reach the given engine id.
// A nil target list means broadcast.
func (s *Signal) TargetedAt(engineID string) bool {
	if s.Target == nil {
		return true
	}
	for _, id := range s.Target {
		if id == engineID {
			return true
		}
	}
	return false
}
