// Package engines holds the concrete cognitive engines scheduled by the loop.
// One file per engine. Each engine is a small state machine over its signal
// inbox; cross-engine effects only ever happen through emitted signals or the
// bounded self-state mutators.
package engines

import (
	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/persist"
)

// Standard returns the default engine set in registration order. The persist
// store may be nil; the memory keeper then falls back to its in-process ring.
func Standard(store *persist.Store) []engine.Engine {
	return []engine.Engine{
		NewSafety(),
		NewSensory(),
		NewAppraisal(),
		NewSpeech(),
		NewBodyPlanner(),
		NewArbitration(),
		NewMemoryKeeper(store),
		NewReflection(),
	}
}
