package engines

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// REFLECTION ENGINE
// =============================================================================

// Reflection is the slowest engine, three orders of magnitude behind the
// safety reflex. It subscribes to nothing: every tick is an idle tick, and
// every tick it reads the mood and the recent stream and leaves one line of
// inner commentary behind, with a small curiosity nudge so a long-quiet
// system slowly drifts toward wanting something to happen.
type Reflection struct {
	engine.Base
}

// NewReflection builds the reflection engine at its 30s cadence.
func NewReflection() *Reflection {
	return &Reflection{
		// An empty, non-nil subscription list: no signal ever matches, so
		// the inbox stays empty and OnIdle carries the whole behavior.
		Base: engine.NewBase("reflection", types.ZoneEmotion, 30*time.Second, []types.SignalType{}),
	}
}

func (e *Reflection) OnIdle(sv *engine.Services) {
	snap := sv.State.Get()
	stream := sv.State.GetStream()

	text := e.reflect(snap, stream)
	sv.State.PushStream(selfstate.StreamEntry{
		Text:   text,
		Source: e.ID(),
		Flavor: "reflection",
	})
	sv.State.Nudge(types.DimCuriosity, 0.01)
}

// reflect composes one line of inner commentary.
func (e *Reflection) reflect(snap *selfstate.Snapshot, stream []selfstate.StreamEntry) string {
	recent := 0
	cutoff := time.Now().Add(-time.Minute)
	for i := len(stream) - 1; i >= 0; i-- {
		if stream[i].Timestamp.Before(cutoff) {
			break
		}
		recent++
	}

	switch {
	case recent == 0 && snap.Social < 0.4:
		return "it's been quiet for a while; I notice I miss the company"
	case snap.Valence > 0.3:
		return "this has been a good stretch"
	case snap.Valence < -0.3:
		return "something is still weighing on me"
	case snap.Energy < 0.3:
		return "I'm running low; everything feels slower"
	case snap.Curiosity > 0.7:
		return "my mind keeps wandering to new things"
	default:
		return "just here, steady"
	}
}
