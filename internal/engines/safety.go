package engines

import (
	"strings"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// SAFETY REFLEX ENGINE
// =============================================================================

// safetyTriggers maps trigger words to alert severity.
var safetyTriggers = map[string]float64{
	"emergency": 1.0,
	"fire":      0.9,
	"help":      0.7,
	"hurt":      0.7,
	"danger":    0.8,
	"stop":      0.5,
}

// Safety is the fastest engine in the system, ticking at frame rate so a
// trigger word is never more than one frame away from an alert. It watches
// all bus traffic but only text in either direction can trigger it.
type Safety struct {
	engine.Base
}

// NewSafety builds the safety reflex at its 16ms cadence. A nil subscription
// means every signal type.
func NewSafety() *Safety {
	return &Safety{
		Base: engine.NewBase("safety", types.ZoneSensor, 16*time.Millisecond, nil),
	}
}

func (e *Safety) Process(sv *engine.Services, batch []*types.Signal) error {
	for _, s := range batch {
		var text string
		switch s.Type {
		case types.SignalTextInput:
			if p, ok := types.PayloadAs[types.TextInput](s); ok {
				text = p.Text
			}
		case types.SignalTextOutput:
			if p, ok := types.PayloadAs[types.TextOutput](s); ok {
				text = p.Text
			}
		}
		if text == "" {
			continue
		}

		trigger, severity := scan(text)
		if trigger == "" {
			continue
		}
		logging.Engine("safety: trigger %q severity %.2f", trigger, severity)
		sv.Emit(types.Signal{
			Type:     types.SignalSafetyAlert,
			Source:   e.ID(),
			Priority: types.PriorityCritical,
			Payload:  types.SafetyAlert{Trigger: trigger, Severity: severity},
		})
		// Reflexive startle, proportional to severity.
		sv.State.Nudge(types.DimArousal, 0.2*severity)
		sv.State.Nudge(types.DimValence, -0.1*severity)
	}
	return nil
}

// scan returns the highest-severity trigger present in the text.
func scan(text string) (string, float64) {
	lower := strings.ToLower(text)
	best, bestSeverity := "", 0.0
	for trigger, severity := range safetyTriggers {
		if severity > bestSeverity && strings.Contains(lower, trigger) {
			best, bestSeverity = trigger, severity
		}
	}
	return best, bestSeverity
}
