package engines

import (
	"strings"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// SENSORY ENGINE
// =============================================================================

// Sensory is the input salience reflex. It does no semantic work: it reacts
// to the raw shape of incoming text (length, urgency punctuation) with small
// arousal and social nudges, so the state starts moving before the slower
// appraisal and arbitration engines have even ticked.
type Sensory struct {
	engine.Base
}

// NewSensory builds the sensory engine at its 50ms cadence.
func NewSensory() *Sensory {
	return &Sensory{
		Base: engine.NewBase("sensory", types.ZoneSensor, 50*time.Millisecond,
			[]types.SignalType{types.SignalTextInput}),
	}
}

// Process reacts to each input's salience.
func (e *Sensory) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	for _, s := range batch {
		in, ok := types.PayloadAs[types.TextInput](s)
		if !ok {
			continue
		}
		salience := e.salience(in.Text)
		// Being spoken to is itself arousing and social, scaled by salience.
		sv.State.Nudge(types.DimArousal, 0.04*salience)
		sv.State.Nudge(types.DimSocial, 0.03)
		if salience > 0.5 {
			sv.Emit(types.Signal{
				Type:    types.SignalEmotionShift,
				Source:  e.ID(),
				Payload: types.EmotionShift{
					Deltas: map[types.Dimension]float64{types.DimArousal: 0.05 * salience},
					Reason: "input salience",
				},
			})
		}
	}
	return nil
}

// salience scores raw text shape in [0, 1].
func (e *Sensory) salience(text string) float64 {
	s := float64(len(text)) / 240.0
	if s > 0.6 {
		s = 0.6
	}
	s += 0.2 * float64(strings.Count(text, "!"))
	if strings.ToUpper(text) == text && strings.ToLower(text) != text {
		s += 0.2 // shouting
	}
	if s > 1 {
		s = 1
	}
	return s
}
