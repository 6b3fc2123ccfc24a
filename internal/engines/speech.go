package engines

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/bridge"
	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// SPEECH ENGINE
// =============================================================================

// Speech turns integrated thought results into utterances. The bridge already
// strips the emotion trailer, but a fallback or hand-injected result may still
// carry one, so the parser runs again here; a second strip of clean text is a
// no-op.
type Speech struct {
	engine.Base
}

// NewSpeech builds the speech engine at its 100ms cadence.
func NewSpeech() *Speech {
	return &Speech{
		Base: engine.NewBase("speech", types.ZoneIntegration, 100*time.Millisecond,
			[]types.SignalType{types.SignalThoughtResult}),
	}
}

func (e *Speech) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	for _, s := range batch {
		res, ok := types.PayloadAs[types.ThoughtResult](s)
		if !ok {
			continue
		}
		text, shift := bridge.ParseEmotionTrailer(res.Text)
		if text == "" {
			continue
		}
		if len(shift) > 0 {
			// A trailer that survived this far was never applied upstream.
			sv.Emit(types.Signal{
				Type:    types.SignalEmotionShift,
				Source:  e.ID(),
				Payload: types.EmotionShift{Deltas: shift, Reason: "late trailer"},
			})
		}

		flavor := "reply"
		if res.Fallback {
			flavor = "fallback"
		}
		sv.Emit(types.Signal{
			Type:    types.SignalTextOutput,
			Source:  e.ID(),
			Payload: types.TextOutput{Text: text, Flavor: flavor, Fallback: res.Fallback},
		})
		sv.State.PushStream(selfstate.StreamEntry{
			Text:   text,
			Source: e.ID(),
			Flavor: "speech",
		})
	}
	return nil
}
