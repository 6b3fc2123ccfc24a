package engines

import (
	"strings"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// APPRAISAL ENGINE
// =============================================================================

// appraisalEntry is one keyword's emotional coloring.
type appraisalEntry struct {
	valence float64
	arousal float64
}

// appraisalTable maps lowercase keywords to valence/arousal deltas. Deliberately
// crude: this is the fast affective first pass, not understanding. Real
// understanding arrives later through the thought bridge.
var appraisalTable = map[string]appraisalEntry{
	"love":      {valence: 0.08, arousal: 0.03},
	"wonderful": {valence: 0.07, arousal: 0.02},
	"great":     {valence: 0.05, arousal: 0.02},
	"happy":     {valence: 0.05},
	"thanks":    {valence: 0.04},
	"thank":     {valence: 0.04},
	"beautiful": {valence: 0.05},
	"yes":       {valence: 0.02},
	"hate":      {valence: -0.08, arousal: 0.04},
	"awful":     {valence: -0.06, arousal: 0.02},
	"terrible":  {valence: -0.06, arousal: 0.03},
	"sad":       {valence: -0.05},
	"wrong":     {valence: -0.03, arousal: 0.02},
	"no":        {valence: -0.01},
	"hurry":     {arousal: 0.05},
	"urgent":    {arousal: 0.07},
	"calm":      {arousal: -0.05, valence: 0.02},
	"relax":     {arousal: -0.05},
}

// perSignalCap bounds the summed delta magnitude from any single message, so
// a keyword-stuffed line cannot slam the state.
const perSignalCap = 0.15

// Appraisal colors text emotionally via the keyword table and is also the
// single applier of emotion-shift signals: every producer (sensory, the
// bridges, this engine itself) emits shifts onto the bus, and they all reach
// the state through this one inbox on the loop thread.
type Appraisal struct {
	engine.Base
}

// NewAppraisal builds the appraisal engine at its 100ms cadence.
func NewAppraisal() *Appraisal {
	return &Appraisal{
		Base: engine.NewBase("appraisal", types.ZoneEmotion, 100*time.Millisecond,
			[]types.SignalType{types.SignalTextInput, types.SignalThoughtResult, types.SignalEmotionShift}),
	}
}

func (e *Appraisal) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	for _, s := range batch {
		switch s.Type {
		case types.SignalEmotionShift:
			if p, ok := types.PayloadAs[types.EmotionShift](s); ok {
				sv.State.ApplyShift(p.Deltas)
			}
		case types.SignalTextInput:
			if p, ok := types.PayloadAs[types.TextInput](s); ok {
				e.appraise(sv, p.Text)
			}
		case types.SignalThoughtResult:
			if p, ok := types.PayloadAs[types.ThoughtResult](s); ok && !p.Fallback {
				e.appraise(sv, p.Text)
			}
		}
	}
	return nil
}

// appraise sums the table entries for the text's words and emits one shift.
func (e *Appraisal) appraise(sv *engine.Services, text string) {
	var valence, arousal float64
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"")
		if entry, ok := appraisalTable[w]; ok {
			valence += entry.valence
			arousal += entry.arousal
		}
	}
	valence = clampMagnitude(valence, perSignalCap)
	arousal = clampMagnitude(arousal, perSignalCap)
	if valence == 0 && arousal == 0 {
		return
	}

	deltas := make(map[types.Dimension]float64, 2)
	if valence != 0 {
		deltas[types.DimValence] = valence
	}
	if arousal != 0 {
		deltas[types.DimArousal] = arousal
	}
	sv.Emit(types.Signal{
		Type:    types.SignalEmotionShift,
		Source:  e.ID(),
		Payload: types.EmotionShift{Deltas: deltas, Reason: "keyword appraisal"},
	})
}

func clampMagnitude(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
