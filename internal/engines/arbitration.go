package engines

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// ARBITRATION ENGINE
// =============================================================================

// contextLines bounds the conversation window carried on a thought request.
const contextLines = 12

// Arbitration is the integrator: it accumulates conversation, recalled
// memories and drive pressure, decides when a real thought is warranted, and
// issues the thought-request. When the (targeted) result comes back it applies
// the result's emotion shift and re-broadcasts the result so the speech and
// body planner engines can act on it.
type Arbitration struct {
	engine.Base

	context  []string // recent conversation lines, oldest first
	recalled []types.MemoryRecord
	style    string // response style hint from the strongest recent drive
}

// NewArbitration builds the arbitration engine at its 250ms cadence.
func NewArbitration() *Arbitration {
	return &Arbitration{
		Base: engine.NewBase("arbitration", types.ZoneIntegration, 250*time.Millisecond,
			[]types.SignalType{
				types.SignalTextInput,
				types.SignalThoughtResult,
				types.SignalEmotionShift,
				types.SignalMemoryRecall,
				types.SignalDrivePulse,
			}),
	}
}

func (e *Arbitration) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	var pendingInput string
	for _, s := range batch {
		switch s.Type {
		case types.SignalTextInput:
			if p, ok := types.PayloadAs[types.TextInput](s); ok {
				e.remember(p.Speaker + ": " + p.Text)
				pendingInput = p.Text
			}
		case types.SignalThoughtResult:
			// Skip our own re-broadcast; only the bridge's targeted
			// original gets integrated.
			if s.Source == e.ID() {
				continue
			}
			if p, ok := types.PayloadAs[types.ThoughtResult](s); ok {
				e.onResult(sv, p)
			}
		case types.SignalEmotionShift:
			// Strong shifts become conversation context, so the next
			// thought request knows what just moved the mood.
			if p, ok := types.PayloadAs[types.EmotionShift](s); ok && p.Reason != "" {
				if v := p.Deltas[types.DimValence]; v >= 0.05 || v <= -0.05 {
					e.remember("(felt: " + p.Reason + ")")
				}
			}
		case types.SignalMemoryRecall:
			if p, ok := types.PayloadAs[types.MemoryRecall](s); ok && len(p.Records) > 0 {
				e.recalled = p.Records
			}
		case types.SignalDrivePulse:
			if p, ok := types.PayloadAs[types.DrivePulse](s); ok {
				e.style = styleForDrive(p.Drive)
			}
		}
	}

	if pendingInput != "" {
		e.request(sv, pendingInput)
	}
	return nil
}

// request fires the memory query for next time and the thought request for
// this input. Recall is deliberately one tick stale: the request goes out
// with whatever the keeper answered last.
func (e *Arbitration) request(sv *engine.Services, input string) {
	sv.Emit(types.Signal{
		Type:    types.SignalMemoryRecall,
		Source:  e.ID(),
		Target:  []string{"memorykeeper"},
		Payload: types.MemoryRecall{Query: input},
	})
	sv.Emit(types.Signal{
		Type:     types.SignalThoughtRequest,
		Source:   e.ID(),
		Priority: types.PriorityHigh,
		Payload: types.ThoughtRequest{
			Content:       input,
			Context:       append([]string(nil), e.context...),
			SelfState:     sv.State.Get().Map(),
			Memories:      e.recalled,
			ResponseStyle: e.style,
		},
	})
	logging.Engine("arbitration: thought requested (%d context lines, %d memories)", len(e.context), len(e.recalled))
}

// onResult applies the result's shift and re-broadcasts it untargeted.
func (e *Arbitration) onResult(sv *engine.Services, res types.ThoughtResult) {
	if len(res.Shift) > 0 {
		sv.State.ApplyShift(res.Shift)
	}
	e.remember("self: " + res.Text)
	sv.Emit(types.Signal{
		Type:    types.SignalThoughtResult,
		Source:  e.ID(),
		Payload: res,
	})
}

func (e *Arbitration) remember(line string) {
	e.context = append(e.context, line)
	if over := len(e.context) - contextLines; over > 0 {
		e.context = e.context[over:]
	}
}

// OnIdle lets drive pressure start a conversation turn of its own: a strong
// unmet drive with nobody talking becomes a self-initiated thought.
func (e *Arbitration) OnIdle(sv *engine.Services) {
	snap := sv.State.Get()
	if snap.Curiosity > 0.9 && e.style == styleForDrive(selfstate.DriveExplore) {
		e.style = "" // one self-prompt per drive episode
		e.request(sv, "(a quiet moment; something I've been wondering about)")
	}
}

func styleForDrive(drive string) string {
	switch drive {
	case selfstate.DriveRest:
		return "tired, brief"
	case selfstate.DriveExplore:
		return "curious, playful"
	case selfstate.DriveConnect:
		return "warm, seeking contact"
	case selfstate.DriveSettle:
		return "measured, calming"
	case selfstate.DriveComfort:
		return "soft, self-soothing"
	case selfstate.DriveReassure:
		return "hesitant, careful"
	}
	return ""
}
