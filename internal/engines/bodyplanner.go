package engines

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// BODY PLANNER ENGINE
// =============================================================================

// BodyPlanner maps finished thoughts and strong drives onto abstract body
// intents. It keeps the last received capability manifest and plans only
// within it, so an intent reaching the bridge is normally dispatchable; the
// bridge's own capability check is the backstop, not the primary filter.
type BodyPlanner struct {
	engine.Base

	manifest  types.CapabilityManifest
	connected bool
}

// NewBodyPlanner builds the body planner at its 200ms cadence.
func NewBodyPlanner() *BodyPlanner {
	return &BodyPlanner{
		Base: engine.NewBase("bodyplanner", types.ZoneBody, 200*time.Millisecond,
			[]types.SignalType{
				types.SignalThoughtResult,
				types.SignalDrivePulse,
				types.SignalBodyFeedback,
				types.SignalBodyCapability,
			}),
	}
}

func (e *BodyPlanner) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	for _, s := range batch {
		switch s.Type {
		case types.SignalBodyCapability:
			if p, ok := types.PayloadAs[types.BodyCapability](s); ok {
				e.manifest = p.Manifest
				e.connected = true
				logging.Engine("bodyplanner: manifest from %s with %d capabilities",
					p.Manifest.BodyID, len(p.Manifest.Capabilities))
			}
		case types.SignalThoughtResult:
			if p, ok := types.PayloadAs[types.ThoughtResult](s); ok {
				e.planUtterance(sv, p)
			}
		case types.SignalDrivePulse:
			if p, ok := types.PayloadAs[types.DrivePulse](s); ok {
				e.planDrive(sv, p)
			}
		case types.SignalBodyFeedback:
			if p, ok := types.PayloadAs[types.BodyFeedback](s); ok {
				e.onFeedback(sv, p)
			}
		}
	}
	return nil
}

// planUtterance embodies a reply: speak it, with a matching expression when
// the body has a face.
func (e *BodyPlanner) planUtterance(sv *engine.Services, res types.ThoughtResult) {
	if !e.connected {
		return
	}
	speak := types.BodyIntent{Kind: types.IntentSpeak, Params: map[string]string{"text": res.Text}}
	if !e.manifest.Supports(speak) {
		return
	}

	intent := speak
	express := types.BodyIntent{Kind: types.IntentExpress, Params: map[string]string{"expression": expressionFor(sv.State.Get())}}
	if e.manifest.Supports(express) {
		intent = types.BodyIntent{
			Kind:     types.IntentComposite,
			Mode:     types.CompositeParallel,
			Children: []types.BodyIntent{speak, express},
		}
	}
	e.emitIntent(sv, intent)
}

// planDrive turns a strong drive into a visible behavior.
func (e *BodyPlanner) planDrive(sv *engine.Services, pulse types.DrivePulse) {
	if !e.connected || pulse.Intensity < 0.6 {
		return
	}
	var intent types.BodyIntent
	switch pulse.Drive {
	case selfstate.DriveExplore:
		intent = types.BodyIntent{Kind: types.IntentLook, Params: map[string]string{"direction": "around"}}
	case selfstate.DriveRest:
		intent = types.BodyIntent{Kind: types.IntentExpress, Params: map[string]string{"expression": "drowsy"}}
	case selfstate.DriveSettle:
		intent = types.BodyIntent{Kind: types.IntentExpress, Params: map[string]string{"expression": "slow-breath"}}
	case selfstate.DriveConnect:
		intent = types.BodyIntent{Kind: types.IntentGesture, Params: map[string]string{"name": "beckon"}}
	default:
		return
	}
	if !e.manifest.Supports(intent) {
		return
	}
	e.emitIntent(sv, intent)
}

func (e *BodyPlanner) emitIntent(sv *engine.Services, intent types.BodyIntent) {
	sv.Emit(types.Signal{
		Type:    types.SignalBodyIntent,
		Source:  e.ID(),
		Payload: intent,
	})
}

// onFeedback records task outcomes in the stream; failures also cost a little
// confidence, routed through the bus like every other shift.
func (e *BodyPlanner) onFeedback(sv *engine.Services, fb types.BodyFeedback) {
	if !fb.Status.Terminal() {
		return
	}
	entry := selfstate.StreamEntry{Source: e.ID(), Flavor: "body"}
	switch fb.Status {
	case types.TaskCompleted:
		entry.Text = "my body did what I asked"
	case types.TaskFailed:
		entry.Text = "my body couldn't do it: " + fb.Reason
		sv.Emit(types.Signal{
			Type:    types.SignalEmotionShift,
			Source:  e.ID(),
			Payload: types.EmotionShift{Deltas: map[types.Dimension]float64{types.DimConfidence: -0.02}, Reason: "body task failed"},
		})
	case types.TaskAborted:
		entry.Text = "the movement was cut short"
	}
	sv.State.PushStream(entry)
}

// expressionFor picks a facial expression label from the mood vector.
func expressionFor(snap *selfstate.Snapshot) string {
	switch {
	case snap.Valence > 0.3:
		return "smile"
	case snap.Valence < -0.3:
		return "downcast"
	case snap.Arousal > 0.7:
		return "alert"
	default:
		return "neutral"
	}
}
