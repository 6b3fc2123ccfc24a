package engines

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/persist"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// quietState builds a store with the passive dynamics disabled, so tests see
// only the effects the engine under test caused.
func quietState() *selfstate.Store {
	cfg := selfstate.DefaultConfig()
	cfg.BaselinePull = 0
	cfg.BreathAmplitude = 0
	cfg.EnergyDepletion = 0
	cfg.DriveInterval = time.Hour
	return selfstate.New(cfg)
}

// testServices captures emitted signals instead of routing them.
func testServices() (*engine.Services, *[]types.Signal) {
	var emitted []types.Signal
	sv := &engine.Services{
		Emit: func(s types.Signal) *types.Signal {
			emitted = append(emitted, s)
			return &s
		},
		State: quietState(),
	}
	return sv, &emitted
}

func signalOf(t *testing.T, payload types.Payload, source string) *types.Signal {
	t.Helper()
	var kind types.SignalType
	switch payload.(type) {
	case types.TextInput:
		kind = types.SignalTextInput
	case types.TextOutput:
		kind = types.SignalTextOutput
	case types.EmotionShift:
		kind = types.SignalEmotionShift
	case types.ThoughtRequest:
		kind = types.SignalThoughtRequest
	case types.ThoughtResult:
		kind = types.SignalThoughtResult
	case types.DrivePulse:
		kind = types.SignalDrivePulse
	case types.MemoryRecall:
		kind = types.SignalMemoryRecall
	case types.BodyCapability:
		kind = types.SignalBodyCapability
	case types.BodyFeedback:
		kind = types.SignalBodyFeedback
	default:
		t.Fatalf("unmapped payload %T", payload)
	}
	return &types.Signal{Type: kind, Source: source, Payload: payload}
}

// ----------------------------------------------------------------------------
// Sensory
// ----------------------------------------------------------------------------

func TestSensoryNudgesArousalAndSocial(t *testing.T) {
	sv, _ := testServices()
	e := NewSensory()

	before := sv.State.Target(types.DimArousal)
	socialBefore := sv.State.Target(types.DimSocial)
	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "hello there", Speaker: "user"}, "input"),
	}))

	assert.Greater(t, sv.State.Target(types.DimArousal), before)
	assert.Greater(t, sv.State.Target(types.DimSocial), socialBefore)
}

func TestSensoryEmitsShiftOnlyForSalientInput(t *testing.T) {
	sv, emitted := testServices()
	e := NewSensory()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "ok"}, "input"),
	}))
	assert.Empty(t, *emitted, "a quiet line is not worth a signal")

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "COME QUICK!!"}, "input"),
	}))
	require.Len(t, *emitted, 1)
	assert.Equal(t, types.SignalEmotionShift, (*emitted)[0].Type)
}

// ----------------------------------------------------------------------------
// Appraisal
// ----------------------------------------------------------------------------

func TestAppraisalColorsTextByKeyword(t *testing.T) {
	sv, emitted := testServices()
	e := NewAppraisal()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "I love this, thanks!"}, "input"),
	}))

	require.Len(t, *emitted, 1)
	shift, ok := types.PayloadAs[types.EmotionShift](&(*emitted)[0])
	require.True(t, ok)
	assert.Greater(t, shift.Deltas[types.DimValence], 0.0)
}

func TestAppraisalCapsStuffedLines(t *testing.T) {
	sv, emitted := testServices()
	e := NewAppraisal()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "love love love love wonderful wonderful great great happy"}, "input"),
	}))

	require.Len(t, *emitted, 1)
	shift, _ := types.PayloadAs[types.EmotionShift](&(*emitted)[0])
	assert.LessOrEqual(t, shift.Deltas[types.DimValence], perSignalCap)
}

func TestAppraisalAppliesIncomingShifts(t *testing.T) {
	sv, _ := testServices()
	e := NewAppraisal()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.EmotionShift{Deltas: map[types.Dimension]float64{types.DimConfidence: -0.05}}, "body-bridge"),
	}))

	assert.InDelta(t, 0.55, sv.State.Target(types.DimConfidence), 1e-9)
}

func TestAppraisalIgnoresFallbackResults(t *testing.T) {
	sv, emitted := testServices()
	e := NewAppraisal()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{Text: "I love quiet moments", Fallback: true}, "arbitration"),
	}))
	assert.Empty(t, *emitted, "canned fallback text carries no real affect")
}

// ----------------------------------------------------------------------------
// Arbitration
// ----------------------------------------------------------------------------

func TestArbitrationRequestsThoughtForInput(t *testing.T) {
	sv, emitted := testServices()
	e := NewArbitration()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "how are you?", Speaker: "user"}, "input"),
	}))

	require.Len(t, *emitted, 2)
	recall := (*emitted)[0]
	assert.Equal(t, types.SignalMemoryRecall, recall.Type)
	assert.Equal(t, []string{"memorykeeper"}, recall.Target)

	request := (*emitted)[1]
	assert.Equal(t, types.SignalThoughtRequest, request.Type)
	assert.Equal(t, types.PriorityHigh, request.Priority)
	req, ok := types.PayloadAs[types.ThoughtRequest](&request)
	require.True(t, ok)
	assert.Equal(t, "how are you?", req.Content)
	assert.Contains(t, req.Context, "user: how are you?")
	assert.Contains(t, req.SelfState, types.DimValence)
}

func TestArbitrationIntegratesTargetedResult(t *testing.T) {
	sv, emitted := testServices()
	e := NewArbitration()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{
			Text:  "doing well",
			Shift: map[types.Dimension]float64{types.DimValence: 0.1},
		}, "thought-bridge"),
	}))

	assert.InDelta(t, 0.1, sv.State.Target(types.DimValence), 1e-9)
	require.Len(t, *emitted, 1)
	assert.Equal(t, types.SignalThoughtResult, (*emitted)[0].Type)
	assert.Nil(t, (*emitted)[0].Target, "re-broadcast is untargeted")
}

func TestArbitrationIgnoresOwnRebroadcast(t *testing.T) {
	sv, emitted := testServices()
	e := NewArbitration()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{
			Text:  "doing well",
			Shift: map[types.Dimension]float64{types.DimValence: 0.1},
		}, e.ID()),
	}))

	assert.Empty(t, *emitted)
	assert.InDelta(t, 0.0, sv.State.Target(types.DimValence), 1e-9, "shift must not apply twice")
}

func TestArbitrationKeepsRecallForNextRequest(t *testing.T) {
	sv, emitted := testServices()
	e := NewArbitration()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.MemoryRecall{
			Query:   "kite",
			Records: []types.MemoryRecord{{ID: "m1", Text: "user: we flew a kite"}},
		}, "memorykeeper"),
	}))
	*emitted = (*emitted)[:0]

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "remember the kite?", Speaker: "user"}, "input"),
	}))
	require.Len(t, *emitted, 2)
	req, _ := types.PayloadAs[types.ThoughtRequest](&(*emitted)[1])
	require.Len(t, req.Memories, 1)
	assert.Equal(t, "m1", req.Memories[0].ID)
}

// ----------------------------------------------------------------------------
// Speech
// ----------------------------------------------------------------------------

func TestSpeechEmitsOutputAndStreamEntry(t *testing.T) {
	sv, emitted := testServices()
	e := NewSpeech()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{Text: "hello back"}, "arbitration"),
	}))

	require.Len(t, *emitted, 1)
	out, ok := types.PayloadAs[types.TextOutput](&(*emitted)[0])
	require.True(t, ok)
	assert.Equal(t, "hello back", out.Text)
	assert.Equal(t, "reply", out.Flavor)

	stream := sv.State.GetStream()
	require.Len(t, stream, 1)
	assert.Equal(t, "hello back", stream[0].Text)
}

func TestSpeechMarksFallbackFlavor(t *testing.T) {
	sv, emitted := testServices()
	e := NewSpeech()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{Text: "give me a moment", Fallback: true}, "arbitration"),
	}))

	out, _ := types.PayloadAs[types.TextOutput](&(*emitted)[0])
	assert.True(t, out.Fallback)
	assert.Equal(t, "fallback", out.Flavor)
}

func TestSpeechStripsLateTrailer(t *testing.T) {
	sv, emitted := testServices()
	e := NewSpeech()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{Text: "fine\n<<emotion {\"valence\":0.05}>>"}, "arbitration"),
	}))

	require.Len(t, *emitted, 2)
	shift, ok := types.PayloadAs[types.EmotionShift](&(*emitted)[0])
	require.True(t, ok)
	assert.Equal(t, 0.05, shift.Deltas[types.DimValence])
	out, _ := types.PayloadAs[types.TextOutput](&(*emitted)[1])
	assert.Equal(t, "fine", out.Text, "trailer never reaches the user")
}

// ----------------------------------------------------------------------------
// Memory keeper
// ----------------------------------------------------------------------------

func TestMemoryKeeperAnswersQueriesFromRing(t *testing.T) {
	sv, emitted := testServices()
	e := NewMemoryKeeper(nil)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "remember that my sister's name is June", Speaker: "user"}, "input"),
	}))
	assert.Empty(t, *emitted)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.MemoryRecall{Query: "sister"}, "arbitration"),
	}))
	require.Len(t, *emitted, 1)
	answer := (*emitted)[0]
	assert.Equal(t, []string{"arbitration"}, answer.Target)
	recall, _ := types.PayloadAs[types.MemoryRecall](&answer)
	require.Len(t, recall.Records, 1)
	assert.Contains(t, recall.Records[0].Text, "June")
}

func TestMemoryKeeperSkipsSmallTalk(t *testing.T) {
	sv, emitted := testServices()
	e := NewMemoryKeeper(nil)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "ok", Speaker: "user"}, "input"),
	}))
	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.MemoryRecall{Query: "ok"}, "arbitration"),
	}))

	recall, _ := types.PayloadAs[types.MemoryRecall](&(*emitted)[0])
	assert.Empty(t, recall.Records)
}

func TestMemoryKeeperWritesThroughToStore(t *testing.T) {
	store, err := persist.Open(":memory:", persist.DefaultConfig())
	require.NoError(t, err)
	defer store.Close()

	sv, emitted := testServices()
	e := NewMemoryKeeper(store)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "promise me you'll always remember the lighthouse", Speaker: "user"}, "input"),
	}))

	n, err := store.MemoryCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.MemoryRecall{Query: "lighthouse"}, "arbitration"),
	}))
	recall, _ := types.PayloadAs[types.MemoryRecall](&(*emitted)[0])
	require.NotEmpty(t, recall.Records)
	assert.Contains(t, recall.Records[0].Text, "lighthouse")
}

// ----------------------------------------------------------------------------
// Safety
// ----------------------------------------------------------------------------

func TestSafetyRaisesCriticalAlert(t *testing.T) {
	sv, emitted := testServices()
	e := NewSafety()

	arousalBefore := sv.State.Target(types.DimArousal)
	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "there's a FIRE in the kitchen"}, "input"),
	}))

	require.Len(t, *emitted, 1)
	assert.Equal(t, types.SignalSafetyAlert, (*emitted)[0].Type)
	assert.Equal(t, types.PriorityCritical, (*emitted)[0].Priority)
	alert, _ := types.PayloadAs[types.SafetyAlert](&(*emitted)[0])
	assert.Equal(t, "fire", alert.Trigger)
	assert.Greater(t, sv.State.Target(types.DimArousal), arousalBefore)
	assert.Less(t, sv.State.Target(types.DimValence), 0.0)
}

func TestSafetyPicksHighestSeverityTrigger(t *testing.T) {
	trigger, severity := scan("help, there's an emergency")
	assert.Equal(t, "emergency", trigger)
	assert.Equal(t, 1.0, severity)
}

func TestSafetyQuietOnOrdinaryText(t *testing.T) {
	sv, emitted := testServices()
	e := NewSafety()
	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextInput{Text: "lovely weather today"}, "input"),
	}))
	assert.Empty(t, *emitted)
}

func TestSafetyWatchesAllTrafficButOnlyTextTriggers(t *testing.T) {
	sv, emitted := testServices()
	e := NewSafety()

	assert.Nil(t, e.Subscriptions(), "the reflex subscribes to every signal type")

	// Non-text traffic flows through without alerts, even when a payload
	// happens to carry a trigger word somewhere inside it.
	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.DrivePulse{Drive: "explore", Intensity: 0.8}, "self-state"),
		signalOf(t, types.ThoughtRequest{Content: "is there danger nearby?"}, "arbitration"),
	}))
	assert.Empty(t, *emitted)

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.TextOutput{Text: "please stop"}, "speech"),
	}))
	require.Len(t, *emitted, 1)
	alert, _ := types.PayloadAs[types.SafetyAlert](&(*emitted)[0])
	assert.Equal(t, "stop", alert.Trigger)
}

// ----------------------------------------------------------------------------
// Body planner
// ----------------------------------------------------------------------------

func capabilitySignal(t *testing.T, kinds ...types.IntentKind) *types.Signal {
	t.Helper()
	return signalOf(t, types.BodyCapability{
		Manifest: types.CapabilityManifest{BodyID: "test-body", Capabilities: kinds},
	}, "body-bridge")
}

func TestBodyPlannerSilentWithoutBody(t *testing.T) {
	sv, emitted := testServices()
	e := NewBodyPlanner()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.ThoughtResult{Text: "hello"}, "arbitration"),
	}))
	assert.Empty(t, *emitted)
}

func TestBodyPlannerEmbodiesUtterance(t *testing.T) {
	sv, emitted := testServices()
	e := NewBodyPlanner()

	require.NoError(t, e.Process(sv, []*types.Signal{
		capabilitySignal(t, types.IntentSpeak, types.IntentExpress, types.IntentComposite),
		signalOf(t, types.ThoughtResult{Text: "hello"}, "arbitration"),
	}))

	require.Len(t, *emitted, 1)
	intent, ok := types.PayloadAs[types.BodyIntent](&(*emitted)[0])
	require.True(t, ok)
	require.Equal(t, types.IntentComposite, intent.Kind)
	require.Len(t, intent.Children, 2)
	assert.Equal(t, types.IntentSpeak, intent.Children[0].Kind)
	assert.Equal(t, types.IntentExpress, intent.Children[1].Kind)
}

func TestBodyPlannerFallsBackToPlainSpeak(t *testing.T) {
	sv, emitted := testServices()
	e := NewBodyPlanner()

	require.NoError(t, e.Process(sv, []*types.Signal{
		capabilitySignal(t, types.IntentSpeak),
		signalOf(t, types.ThoughtResult{Text: "hello"}, "arbitration"),
	}))

	require.Len(t, *emitted, 1)
	intent, _ := types.PayloadAs[types.BodyIntent](&(*emitted)[0])
	assert.Equal(t, types.IntentSpeak, intent.Kind)
}

func TestBodyPlannerActsOnStrongDrives(t *testing.T) {
	sv, emitted := testServices()
	e := NewBodyPlanner()

	require.NoError(t, e.Process(sv, []*types.Signal{
		capabilitySignal(t, types.IntentLook),
		signalOf(t, types.DrivePulse{Drive: selfstate.DriveExplore, Intensity: 0.8}, "self-state"),
		signalOf(t, types.DrivePulse{Drive: selfstate.DriveExplore, Intensity: 0.2}, "self-state"),
	}))

	require.Len(t, *emitted, 1, "weak pulse is ignored")
	intent, _ := types.PayloadAs[types.BodyIntent](&(*emitted)[0])
	assert.Equal(t, types.IntentLook, intent.Kind)
}

func TestBodyPlannerRecordsFailedTasks(t *testing.T) {
	sv, emitted := testServices()
	e := NewBodyPlanner()

	require.NoError(t, e.Process(sv, []*types.Signal{
		signalOf(t, types.BodyFeedback{Status: types.TaskFailed, Reason: "servo stall"}, "body-bridge"),
	}))

	require.Len(t, *emitted, 1)
	shift, _ := types.PayloadAs[types.EmotionShift](&(*emitted)[0])
	assert.Equal(t, -0.02, shift.Deltas[types.DimConfidence])
	stream := sv.State.GetStream()
	require.Len(t, stream, 1)
	assert.Contains(t, stream[0].Text, "servo stall")
}

// ----------------------------------------------------------------------------
// Reflection
// ----------------------------------------------------------------------------

func TestReflectionLeavesInnerCommentary(t *testing.T) {
	sv, _ := testServices()
	e := NewReflection()

	curiosityBefore := sv.State.Target(types.DimCuriosity)
	e.OnIdle(sv)

	stream := sv.State.GetStream()
	require.Len(t, stream, 1)
	assert.Equal(t, "reflection", stream[0].Flavor)
	assert.NotEmpty(t, stream[0].Text)
	assert.Greater(t, sv.State.Target(types.DimCuriosity), curiosityBefore)
}

func TestReflectionSubscribesToNothing(t *testing.T) {
	e := NewReflection()
	subs := e.Subscriptions()
	require.NotNil(t, subs, "nil would mean every signal type")
	assert.Empty(t, subs)
}
