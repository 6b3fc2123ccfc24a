package bridge

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usoramara/alive-intelligence-v3/internal/bus"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// stubBody is a controllable BodyClient.
type stubBody struct {
	connected  bool
	caps       []types.IntentKind
	dispatches atomic.Int32
	release    chan struct{}
	final      types.BodyFeedback
	progress   []types.BodyFeedback
}

func (s *stubBody) Manifest() (types.CapabilityManifest, bool) {
	return types.CapabilityManifest{BodyID: "stub", Capabilities: s.caps}, s.connected
}

func (s *stubBody) Dispatch(ctx context.Context, _ types.BodyIntent, progress func(types.BodyFeedback)) (types.BodyFeedback, error) {
	s.dispatches.Add(1)
	for _, p := range s.progress {
		progress(p)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return s.final, nil
}

func bodyIntent(kind types.IntentKind) types.Signal {
	return types.Signal{
		Type:    types.SignalBodyIntent,
		Source:  "bodyplanner",
		Payload: types.BodyIntent{Kind: kind},
	}
}

func collectFeedback(b *bus.Bus) *[]types.BodyFeedback {
	var got []types.BodyFeedback
	b.Subscribe("bodyplanner", []types.SignalType{types.SignalBodyFeedback}, func(s *types.Signal) {
		if p, ok := types.PayloadAs[types.BodyFeedback](s); ok {
			got = append(got, p)
		}
	})
	return &got
}

func TestBodyBridgeDegradesWhenNoBodyConnected(t *testing.T) {
	b := bus.New(bus.DefaultConfig())
	stub := &stubBody{connected: false}
	br := NewBodyBridge(b, stub, DefaultBodyConfig())
	defer br.Destroy()
	got := collectFeedback(b)

	b.Emit(bodyIntent(types.IntentSpeak))
	b.Flush() // intent delivered, degraded feedback queued
	b.Flush() // feedback delivered

	require.Len(t, *got, 1)
	assert.Equal(t, types.TaskFailed, (*got)[0].Status)
	assert.Equal(t, "no body connected", (*got)[0].Reason)
	assert.Zero(t, stub.dispatches.Load(), "no external call on the degraded path")
}

func TestBodyBridgeDegradesOnMissingCapability(t *testing.T) {
	b := bus.New(bus.DefaultConfig())
	stub := &stubBody{connected: true, caps: []types.IntentKind{types.IntentSpeak}}
	br := NewBodyBridge(b, stub, DefaultBodyConfig())
	defer br.Destroy()
	got := collectFeedback(b)

	var notes []string
	var shifts []types.EmotionShift
	b.Subscribe("observer", []types.SignalType{types.SignalSystemNote, types.SignalEmotionShift}, func(s *types.Signal) {
		if p, ok := types.PayloadAs[types.SystemNote](s); ok {
			notes = append(notes, p.Text)
		}
		if p, ok := types.PayloadAs[types.EmotionShift](s); ok {
			shifts = append(shifts, p)
		}
	})

	b.Emit(bodyIntent(types.IntentGrasp))
	b.Flush()
	b.Flush()

	require.Len(t, *got, 1)
	assert.Equal(t, types.TaskFailed, (*got)[0].Status)
	assert.Contains(t, (*got)[0].Reason, "grasp")
	require.Len(t, notes, 1, "local acknowledgment for the impossible intent")
	assert.Contains(t, notes[0], "can't do that")
	require.Len(t, shifts, 1, "small confidence penalty")
	assert.Equal(t, -0.05, shifts[0].Deltas[types.DimConfidence])
	assert.Zero(t, stub.dispatches.Load())
}

func TestBodyBridgeCompositeCapabilityCheck(t *testing.T) {
	b := bus.New(bus.DefaultConfig())
	stub := &stubBody{connected: true, caps: []types.IntentKind{types.IntentSpeak, types.IntentExpress}}
	br := NewBodyBridge(b, stub, DefaultBodyConfig())
	defer br.Destroy()
	got := collectFeedback(b)

	composite := types.Signal{
		Type:   types.SignalBodyIntent,
		Source: "bodyplanner",
		Payload: types.BodyIntent{
			Kind: types.IntentComposite,
			Mode: types.CompositeSequential,
			Children: []types.BodyIntent{
				{Kind: types.IntentSpeak},
				{Kind: types.IntentMove}, // unsupported child fails the whole composite
			},
		},
	}
	b.Emit(composite)
	b.Flush()
	b.Flush()

	require.Len(t, *got, 1)
	assert.Equal(t, types.TaskFailed, (*got)[0].Status)
	assert.Zero(t, stub.dispatches.Load())
}

func TestBodyBridgeSingleFlight(t *testing.T) {
	b := bus.New(bus.DefaultConfig())
	stub := &stubBody{
		connected: true,
		caps:      []types.IntentKind{types.IntentSpeak, types.IntentGesture},
		release:   make(chan struct{}),
		final:     types.BodyFeedback{Status: types.TaskCompleted},
	}
	br := NewBodyBridge(b, stub, DefaultBodyConfig())
	defer br.Destroy()
	got := collectFeedback(b)

	b.Emit(bodyIntent(types.IntentSpeak))
	b.Emit(bodyIntent(types.IntentGesture))
	b.Flush()

	close(stub.release)
	require.Eventually(t, func() bool {
		b.Flush()
		return len(*got) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), stub.dispatches.Load(), "second in-flight intent is dropped")
	assert.Equal(t, types.TaskCompleted, (*got)[0].Status)
}

func TestBodyBridgeRelaysProgressThenTerminal(t *testing.T) {
	b := bus.New(bus.DefaultConfig())
	stub := &stubBody{
		connected: true,
		caps:      []types.IntentKind{types.IntentGesture},
		progress: []types.BodyFeedback{
			{TaskID: "t1", Status: types.TaskPlanning},
			{TaskID: "t1", Status: types.TaskExecuting},
		},
		final: types.BodyFeedback{TaskID: "t1", Status: types.TaskCompleted},
	}
	br := NewBodyBridge(b, stub, DefaultBodyConfig())
	defer br.Destroy()
	got := collectFeedback(b)

	b.Emit(bodyIntent(types.IntentGesture))
	b.Flush()

	require.Eventually(t, func() bool {
		b.Flush()
		return len(*got) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	statuses := []types.TaskStatus{(*got)[0].Status, (*got)[1].Status, (*got)[2].Status}
	assert.Equal(t, []types.TaskStatus{types.TaskPlanning, types.TaskExecuting, types.TaskCompleted}, statuses)
}

func TestTaskStatusStateMachine(t *testing.T) {
	assert.True(t, types.TaskPending.CanTransition(types.TaskPlanning))
	assert.True(t, types.TaskPlanning.CanTransition(types.TaskExecuting))
	assert.True(t, types.TaskExecuting.CanTransition(types.TaskCompleted))
	assert.False(t, types.TaskPending.CanTransition(types.TaskExecuting), "planning cannot be skipped")
	assert.False(t, types.TaskCompleted.CanTransition(types.TaskExecuting), "terminal states are final")
	assert.True(t, types.TaskAborted.Terminal())
}
