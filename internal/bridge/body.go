package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/bus"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// BODY BRIDGE
// =============================================================================

// BodyClient is the actuator HAL boundary. Manifest reports what the
// connected body can do (ok=false when no body is connected). Dispatch blocks
// until the task reaches a terminal status, reporting intermediate feedback
// through progress.
type BodyClient interface {
	Manifest() (types.CapabilityManifest, bool)
	Dispatch(ctx context.Context, intent types.BodyIntent, progress func(types.BodyFeedback)) (types.BodyFeedback, error)
}

// BodyConfig tunes the bridge.
type BodyConfig struct {
	Timeout time.Duration
}

// DefaultBodyConfig returns the house defaults.
func DefaultBodyConfig() BodyConfig {
	return BodyConfig{Timeout: 60 * time.Second}
}

// BodyBridge turns body-intent signals into HAL dispatches and re-injects
// feedback. Missing capabilities degrade gracefully: a local "can't do that"
// note and a small confidence penalty, never a thrown error.
type BodyBridge struct {
	cfg    BodyConfig
	bus    *bus.Bus
	client BodyClient

	subID string
	busy  atomic.Bool
	alive atomic.Bool
	wg    sync.WaitGroup
}

// NewBodyBridge subscribes the bridge to the bus.
func NewBodyBridge(b *bus.Bus, client BodyClient, cfg BodyConfig) *BodyBridge {
	if cfg.Timeout <= 0 {
		cfg = DefaultBodyConfig()
	}
	br := &BodyBridge{cfg: cfg, bus: b, client: client}
	br.alive.Store(true)
	br.subID = b.Subscribe("body-bridge", []types.SignalType{types.SignalBodyIntent}, br.onIntent)
	return br
}

// PublishCapabilities re-broadcasts the current manifest, if a body is
// connected. Called at wiring time and whenever the host reconnects.
func (br *BodyBridge) PublishCapabilities() {
	manifest, ok := br.client.Manifest()
	if !ok {
		return
	}
	br.bus.Emit(types.Signal{
		Type:    types.SignalBodyCapability,
		Source:  "body-bridge",
		Payload: types.BodyCapability{Manifest: manifest},
	})
}

func (br *BodyBridge) onIntent(s *types.Signal) {
	intent, ok := types.PayloadAs[types.BodyIntent](s)
	if !ok {
		return
	}

	manifest, connected := br.client.Manifest()
	if !connected {
		// Degraded immediately: downstream always receives something.
		br.emitFeedback(types.BodyFeedback{Status: types.TaskFailed, Reason: "no body connected"}, s.Source)
		return
	}
	if !manifest.Supports(intent) {
		logging.Bridge("body-bridge: capability %s missing, degrading", intent.Kind)
		br.bus.Emit(types.Signal{
			Type:    types.SignalSystemNote,
			Source:  "body-bridge",
			Payload: types.SystemNote{Text: "I wanted to " + string(intent.Kind) + ", but this body can't do that."},
		})
		br.bus.Emit(types.Signal{
			Type:    types.SignalEmotionShift,
			Source:  "body-bridge",
			Payload: types.EmotionShift{Deltas: map[types.Dimension]float64{types.DimConfidence: -0.05}, Reason: "missing capability"},
		})
		br.emitFeedback(types.BodyFeedback{Status: types.TaskFailed, Reason: "capability not supported: " + string(intent.Kind)}, s.Source)
		return
	}

	if !br.busy.CompareAndSwap(false, true) {
		logging.Bridge("body-bridge: busy, dropped %s intent from %s", intent.Kind, s.Source)
		return
	}

	source := s.Source
	br.wg.Add(1)
	go func() {
		defer br.wg.Done()
		defer br.busy.Store(false)
		br.dispatch(intent, source)
	}()
}

func (br *BodyBridge) dispatch(intent types.BodyIntent, source string) {
	ctx, cancel := context.WithTimeout(context.Background(), br.cfg.Timeout)
	defer cancel()

	final, err := br.client.Dispatch(ctx, intent, func(fb types.BodyFeedback) {
		br.emitFeedback(fb, source)
	})
	if err != nil {
		final = types.BodyFeedback{Status: types.TaskFailed, Reason: err.Error()}
	}
	br.emitFeedback(final, source)
}

func (br *BodyBridge) emitFeedback(fb types.BodyFeedback, target string) {
	if !br.alive.Load() {
		return
	}
	br.bus.Emit(types.Signal{
		Type:    types.SignalBodyFeedback,
		Source:  "body-bridge",
		Target:  []string{target},
		Payload: fb,
	})
}

// Destroy unsubscribes the bridge; an in-flight dispatch finishes against a
// dead letter box.
func (br *BodyBridge) Destroy() {
	br.alive.Store(false)
	br.bus.Unsubscribe(br.subID)
	br.wg.Wait()
}
