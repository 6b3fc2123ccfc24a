// Package bridge hosts the out-of-loop adapters: ordinary bus subscribers
// that turn a narrow signal type into an asynchronous external call and
// re-inject exactly one result signal. The scheduler holds one bridge per
// kind and destroys it before creating a replacement; nothing here is global.
package bridge

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/bus"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// THOUGHT BRIDGE
// =============================================================================

// InferenceClient is the external text-generation service. Implementations
// return the raw model text, emotion trailer included.
type InferenceClient interface {
	Infer(ctx context.Context, req types.ThoughtRequest) (string, error)
}

// StreamingInferenceClient is optionally implemented by clients that can
// deliver the reply incrementally. The sink receives display-safe chunks with
// the emotion trailer already suppressed; the returned delta is the parsed
// trailer, if the model emitted one.
type StreamingInferenceClient interface {
	InferenceClient
	InferStream(ctx context.Context, req types.ThoughtRequest, sink func(string)) (map[types.Dimension]float64, error)
}

// ThoughtConfig tunes the bridge.
type ThoughtConfig struct {
	Timeout      time.Duration // hard deadline on the external call
	DedupWindow  time.Duration // near-identical consecutive requests inside this window are dropped
	FallbackText string        // in-character utterance on failure
	OnChunk      func(string)  // when set and the client streams, reply chunks arrive here as generated
}

// DefaultThoughtConfig returns the house defaults.
func DefaultThoughtConfig() ThoughtConfig {
	return ThoughtConfig{
		Timeout:      30 * time.Second,
		DedupWindow:  1500 * time.Millisecond,
		FallbackText: "Hmm... I lost my train of thought for a moment.",
	}
}

// ThoughtBridge listens for thought-request signals, performs one inference
// at a time, and re-injects the result addressed to the original requester.
// Failure and timeout both surface as a fallback result: downstream engines
// always see forward progress, never an exception.
type ThoughtBridge struct {
	cfg    ThoughtConfig
	bus    *bus.Bus
	client InferenceClient

	subID string
	busy  atomic.Bool // single-flight: a concurrent second request is dropped
	alive atomic.Bool // late results are swallowed after Destroy

	mu          sync.Mutex
	lastContent string
	lastAt      time.Time

	calls atomic.Uint64 // outbound external calls, for observability
	wg    sync.WaitGroup
}

// NewThoughtBridge subscribes the bridge to the bus.
func NewThoughtBridge(b *bus.Bus, client InferenceClient, cfg ThoughtConfig) *ThoughtBridge {
	if cfg.Timeout <= 0 {
		cfg = DefaultThoughtConfig()
	}
	t := &ThoughtBridge{cfg: cfg, bus: b, client: client}
	t.alive.Store(true)
	t.subID = b.Subscribe("thought-bridge", []types.SignalType{types.SignalThoughtRequest}, t.onRequest)
	return t
}

// Calls returns the number of external calls issued so far.
func (t *ThoughtBridge) Calls() uint64 { return t.calls.Load() }

// onRequest runs inside Flush on the loop thread; the external call itself
// runs on its own goroutine so a slow model never blocks a frame.
func (t *ThoughtBridge) onRequest(s *types.Signal) {
	req, ok := types.PayloadAs[types.ThoughtRequest](s)
	if !ok {
		return
	}

	// Drop near-identical consecutive requests: bursty upstream emission
	// double-fires, and one thought is enough.
	norm := strings.ToLower(strings.TrimSpace(req.Content))
	t.mu.Lock()
	if norm == t.lastContent && time.Since(t.lastAt) < t.cfg.DedupWindow {
		t.mu.Unlock()
		logging.Bridge("thought-bridge: dropped duplicate request from %s", s.Source)
		return
	}
	t.lastContent = norm
	t.lastAt = time.Now()
	t.mu.Unlock()

	if !t.busy.CompareAndSwap(false, true) {
		logging.Bridge("thought-bridge: busy, dropped request from %s", s.Source)
		return
	}

	requester := s.Source
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.busy.Store(false)
		t.infer(requester, req)
	}()
}

func (t *ThoughtBridge) infer(requester string, req types.ThoughtRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.Timeout)
	defer cancel()

	t.calls.Add(1)
	result, err := t.call(ctx, req)
	if err != nil {
		logging.Get(logging.CategoryBridge).Warnf("inference failed, using fallback: %v", err)
		result = types.ThoughtResult{Text: t.cfg.FallbackText, Fallback: true}
	}

	if !t.alive.Load() {
		return // bridge destroyed while the call was in flight
	}
	t.bus.Emit(types.Signal{
		Type:     types.SignalThoughtResult,
		Source:   "thought-bridge",
		Target:   []string{requester},
		Payload:  result,
		Priority: types.PriorityHigh,
	})
}

// call runs one external completion. The streamed path is taken only when
// both sides opt in: the client implements it and a chunk sink is configured.
func (t *ThoughtBridge) call(ctx context.Context, req types.ThoughtRequest) (types.ThoughtResult, error) {
	if sc, ok := t.client.(StreamingInferenceClient); ok && t.cfg.OnChunk != nil {
		var full strings.Builder
		shift, err := sc.InferStream(ctx, req, func(chunk string) {
			full.WriteString(chunk)
			t.cfg.OnChunk(chunk)
		})
		if err != nil {
			return types.ThoughtResult{}, err
		}
		return types.ThoughtResult{Text: strings.TrimRight(full.String(), " \t\n"), Shift: shift}, nil
	}

	raw, err := t.client.Infer(ctx, req)
	if err != nil {
		return types.ThoughtResult{}, err
	}
	text, shift := ParseEmotionTrailer(raw)
	return types.ThoughtResult{Text: text, Shift: shift}, nil
}

// Destroy unsubscribes the bridge and swallows any in-flight result. The
// scheduler is unaffected.
func (t *ThoughtBridge) Destroy() {
	t.alive.Store(false)
	t.bus.Unsubscribe(t.subID)
	t.wg.Wait()
}
