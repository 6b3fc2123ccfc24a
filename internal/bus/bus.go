// Package bus implements the priority signal bus: a pending queue ordered by
// descending priority, a subscriber registry, and a fixed-size history ring.
// The bus knows nothing about engine semantics; it delivers typed envelopes
// to whoever declared interest.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config tunes queue defaults. Zero values fall back to DefaultConfig.
type Config struct {
	HistorySize     int           // ring buffer capacity
	DefaultTTL      time.Duration // applied when Emit sees TTL == 0
	DefaultPriority int           // applied when Emit sees Priority == 0
	Clock           func() time.Time
}

// DefaultConfig returns the house defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:     100,
		DefaultTTL:      30 * time.Second,
		DefaultPriority: types.PriorityNormal,
		Clock:           time.Now,
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Handler receives one delivered signal. Invoked synchronously inside Flush.
type Handler func(*types.Signal)

type subscription struct {
	id       string
	engineID string
	kinds    []types.SignalType // nil = every type
	handler  Handler
}

func (s *subscription) wants(sig *types.Signal) bool {
	if !sig.TargetedAt(s.engineID) {
		return false
	}
	if s.kinds == nil {
		return true
	}
	for _, k := range s.kinds {
		if k == sig.Type {
			return true
		}
	}
	return false
}

// =============================================================================
// BUS
// =============================================================================

// Bus is safe for concurrent use: engines run on the cooperative loop, but
// bridges re-inject results from background goroutines, so Emit takes a lock.
// Delivery itself happens outside the lock so handlers may re-enter the bus.
type Bus struct {
	mu       sync.Mutex
	cfg      Config
	pending  []*types.Signal // descending priority, FIFO within a priority
	subs     []*subscription
	history  []*types.Signal // ring, histLen entries ending at histNext-1
	histNext int
	histLen  int

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

// New creates a bus with the given config.
func New(cfg Config) *Bus {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.DefaultPriority == 0 {
		cfg.DefaultPriority = def.DefaultPriority
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Bus{
		cfg:     cfg,
		history: make([]*types.Signal, cfg.HistorySize),
	}
}

// Emit assigns the signal's id, timestamp, ttl and default priority, inserts
// it into the pending queue at its priority position, and returns the fully
// formed envelope. Delivery is deferred to Flush.
func (b *Bus) Emit(sig types.Signal) *types.Signal {
	sig.ID = b.nextID.Add(1)
	if sig.Timestamp.IsZero() {
		sig.Timestamp = b.cfg.Clock()
	}
	if sig.TTL <= 0 {
		sig.TTL = b.cfg.DefaultTTL
	}
	if sig.Priority == 0 {
		sig.Priority = b.cfg.DefaultPriority
	}
	s := &sig

	b.mu.Lock()
	b.insert(s)
	b.mu.Unlock()

	logging.Bus("emit #%d %s from %s p=%d", s.ID, s.Type, s.Source, s.Priority)
	return s
}

// insert places s before the first pending signal with a lower priority.
// Equal priorities keep emission order. Caller holds b.mu.
func (b *Bus) insert(s *types.Signal) {
	at := len(b.pending)
	for i, p := range b.pending {
		if p.Priority < s.Priority {
			at = i
			break
		}
	}
	b.pending = append(b.pending, nil)
	copy(b.pending[at+1:], b.pending[at:])
	b.pending[at] = s
}

// Subscribe registers a handler for the given signal types (nil = all) on
// behalf of an engine id and returns the subscription id. Already-pending
// signals are visible to the new subscriber on the next Flush; already
// flushed ones are gone.
func (b *Bus) Subscribe(engineID string, kinds []types.SignalType, h Handler) string {
	sub := &subscription{
		id:       uuid.NewString(),
		engineID: engineID,
		kinds:    kinds,
		handler:  h,
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub.id
}

// Unsubscribe removes a subscription. Idempotent.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Flush is the only point where delivery happens. It drops expired signals,
// then drains the queue that existed when the call began, delivering each
// signal to every matching subscriber in priority-then-FIFO order. Signals
// emitted by handlers during the flush land in the fresh pending queue and
// are only seen by the next Flush, which bounds each frame's fan-out.
// Returns everything delivered.
func (b *Bus) Flush() []*types.Signal {
	now := b.cfg.Clock()

	b.mu.Lock()
	// TTL expiry first: silent drop, counted but never delivered.
	live := b.pending[:0]
	for _, s := range b.pending {
		if s.Expired(now) {
			b.dropped.Add(1)
			logging.Bus("expired #%d %s (age %s >= ttl %s)", s.ID, s.Type, now.Sub(s.Timestamp), s.TTL)
			continue
		}
		live = append(live, s)
	}
	batch := live
	b.pending = nil
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	processed := make([]*types.Signal, 0, len(batch))
	for _, s := range batch {
		processed = append(processed, s)
		b.record(s)
		for _, sub := range subs {
			if sub.wants(s) {
				b.deliver(sub, s)
			}
		}
	}
	return processed
}

// deliver invokes one handler, containing panics so a broken subscriber
// never aborts delivery to the rest.
func (b *Bus) deliver(sub *subscription, s *types.Signal) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryBus).Errorf("subscriber %s panicked on #%d %s: %v", sub.engineID, s.ID, s.Type, r)
		}
	}()
	sub.handler(s)
}

// record appends a delivered signal to the history ring, overwriting the
// oldest entry once at capacity.
func (b *Bus) record(s *types.Signal) {
	b.mu.Lock()
	b.history[b.histNext] = s
	b.histNext = (b.histNext + 1) % len(b.history)
	if b.histLen < len(b.history) {
		b.histLen++
	}
	b.mu.Unlock()
}

// History returns the ring contents oldest-first, regardless of where the
// ring has wrapped. Purely observational: history membership never affects
// delivery.
func (b *Bus) History() []*types.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*types.Signal, 0, b.histLen)
	start := b.histNext - b.histLen
	if start < 0 {
		start += len(b.history)
	}
	for i := 0; i < b.histLen; i++ {
		out = append(out, b.history[(start+i)%len(b.history)])
	}
	return out
}

// Pending returns the current queue depth.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped returns the cumulative count of TTL-expired signals. The drop
// itself stays silent on the delivery path; this counter is the one
// backpressure gauge the system exposes.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the live subscription count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Clear empties the queue and history. Used on destroy.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
	b.history = make([]*types.Signal, len(b.history))
	b.histNext = 0
	b.histLen = 0
}
