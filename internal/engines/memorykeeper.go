package engines

import (
	"strings"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/engine"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/persist"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// MEMORY KEEPER ENGINE
// =============================================================================

// significanceFloor is the minimum score for a conversation line to become a
// durable memory.
const significanceFloor = 0.35

// significantMarkers raise a line's score: these are the words people use
// when something matters to them.
var significantMarkers = []string{"remember", "never", "always", "promise", "love", "name", "birthday", "important", "first"}

// MemoryKeeper turns significant conversation lines into persisted memory
// records and answers recall queries. With a nil store it degrades to an
// in-process ring, so the rest of the system never has to care whether disk
// is available.
type MemoryKeeper struct {
	engine.Base

	store   *persist.Store
	ring    []types.MemoryRecord // fallback when store == nil
	queries []types.MemoryRecall // queries deferred to OnIdle
	askers  []string
}

// NewMemoryKeeper builds the memory keeper at its 1s cadence.
func NewMemoryKeeper(store *persist.Store) *MemoryKeeper {
	return &MemoryKeeper{
		Base: engine.NewBase("memorykeeper", types.ZoneIntegration, time.Second,
			[]types.SignalType{
				types.SignalTextInput,
				types.SignalTextOutput,
				types.SignalMemoryStore,
				types.SignalMemoryRecall,
			}),
		store: store,
	}
}

func (e *MemoryKeeper) Process(sv *engine.Services, batch []*types.Signal) error {
	e.SetStatus(types.StatusProcessing, "")
	defer e.SetStatus(types.StatusIdle, "")

	for _, s := range batch {
		switch s.Type {
		case types.SignalTextInput:
			if p, ok := types.PayloadAs[types.TextInput](s); ok {
				e.consider(p.Text, p.Speaker)
			}
		case types.SignalTextOutput:
			if p, ok := types.PayloadAs[types.TextOutput](s); ok && !p.Fallback {
				e.consider(p.Text, "self")
			}
		case types.SignalMemoryStore:
			if p, ok := types.PayloadAs[types.MemoryStore](s); ok {
				e.save(p.Record)
			}
		case types.SignalMemoryRecall:
			// Empty Records marks a query; answers are produced on idle
			// so recall I/O never delays the write path of this tick.
			if p, ok := types.PayloadAs[types.MemoryRecall](s); ok && len(p.Records) == 0 {
				e.queries = append(e.queries, p)
				e.askers = append(e.askers, s.Source)
			}
		}
	}

	// Answer inline when the batch left queries behind; OnIdle only runs on
	// empty-inbox ticks.
	e.answer(sv)
	return nil
}

// OnIdle drains any queries deferred from a previous tick.
func (e *MemoryKeeper) OnIdle(sv *engine.Services) {
	e.answer(sv)
}

func (e *MemoryKeeper) answer(sv *engine.Services) {
	for i, q := range e.queries {
		records := e.recall(q.Query, 5)
		sv.Emit(types.Signal{
			Type:    types.SignalMemoryRecall,
			Source:  e.ID(),
			Target:  []string{e.askers[i]},
			Payload: types.MemoryRecall{Query: q.Query, Records: records},
		})
	}
	e.queries = e.queries[:0]
	e.askers = e.askers[:0]
}

// consider scores a line and saves it when it crosses the floor.
func (e *MemoryKeeper) consider(text, speaker string) {
	sig := significance(text)
	if sig < significanceFloor {
		return
	}
	e.save(types.MemoryRecord{
		Text:         speaker + ": " + text,
		Keywords:     keywords(text),
		Significance: sig,
	})
}

func (e *MemoryKeeper) save(rec types.MemoryRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if e.store != nil {
		if err := e.store.SaveMemory(rec); err != nil {
			logging.Engine("memorykeeper: save failed: %v", err)
		}
		return
	}
	e.ring = append(e.ring, rec)
	if len(e.ring) > 256 {
		e.ring = e.ring[1:]
	}
}

func (e *MemoryKeeper) recall(query string, limit int) []types.MemoryRecord {
	if e.store != nil {
		records, err := e.store.Recall(query, limit)
		if err != nil {
			logging.Engine("memorykeeper: recall failed: %v", err)
			return nil
		}
		return records
	}
	// Ring fallback: newest matching lines win.
	var out []types.MemoryRecord
	terms := strings.Fields(strings.ToLower(query))
	for i := len(e.ring) - 1; i >= 0 && len(out) < limit; i-- {
		text := strings.ToLower(e.ring[i].Text)
		for _, t := range terms {
			if strings.Contains(text, t) {
				out = append(out, e.ring[i])
				break
			}
		}
	}
	return out
}

// significance scores how memorable a line is, [0, 1].
func significance(text string) float64 {
	lower := strings.ToLower(text)
	score := float64(len(text)) / 400.0
	if score > 0.3 {
		score = 0.3
	}
	for _, m := range significantMarkers {
		if strings.Contains(lower, m) {
			score += 0.25
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// keywords extracts the distinctive words of a line.
func keywords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"")
		if len(w) > 3 {
			out = append(out, w)
		}
		if len(out) == 8 {
			break
		}
	}
	return out
}
