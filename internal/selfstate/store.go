// Package selfstate implements the shared damped mood vector: a small set of
// bounded scalar dimensions with separate target and smoothed-current copies,
// a bounded consciousness stream, and threshold-derived drives.
//
// The store is deliberately unsynchronized. Every mutator runs on the
// cooperative loop thread; snapshots handed to observers are immutable once
// built, so cross-goroutine reads of a published snapshot are safe.
package selfstate

import (
	"math"
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config tunes the state dynamics.
type Config struct {
	Damping           float64       // per-update fraction of the current→target gap closed
	Epsilon           float64       // change-detection threshold
	ArousalBaseline   float64       // homeostatic pull target for arousal
	CuriosityBaseline float64       // homeostatic pull target for curiosity
	BaselinePull      float64       // per-update fraction of the pull
	BreathAmplitude   float64       // breathing oscillation on arousal
	BreathPeriod      time.Duration
	EnergyDepletion   float64       // one-way per-update energy drain
	StreamCapacity    int
	DriveInterval     time.Duration // minimum spacing between drive evaluations
}

// DefaultConfig returns the house dynamics.
func DefaultConfig() Config {
	return Config{
		Damping:           0.12,
		Epsilon:           1e-4,
		ArousalBaseline:   0.30,
		CuriosityBaseline: 0.55,
		BaselinePull:      0.01,
		BreathAmplitude:   0.004,
		BreathPeriod:      8 * time.Second,
		EnergyDepletion:   0.0004,
		StreamCapacity:    200,
		DriveInterval:     2 * time.Second,
	}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable point-in-time copy of the smoothed state. Store.Get
// reuses the same pointer until a value actually changes, so observers can
// compare snapshots by identity instead of field-by-field.
type Snapshot struct {
	Valence    float64 `json:"valence"`
	Arousal    float64 `json:"arousal"`
	Energy     float64 `json:"energy"`
	Curiosity  float64 `json:"curiosity"`
	Social     float64 `json:"social"`
	Confidence float64 `json:"confidence"`
}

// Dim returns one dimension's value.
func (s *Snapshot) Dim(d types.Dimension) float64 {
	switch d {
	case types.DimValence:
		return s.Valence
	case types.DimArousal:
		return s.Arousal
	case types.DimEnergy:
		return s.Energy
	case types.DimCuriosity:
		return s.Curiosity
	case types.DimSocial:
		return s.Social
	case types.DimConfidence:
		return s.Confidence
	}
	return 0
}

// Map returns the snapshot as a dimension map (for thought-request context).
func (s *Snapshot) Map() map[types.Dimension]float64 {
	m := make(map[types.Dimension]float64, 6)
	for _, d := range types.Dimensions() {
		m[d] = s.Dim(d)
	}
	return m
}

// =============================================================================
// STORE
// =============================================================================

// Store holds the two parallel copies of the mood vector. current is always
// produced by exponential interpolation toward target; Restore is the single
// direct-write exception.
type Store struct {
	cfg     Config
	current map[types.Dimension]float64
	target  map[types.Dimension]float64

	snap *Snapshot // identity-stable, rebuilt only on observable change

	stream       []StreamEntry
	streamFrozen []StreamEntry // copy-on-write cache, nil when stale

	lastDriveEval time.Time
	born          time.Time // breathing phase origin
}

// New creates a store at neutral rest values.
func New(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.Damping <= 0 {
		cfg = def
	}
	s := &Store{
		cfg: cfg,
		current: map[types.Dimension]float64{
			types.DimValence:    0.0,
			types.DimArousal:    cfg.ArousalBaseline,
			types.DimEnergy:     0.9,
			types.DimCuriosity:  cfg.CuriosityBaseline,
			types.DimSocial:     0.5,
			types.DimConfidence: 0.6,
		},
		target: make(map[types.Dimension]float64, 6),
		born:   time.Now(),
	}
	for d, v := range s.current {
		s.target[d] = v
	}
	s.snap = s.buildSnapshot()
	return s
}

// bounds returns the closed interval for a dimension. Valence is the one
// signed axis; everything else lives on the unit interval.
func bounds(d types.Dimension) (lo, hi float64) {
	if d == types.DimValence {
		return -1, 1
	}
	return 0, 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Get returns the current smoothed snapshot. The pointer changes identity
// only when a value changed during an Update.
func (s *Store) Get() *Snapshot {
	return s.snap
}

// Target returns one dimension's target value (tests and drives peek at it).
func (s *Store) Target(d types.Dimension) float64 {
	return s.target[d]
}

// Nudge moves a dimension's target by delta, clamped to its bounds. The
// smoothed current is untouched until the next Update.
func (s *Store) Nudge(d types.Dimension, delta float64) {
	lo, hi := bounds(d)
	before := s.target[d]
	s.target[d] = clamp(before+delta, lo, hi)
	logging.State("nudge %s %+.3f: target %.3f -> %.3f", d, delta, before, s.target[d])
}

// SetTarget sets a dimension's target absolutely, clamped to its bounds.
func (s *Store) SetTarget(d types.Dimension, v float64) {
	lo, hi := bounds(d)
	s.target[d] = clamp(v, lo, hi)
}

// ApplyShift nudges every dimension present in the delta map. Absent keys are
// untouched. This is the integration point for externally supplied emotion
// deltas parsed out of model output.
func (s *Store) ApplyShift(deltas map[types.Dimension]float64) {
	for d, delta := range deltas {
		s.Nudge(d, delta)
	}
}

// Update advances current toward target by the damping fraction, applies the
// homeostatic baseline pulls, the breathing term, and the slow energy drain.
// Must be called once per scheduler frame. Returns whether anything moved
// beyond epsilon, so the caller can skip notifying observers.
func (s *Store) Update(now time.Time) bool {
	// Passive drift acts on targets, like any other nudge.
	s.target[types.DimArousal] += (s.cfg.ArousalBaseline - s.target[types.DimArousal]) * s.cfg.BaselinePull
	s.target[types.DimCuriosity] += (s.cfg.CuriosityBaseline - s.target[types.DimCuriosity]) * s.cfg.BaselinePull
	if s.cfg.BreathPeriod > 0 {
		phase := float64(now.Sub(s.born)) / float64(s.cfg.BreathPeriod)
		s.target[types.DimArousal] += s.cfg.BreathAmplitude * math.Sin(2*math.Pi*phase)
	}
	s.target[types.DimEnergy] = clamp(s.target[types.DimEnergy]-s.cfg.EnergyDepletion, 0, 1)

	changed := false
	for d, cur := range s.current {
		lo, hi := bounds(d)
		s.target[d] = clamp(s.target[d], lo, hi)
		next := cur + (s.target[d]-cur)*s.cfg.Damping
		s.current[d] = next
		if math.Abs(next-cur) > s.cfg.Epsilon {
			changed = true
		}
	}
	if changed {
		s.snap = s.buildSnapshot()
	}
	return changed
}

func (s *Store) buildSnapshot() *Snapshot {
	return &Snapshot{
		Valence:    s.current[types.DimValence],
		Arousal:    s.current[types.DimArousal],
		Energy:     s.current[types.DimEnergy],
		Curiosity:  s.current[types.DimCuriosity],
		Social:     s.current[types.DimSocial],
		Confidence: s.current[types.DimConfidence],
	}
}

// Restore hard-overwrites both copies from a persisted snapshot. The only
// direct write to current; used once at process start.
func (s *Store) Restore(snap Snapshot) {
	for _, d := range types.Dimensions() {
		lo, hi := bounds(d)
		v := clamp(snap.Dim(d), lo, hi)
		s.current[d] = v
		s.target[d] = v
	}
	s.snap = s.buildSnapshot()
	logging.State("restored state: %+v", *s.snap)
}
