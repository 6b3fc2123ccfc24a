package types

import "time"

// =============================================================================
// PAYLOAD UNION
// =============================================================================
//
// Each SignalType carries exactly one payload shape. The shapes form a sealed
// tagged union: every variant implements the unexported marker method, so the
// set cannot grow outside this package. PayloadAs narrows by concrete type and
// replaces bare type assertions at call sites.

// Payload is the sealed union of signal payload shapes.
type Payload interface {
	isPayload()
}

// PayloadAs narrows a signal's payload to a concrete variant. The second
// return is false when the signal carries a different variant (or none).
func PayloadAs[T Payload](s *Signal) (T, bool) {
	p, ok := s.Payload.(T)
	return p, ok
}

// Dimension names one scalar axis of the self-state vector.
type Dimension string

const (
	DimValence    Dimension = "valence" // the one signed dimension, [-1, 1]
	DimArousal    Dimension = "arousal"
	DimEnergy     Dimension = "energy"
	DimCuriosity  Dimension = "curiosity"
	DimSocial     Dimension = "social"
	DimConfidence Dimension = "confidence"
)

// Dimensions lists every axis in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimValence, DimArousal, DimEnergy, DimCuriosity, DimSocial, DimConfidence}
}

// TextInput is external text entering the system.
type TextInput struct {
	Text    string
	Speaker string
}

// TextOutput is a finished utterance leaving the system.
type TextOutput struct {
	Text     string
	Flavor   string // e.g. "reply", "fallback", "reflex"
	Fallback bool
}

// EmotionShift carries per-dimension deltas, typically parsed from model
// output or produced by keyword appraisal.
type EmotionShift struct {
	Deltas map[Dimension]float64
	Reason string
}

// ThoughtRequest asks the thought bridge for one external inference.
type ThoughtRequest struct {
	Content       string
	Context       []string             // recent conversation lines, oldest first
	SelfState     map[Dimension]float64
	Memories      []MemoryRecord       // light recall context
	ResponseStyle string
}

// ThoughtResult is the bridge's answer. Fallback results are produced locally
// when the external call fails or times out; downstream consumers treat both
// identically.
type ThoughtResult struct {
	Text     string
	Shift    map[Dimension]float64 // already stripped from Text
	Fallback bool
}

// DrivePulse is a threshold-triggered impulse derived from the self-state.
type DrivePulse struct {
	Drive     string  // explore, rest, connect, settle, comfort, reassure
	Intensity float64 // proportional to threshold overshoot, (0, 1]
}

// MemoryStore asks the memory keeper to persist one record.
type MemoryStore struct {
	Record MemoryRecord
}

// MemoryRecall carries recall results (or, with empty Records, a query).
type MemoryRecall struct {
	Query   string
	Records []MemoryRecord
}

// SafetyAlert is raised by the safety reflex engine.
type SafetyAlert struct {
	Trigger  string
	Severity float64
}

// SystemNote is a low-priority internal annotation, e.g. a degradation
// acknowledgment when the body cannot perform an intent.
type SystemNote struct {
	Text string
}

// MemoryRecord is one free-text memory with a significance score.
type MemoryRecord struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	Keywords     []string  `json:"keywords"`
	Significance float64   `json:"significance"` // [0, 1]
	CreatedAt    time.Time `json:"created_at"`
}

func (TextInput) isPayload()      {}
func (TextOutput) isPayload()     {}
func (EmotionShift) isPayload()   {}
func (ThoughtRequest) isPayload() {}
func (ThoughtResult) isPayload()  {}
func (DrivePulse) isPayload()     {}
func (MemoryStore) isPayload()    {}
func (MemoryRecall) isPayload()   {}
func (SafetyAlert) isPayload()    {}
func (SystemNote) isPayload()     {}
