package selfstate

import "time"

// =============================================================================
// CONSCIOUSNESS STREAM
// =============================================================================
//
// A bounded, oldest-evicted log of inner thoughts. A side channel next to the
// signal bus: engines and the scheduler push entries, the UI and a couple of
// reflective engines read them. Reads get a frozen copy so an in-progress
// iteration never sees the stream mutate underneath it.

// StreamEntry is one inner-thought line.
type StreamEntry struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Flavor    string    `json:"flavor"` // e.g. "drive", "reflection", "note"
	Timestamp time.Time `json:"timestamp"`
	Intensity float64   `json:"intensity"`
}

// PushStream appends an entry, evicting the oldest once at capacity.
func (s *Store) PushStream(e StreamEntry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.stream = append(s.stream, e)
	if over := len(s.stream) - s.cfg.StreamCapacity; over > 0 {
		s.stream = append(s.stream[:0], s.stream[over:]...)
	}
	s.streamFrozen = nil
}

// GetStream returns a frozen snapshot of the stream, oldest first. The copy
// is cached until the next push.
func (s *Store) GetStream() []StreamEntry {
	if s.streamFrozen == nil {
		s.streamFrozen = make([]StreamEntry, len(s.stream))
		copy(s.streamFrozen, s.stream)
	}
	return s.streamFrozen
}
