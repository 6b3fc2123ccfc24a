package bridge

import (
	"encoding/json"
	"strings"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// EMOTION TRAILER PROTOCOL
// =============================================================================
//
// The inference service embeds a per-dimension emotion delta as a trailing
// structured line in the generated text:
//
//	...the visible reply...
//	<<emotion {"valence":0.1,"arousal":-0.05}>>
//
// The trailer must be parsed out and stripped before anything downstream sees
// the text. Malformed trailers are not errors: the text is passed through
// untouched and there is simply no structured data.

const (
	trailerOpen  = "<<emotion"
	trailerClose = ">>"
)

// ParseEmotionTrailer splits model output into the visible text and the
// emotion delta. Returns the original text and a nil map when no well-formed
// trailer is present.
func ParseEmotionTrailer(text string) (string, map[types.Dimension]float64) {
	trimmed := strings.TrimRight(text, " \t\n")
	start := strings.LastIndex(trimmed, trailerOpen)
	if start < 0 || !strings.HasSuffix(trimmed, trailerClose) {
		return text, nil
	}
	body := trimmed[start+len(trailerOpen) : len(trimmed)-len(trailerClose)]

	var raw map[string]float64
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		// Unparseable trailer: treat the whole thing as plain output.
		return text, nil
	}
	shift := make(map[types.Dimension]float64, len(raw))
	for k, v := range raw {
		shift[types.Dimension(k)] = v
	}
	clean := strings.TrimRight(trimmed[:start], " \t\n")
	return clean, shift
}

// =============================================================================
// STREAMING SUPPRESSOR
// =============================================================================

// StreamFilter forwards streamed chunks immediately while making sure no
// partial trailer ever leaks: any suffix that could be the beginning of a
// trailer is withheld until it either completes (suppressed, delta captured)
// or turns out to be ordinary text (forwarded late but intact).
type StreamFilter struct {
	out   func(string)
	held  string
	done  bool // a complete trailer was seen; everything after is dropped
	shift map[types.Dimension]float64
}

// NewStreamFilter wraps a chunk sink.
func NewStreamFilter(out func(string)) *StreamFilter {
	return &StreamFilter{out: out}
}

// Feed pushes one streamed chunk through the filter.
func (f *StreamFilter) Feed(chunk string) {
	if f.done {
		return
	}
	f.held += chunk

	if i := strings.Index(f.held, trailerOpen); i >= 0 {
		// A trailer has started: release everything before it, suppress the rest.
		if i > 0 {
			f.out(f.held[:i])
			f.held = f.held[i:]
		}
		if end := strings.Index(f.held, trailerClose); end >= 0 {
			_, shift := ParseEmotionTrailer(f.held[:end+len(trailerClose)])
			f.shift = shift
			f.held = ""
			f.done = true
		}
		return
	}

	// No trailer start yet: hold back only a suffix that could still grow
	// into one, forward the rest unbuffered.
	keep := longestTrailerPrefixSuffix(f.held)
	if flush := f.held[:len(f.held)-keep]; flush != "" {
		f.out(flush)
	}
	f.held = f.held[len(f.held)-keep:]
}

// Close flushes whatever is still held. A held fragment that never completed
// into a trailer was ordinary text and is forwarded. Returns the captured
// delta, if any.
func (f *StreamFilter) Close() map[types.Dimension]float64 {
	if !f.done && f.held != "" {
		f.out(f.held)
		f.held = ""
	}
	return f.shift
}

// longestTrailerPrefixSuffix returns the length of the longest suffix of s
// that is a prefix of the trailer opening marker.
func longestTrailerPrefixSuffix(s string) int {
	max := len(trailerOpen)
	if len(s) < max {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasPrefix(trailerOpen, s[len(s)-n:]) {
			return n
		}
	}
	return 0
}
