package bridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

func TestParseEmotionTrailer(t *testing.T) {
	text := "That was lovely to hear.\n<<emotion {\"valence\":0.1,\"arousal\":-0.05}>>"
	clean, shift := ParseEmotionTrailer(text)

	assert.Equal(t, "That was lovely to hear.", clean)
	require.NotNil(t, shift)
	assert.Equal(t, 0.1, shift[types.DimValence])
	assert.Equal(t, -0.05, shift[types.DimArousal])
}

func TestParseEmotionTrailerAbsent(t *testing.T) {
	clean, shift := ParseEmotionTrailer("Just plain text.")
	assert.Equal(t, "Just plain text.", clean)
	assert.Nil(t, shift)
}

func TestParseEmotionTrailerMalformedIsPlainText(t *testing.T) {
	text := "Reply.\n<<emotion {not json}>>"
	clean, shift := ParseEmotionTrailer(text)
	assert.Equal(t, text, clean, "malformed trailer means no structured data, text untouched")
	assert.Nil(t, shift)
}

func TestParseEmotionTrailerTrailingWhitespace(t *testing.T) {
	clean, shift := ParseEmotionTrailer("Hi.\n<<emotion {\"valence\":0.2}>>\n\n")
	assert.Equal(t, "Hi.", clean)
	require.NotNil(t, shift)
	assert.Equal(t, 0.2, shift[types.DimValence])
}

func TestStreamFilterForwardsPlainChunksImmediately(t *testing.T) {
	var out []string
	f := NewStreamFilter(func(s string) { out = append(out, s) })

	f.Feed("Hello ")
	assert.Equal(t, []string{"Hello "}, out, "plain content must not be buffered")
	f.Feed("world.")
	f.Close()
	assert.Equal(t, "Hello world.", strings.Join(out, ""))
}

func TestStreamFilterSuppressesTrailerSplitAcrossChunks(t *testing.T) {
	var out []string
	f := NewStreamFilter(func(s string) { out = append(out, s) })

	f.Feed("All done!")
	f.Feed("\n<<emo")
	f.Feed("tion {\"valence\"")
	f.Feed(":0.3}>")
	f.Feed(">")
	shift := f.Close()

	joined := strings.Join(out, "")
	assert.NotContains(t, joined, "<<emotion", "no partial trailer may leak")
	assert.NotContains(t, joined, "valence")
	assert.Equal(t, "All done!\n", joined)
	require.NotNil(t, shift)
	assert.Equal(t, 0.3, shift[types.DimValence])
}

func TestStreamFilterReleasesFalseAlarm(t *testing.T) {
	var out []string
	f := NewStreamFilter(func(s string) { out = append(out, s) })

	f.Feed("math: 1 <<em")
	f.Feed("dash>> 2")
	shift := f.Close()

	assert.Equal(t, "math: 1 <<emdash>> 2", strings.Join(out, ""))
	assert.Nil(t, shift)
}

func TestStreamFilterHoldsBareSuffixUntilClose(t *testing.T) {
	var out []string
	f := NewStreamFilter(func(s string) { out = append(out, s) })

	f.Feed("ends with <")
	assert.Equal(t, "ends with ", strings.Join(out, ""), "possible trailer start withheld")
	shift := f.Close()
	assert.Equal(t, "ends with <", strings.Join(out, ""), "unconfirmed trailer start released on close")
	assert.Nil(t, shift)
}
