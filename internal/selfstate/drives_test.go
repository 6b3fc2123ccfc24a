package selfstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

func findPulse(pulses []types.DrivePulse, drive string) (types.DrivePulse, bool) {
	for _, p := range pulses {
		if p.Drive == drive {
			return p, true
		}
	}
	return types.DrivePulse{}, false
}

func TestEvaluateDrivesThresholds(t *testing.T) {
	s := New(quiet())
	s.Restore(Snapshot{
		Valence:    -0.7, // below comfort threshold
		Arousal:    0.9,  // above settle threshold
		Energy:     0.1,  // below rest threshold
		Curiosity:  0.85, // above explore threshold
		Social:     0.1,  // below connect threshold
		Confidence: 0.1,  // below reassure threshold
	})

	pulses := s.EvaluateDrives(time.Now())
	require.Len(t, pulses, 6)

	explore, ok := findPulse(pulses, DriveExplore)
	require.True(t, ok)
	assert.InDelta(t, 0.5, explore.Intensity, 1e-9, "intensity proportional to overshoot")

	rest, ok := findPulse(pulses, DriveRest)
	require.True(t, ok)
	assert.InDelta(t, 0.6, rest.Intensity, 1e-9)

	comfort, ok := findPulse(pulses, DriveComfort)
	require.True(t, ok)
	assert.InDelta(t, 0.5, comfort.Intensity, 1e-9)
}

func TestEvaluateDrivesQuietAtRest(t *testing.T) {
	s := New(quiet())
	assert.Empty(t, s.EvaluateDrives(time.Now()), "neutral rest state triggers nothing")
}

func TestEvaluateDrivesIsRateLimited(t *testing.T) {
	s := New(quiet())
	s.Restore(Snapshot{Curiosity: 0.9, Energy: 0.9, Social: 0.5, Confidence: 0.6, Arousal: 0.3})

	now := time.Now()
	first := s.EvaluateDrives(now)
	require.NotEmpty(t, first)

	assert.Nil(t, s.EvaluateDrives(now.Add(500*time.Millisecond)), "within the minimum interval")
	assert.NotEmpty(t, s.EvaluateDrives(now.Add(3*time.Second)), "after the interval")
}

func TestEvaluateDrivesDoesNotMutateState(t *testing.T) {
	s := New(quiet())
	s.Restore(Snapshot{Curiosity: 0.95})
	before := *s.Get()
	s.EvaluateDrives(time.Now())
	assert.Equal(t, before, *s.Get())
}

func TestStreamCapsAndEvictsOldest(t *testing.T) {
	cfg := quiet()
	cfg.StreamCapacity = 5
	s := New(cfg)

	for i := 0; i < 8; i++ {
		s.PushStream(StreamEntry{Text: string(rune('a' + i)), Source: "test"})
	}

	stream := s.GetStream()
	require.Len(t, stream, 5)
	assert.Equal(t, "d", stream[0].Text, "oldest surviving entry")
	assert.Equal(t, "h", stream[4].Text)
}

func TestStreamSnapshotIsFrozen(t *testing.T) {
	s := New(quiet())
	s.PushStream(StreamEntry{Text: "one", Source: "test"})

	frozen := s.GetStream()
	assert.Same(t, &frozen[0], &s.GetStream()[0], "cached until next push")

	s.PushStream(StreamEntry{Text: "two", Source: "test"})
	assert.Len(t, frozen, 1, "earlier snapshot unaffected by later pushes")
	assert.Len(t, s.GetStream(), 2)
}
