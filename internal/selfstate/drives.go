package selfstate

import (
	"time"

	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

// =============================================================================
// DRIVE EVALUATION
// =============================================================================
//
// Drives are derived impulses: pure threshold functions of the smoothed
// state, rate-limited, never mutating. The caller (the scheduler) decides
// what to do with the pulses, typically emitting a drive-pulse signal and
// pushing a matching stream entry.

// Drive names.
const (
	DriveExplore  = "explore"  // high curiosity: seek novelty
	DriveRest     = "rest"     // low energy
	DriveConnect  = "connect"  // low social contact
	DriveSettle   = "settle"   // over-arousal, wants to calm down
	DriveComfort  = "comfort"  // strongly negative valence
	DriveReassure = "reassure" // collapsed confidence
)

// Drive thresholds. Intensity is proportional to the overshoot past the
// threshold, normalized by the remaining headroom.
const (
	exploreAbove  = 0.70
	restBelow     = 0.25
	connectBelow  = 0.30
	settleAbove   = 0.80
	comfortBelow  = -0.40
	reassureBelow = 0.25
)

// EvaluateDrives runs the six threshold checks against the smoothed state.
// Returns nil when called again within the configured minimum interval.
func (s *Store) EvaluateDrives(now time.Time) []types.DrivePulse {
	if !s.lastDriveEval.IsZero() && now.Sub(s.lastDriveEval) < s.cfg.DriveInterval {
		return nil
	}
	s.lastDriveEval = now

	snap := s.snap
	var pulses []types.DrivePulse

	if snap.Curiosity > exploreAbove {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveExplore,
			Intensity: (snap.Curiosity - exploreAbove) / (1 - exploreAbove),
		})
	}
	if snap.Energy < restBelow {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveRest,
			Intensity: (restBelow - snap.Energy) / restBelow,
		})
	}
	if snap.Social < connectBelow {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveConnect,
			Intensity: (connectBelow - snap.Social) / connectBelow,
		})
	}
	if snap.Arousal > settleAbove {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveSettle,
			Intensity: (snap.Arousal - settleAbove) / (1 - settleAbove),
		})
	}
	if snap.Valence < comfortBelow {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveComfort,
			Intensity: (comfortBelow - snap.Valence) / (1 + comfortBelow),
		})
	}
	if snap.Confidence < reassureBelow {
		pulses = append(pulses, types.DrivePulse{
			Drive:     DriveReassure,
			Intensity: (reassureBelow - snap.Confidence) / reassureBelow,
		})
	}
	return pulses
}
