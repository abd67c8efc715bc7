package motion

import (
	"math"

	"github.com/motionlab/stepmotion/mathx"
)

// Step is one unit of the pulse train: the direction to drive and the
// interval for which the STEP line is held for this pulse.
type Step struct {
	Direction  Direction
	IntervalNs uint32
}

// Sequencer lazily produces the pulse train for a Profile, one Step per
// physical step, exactly Steps() items in total.  Intervals are computed on
// demand from the step index; nothing is buffered, so the motion-critical
// path allocates nothing.
//
// A Sequencer is consumed exactly once.  After exhaustion Next returns
// ok == false forever; constructing a fresh Sequencer is the only way to
// replay a profile.
type Sequencer struct {
	profile Profile
	index   uint32 // steps already produced
}

// NewSequencer returns a sequencer positioned at the start of the profile.
func NewSequencer(p Profile) *Sequencer {
	return &Sequencer{profile: p}
}

// Next produces the timing for the next step.  ok is false once the
// sequence is exhausted.
func (s *Sequencer) Next() (step Step, ok bool) {
	p := s.profile
	n := p.Steps()
	if s.index >= n {
		return Step{}, false
	}
	s.index++
	k := s.index // 1-indexed within the move

	// velocity after completing step k, by constant-acceleration
	// kinematics.  k starts at 1, so the accel branch never divides by
	// zero and the first interval is the longest of the move.
	var v float64
	switch {
	case k <= p.AccelSteps:
		v = math.Sqrt(2 * p.AccelRate * float64(k))
	case k <= p.AccelSteps+p.CruiseSteps:
		v = p.PeakVelocity
	default:
		// mirror of the accel formula, indexed from the end of the
		// move: r == 1 on the final step
		r := n - k + 1
		v = math.Sqrt(2 * p.DecelRate * float64(r))
	}
	if v > p.PeakVelocity {
		v = p.PeakVelocity
	}
	return Step{
		Direction:  p.Direction(),
		IntervalNs: mathx.RoundNs(1e9 / v),
	}, true
}

// Index returns the count of steps already produced.
func (s *Sequencer) Index() uint32 {
	return s.index
}

// Remaining returns the count of steps yet to be produced.
func (s *Sequencer) Remaining() uint32 {
	return s.profile.Steps() - s.index
}

// Phase returns the phase the next produced step will fall in, or Complete
// when exhausted.
func (s *Sequencer) Phase() Phase {
	return s.profile.PhaseAt(s.index + 1)
}

// Progress returns completion in [0, 1].  The zero profile reports 1.
func (s *Sequencer) Progress() float64 {
	n := s.profile.Steps()
	if n == 0 {
		return 1
	}
	return float64(s.index) / float64(n)
}

// Profile returns the profile being sequenced.
func (s *Sequencer) Profile() Profile {
	return s.profile
}
