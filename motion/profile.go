// Package motion computes velocity profiles for point-to-point stepper moves
// and turns them into per-step pulse timing.
//
// A move is planned as an asymmetric trapezoid: an acceleration phase at one
// rate, an optional constant-velocity cruise, and a deceleration phase at an
// independent rate.  When the move is too short to reach the requested
// velocity the profile collapses to a triangle with a reduced peak.  All
// quantities are in the step domain (steps, steps/s, steps/s²); unit
// conversion happens upstream in the constraint deriver.
package motion

import (
	"fmt"
	"math"

	"github.com/motionlab/stepmotion/mathx"
)

// Direction is the sense of shaft rotation, as seen from a positive or
// negative step displacement.
type Direction int8

// The two directions.  CW corresponds to increasing step count.
const (
	CW  Direction = 1
	CCW Direction = -1
)

// DirectionOf returns the direction of a signed step displacement.
// Zero is treated as CW; a zero-length profile never emits a step, so the
// choice is unobservable.
func DirectionOf(steps int64) Direction {
	if steps < 0 {
		return CCW
	}
	return CW
}

// Sign returns the position delta of one committed step in this direction.
func (d Direction) Sign() int64 {
	return int64(d)
}

func (d Direction) String() string {
	if d == CCW {
		return "CCW"
	}
	return "CW"
}

// Phase labels where in a profile a given step falls.
type Phase int

// Phases of a move, in execution order.
const (
	Accelerating Phase = iota
	Cruising
	Decelerating
	Complete
)

func (p Phase) String() string {
	switch p {
	case Accelerating:
		return "accelerating"
	case Cruising:
		return "cruising"
	case Decelerating:
		return "decelerating"
	default:
		return "complete"
	}
}

// InvalidProfileError is returned by Plan when a rate argument cannot
// produce a physical profile.
type InvalidProfileError struct {
	Field string
	Value float64
}

func (e InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s = %v, must be > 0", e.Field, e.Value)
}

// Profile is a computed velocity profile for one move.  It is immutable once
// planned; the Sequencer consumes it to produce the pulse train.
//
// The phase counts always satisfy
// AccelSteps + CruiseSteps + DecelSteps == |TotalSteps| exactly.
type Profile struct {
	// TotalSteps is the signed displacement; the sign encodes direction.
	TotalSteps int64

	// AccelSteps, CruiseSteps, and DecelSteps are the phase lengths.
	AccelSteps  uint32
	CruiseSteps uint32
	DecelSteps  uint32

	// AccelRate and DecelRate are in steps/s².
	AccelRate float64
	DecelRate float64

	// PeakVelocity is the highest velocity the move reaches, in steps/s.
	// It equals the requested cap for a trapezoid and a reduced value for
	// a triangle.
	PeakVelocity float64
}

// Plan computes the profile for a signed step displacement.
//
// capVelocity, accelRate, and decelRate must already be clamped to the
// motor's configured maxima by the caller; Plan validates only that the two
// rates are positive.  deltaSteps == 0 yields the zero profile, which is a
// successful no-op rather than an error.
func Plan(deltaSteps int64, capVelocity, accelRate, decelRate float64) (Profile, error) {
	if accelRate <= 0 {
		return Profile{}, InvalidProfileError{Field: "accelRate", Value: accelRate}
	}
	if decelRate <= 0 {
		return Profile{}, InvalidProfileError{Field: "decelRate", Value: decelRate}
	}
	p := Profile{
		TotalSteps: deltaSteps,
		AccelRate:  accelRate,
		DecelRate:  decelRate,
	}
	if deltaSteps == 0 {
		return p, nil
	}
	n := deltaSteps
	if n < 0 {
		n = -n
	}

	accelDist := capVelocity * capVelocity / (2 * accelRate)
	decelDist := capVelocity * capVelocity / (2 * decelRate)

	if accelDist+decelDist <= float64(n) {
		// trapezoid: the cap is reachable
		p.PeakVelocity = capVelocity
		p.AccelSteps = mathx.RoundSteps(accelDist)
		p.DecelSteps = mathx.RoundSteps(decelDist)
		used := int64(p.AccelSteps) + int64(p.DecelSteps)
		if used > n {
			// rounding both phases up can overshoot by one;
			// take the excess out of the decel phase
			p.DecelSteps -= uint32(used - n)
			used = n
		}
		p.CruiseSteps = uint32(n - used)
		return p, nil
	}

	// triangle: solve for the peak at which the accel and decel distances
	// exactly sum to n
	peak := math.Sqrt(2 * float64(n) * accelRate * decelRate / (accelRate + decelRate))
	p.PeakVelocity = peak
	p.AccelSteps = mathx.RoundSteps(peak * peak / (2 * accelRate))
	if int64(p.AccelSteps) > n {
		p.AccelSteps = uint32(n)
	}
	// decel by subtraction, never rounded independently, so the sum
	// invariant holds exactly
	p.DecelSteps = uint32(n - int64(p.AccelSteps))
	p.CruiseSteps = 0
	return p, nil
}

// Steps returns the unsigned step count of the move.
func (p Profile) Steps() uint32 {
	n := p.TotalSteps
	if n < 0 {
		n = -n
	}
	return uint32(n)
}

// Direction returns the direction the move drives in.
func (p Profile) Direction() Direction {
	return DirectionOf(p.TotalSteps)
}

// IsZero reports whether the profile is the zero-length no-op.
func (p Profile) IsZero() bool {
	return p.TotalSteps == 0
}

// PhaseAt returns the phase of the 1-indexed step k.
func (p Profile) PhaseAt(k uint32) Phase {
	switch {
	case k > p.Steps() || p.IsZero():
		return Complete
	case k <= p.AccelSteps:
		return Accelerating
	case k <= p.AccelSteps+p.CruiseSteps:
		return Cruising
	default:
		return Decelerating
	}
}

// EstimatedDuration returns an approximate wall time for the move in
// seconds, from the phase kinematics.  It is advisory (used for display),
// not a timing source.
func (p Profile) EstimatedDuration() float64 {
	if p.IsZero() || p.PeakVelocity <= 0 {
		return 0
	}
	t := p.PeakVelocity/p.AccelRate + p.PeakVelocity/p.DecelRate
	if p.CruiseSteps > 0 {
		t += float64(p.CruiseSteps) / p.PeakVelocity
	}
	return t
}
