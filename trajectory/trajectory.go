// Package trajectory stores named motion recipes and executes them against
// stepper motors.  A Trajectory is a declarative record; the Executor turns
// it into resolved step-domain rates and drives the motor's pulse loop.
package trajectory

import (
	"fmt"

	"github.com/motionlab/stepmotion/stepper"
)

// Trajectory is a named move recipe for one motor.  Rates may be given as
// percentages of the motor's maxima or as absolute degree-domain values;
// absolute values win.
type Trajectory struct {
	// Name identifies the trajectory in the registry.
	Name string

	// Motor names the axis this recipe targets.
	Motor string

	// TargetDegrees is the absolute destination.
	TargetDegrees float64

	// VelocityPercent scales the motor's maximum velocity, in (0, 200].
	// Ignored when VelocityDegPerSec is set.
	VelocityPercent float64

	// VelocityDegPerSec is an absolute velocity cap.  Zero means unset.
	VelocityDegPerSec float64

	// AccelerationPercent scales the motor's maximum acceleration.
	// Ignored when AccelerationDegPerSec2 is set.
	AccelerationPercent float64

	// AccelerationDegPerSec2 is an absolute acceleration rate.  Zero
	// means unset.
	AccelerationDegPerSec2 float64

	// DecelerationDegPerSec2 is an absolute deceleration rate.  Zero
	// means unset, in which case deceleration follows acceleration.
	DecelerationDegPerSec2 float64

	// DwellMs is the settle time after the move completes.
	DwellMs int
}

// EffectiveVelocity resolves the velocity cap in steps/s against a motor's
// constraints.  Absolute beats percent; percent of zero means full speed.
func (t Trajectory) EffectiveVelocity(c stepper.Constraints) float64 {
	if t.VelocityDegPerSec > 0 {
		return c.VelocityToSteps(t.VelocityDegPerSec)
	}
	pct := t.VelocityPercent
	if pct == 0 {
		pct = 100
	}
	return c.MaxVelocitySteps * pct / 100
}

// EffectiveAcceleration resolves the acceleration rate in steps/s².
func (t Trajectory) EffectiveAcceleration(c stepper.Constraints) float64 {
	if t.AccelerationDegPerSec2 > 0 {
		return c.AccelerationToSteps(t.AccelerationDegPerSec2)
	}
	pct := t.AccelerationPercent
	if pct == 0 {
		pct = 100
	}
	return c.MaxAccelerationSteps * pct / 100
}

// EffectiveDeceleration resolves the deceleration rate in steps/s².  The
// precedence is: explicit deceleration, else explicit acceleration
// (symmetric profile), else the percent-scaled maximum.
func (t Trajectory) EffectiveDeceleration(c stepper.Constraints) float64 {
	if t.DecelerationDegPerSec2 > 0 {
		return c.AccelerationToSteps(t.DecelerationDegPerSec2)
	}
	return t.EffectiveAcceleration(c)
}

// Sequence is an ordered list of waypoints executed point to point on one
// motor, with shared pacing and dwell.
type Sequence struct {
	// Name identifies the sequence in the registry.
	Name string

	// Motor names the axis the waypoints run on.
	Motor string

	// Waypoints are absolute degree targets, visited in order.
	Waypoints []float64

	// VelocityPercent scales the motor's maximum velocity for every leg.
	VelocityPercent float64

	// DwellMs is the settle time after each waypoint.
	DwellMs int
}

// Leg returns the i-th waypoint as a standalone trajectory record.
func (s Sequence) Leg(i int) Trajectory {
	return Trajectory{
		Name:            fmt.Sprintf("%s[%d]", s.Name, i),
		Motor:           s.Motor,
		TargetDegrees:   s.Waypoints[i],
		VelocityPercent: s.VelocityPercent,
		DwellMs:         s.DwellMs,
	}
}
