// Package stepper drives a single stepper motor through STEP/DIR pin
// capabilities: constraint derivation from physical motor parameters, an
// absolute position ledger, and the state machine that executes planned
// moves one pulse at a time.
package stepper

import (
	"math"

	"github.com/motionlab/stepmotion/mathx"
)

// LimitPolicy selects what a move request does when its target falls
// outside the soft limits.
type LimitPolicy int

const (
	// Reject refuses the move and leaves the motor untouched.
	Reject LimitPolicy = iota
	// Clamp pulls the target to the nearest bound and proceeds.
	Clamp
)

func (p LimitPolicy) String() string {
	if p == Clamp {
		return "clamp"
	}
	return "reject"
}

// SoftLimits bound travel in degrees, as they appear in configuration.
type SoftLimits struct {
	MinDegrees float64
	MaxDegrees float64
	Policy     LimitPolicy
}

// StepLimits are soft limits converted to the step domain.
type StepLimits struct {
	MinSteps int64
	MaxSteps int64
	Policy   LimitPolicy
}

// Contains reports whether a position is inside the limits.
func (l StepLimits) Contains(steps int64) bool {
	return steps >= l.MinSteps && steps <= l.MaxSteps
}

// Apply resolves a target position against the limits.  ok is false when
// the target is rejected; under Clamp the returned target is the nearest
// bound.
func (l StepLimits) Apply(target int64) (resolved int64, ok bool) {
	if l.Contains(target) {
		return target, true
	}
	if l.Policy == Reject {
		return target, false
	}
	if target < l.MinSteps {
		return l.MinSteps, true
	}
	return l.MaxSteps, true
}

// Nearest returns the bound a target would violate.
func (l StepLimits) Nearest(target int64) int64 {
	if target < l.MinSteps {
		return l.MinSteps
	}
	return l.MaxSteps
}

// Constraints are the step-domain mechanical constants derived once from
// the physical motor parameters.  They are immutable for the life of the
// motor.
type Constraints struct {
	// StepsPerRevolution of the output shaft: base steps x microsteps x
	// gear ratio, rounded to whole steps.
	StepsPerRevolution uint32

	// StepsPerDegree of output rotation.
	StepsPerDegree float64

	// MaxVelocitySteps is the velocity ceiling in steps/s.
	MaxVelocitySteps float64

	// MaxAccelerationSteps is the acceleration ceiling in steps/s².
	MaxAccelerationSteps float64

	// MinStepIntervalNs is the shortest pulse interval the motor will
	// ever be asked for, i.e. the interval at MaxVelocitySteps.
	MinStepIntervalNs uint32

	// Limits are the soft travel bounds, nil when unconfigured.
	Limits *StepLimits
}

// DeriveConstraints computes step-domain constants from physical motor
// parameters.  It is pure; the result is computed once at motor
// construction and cached for the motor's lifetime.
//
// Velocity and acceleration inputs are in deg/s and deg/s² and convert to
// the step domain through the steps-per-degree factor.
func DeriveConstraints(baseStepsPerRev, microsteps uint16, gearRatio, maxVelocityDeg, maxAccelerationDeg float64, limits *SoftLimits) (Constraints, error) {
	if baseStepsPerRev == 0 {
		return Constraints{}, ConfigError{Field: "steps_per_revolution", Value: baseStepsPerRev, Reason: "must be > 0"}
	}
	if microsteps == 0 || microsteps > 256 || microsteps&(microsteps-1) != 0 {
		return Constraints{}, ConfigError{Field: "microsteps", Value: microsteps, Reason: "must be a power of two in [1, 256]"}
	}
	if gearRatio <= 0 || math.IsNaN(gearRatio) || math.IsInf(gearRatio, 0) {
		return Constraints{}, ConfigError{Field: "gear_ratio", Value: gearRatio, Reason: "must be > 0"}
	}
	if maxVelocityDeg <= 0 {
		return Constraints{}, ConfigError{Field: "max_velocity_deg_per_sec", Value: maxVelocityDeg, Reason: "must be > 0"}
	}
	if maxAccelerationDeg <= 0 {
		return Constraints{}, ConfigError{Field: "max_acceleration_deg_per_sec2", Value: maxAccelerationDeg, Reason: "must be > 0"}
	}

	spr := math.Round(float64(baseStepsPerRev) * float64(microsteps) * gearRatio)
	if spr < 1 {
		return Constraints{}, ConfigError{Field: "gear_ratio", Value: gearRatio, Reason: "yields fewer than one step per revolution"}
	}
	spd := spr / 360.0

	c := Constraints{
		StepsPerRevolution:   uint32(spr),
		StepsPerDegree:       spd,
		MaxVelocitySteps:     maxVelocityDeg * spd,
		MaxAccelerationSteps: maxAccelerationDeg * spd,
	}
	c.MinStepIntervalNs = mathx.RoundNs(1e9 / c.MaxVelocitySteps)

	if limits != nil {
		min := int64(math.Round(limits.MinDegrees * spd))
		max := int64(math.Round(limits.MaxDegrees * spd))
		if min >= max {
			return Constraints{}, ConfigError{Field: "limits", Value: limits.MinDegrees, Reason: "min must be < max after conversion to steps"}
		}
		c.Limits = &StepLimits{MinSteps: min, MaxSteps: max, Policy: limits.Policy}
	}
	return c, nil
}

// DegreesToSteps converts an angular position to whole steps.
func (c Constraints) DegreesToSteps(deg float64) int64 {
	return int64(math.Round(deg * c.StepsPerDegree))
}

// StepsToDegrees converts a step position back to degrees.
func (c Constraints) StepsToDegrees(steps int64) float64 {
	return float64(steps) / c.StepsPerDegree
}

// VelocityToSteps converts deg/s to steps/s.
func (c Constraints) VelocityToSteps(degPerSec float64) float64 {
	return degPerSec * c.StepsPerDegree
}

// AccelerationToSteps converts deg/s² to steps/s².
func (c Constraints) AccelerationToSteps(degPerSec2 float64) float64 {
	return degPerSec2 * c.StepsPerDegree
}
