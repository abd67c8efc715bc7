package stepper

import "math"

// Position is the absolute step count of one motor shaft from its origin.
// It always reflects the true count of committed pulses: the only mutators
// are the step-commit path in Motor.Step and the explicit origin
// operations.
type Position struct {
	steps          int64
	stepsPerDegree float64
}

// NewPosition returns a position at the origin.
func NewPosition(stepsPerDegree float64) Position {
	return Position{stepsPerDegree: stepsPerDegree}
}

// Steps returns the absolute position in steps.
func (p Position) Steps() int64 {
	return p.steps
}

// Degrees returns the absolute position in degrees.
func (p Position) Degrees() float64 {
	return float64(p.steps) / p.stepsPerDegree
}

// StepsTo returns the signed displacement from the current position to a
// degree target.
func (p Position) StepsTo(targetDeg float64) int64 {
	return int64(math.Round(targetDeg*p.stepsPerDegree)) - p.steps
}

// commit records one executed pulse.  Called from exactly one site.
func (p *Position) commit(delta int64) {
	p.steps += delta
}

// rebase shifts the origin, used by explicit origin operations only.
func (p *Position) rebase(delta int64) {
	p.steps += delta
}

// zero resets the position to the origin.
func (p *Position) zero() {
	p.steps = 0
}
