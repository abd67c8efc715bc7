package trajectory

import (
	"fmt"
	"time"

	"github.com/motionlab/stepmotion/motion"
	"github.com/motionlab/stepmotion/stepper"
)

// MismatchError indicates a trajectory run against a motor it does not
// target.
type MismatchError struct {
	Trajectory string
	Targets    string
	Motor      string
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("trajectory %q targets motor %q, not %q", e.Trajectory, e.Targets, e.Motor)
}

// Executor drives one motor through registered trajectories.  It owns the
// pacing loop: it resolves the record's rates against the motor's
// constraints, steps the move to completion, compensates backlash on
// direction reversal, and dwells after arrival.
type Executor struct {
	// Motor is the axis this executor drives.
	Motor *stepper.Motor

	// Registry resolves trajectory and sequence names.  May be nil when
	// only Execute is used.
	Registry *Registry

	// Progress, when non-nil, is called after every committed step with
	// the trajectory name and the fraction complete in [0,1].
	Progress func(name string, frac float64)

	// Sleep replaces time.Sleep for dwell, for tests.  Nil means real
	// sleeping.
	Sleep func(time.Duration)
}

// Run looks up a trajectory by name and executes it.
func (e *Executor) Run(name string) error {
	t, err := e.Registry.Get(name)
	if err != nil {
		return err
	}
	return e.Execute(t)
}

// RunSequence looks up a waypoint sequence by name and executes its legs in
// order.  A failed leg aborts the remainder.
func (e *Executor) RunSequence(name string) error {
	s, err := e.Registry.GetSequence(name)
	if err != nil {
		return err
	}
	if s.Motor != e.Motor.Name() {
		return MismatchError{Trajectory: s.Name, Targets: s.Motor, Motor: e.Motor.Name()}
	}
	for i := range s.Waypoints {
		if err := e.Execute(s.Leg(i)); err != nil {
			return fmt.Errorf("sequence %q leg %d: %w", name, i, err)
		}
	}
	return nil
}

// Execute runs one trajectory record to completion.
func (e *Executor) Execute(t Trajectory) error {
	m := e.Motor
	if t.Motor != "" && t.Motor != m.Name() {
		return MismatchError{Trajectory: t.Name, Targets: t.Motor, Motor: m.Name()}
	}
	c := m.Constraints()
	vel := t.EffectiveVelocity(c)
	acc := t.EffectiveAcceleration(c)
	dec := t.EffectiveDeceleration(c)

	if err := e.compensateBacklash(t.TargetDegrees, vel, acc, dec); err != nil {
		return err
	}
	if err := m.MoveToWith(t.TargetDegrees, vel, acc, dec); err != nil {
		return err
	}
	if err := e.drive(t.Name); err != nil {
		return err
	}
	e.dwell(t.DwellMs)
	return nil
}

// compensateBacklash takes up mechanical slack when the upcoming move
// reverses direction: the motor steps through the backlash band, then the
// origin is rebased so the slack pulses do not count as travel.
func (e *Executor) compensateBacklash(targetDeg, vel, acc, dec float64) error {
	m := e.Motor
	bl := m.BacklashSteps()
	if bl == 0 {
		return nil
	}
	last, known := m.LastDirection()
	if !known {
		return nil
	}
	c := m.Constraints()
	delta := c.DegreesToSteps(targetDeg) - m.PositionSteps()
	if delta == 0 {
		return nil
	}
	next := motion.DirectionOf(delta)
	if next == last {
		return nil
	}
	slackDeg := c.StepsToDegrees(bl * next.Sign())
	if err := m.MoveByWith(slackDeg, vel, acc, dec); err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	return m.RebaseOrigin(-bl * next.Sign())
}

// drive steps the active move to completion, reporting progress.
func (e *Executor) drive(name string) error {
	m := e.Motor
	for {
		more, err := m.Step()
		if err != nil {
			return err
		}
		if e.Progress != nil {
			e.Progress(name, m.Progress())
		}
		if !more {
			return nil
		}
	}
}

func (e *Executor) dwell(ms int) {
	if ms <= 0 {
		return
	}
	d := time.Duration(ms) * time.Millisecond
	if e.Sleep != nil {
		e.Sleep(d)
		return
	}
	time.Sleep(d)
}
