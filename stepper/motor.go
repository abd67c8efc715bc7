package stepper

import (
	"sync"

	"github.com/motionlab/stepmotion/motion"
)

// State is the lifecycle state of a motor.
type State int

const (
	// Idle means the motor holds position and accepts new commands.
	Idle State = iota

	// Moving means a planned profile is being executed step by step.
	Moving

	// Homing means a homing cycle is in progress.
	Homing

	// Fault means a hardware operation failed.  The motor refuses all
	// motion until Reset is called.
	Fault
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Moving:
		return "Moving"
	case Homing:
		return "Homing"
	case Fault:
		return "Fault"
	}
	return "Unknown"
}

// DeviceConfig collects everything needed to construct a Motor.
type DeviceConfig struct {
	// Name identifies the axis in errors and logs.
	Name string

	// Step is the pulse output.  One low-high-low cycle is one step.
	Step Pin

	// Dir is the direction output.
	Dir Pin

	// Delay paces the pulse train.
	Delay Delayer

	// Constraints are the derived mechanical limits for this axis.
	Constraints Constraints

	// InvertDirection flips the polarity of the Dir pin, for drivers
	// wired with DIR active-low.
	InvertDirection bool

	// BacklashDegrees is the mechanical slack taken up on direction
	// reversal.  Zero disables compensation.
	BacklashDegrees float64
}

// Motor executes planned motion profiles on a step/dir pin pair.  It is a
// state machine: commands are legal only in particular states, and a pin
// failure mid-move latches Fault until Reset.
//
// All methods are safe for concurrent use, but Step is meant to be driven
// from a single goroutine; the lock only protects command/query interleave.
type Motor struct {
	mu sync.Mutex

	name        string
	step        Pin
	dir         Pin
	delay       Delayer
	constraints Constraints
	invert      bool
	backlash    int64

	state    State
	pos      Position
	seq      *motion.Sequencer
	lastDir  motion.Direction
	dirKnown bool
	faultErr error
}

// New builds a Motor in the Idle state at the origin.
func New(cfg DeviceConfig) (*Motor, error) {
	if cfg.Step == nil {
		return nil, ConfigError{Field: "step", Value: nil, Reason: "step pin is required"}
	}
	if cfg.Dir == nil {
		return nil, ConfigError{Field: "dir", Value: nil, Reason: "dir pin is required"}
	}
	if cfg.Delay == nil {
		return nil, ConfigError{Field: "delay", Value: nil, Reason: "delayer is required"}
	}
	if cfg.Constraints.StepsPerDegree <= 0 {
		return nil, ConfigError{Field: "constraints", Value: cfg.Constraints.StepsPerDegree, Reason: "constraints not derived"}
	}
	if cfg.BacklashDegrees < 0 {
		return nil, ConfigError{Field: "backlash_compensation_deg", Value: cfg.BacklashDegrees, Reason: "must be >= 0"}
	}
	bl := int64(cfg.BacklashDegrees*cfg.Constraints.StepsPerDegree + 0.5)
	return &Motor{
		name:        cfg.Name,
		step:        cfg.Step,
		dir:         cfg.Dir,
		delay:       cfg.Delay,
		constraints: cfg.Constraints,
		invert:      cfg.InvertDirection,
		backlash:    bl,
		state:       Idle,
		pos:         NewPosition(cfg.Constraints.StepsPerDegree),
	}, nil
}

// Name returns the axis name.
func (m *Motor) Name() string {
	return m.name
}

// State returns the current lifecycle state.
func (m *Motor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Constraints returns the derived limits this motor enforces.
func (m *Motor) Constraints() Constraints {
	return m.constraints
}

// PositionSteps returns the committed position in steps.
func (m *Motor) PositionSteps() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos.Steps()
}

// PositionDegrees returns the committed position in degrees.
func (m *Motor) PositionDegrees() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos.Degrees()
}

// BacklashSteps returns the configured backlash compensation in steps.
func (m *Motor) BacklashSteps() int64 {
	return m.backlash
}

// LastDirection returns the direction of the most recent committed step and
// whether any step has been committed since construction or reset.
func (m *Motor) LastDirection() (motion.Direction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDir, m.dirKnown
}

// AtLimit reports whether the committed position sits on a soft limit
// boundary.  Motors without limits are never at a limit.
func (m *Motor) AtLimit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.constraints.Limits
	if l == nil {
		return false
	}
	s := m.pos.Steps()
	return s == l.MinSteps || s == l.MaxSteps
}

// Progress returns the fraction of the active move already committed, in
// [0,1].  Idle motors report 1.
func (m *Motor) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		return 1
	}
	return m.seq.Progress()
}

// Phase returns the profile phase the next pulse falls in.  Motors without
// an active move report Complete.
func (m *Motor) Phase() motion.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq == nil {
		return motion.Complete
	}
	return m.seq.Phase()
}

// FaultCause returns the error that latched the Fault state, or nil.
func (m *Motor) FaultCause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faultErr
}

// MoveTo plans a move to an absolute degree target at the constraint
// maxima.  The motor transitions to Moving; drive the move with Step or
// Run.
func (m *Motor) MoveTo(targetDeg float64) error {
	c := m.constraints
	return m.MoveToWith(targetDeg, c.MaxVelocitySteps, c.MaxAccelerationSteps, c.MaxAccelerationSteps)
}

// MoveToWith plans a move to an absolute degree target with explicit step
// domain rates.  Rates above the constraint maxima are clamped down to
// them.  Soft limits are applied to the target per their policy; a Reject
// policy violation returns a LimitError and leaves the motor Idle.
func (m *Motor) MoveToWith(targetDeg, velocity, accel, decel float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return StateError{Op: "MoveTo", State: m.state}
	}
	target := m.constraints.DegreesToSteps(targetDeg)
	if l := m.constraints.Limits; l != nil {
		resolved, ok := l.Apply(target)
		if !ok {
			return LimitError{Requested: target, Limit: l.Nearest(target)}
		}
		target = resolved
	}
	return m.plan(target-m.pos.Steps(), velocity, accel, decel)
}

// MoveBy plans a relative move at the constraint maxima.
func (m *Motor) MoveBy(deltaDeg float64) error {
	c := m.constraints
	return m.MoveByWith(deltaDeg, c.MaxVelocitySteps, c.MaxAccelerationSteps, c.MaxAccelerationSteps)
}

// MoveByWith plans a relative move with explicit step domain rates.
func (m *Motor) MoveByWith(deltaDeg, velocity, accel, decel float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return StateError{Op: "MoveBy", State: m.state}
	}
	delta := int64(0)
	if deltaDeg != 0 {
		delta = m.pos.StepsTo(m.pos.Degrees() + deltaDeg)
	}
	if l := m.constraints.Limits; l != nil {
		target := m.pos.Steps() + delta
		resolved, ok := l.Apply(target)
		if !ok {
			return LimitError{Requested: target, Limit: l.Nearest(target)}
		}
		delta = resolved - m.pos.Steps()
	}
	return m.plan(delta, velocity, accel, decel)
}

// plan is the common tail of the move commands.  Caller holds the lock and
// has verified Idle.
func (m *Motor) plan(deltaSteps int64, velocity, accel, decel float64) error {
	if deltaSteps == 0 {
		// already there; a no-op move succeeds without a state change
		return nil
	}
	c := m.constraints
	if velocity > c.MaxVelocitySteps {
		velocity = c.MaxVelocitySteps
	}
	if accel > c.MaxAccelerationSteps {
		accel = c.MaxAccelerationSteps
	}
	if decel > c.MaxAccelerationSteps {
		decel = c.MaxAccelerationSteps
	}
	p, err := motion.Plan(deltaSteps, velocity, accel, decel)
	if err != nil {
		return err
	}
	m.seq = motion.NewSequencer(p)
	m.state = Moving
	return nil
}

// Step issues the next pulse of the active move.  It returns false when the
// move has completed and the motor is back to Idle.  A pin or delay failure
// latches the Fault state, discards the rest of the move, and returns a
// HardwareError; the position keeps only the pulses that fully committed.
func (m *Motor) Step() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Moving {
		return false, StateError{Op: "Step", State: m.state}
	}
	st, ok := m.seq.Next()
	if !ok {
		m.seq = nil
		m.state = Idle
		return false, nil
	}
	if err := m.setDirection(st.Direction); err != nil {
		m.fault("set direction", err)
		return false, m.faultErr
	}
	if err := m.step.Set(true); err != nil {
		m.fault("step high", err)
		return false, m.faultErr
	}
	if err := m.delay.DelayNs(st.IntervalNs); err != nil {
		// best effort to not leave the pulse line asserted
		m.step.Set(false)
		m.fault("delay", err)
		return false, m.faultErr
	}
	if err := m.step.Set(false); err != nil {
		m.fault("step low", err)
		return false, m.faultErr
	}
	m.pos.commit(st.Direction.Sign())
	if m.seq.Remaining() == 0 {
		m.seq = nil
		m.state = Idle
		return false, nil
	}
	return true, nil
}

// setDirection writes the dir pin only when the direction actually changes.
func (m *Motor) setDirection(d motion.Direction) error {
	if m.dirKnown && d == m.lastDir {
		return nil
	}
	level := d == motion.CW
	if m.invert {
		level = !level
	}
	if err := m.dir.Set(level); err != nil {
		return err
	}
	m.lastDir = d
	m.dirKnown = true
	return nil
}

// Run drives the active move to completion, stepping until the motor
// returns to Idle or faults.
func (m *Motor) Run() error {
	for {
		more, err := m.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// EmergencyStop abandons the rest of the active move immediately.  The
// motor returns to Idle holding whatever position the committed pulses
// reached.  Stopping an Idle motor is a no-op; a Fault stays latched.
func (m *Motor) EmergencyStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Moving && m.state != Homing {
		return
	}
	m.seq = nil
	m.state = Idle
}

// Reset clears a latched Fault and returns the motor to Idle.  The position
// is preserved; callers who no longer trust it should rehome.
func (m *Motor) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Fault {
		return StateError{Op: "Reset", State: m.state}
	}
	m.faultErr = nil
	m.state = Idle
	return nil
}

// SetOrigin declares the current position to be zero.  Idle only.
func (m *Motor) SetOrigin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return StateError{Op: "SetOrigin", State: m.state}
	}
	m.pos.zero()
	return nil
}

// RebaseOrigin shifts the origin by a step delta without moving the shaft.
// Idle only.
func (m *Motor) RebaseOrigin(deltaSteps int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return StateError{Op: "RebaseOrigin", State: m.state}
	}
	m.pos.rebase(deltaSteps)
	return nil
}

// fault latches the Fault state.  Caller holds the lock.
func (m *Motor) fault(op string, err error) {
	m.seq = nil
	m.state = Fault
	m.faultErr = &HardwareError{Op: op, Err: err}
}
