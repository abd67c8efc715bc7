// Package rig assembles a multi-motor system from configuration: one
// stepper motor per axis, a shared trajectory registry, and per-axis
// executors.  It implements the generichttp motion Controller so a rig can
// be served over HTTP without adapter code.
package rig

import (
	"fmt"

	"github.com/motionlab/stepmotion/config"
	"github.com/motionlab/stepmotion/stepper"
	"github.com/motionlab/stepmotion/trajectory"
)

// UnknownAxisError indicates a command addressed to an axis the rig does
// not have.
type UnknownAxisError struct {
	Axis string
}

func (e UnknownAxisError) Error() string {
	return fmt.Sprintf("rig has no axis %q", e.Axis)
}

// Hardware is the pin set wired to one motor.
type Hardware struct {
	Step  stepper.Pin
	Dir   stepper.Pin
	Delay stepper.Delayer
}

// Rig is a set of named motors with their trajectories.
type Rig struct {
	motors   map[string]*stepper.Motor
	execs    map[string]*trajectory.Executor
	registry *trajectory.Registry
}

// New builds a rig from a validated system description and a hardware
// assignment per motor name.  Every motor in the description must have
// hardware.
func New(sys config.System, hw map[string]Hardware) (*Rig, error) {
	reg := sys.Registry()
	r := &Rig{
		motors:   make(map[string]*stepper.Motor, len(sys.Motors)),
		execs:    make(map[string]*trajectory.Executor, len(sys.Motors)),
		registry: reg,
	}
	for _, mc := range sys.Motors {
		h, ok := hw[mc.Name]
		if !ok {
			return nil, stepper.ConfigError{Field: "motors", Value: mc.Name, Reason: "no hardware assigned"}
		}
		cons, err := mc.Constraints()
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", mc.Name, err)
		}
		m, err := stepper.New(stepper.DeviceConfig{
			Name:            mc.Name,
			Step:            h.Step,
			Dir:             h.Dir,
			Delay:           h.Delay,
			Constraints:     cons,
			InvertDirection: mc.InvertDirection,
			BacklashDegrees: mc.BacklashCompensationDeg,
		})
		if err != nil {
			return nil, fmt.Errorf("motor %s: %w", mc.Name, err)
		}
		r.motors[mc.Name] = m
		r.execs[mc.Name] = &trajectory.Executor{Motor: m, Registry: reg}
	}
	return r, nil
}

// Motor returns the motor driving an axis.
func (r *Rig) Motor(axis string) (*stepper.Motor, error) {
	m, ok := r.motors[axis]
	if !ok {
		return nil, UnknownAxisError{Axis: axis}
	}
	return m, nil
}

// Executor returns the trajectory executor for an axis.
func (r *Rig) Executor(axis string) (*trajectory.Executor, error) {
	e, ok := r.execs[axis]
	if !ok {
		return nil, UnknownAxisError{Axis: axis}
	}
	return e, nil
}

// Registry returns the rig's trajectory registry.
func (r *Rig) Registry() *trajectory.Registry {
	return r.registry
}

// Axes returns the motor names the rig controls.
func (r *Rig) Axes() []string {
	out := make([]string, 0, len(r.motors))
	for name := range r.motors {
		out = append(out, name)
	}
	return out
}

// GetPos gets the position of an axis in degrees.
func (r *Rig) GetPos(axis string) (float64, error) {
	m, err := r.Motor(axis)
	if err != nil {
		return 0, err
	}
	return m.PositionDegrees(), nil
}

// MoveAbs moves an axis to an absolute position and blocks until done.
func (r *Rig) MoveAbs(axis string, pos float64) error {
	m, err := r.Motor(axis)
	if err != nil {
		return err
	}
	if err := m.MoveTo(pos); err != nil {
		return err
	}
	return m.Run()
}

// MoveRel moves an axis a relative amount and blocks until done.
func (r *Rig) MoveRel(axis string, delta float64) error {
	m, err := r.Motor(axis)
	if err != nil {
		return err
	}
	if err := m.MoveBy(delta); err != nil {
		return err
	}
	return m.Run()
}

// Stop abandons any in-progress move on an axis.
func (r *Rig) Stop(axis string) error {
	m, err := r.Motor(axis)
	if err != nil {
		return err
	}
	m.EmergencyStop()
	return nil
}

// Reset clears a latched fault on an axis.
func (r *Rig) Reset(axis string) error {
	m, err := r.Motor(axis)
	if err != nil {
		return err
	}
	return m.Reset()
}

// GetState returns the lifecycle state of an axis as a string.
func (r *Rig) GetState(axis string) (string, error) {
	m, err := r.Motor(axis)
	if err != nil {
		return "", err
	}
	return m.State().String(), nil
}

// AtLimit reports whether an axis sits on a soft limit boundary.
func (r *Rig) AtLimit(axis string) (bool, error) {
	m, err := r.Motor(axis)
	if err != nil {
		return false, err
	}
	return m.AtLimit(), nil
}

// SetOrigin zeroes the position of an axis.
func (r *Rig) SetOrigin(axis string) error {
	m, err := r.Motor(axis)
	if err != nil {
		return err
	}
	return m.SetOrigin()
}

// RunTrajectory executes a registered trajectory on the motor it targets.
func (r *Rig) RunTrajectory(name string) error {
	t, err := r.registry.Get(name)
	if err != nil {
		return err
	}
	e, err := r.Executor(t.Motor)
	if err != nil {
		return err
	}
	return e.Run(name)
}

// Trajectories lists the trajectory names registered for an axis.
func (r *Rig) Trajectories(axis string) ([]string, error) {
	if _, err := r.Motor(axis); err != nil {
		return nil, err
	}
	return r.registry.ForMotor(axis), nil
}
