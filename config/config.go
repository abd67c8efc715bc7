// Package config loads and validates the YAML system description: motors,
// named trajectories, and waypoint sequences.  Validation happens once at
// load; the motion core trusts what it is handed.
package config

import (
	"fmt"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/motionlab/stepmotion/stepper"
	"github.com/motionlab/stepmotion/trajectory"
)

// Limits is the optional soft travel bound block of a motor.
type Limits struct {
	MinDegrees float64 `koanf:"min_degrees" yaml:"min_degrees"`
	MaxDegrees float64 `koanf:"max_degrees" yaml:"max_degrees"`

	// Policy is "reject" or "clamp".  Empty means reject.
	Policy string `koanf:"policy" yaml:"policy"`
}

// Motor is the physical description of one axis.
type Motor struct {
	Name string `koanf:"name" yaml:"name"`

	// StepsPerRevolution is the base full-step count of the motor, e.g.
	// 200 for a 1.8 degree motor.
	StepsPerRevolution uint16 `koanf:"steps_per_revolution" yaml:"steps_per_revolution"`

	// Microsteps is the driver microstepping factor, a power of two in
	// [1, 256].
	Microsteps uint16 `koanf:"microsteps" yaml:"microsteps"`

	// GearRatio is output shaft turns per motor turn.  Zero means 1.
	GearRatio float64 `koanf:"gear_ratio" yaml:"gear_ratio"`

	MaxVelocityDegPerSec      float64 `koanf:"max_velocity_deg_per_sec" yaml:"max_velocity_deg_per_sec"`
	MaxAccelerationDegPerSec2 float64 `koanf:"max_acceleration_deg_per_sec2" yaml:"max_acceleration_deg_per_sec2"`

	// InvertDirection flips the DIR pin polarity.
	InvertDirection bool `koanf:"invert_direction" yaml:"invert_direction"`

	// BacklashCompensationDeg is the slack taken up on reversal.
	BacklashCompensationDeg float64 `koanf:"backlash_compensation_deg" yaml:"backlash_compensation_deg"`

	// Limits bound travel when present.
	Limits *Limits `koanf:"limits" yaml:"limits,omitempty"`
}

// Trajectory is a named move recipe in the configuration file.
type Trajectory struct {
	Name          string  `koanf:"name" yaml:"name"`
	Motor         string  `koanf:"motor" yaml:"motor"`
	TargetDegrees float64 `koanf:"target_degrees" yaml:"target_degrees"`

	// VelocityPercent and AccelerationPercent scale the motor maxima,
	// in [1, 200].  Zero means 100.
	VelocityPercent     float64 `koanf:"velocity_percent" yaml:"velocity_percent"`
	AccelerationPercent float64 `koanf:"acceleration_percent" yaml:"acceleration_percent"`

	// Absolute rates override the percents when nonzero.
	VelocityDegPerSec      float64 `koanf:"velocity_deg_per_sec" yaml:"velocity_deg_per_sec"`
	AccelerationDegPerSec2 float64 `koanf:"acceleration_deg_per_sec2" yaml:"acceleration_deg_per_sec2"`
	DecelerationDegPerSec2 float64 `koanf:"deceleration_deg_per_sec2" yaml:"deceleration_deg_per_sec2"`

	DwellMs int `koanf:"dwell_ms" yaml:"dwell_ms"`
}

// Sequence is a named waypoint list in the configuration file.
type Sequence struct {
	Name            string    `koanf:"name" yaml:"name"`
	Motor           string    `koanf:"motor" yaml:"motor"`
	Waypoints       []float64 `koanf:"waypoints" yaml:"waypoints"`
	VelocityPercent float64   `koanf:"velocity_percent" yaml:"velocity_percent"`
	DwellMs         int       `koanf:"dwell_ms" yaml:"dwell_ms"`
}

// System is the root of the configuration file.
type System struct {
	Motors       []Motor      `koanf:"motors" yaml:"motors"`
	Trajectories []Trajectory `koanf:"trajectories" yaml:"trajectories"`
	Sequences    []Sequence   `koanf:"sequences" yaml:"sequences"`
}

// Load reads a YAML file, applies defaults, and validates the result.
func Load(path string) (System, error) {
	var s System
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return s, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := k.Unmarshal("", &s); err != nil {
		return s, fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// ApplyDefaults fills zero values with their documented defaults: gear
// ratio 1, velocity and acceleration percents 100.
func (s *System) ApplyDefaults() {
	for i := range s.Motors {
		if s.Motors[i].GearRatio == 0 {
			s.Motors[i].GearRatio = 1
		}
	}
	for i := range s.Trajectories {
		if s.Trajectories[i].VelocityPercent == 0 {
			s.Trajectories[i].VelocityPercent = 100
		}
		if s.Trajectories[i].AccelerationPercent == 0 {
			s.Trajectories[i].AccelerationPercent = 100
		}
	}
	for i := range s.Sequences {
		if s.Sequences[i].VelocityPercent == 0 {
			s.Sequences[i].VelocityPercent = 100
		}
	}
}

// Validate checks cross-record consistency.  Per-motor physical parameters
// are checked again by constraint derivation; this pass catches what only
// the whole file can reveal: duplicates, dangling motor references, percent
// ranges, and limit ordering.
func (s System) Validate() error {
	motors := make(map[string]Motor, len(s.Motors))
	for _, m := range s.Motors {
		if m.Name == "" {
			return stepper.ConfigError{Field: "motors.name", Value: "", Reason: "every motor needs a name"}
		}
		if _, dup := motors[m.Name]; dup {
			return stepper.ConfigError{Field: "motors.name", Value: m.Name, Reason: "duplicate motor name"}
		}
		if m.Limits != nil {
			if m.Limits.MinDegrees >= m.Limits.MaxDegrees {
				return stepper.ConfigError{Field: "limits", Value: m.Name, Reason: "min_degrees must be < max_degrees"}
			}
			if _, err := parsePolicy(m.Limits.Policy); err != nil {
				return err
			}
		}
		if m.BacklashCompensationDeg < 0 {
			return stepper.ConfigError{Field: "backlash_compensation_deg", Value: m.BacklashCompensationDeg, Reason: "must be >= 0"}
		}
		motors[m.Name] = m
	}

	names := make(map[string]bool, len(s.Trajectories)+len(s.Sequences))
	for _, t := range s.Trajectories {
		if t.Name == "" {
			return stepper.ConfigError{Field: "trajectories.name", Value: "", Reason: "every trajectory needs a name"}
		}
		if names[t.Name] {
			return stepper.ConfigError{Field: "trajectories.name", Value: t.Name, Reason: "duplicate trajectory name"}
		}
		names[t.Name] = true
		m, ok := motors[t.Motor]
		if !ok {
			return stepper.ConfigError{Field: "trajectories.motor", Value: t.Motor, Reason: "references an unknown motor"}
		}
		if err := percentInRange("velocity_percent", t.VelocityPercent); err != nil {
			return err
		}
		if err := percentInRange("acceleration_percent", t.AccelerationPercent); err != nil {
			return err
		}
		if m.Limits != nil && policyOf(m.Limits.Policy) == stepper.Reject {
			if t.TargetDegrees < m.Limits.MinDegrees || t.TargetDegrees > m.Limits.MaxDegrees {
				return stepper.ConfigError{Field: "target_degrees", Value: t.Name, Reason: "target outside the motor's reject-policy limits"}
			}
		}
	}

	for _, q := range s.Sequences {
		if q.Name == "" {
			return stepper.ConfigError{Field: "sequences.name", Value: "", Reason: "every sequence needs a name"}
		}
		if names[q.Name] {
			return stepper.ConfigError{Field: "sequences.name", Value: q.Name, Reason: "name collides with a trajectory or sequence"}
		}
		names[q.Name] = true
		if _, ok := motors[q.Motor]; !ok {
			return stepper.ConfigError{Field: "sequences.motor", Value: q.Motor, Reason: "references an unknown motor"}
		}
		if len(q.Waypoints) == 0 {
			return stepper.ConfigError{Field: "waypoints", Value: q.Name, Reason: "must list at least one waypoint"}
		}
		if err := percentInRange("velocity_percent", q.VelocityPercent); err != nil {
			return err
		}
	}
	return nil
}

func percentInRange(field string, v float64) error {
	if v < 1 || v > 200 {
		return stepper.ConfigError{Field: field, Value: v, Reason: "must be in [1, 200]"}
	}
	return nil
}

func parsePolicy(s string) (stepper.LimitPolicy, error) {
	switch s {
	case "", "reject":
		return stepper.Reject, nil
	case "clamp":
		return stepper.Clamp, nil
	}
	return stepper.Reject, stepper.ConfigError{Field: "limits.policy", Value: s, Reason: `must be "reject" or "clamp"`}
}

func policyOf(s string) stepper.LimitPolicy {
	p, _ := parsePolicy(s)
	return p
}

// MotorNamed returns the motor record with the given name.
func (s System) MotorNamed(name string) (Motor, bool) {
	for _, m := range s.Motors {
		if m.Name == name {
			return m, true
		}
	}
	return Motor{}, false
}

// Constraints derives the step-domain constraints for one motor record.
func (m Motor) Constraints() (stepper.Constraints, error) {
	var lim *stepper.SoftLimits
	if m.Limits != nil {
		pol, err := parsePolicy(m.Limits.Policy)
		if err != nil {
			return stepper.Constraints{}, err
		}
		lim = &stepper.SoftLimits{
			MinDegrees: m.Limits.MinDegrees,
			MaxDegrees: m.Limits.MaxDegrees,
			Policy:     pol,
		}
	}
	return stepper.DeriveConstraints(
		m.StepsPerRevolution,
		m.Microsteps,
		m.GearRatio,
		m.MaxVelocityDegPerSec,
		m.MaxAccelerationDegPerSec2,
		lim,
	)
}

// Registry builds a trajectory registry from the file's records.  Call
// Validate first; Registry assumes the records are sound.
func (s System) Registry() *trajectory.Registry {
	r := trajectory.NewRegistry()
	for _, t := range s.Trajectories {
		r.Register(trajectory.Trajectory{
			Name:                   t.Name,
			Motor:                  t.Motor,
			TargetDegrees:          t.TargetDegrees,
			VelocityPercent:        t.VelocityPercent,
			VelocityDegPerSec:      t.VelocityDegPerSec,
			AccelerationPercent:    t.AccelerationPercent,
			AccelerationDegPerSec2: t.AccelerationDegPerSec2,
			DecelerationDegPerSec2: t.DecelerationDegPerSec2,
			DwellMs:                t.DwellMs,
		})
	}
	for _, q := range s.Sequences {
		r.RegisterSequence(trajectory.Sequence{
			Name:            q.Name,
			Motor:           q.Motor,
			Waypoints:       q.Waypoints,
			VelocityPercent: q.VelocityPercent,
			DwellMs:         q.DwellMs,
		})
	}
	return r
}
