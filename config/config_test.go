package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/motionlab/stepmotion/stepper"
)

func TestLoad(t *testing.T) {
	s, err := Load("testdata/motion.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Motors) != 2 {
		t.Fatalf("motors, got %d expected 2", len(s.Motors))
	}
	az, ok := s.MotorNamed("az")
	if !ok {
		t.Fatal("motor az missing")
	}
	if az.GearRatio != 1 {
		t.Errorf("gear ratio default, got %f expected 1", az.GearRatio)
	}
	if az.Limits == nil || az.Limits.Policy != "reject" {
		t.Error("az limits not parsed")
	}
	el, _ := s.MotorNamed("el")
	if !el.InvertDirection {
		t.Error("el invert flag not parsed")
	}
	if el.GearRatio != 5.18 {
		t.Errorf("el gear ratio, got %f expected 5.18", el.GearRatio)
	}

	// defaults filled on percent fields
	for _, tr := range s.Trajectories {
		if tr.AccelerationPercent == 0 {
			t.Errorf("trajectory %s acceleration percent not defaulted", tr.Name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestMotorConstraints(t *testing.T) {
	s, err := Load("testdata/motion.yaml")
	if err != nil {
		t.Fatal(err)
	}
	az, _ := s.MotorNamed("az")
	c, err := az.Constraints()
	if err != nil {
		t.Fatal(err)
	}
	if c.StepsPerRevolution != 3200 {
		t.Errorf("steps per revolution, got %d expected 3200", c.StepsPerRevolution)
	}
	if c.Limits == nil || c.Limits.Policy != stepper.Reject {
		t.Error("limits not carried into constraints")
	}
}

func TestRegistry(t *testing.T) {
	s, err := Load("testdata/motion.yaml")
	if err != nil {
		t.Fatal(err)
	}
	r := s.Registry()
	if r.Len() != 3 {
		t.Fatalf("registry len, got %d expected 3", r.Len())
	}
	park, err := r.Get("az-park")
	if err != nil {
		t.Fatal(err)
	}
	if park.VelocityDegPerSec != 45 || park.DecelerationDegPerSec2 != 45 || park.DwellMs != 100 {
		t.Errorf("az-park fields wrong: %+v", park)
	}
	if _, err := r.GetSequence("az-scan"); err != nil {
		t.Error(err)
	}
	az := r.ForMotor("az")
	if len(az) != 2 {
		t.Errorf("ForMotor az, got %v expected two names", az)
	}
}

func validSystem() System {
	return System{
		Motors: []Motor{{
			Name:                      "az",
			StepsPerRevolution:        200,
			Microsteps:                16,
			GearRatio:                 1,
			MaxVelocityDegPerSec:      360,
			MaxAccelerationDegPerSec2: 720,
		}},
		Trajectories: []Trajectory{{
			Name:                "home",
			Motor:               "az",
			VelocityPercent:     100,
			AccelerationPercent: 100,
		}},
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		descr  string
		mutate func(*System)
	}{
		{"duplicate motor", func(s *System) {
			s.Motors = append(s.Motors, s.Motors[0])
		}},
		{"unnamed motor", func(s *System) {
			s.Motors[0].Name = ""
		}},
		{"inverted limits", func(s *System) {
			s.Motors[0].Limits = &Limits{MinDegrees: 10, MaxDegrees: -10}
		}},
		{"bad policy", func(s *System) {
			s.Motors[0].Limits = &Limits{MinDegrees: -10, MaxDegrees: 10, Policy: "ignore"}
		}},
		{"negative backlash", func(s *System) {
			s.Motors[0].BacklashCompensationDeg = -1
		}},
		{"duplicate trajectory", func(s *System) {
			s.Trajectories = append(s.Trajectories, s.Trajectories[0])
		}},
		{"unknown motor reference", func(s *System) {
			s.Trajectories[0].Motor = "ghost"
		}},
		{"velocity percent too high", func(s *System) {
			s.Trajectories[0].VelocityPercent = 250
		}},
		{"velocity percent too low", func(s *System) {
			s.Trajectories[0].VelocityPercent = 0.5
		}},
		{"target beyond reject limits", func(s *System) {
			s.Motors[0].Limits = &Limits{MinDegrees: -90, MaxDegrees: 90, Policy: "reject"}
			s.Trajectories[0].TargetDegrees = 120
		}},
		{"sequence without waypoints", func(s *System) {
			s.Sequences = []Sequence{{Name: "scan", Motor: "az", VelocityPercent: 100}}
		}},
		{"sequence name collides", func(s *System) {
			s.Sequences = []Sequence{{Name: "home", Motor: "az", Waypoints: []float64{1}, VelocityPercent: 100}}
		}},
	}
	for _, cs := range cases {
		t.Run(cs.descr, func(t *testing.T) {
			s := validSystem()
			cs.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected a ConfigError, got nil")
			}
			if _, ok := err.(stepper.ConfigError); !ok {
				t.Fatalf("expected a ConfigError, got %T", err)
			}
		})
	}

	s := validSystem()
	if err := s.Validate(); err != nil {
		t.Fatalf("valid system rejected: %v", err)
	}
}

// A marshaled System must load back unchanged, so the conf subcommand's
// echo of the running config is itself a valid config file.
func TestYAMLRoundTrip(t *testing.T) {
	sys, err := Load("testdata/motion.yaml")
	if err != nil {
		t.Fatal(err)
	}
	buf, err := yaml.Marshal(sys)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "echo.yaml")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sys, back) {
		t.Errorf("round trip mismatch:\nfirst  %+v\nsecond %+v", sys, back)
	}
}
