package trajectory

import (
	"math"
	"testing"

	"github.com/motionlab/stepmotion/stepper"
)

func testConstraints(t *testing.T) stepper.Constraints {
	t.Helper()
	c, err := stepper.DeriveConstraints(200, 16, 1, 360, 720, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEffectiveVelocity(t *testing.T) {
	c := testConstraints(t)
	cases := []struct {
		descr string
		trj   Trajectory
		want  float64
	}{
		{"percent", Trajectory{VelocityPercent: 50}, c.MaxVelocitySteps / 2},
		{"unset defaults to full", Trajectory{}, c.MaxVelocitySteps},
		{"absolute wins over percent", Trajectory{VelocityPercent: 50, VelocityDegPerSec: 90}, 90 * c.StepsPerDegree},
	}
	for _, cs := range cases {
		t.Run(cs.descr, func(t *testing.T) {
			got := cs.trj.EffectiveVelocity(c)
			if math.Abs(got-cs.want) > 1e-9 {
				t.Errorf("got %f expected %f", got, cs.want)
			}
		})
	}
}

func TestEffectiveDecelerationPrecedence(t *testing.T) {
	c := testConstraints(t)
	cases := []struct {
		descr string
		trj   Trajectory
		want  float64
	}{
		{"explicit decel", Trajectory{AccelerationDegPerSec2: 100, DecelerationDegPerSec2: 50}, 50 * c.StepsPerDegree},
		{"falls back to explicit accel", Trajectory{AccelerationDegPerSec2: 100}, 100 * c.StepsPerDegree},
		{"falls back to percent of max", Trajectory{AccelerationPercent: 25}, c.MaxAccelerationSteps / 4},
		{"everything unset", Trajectory{}, c.MaxAccelerationSteps},
	}
	for _, cs := range cases {
		t.Run(cs.descr, func(t *testing.T) {
			got := cs.trj.EffectiveDeceleration(c)
			if math.Abs(got-cs.want) > 1e-9 {
				t.Errorf("got %f expected %f", got, cs.want)
			}
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(Trajectory{Name: "home", Motor: "az"})
	r.Register(Trajectory{Name: "park", Motor: "az"})
	r.Register(Trajectory{Name: "stow", Motor: "el"})

	if r.Len() != 3 {
		t.Errorf("len, got %d expected 3", r.Len())
	}
	if _, err := r.Get("home"); err != nil {
		t.Error(err)
	}
	_, err := r.Get("nope")
	if err == nil {
		t.Fatal("expected a NotFoundError, got nil")
	}
	nfe, ok := err.(NotFoundError)
	if !ok {
		t.Fatalf("expected a NotFoundError, got %T", err)
	}
	if nfe.Name != "nope" {
		t.Errorf("error name, got %q expected %q", nfe.Name, "nope")
	}

	names := r.Names()
	want := []string{"home", "park", "stow"}
	if len(names) != len(want) {
		t.Fatalf("names, got %v expected %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names, got %v expected %v", names, want)
		}
	}

	az := r.ForMotor("az")
	if len(az) != 2 || az[0] != "home" || az[1] != "park" {
		t.Errorf("ForMotor az, got %v expected [home park]", az)
	}
}

func TestSequenceLeg(t *testing.T) {
	s := Sequence{Name: "scan", Motor: "az", Waypoints: []float64{0, 45, 90}, VelocityPercent: 75, DwellMs: 10}
	leg := s.Leg(1)
	if leg.Motor != "az" || leg.TargetDegrees != 45 || leg.VelocityPercent != 75 || leg.DwellMs != 10 {
		t.Errorf("leg fields wrong: %+v", leg)
	}
}
