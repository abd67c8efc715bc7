package trajectory

import (
	"testing"
	"time"

	"github.com/motionlab/stepmotion/stepper"
)

func testMotor(t *testing.T, backlashDeg float64) *stepper.Motor {
	t.Helper()
	m, err := stepper.New(stepper.DeviceConfig{
		Name:            "az",
		Step:            stepper.NewSimPin(),
		Dir:             stepper.NewSimPin(),
		Delay:           stepper.NewSimDelay(),
		Constraints:     testConstraints(t),
		BacklashDegrees: backlashDeg,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestExecutorRun(t *testing.T) {
	m := testMotor(t, 0)
	r := NewRegistry()
	r.Register(Trajectory{Name: "park", Motor: "az", TargetDegrees: 45, VelocityPercent: 50})
	e := &Executor{Motor: m, Registry: r}
	if err := e.Run("park"); err != nil {
		t.Fatal(err)
	}
	want := m.Constraints().DegreesToSteps(45)
	if got := m.PositionSteps(); got != want {
		t.Errorf("position, got %d expected %d", got, want)
	}
	if m.State() != stepper.Idle {
		t.Errorf("state, got %v expected Idle", m.State())
	}
}

func TestExecutorUnknownName(t *testing.T) {
	e := &Executor{Motor: testMotor(t, 0), Registry: NewRegistry()}
	err := e.Run("ghost")
	if err == nil {
		t.Fatal("expected a NotFoundError, got nil")
	}
	if _, ok := err.(NotFoundError); !ok {
		t.Fatalf("expected a NotFoundError, got %T", err)
	}
}

func TestExecutorMotorMismatch(t *testing.T) {
	m := testMotor(t, 0)
	e := &Executor{Motor: m}
	err := e.Execute(Trajectory{Name: "stow", Motor: "el", TargetDegrees: 10})
	if err == nil {
		t.Fatal("expected a MismatchError, got nil")
	}
	if _, ok := err.(MismatchError); !ok {
		t.Fatalf("expected a MismatchError, got %T", err)
	}
	if m.PositionSteps() != 0 {
		t.Error("mismatched trajectory must not move the motor")
	}
}

func TestExecutorProgressCallback(t *testing.T) {
	m := testMotor(t, 0)
	var calls int
	var last float64
	e := &Executor{Motor: m, Progress: func(name string, frac float64) {
		calls++
		if frac < last {
			t.Fatalf("progress went backwards: %f after %f", frac, last)
		}
		last = frac
	}}
	if err := e.Execute(Trajectory{Name: "park", Motor: "az", TargetDegrees: 10}); err != nil {
		t.Fatal(err)
	}
	steps := int(m.Constraints().DegreesToSteps(10))
	// one call per committed step; the last one reports completion
	if calls != steps {
		t.Errorf("progress calls, got %d expected %d", calls, steps)
	}
	if last != 1 {
		t.Errorf("final progress, got %f expected 1", last)
	}
}

func TestExecutorDwell(t *testing.T) {
	m := testMotor(t, 0)
	var slept time.Duration
	e := &Executor{Motor: m, Sleep: func(d time.Duration) { slept += d }}
	if err := e.Execute(Trajectory{Name: "park", Motor: "az", TargetDegrees: 5, DwellMs: 250}); err != nil {
		t.Fatal(err)
	}
	if slept != 250*time.Millisecond {
		t.Errorf("dwell, got %v expected 250ms", slept)
	}
}

func TestExecutorBacklashOnReversal(t *testing.T) {
	m := testMotor(t, 1) // 1 degree of slack: 9 steps at 8.889 steps/deg
	e := &Executor{Motor: m}

	// first move, no prior direction, no compensation
	if err := e.Execute(Trajectory{Motor: "az", TargetDegrees: 45}); err != nil {
		t.Fatal(err)
	}
	fwd := m.Constraints().DegreesToSteps(45)
	if got := m.PositionSteps(); got != fwd {
		t.Fatalf("position after forward move, got %d expected %d", got, fwd)
	}

	// reversal: the slack pulses must not count as travel
	if err := e.Execute(Trajectory{Motor: "az", TargetDegrees: 10}); err != nil {
		t.Fatal(err)
	}
	want := m.Constraints().DegreesToSteps(10)
	if got := m.PositionSteps(); got != want {
		t.Errorf("position after reversal, got %d expected %d", got, want)
	}

	// same direction again, no compensation, position still exact
	if err := e.Execute(Trajectory{Motor: "az", TargetDegrees: 5}); err != nil {
		t.Fatal(err)
	}
	want = m.Constraints().DegreesToSteps(5)
	if got := m.PositionSteps(); got != want {
		t.Errorf("position after same-direction move, got %d expected %d", got, want)
	}
}

func TestRunSequence(t *testing.T) {
	m := testMotor(t, 0)
	r := NewRegistry()
	r.RegisterSequence(Sequence{Name: "scan", Motor: "az", Waypoints: []float64{10, 20, 5}})
	e := &Executor{Motor: m, Registry: r}
	if err := e.RunSequence("scan"); err != nil {
		t.Fatal(err)
	}
	want := m.Constraints().DegreesToSteps(5)
	if got := m.PositionSteps(); got != want {
		t.Errorf("position after sequence, got %d expected %d", got, want)
	}
}

func TestRunSequenceMotorMismatch(t *testing.T) {
	r := NewRegistry()
	r.RegisterSequence(Sequence{Name: "scan", Motor: "el", Waypoints: []float64{10}})
	e := &Executor{Motor: testMotor(t, 0), Registry: r}
	if err := e.RunSequence("scan"); err == nil {
		t.Fatal("expected a MismatchError, got nil")
	}
}
