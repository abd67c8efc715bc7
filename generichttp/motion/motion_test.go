package motion

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"

	"github.com/motionlab/stepmotion/config"
	"github.com/motionlab/stepmotion/generichttp"
	"github.com/motionlab/stepmotion/rig"
	"github.com/motionlab/stepmotion/stepper"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	sys := config.System{
		Motors: []config.Motor{{
			Name:                      "az",
			StepsPerRevolution:        200,
			Microsteps:                16,
			MaxVelocityDegPerSec:      360,
			MaxAccelerationDegPerSec2: 720,
		}},
		Trajectories: []config.Trajectory{
			{Name: "park", Motor: "az", TargetDegrees: 90},
		},
	}
	sys.ApplyDefaults()
	hw := map[string]rig.Hardware{"az": {
		Step:  stepper.NewSimPin(),
		Dir:   stepper.NewSimPin(),
		Delay: stepper.NewSimDelay(),
	}}
	rg, err := rig.New(sys, hw)
	if err != nil {
		t.Fatal(err)
	}
	router := chi.NewRouter()
	NewHTTPMotion(rg).RT().Bind(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetPos(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/axis/az/pos")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status, got %d expected 200", resp.StatusCode)
	}
	var f generichttp.FloatT
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 0 {
		t.Errorf("initial position, got %f expected 0", f.F64)
	}
}

func TestMoveThenGetPos(t *testing.T) {
	srv := testServer(t)
	body, _ := json.Marshal(generichttp.FloatT{F64: 45})
	resp, err := http.Post(srv.URL+"/axis/az/pos", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move status, got %d expected 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/axis/az/pos")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var f generichttp.FloatT
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 < 44.9 || f.F64 > 45.1 {
		t.Errorf("position after move, got %f expected ~45", f.F64)
	}
}

func TestRelativeMove(t *testing.T) {
	srv := testServer(t)
	body, _ := json.Marshal(generichttp.FloatT{F64: 10})
	resp, err := http.Post(srv.URL+"/axis/az/pos?relative=true", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("relative move status, got %d expected 200", resp.StatusCode)
	}
}

func TestGetState(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/axis/az/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var s generichttp.StrT
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Str != "Idle" {
		t.Errorf("state, got %q expected Idle", s.Str)
	}
}

func TestRunTrajectoryRoute(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Post(srv.URL+"/trajectory/park/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trajectory status, got %d expected 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/axis/az/pos")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var f generichttp.FloatT
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 < 89.9 || f.F64 > 90.1 {
		t.Errorf("position after trajectory, got %f expected ~90", f.F64)
	}
}

func TestUnknownTrajectoryIs500(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Post(srv.URL+"/trajectory/ghost/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status, got %d expected 500", resp.StatusCode)
	}
}

func TestAtLimitRoute(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/axis/az/limit")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status, got %d expected 200", resp.StatusCode)
	}
	var b generichttp.BoolT
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if b.Bool {
		t.Error("unlimited motor reported AtLimit")
	}
}
