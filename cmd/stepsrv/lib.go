package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/motionlab/stepmotion/config"
	"github.com/motionlab/stepmotion/generichttp"
	"github.com/motionlab/stepmotion/generichttp/motion"
	"github.com/motionlab/stepmotion/gpiolink"
	"github.com/motionlab/stepmotion/rig"
	"github.com/motionlab/stepmotion/stepper"
)

// PinAssignment maps one motor to STEP and DIR pin numbers on the breakout
type PinAssignment struct {
	Step byte `koanf:"step" yaml:"step"`
	Dir  byte `koanf:"dir" yaml:"dir"`
}

// Breakout describes the GPIO breakout connection
type Breakout struct {
	// Addr is the network address (host:port) or serial device path
	Addr string `koanf:"addr" yaml:"addr"`

	// Serial selects a serial link instead of TCP
	Serial bool `koanf:"serial" yaml:"serial"`

	// Baud is the serial line rate, 0 for the default
	Baud int `koanf:"baud" yaml:"baud"`
}

// Config is a struct that holds the initialization parameters for the
// server.  It is to be populated by a yaml/unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"addr" yaml:"addr"`

	// Mock replaces the breakout with simulated pins
	Mock bool `koanf:"mock" yaml:"mock"`

	// CommandsPerSecond paces mutating routes, 0 for no pacing
	CommandsPerSecond float64 `koanf:"commands_per_second" yaml:"commands_per_second"`

	// Breakout is the GPIO breakout connection, ignored when Mock is set
	Breakout Breakout `koanf:"breakout" yaml:"breakout"`

	// Pins assigns breakout pins to motors by name
	Pins map[string]PinAssignment `koanf:"pins" yaml:"pins"`

	// Motion is the system description: motors, trajectories, sequences
	Motion config.System `koanf:"motion" yaml:"motion"`
}

// paced returns a middleware that applies a token bucket to mutating
// (non-GET) requests.  A step command that cannot get a token is refused,
// not queued; the client is in a better position to decide than a growing
// backlog inside the server.
func paced(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && !l.Allow() {
				http.Error(w, "command rate exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// buildHardware resolves the pin capabilities for every configured motor
func buildHardware(c Config) (map[string]rig.Hardware, error) {
	hw := make(map[string]rig.Hardware, len(c.Motion.Motors))
	if c.Mock {
		for _, m := range c.Motion.Motors {
			hw[m.Name] = rig.Hardware{
				Step:  stepper.NewSimPin(),
				Dir:   stepper.NewSimPin(),
				Delay: stepper.WallDelay{},
			}
		}
		return hw, nil
	}
	bk := gpiolink.NewBreakout(c.Breakout.Addr, c.Breakout.Serial)
	bk.Baud = c.Breakout.Baud
	if err := bk.Open(); err != nil {
		return nil, err
	}
	for _, m := range c.Motion.Motors {
		pins, ok := c.Pins[m.Name]
		if !ok {
			return nil, fmt.Errorf("motor %s has no pin assignment", m.Name)
		}
		hw[m.Name] = rig.Hardware{
			Step:  bk.Pin(pins.Step),
			Dir:   bk.Pin(pins.Dir),
			Delay: bk.Delayer(),
		}
	}
	return hw, nil
}

// BuildMux builds the rig from the config and binds a submux per motor.
// The mux serves a special route, /endpoints, which returns a map of
// mount points to their routes as JSON.
func BuildMux(c Config) (chi.Router, error) {
	c.Motion.ApplyDefaults()
	if err := c.Motion.Validate(); err != nil {
		return nil, err
	}
	hw, err := buildHardware(c)
	if err != nil {
		return nil, err
	}
	rg, err := rig.New(c.Motion, hw)
	if err != nil {
		return nil, err
	}

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	if c.CommandsPerSecond > 0 {
		root.Use(paced(rate.NewLimiter(rate.Limit(c.CommandsPerSecond), 1)))
	}
	supergraph := map[string][]string{}

	httper := motion.NewHTTPMotion(rg)
	for _, axis := range rg.Axes() {
		hndlS := generichttp.SubMuxSanitize(axis)
		supergraph[hndlS] = httper.RT().Endpoints()
		r := chi.NewRouter()
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, nil
}
