package stepper

import (
	"errors"
	"time"
)

// ErrSimFailure is the error injected by the simulated hardware once its
// failure countdown expires.
var ErrSimFailure = errors.New("simulated hardware failure")

// SimPin is an in-memory Pin for tests and mock-mode servers.  It records
// every write and can be told to start failing after a number of writes.
type SimPin struct {
	// Level is the last value written.
	Level bool

	// Writes counts every Set call, including failed ones.
	Writes int

	// FailAfter injects ErrSimFailure on the (FailAfter+1)th write when
	// non-negative.  Leave it negative to never fail.
	FailAfter int
}

// NewSimPin returns a pin that never fails.
func NewSimPin() *SimPin {
	return &SimPin{FailAfter: -1}
}

// Set implements Pin.
func (p *SimPin) Set(high bool) error {
	if p.FailAfter >= 0 && p.Writes >= p.FailAfter {
		p.Writes++
		return ErrSimFailure
	}
	p.Writes++
	p.Level = high
	return nil
}

// SimDelay is an in-memory Delayer that records requested intervals instead
// of sleeping.
type SimDelay struct {
	// Intervals holds every requested delay in order.
	Intervals []uint32

	// FailAfter injects ErrSimFailure on the (FailAfter+1)th delay when
	// non-negative.
	FailAfter int
}

// NewSimDelay returns a delayer that never fails.
func NewSimDelay() *SimDelay {
	return &SimDelay{FailAfter: -1}
}

// DelayNs implements Delayer.
func (d *SimDelay) DelayNs(ns uint32) error {
	if d.FailAfter >= 0 && len(d.Intervals) >= d.FailAfter {
		return ErrSimFailure
	}
	d.Intervals = append(d.Intervals, ns)
	return nil
}

// WallDelay is a Delayer backed by the wall clock.  Scheduling jitter makes
// it unsuitable for fast pulse trains on a non-realtime kernel, but it is
// adequate for bench work and mock mode.
type WallDelay struct{}

// DelayNs implements Delayer.
func (WallDelay) DelayNs(ns uint32) error {
	time.Sleep(time.Duration(ns) * time.Nanosecond)
	return nil
}
