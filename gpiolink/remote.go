package gpiolink

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"

	"github.com/motionlab/stepmotion/stepper"
)

// Breakout is a remote GPIO board reachable over serial or TCP.  It hands
// out stepper Pin and Delayer capabilities that tunnel each operation
// through an acknowledged telegram.
//
// The link is concurrent-safe; telegrams are serialized by an internal
// lock so command/ack pairs never interleave.
type Breakout struct {
	// Addr is the network address (host:port) or serial device path.
	Addr string

	// IsSerial selects a serial link instead of TCP.
	IsSerial bool

	// Baud is the serial line rate.  Zero means 115200.
	Baud int

	mu   sync.Mutex
	conn io.ReadWriteCloser
}

// NewBreakout returns an unopened breakout.
func NewBreakout(addr string, isSerial bool) *Breakout {
	return &Breakout{Addr: addr, IsSerial: isSerial}
}

// Open establishes the connection.  Breakout firmware resets when the line
// is thrashed, so connection attempts retry under exponential backoff; a
// refused connection fails fast.
func (b *Breakout) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasTimeout := false
	op := func() error {
		err := b.open()
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("connection timeout to %s", b.Addr)
	}
	return err
}

func (b *Breakout) open() error {
	var conn io.ReadWriteCloser
	var err error
	if b.IsSerial {
		baud := b.Baud
		if baud == 0 {
			baud = 115200
		}
		conn, err = serial.OpenPort(&serial.Config{Name: b.Addr, Baud: baud})
	} else {
		conn, err = tcpSetup(b.Addr, 3*time.Second)
	}
	if err != nil {
		return err
	}
	b.conn = conn
	return nil
}

// Close closes the connection.
func (b *Breakout) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	if err == nil {
		b.conn = nil
	}
	return err
}

// roundTrip sends a command telegram and waits for its ack.
func (b *Breakout) roundTrip(m Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("breakout %s is not open", b.Addr)
	}
	if _, err := b.conn.Write(Marshal(m)); err != nil {
		return err
	}
	raw, err := bufio.NewReader(b.conn).ReadBytes(telEnd)
	if err != nil {
		return err
	}
	resp, err := Decode(raw)
	if err != nil {
		return err
	}
	if resp.Nak() {
		return fmt.Errorf("breakout %s rejected op %#X on pin %d, code %d", b.Addr, m.Op, m.Pin, resp.Arg)
	}
	return nil
}

// Pin returns the remote pin with the given id as a stepper Pin.
func (b *Breakout) Pin(id byte) stepper.Pin {
	return remotePin{b: b, id: id}
}

// Delayer returns the breakout's firmware timer as a stepper Delayer.
func (b *Breakout) Delayer() stepper.Delayer {
	return remoteDelay{b: b}
}

type remotePin struct {
	b  *Breakout
	id byte
}

func (p remotePin) Set(high bool) error {
	var arg uint32
	if high {
		arg = 1
	}
	return p.b.roundTrip(Message{Op: OpSetPin, Pin: p.id, Arg: arg})
}

type remoteDelay struct {
	b *Breakout
}

func (d remoteDelay) DelayNs(ns uint32) error {
	return d.b.roundTrip(Message{Op: OpDelay, Arg: ns})
}

func tcpSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
