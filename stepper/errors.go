package stepper

import "fmt"

// ConfigError reports a malformed mechanical parameter.  It is generated at
// construction time only; a motor that constructed successfully never sees
// one during motion.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// LimitError is returned by a move request whose target violates the soft
// limits under the Reject policy.  The motor is left exactly as it was.
type LimitError struct {
	Requested int64
	Limit     int64
}

func (e LimitError) Error() string {
	return fmt.Sprintf("requested position %d steps exceeds soft limit %d", e.Requested, e.Limit)
}

// StateError is returned when an operation is invoked in a state it is not
// valid for.  It indicates misuse of the call sequence, never a hardware
// condition, and changes nothing.
type StateError struct {
	Op    string
	State State
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s is not valid in the %s state", e.Op, e.State)
}

// HardwareError wraps a failure from the pin or delay capability.  It is
// fatal to the move in flight: the motor latches Fault and stays there
// until Reset.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware failure during %s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}
