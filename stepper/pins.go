package stepper

// Pin is a single binary output line.  A motor takes exclusive ownership of
// its STEP and DIR pins at construction; sharing a Pin between motors is a
// misuse the package does not defend against.
type Pin interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// Delayer blocks for a nanosecond-resolution interval.  The motor suspends
// inside DelayNs between raising and dropping the STEP line; everything
// else runs to completion without blocking.
type Delayer interface {
	DelayNs(ns uint32) error
}
