// Package mathx provides small rounding helpers shared by the motion planner
// and the constraint deriver.
package mathx

import "math"

// RoundSteps rounds a nonnegative float step count to the nearest whole step.
func RoundSteps(x float64) uint32 {
	if x <= 0 {
		return 0
	}
	if x >= float64(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(math.Round(x))
}

// RoundNs rounds a float nanosecond interval to a whole nanosecond count,
// saturating at the 32-bit ceiling rather than wrapping.
func RoundNs(x float64) uint32 {
	if x <= 0 {
		return 0
	}
	if x >= float64(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(math.Round(x))
}
