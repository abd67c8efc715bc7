package mathx

import (
	"math"
	"testing"
)

func TestRoundSteps(t *testing.T) {
	cases := []struct {
		in   float64
		want uint32
	}{
		{0, 0},
		{-5, 0},
		{0.4, 0},
		{0.5, 1},
		{166.67, 167},
		{1e12, math.MaxUint32},
	}
	for _, c := range cases {
		if got := RoundSteps(c.in); got != c.want {
			t.Errorf("RoundSteps(%f), got %d expected %d", c.in, got, c.want)
		}
	}
}

func TestRoundNs(t *testing.T) {
	cases := []struct {
		in   float64
		want uint32
	}{
		{0, 0},
		{312500.4, 312500},
		{1e9 / 1600, 625000},
		{math.MaxUint32 * 2.0, math.MaxUint32},
	}
	for _, c := range cases {
		if got := RoundNs(c.in); got != c.want {
			t.Errorf("RoundNs(%f), got %d expected %d", c.in, got, c.want)
		}
	}
}
