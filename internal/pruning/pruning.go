// Package pruning holds the compiled-in enumeration pruning-coefficient
// table keyed by block size (spec §4.E, §6): per-depth radius coefficients
// that cut the Schnorr-Euchner enumeration tree. Block sizes outside the
// table fall back to the all-ones (unpruned) vector.
package pruning

import "gonum.org/v1/gonum/stat/combin"

// table holds hand-tuned linear pruning schedules for a handful of
// representative block sizes, in the spirit of the step-function
// schedules shipped with common BKZ implementations: the first third of
// levels are unpruned, the remainder taper down linearly to the final
// coefficient.
var table = map[int][]float64{
	10: linearSchedule(10, 0.45),
	20: linearSchedule(20, 0.40),
	30: linearSchedule(30, 0.35),
	45: linearSchedule(45, 0.30),
	60: linearSchedule(60, 0.25),
}

// linearSchedule builds a monotonically non-increasing schedule of length
// n: the first third stays at 1, the remainder decays linearly to floor.
func linearSchedule(n int, floor float64) []float64 {
	out := make([]float64, n)
	flat := n / 3
	for i := 0; i < n; i++ {
		switch {
		case i < flat:
			out[i] = 1
		default:
			frac := float64(i-flat) / float64(max(1, n-flat-1))
			out[i] = 1 - frac*(1-floor)
		}
	}
	return out
}

// CoefficientsFor returns the pruning vector for block size beta. Sizes
// not present in the compiled table use the all-ones (unpruned) vector,
// per spec §6.
func CoefficientsFor(beta int) []float64 {
	if beta <= 0 {
		return nil
	}
	if v, ok := table[beta]; ok {
		out := make([]float64, len(v))
		copy(out, v)
		return out
	}
	out := make([]float64, beta)
	for i := range out {
		out[i] = 1
	}
	return out
}

// EstimatedNodes gives a rough upper bound on the number of tree nodes a
// full (unpruned) enumeration of a block of size beta would visit, so a
// caller can sanity-check why a large beta is slow; nothing in this
// module calls it. It is deliberately coarse: the central
// binomial coefficient of the search tree's branching at its widest
// level.
func EstimatedNodes(beta int) int {
	if beta <= 0 {
		return 0
	}
	return combin.Binomial(beta, beta/2)
}
