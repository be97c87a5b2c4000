package blaster

import (
	"math"
	"math/big"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cxzhong/BLASter/intmat"
)

// Metrics reports the quality and cost of a reduction call (spec §6).
type Metrics struct {
	// RootHermiteFactor is (||B'_0|| / |det B|^(1/n))^(1/n); lower is
	// better.
	RootHermiteFactor float64
	// Slope is the least-squares slope of (i, log R[i,i]).
	Slope float64
	// Potential is Σ (n-i)*log R[i,i], strictly non-increasing across
	// driver passes (spec §8 property 7).
	Potential float64
	// Runtime is the total wall-clock time spent inside Reduce/BKZReduce.
	Runtime time.Duration
	// Passes is the number of completed driver passes.
	Passes int
	// KernelInvocations is the number of in-block kernel calls across
	// all passes (one per block per pass).
	KernelInvocations int
	// TimedOut is set when the context was cancelled or its deadline
	// passed before convergence; the returned basis is the best found so
	// far (spec §5, §7).
	TimedOut bool
}

// computeMetrics derives the quality metrics from the final R-factor and
// basis determinant. It never fails: R always has a positive diagonal by
// the time a caller reaches this point (factorizeR already validated it).
func computeMetrics(r *mat.Dense, b *intmat.Matrix, start time.Time, passes, kernelCalls int, timedOut bool) Metrics {
	n, _ := r.Dims()
	diag := make([]float64, n)
	logDiag := make([]float64, n)
	idx := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = r.At(i, i)
		logDiag[i] = math.Log(diag[i])
		idx[i] = float64(i)
	}

	detAbs := absFloat64(b.Det())
	rhf := 0.0
	if detAbs > 0 && n > 0 {
		b0 := diag[0]
		rhf = math.Pow(b0/math.Pow(detAbs, 1/float64(n)), 1/float64(n))
	}

	_, slope := stat.LinearRegression(idx, logDiag, nil, false)

	potential := floats.Sum(logDiag)
	for i := 0; i < n; i++ {
		potential += float64(n-1-i) * logDiag[i]
	}

	return Metrics{
		RootHermiteFactor: rhf,
		Slope:             slope,
		Potential:         potential,
		Runtime:           time.Since(start),
		Passes:            passes,
		KernelInvocations: kernelCalls,
		TimedOut:          timedOut,
	}
}

// absFloat64 converts a *big.Int determinant to |det| as a float64.
func absFloat64(v *big.Int) float64 {
	f := new(big.Float).SetInt(v)
	f.Abs(f)
	out, _ := f.Float64()
	return out
}
