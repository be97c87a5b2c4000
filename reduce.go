package blaster

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/internal/driver"
	"github.com/cxzhong/BLASter/internal/enum"
	"github.com/cxzhong/BLASter/internal/lllker"
	"github.com/cxzhong/BLASter/internal/sizered"
	"github.com/cxzhong/BLASter/intmat"
)

// Result bundles the outcome of a reduction call (spec §6).
type Result struct {
	// ReducedBasis is the reduced basis; Reduce/BKZReduce never mutate the
	// caller's b in place.
	ReducedBasis *intmat.Matrix
	// Transform is U such that ReducedBasis = U · b exactly.
	Transform *intmat.Matrix
	Metrics   Metrics
}

// Reduce reduces b per opts (LLL, deep-LLL, or BKZ, selected by
// opts.Algorithm) and returns the reduced basis, its unimodular transform,
// and quality/cost metrics. b is not modified; the returned basis is a
// separate matrix (spec §6).
func Reduce(b *intmat.Matrix, opts Options) (Result, error) {
	return reduce(b, opts)
}

// BKZReduce reduces b with BKZ(beta, tours), overriding opts.Algorithm,
// opts.Beta and opts.Tours (spec §6).
func BKZReduce(b *intmat.Matrix, beta, tours int, opts Options) (Result, error) {
	opts.Algorithm = BKZ
	opts.Beta = beta
	opts.Tours = tours
	return reduce(b, opts)
}

func reduce(b *intmat.Matrix, opts Options) (Result, error) {
	start := time.Now()
	if err := validate(b, opts); err != nil {
		return Result{}, err
	}
	n, _ := b.Dims()
	cfg := driverConfigFor(opts, n)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	working := b.Clone()
	outcome, err := driver.Run(ctx, working, cfg, factorizeR)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return Result{}, e
		}
		return Result{}, wrapError(NumericalFailure, err, "driver run failed")
	}

	m := computeMetrics(outcome.R, outcome.B, start, outcome.Passes, outcome.KernelInvocations, outcome.TimedOut)
	return Result{
		ReducedBasis: outcome.B,
		Transform:    outcome.U,
		Metrics:      m,
	}, nil
}

// driverConfigFor translates the caller-facing Options into the internal
// driver's Config, resolving the adaptive block size default (spec §4.G)
// against the basis dimension n.
func driverConfigFor(opts Options, n int) driver.Config {
	return driver.Config{
		Kernel:    driverKernelFor(opts.Algorithm),
		Delta:     opts.Delta,
		BlockSize: blockSizeFor(opts, n),
		Depth:     opts.Depth,
		Beta:      opts.Beta,
		Tours:     opts.Tours,
		Cores:     opts.Cores,
		UseSeysen: opts.UseSeysen,
		Verbose:   opts.Verbose,
		Logger:    opts.Logger,
		MaxPasses: opts.MaxPasses,
	}
}

func driverKernelFor(a Algorithm) driver.Kernel {
	switch a {
	case DeepLLL:
		return driver.DeepLLL
	case BKZ:
		return driver.BKZ
	default:
		return driver.LLL
	}
}

// validate checks the preconditions spec §7 assigns to InvalidInput, and
// resolves the adaptive block size/beta against the basis's actual
// dimension (blockSizeFor needs n, which isn't known until here).
func validate(b *intmat.Matrix, opts Options) error {
	rows, cols := b.Dims()
	if rows != cols {
		return newError(InvalidInput, "basis must be square")
	}
	if b.Det().Sign() == 0 {
		return newError(InvalidInput, "basis must be non-singular")
	}
	if opts.Delta <= 0.25 || opts.Delta > 1 {
		return newError(InvalidInput, "delta must lie in (1/4, 1]")
	}
	if opts.Algorithm == BKZ {
		w := blockSizeFor(opts, rows)
		beta := opts.Beta
		if beta <= 0 {
			beta = w
		}
		if beta > enum.MaxEnumN {
			return newError(InvalidInput, "beta exceeds MAX_ENUM_N")
		}
		if beta > w {
			return newError(InvalidInput, "beta exceeds block size")
		}
	}
	return nil
}

// IsLLLReduced reports whether b is already size-reduced and satisfies the
// Lovász condition at every adjacent pair, at the given delta (spec §6).
// It runs size-reduction and a single LLL pass on a private copy and
// checks the result is unchanged, rather than duplicating the size-reduced
// + Lovász test logic a second time.
func IsLLLReduced(b *intmat.Matrix, delta float64) bool {
	n, m := b.Dims()
	if n != m {
		return false
	}
	r, err := factorizeR(b)
	if err != nil {
		return false
	}
	u := intmat.Identity(n)
	before := cloneDense(r)
	sizered.Classical(r, u, 0, n)
	if !u.IsIdentity() {
		return false
	}
	lllker.Reduce(r, u, 0, n, delta, 1, sizered.Classical)
	if !u.IsIdentity() {
		return false
	}
	return denseEqual(before, r)
}

func cloneDense(r *mat.Dense) *mat.Dense {
	rows, cols := r.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Copy(r)
	return out
}

func denseEqual(a, b *mat.Dense) bool {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return false
	}
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			if a.At(i, j) != b.At(i, j) {
				return false
			}
		}
	}
	return true
}
