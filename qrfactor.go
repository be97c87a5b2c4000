package blaster

import (
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
)

// factorizeR computes the R-factor of the QR decomposition of Bᵀ, i.e. the
// upper-triangular Cholesky factor of the Gram matrix B·Bᵀ, with a
// positive diagonal (spec §4.B, §3). It is a pure function of b and safe
// to call from multiple goroutines on distinct inputs.
//
// The Gram matrix is assembled in arbitrary-precision big.Float before
// rounding to float64, which is what avoids the catastrophic cancellation
// spec.md §4.B warns about on long integer vectors: summing n products of
// possibly-large integers in float64 directly can lose most of its
// precision before the rounding step, whereas accumulating in big.Float
// and rounding once keeps the relative error at the final rounding only.
func factorizeR(b *intmat.Matrix) (*mat.Dense, error) {
	n, _ := b.Dims()
	gram := gramMatrixHighPrecision(b)

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); ok {
		var rt mat.TriDense
		chol.UTo(&rt)
		r := mat.NewDense(n, n, nil)
		r.Copy(&rt)
		if positiveDiagonal(r) {
			return r, nil
		}
	}

	// Fallback: Householder QR directly on a high-precision-rounded Bᵀ.
	// Cholesky can report ok=true yet leave a numerically tiny or
	// negative diagonal entry on a near-singular Gram matrix; QR on the
	// basis itself is more forgiving in that regime.
	bt := mat.NewDense(n, n, nil)
	rows := b.ToFloat64Rows()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bt.Set(j, i, rows[i][j])
		}
	}
	var qrf mat.QR
	qrf.Factorize(bt)
	r := qrf.RTo(nil)
	if !positiveDiagonal(r) {
		return nil, newError(NumericalFailure, "qr: R has a non-positive diagonal entry after fallback factorization")
	}
	return r, nil
}

// gramMatrixHighPrecision computes G = B·Bᵀ using math/big.Float
// accumulation, then rounds to a float64 mat.SymDense for Cholesky.
func gramMatrixHighPrecision(b *intmat.Matrix) *mat.SymDense {
	n, m := b.Dims()
	prec := uint(256)
	acc := new(big.Float).SetPrec(prec)
	term := new(big.Float).SetPrec(prec)
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			acc.SetInt64(0)
			for k := 0; k < m; k++ {
				term.SetInt(b.At(i, k))
				bf := new(big.Float).SetPrec(prec).SetInt(b.At(j, k))
				term.Mul(term, bf)
				acc.Add(acc, term)
			}
			v, _ := acc.Float64()
			g.SetSym(i, j, v)
		}
	}
	return g
}

func positiveDiagonal(r *mat.Dense) bool {
	n, _ := r.Dims()
	for i := 0; i < n; i++ {
		if r.At(i, i) <= 0 {
			return false
		}
	}
	return true
}
