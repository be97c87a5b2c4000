// Package bkzker implements the BKZ in-block kernel (spec §4.F): for each
// window start j in a w-wide block, run LLL on [j,w) to keep it
// size-reduced, enumerate the shortest vector of the sub-block [j,j+beta),
// and insert it at j (triggering a re-LLL) when it strictly improves on
// the current first vector.
//
// Like internal/sizered and internal/lllker, Tour operates directly on the
// shared (r, u) pair via base offsets rather than copying sub-matrices: R
// and U are the block's own w×w buffers, and every sub-window [j, j+k) is
// addressed in place.
package bkzker

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
	"github.com/cxzhong/BLASter/internal/enum"
	"github.com/cxzhong/BLASter/internal/lllker"
	"github.com/cxzhong/BLASter/internal/pruning"
)

// Tour runs a single BKZ tour sweep over the w-wide block (spec §4.F);
// the driver is responsible for calling Tour Options.Tours times. sizeRed
// selects the size-reduction kernel LLL uses internally.
func Tour(r *mat.Dense, u *intmat.Matrix, w, beta int, delta float64, sizeRed func(*mat.Dense, *intmat.Matrix, int, int)) {
	for j := 0; j <= w-beta; j++ {
		// Step 1: ensure [j, w) is size-reduced via plain LLL.
		lllker.Reduce(r, u, j, w-j, delta, 1, sizeRed)

		// Step 2: enumerate the shortest vector of the sub-block [j, j+beta).
		coeffs := pruning.CoefficientsFor(beta)
		res, err := enum.Enumerate(r, j, beta, coeffs)
		if err != nil {
			// Block too large for enumeration: skip this window,
			// leaving it LLL-reduced only (a degraded but valid state).
			continue
		}

		// Step 3: insert when strictly shorter by a factor over
		// delta^-1/2, i.e. when NormSq < delta * R[j,j]^2.
		current := r.At(j, j)
		threshold := delta * current * current
		if res.NormSq < threshold {
			insertVector(r, u, w, j, beta, res.Coeffs)
			lllker.Reduce(r, u, j, beta, delta, 1, sizeRed)
		}
	}
}

// insertVector prepends the lattice vector described by coeffs (relative
// to rows [j, j+beta) of the basis, as tracked through u and expressed in
// R's existing orthogonal frame) to position j, shifting the rest of the
// sub-block down by one. Since coeffs is a combination of rows that all
// already live in the same Gram-Schmidt frame, the new row's R
// representation is exactly that same combination of R's rows (spec §4.F
// step 3); the result is re-triangularized with a local QR before the
// caller's follow-up lllker.Reduce restores Lovász/size-reduction.
func insertVector(r *mat.Dense, u *intmat.Matrix, w, j, beta int, coeffs []float64) {
	n, _ := u.Dims()
	newURow := make([]*big.Int, n)
	for col := range newURow {
		newURow[col] = new(big.Int)
	}
	newRRow := make([]float64, w-j)
	term := new(big.Int)
	for k := 0; k < beta; k++ {
		c := coeffs[k]
		if c == 0 {
			continue
		}
		coeff := big.NewInt(int64(math.Round(c)))
		for col := 0; col < n; col++ {
			term.Mul(coeff, u.At(j+k, col))
			newURow[col].Add(newURow[col], term)
		}
		for col := j; col < w; col++ {
			newRRow[col-j] += c * r.At(j+k, col)
		}
	}

	// Shift rows [j, j+beta) down by one, dropping the sub-block's former
	// last row: the new vector replaces the block's first generator while
	// preserving the lattice spanned by [j, j+beta).
	for row := j + beta - 1; row > j; row-- {
		for col := 0; col < n; col++ {
			u.Set(row, col, u.At(row-1, col))
		}
		for col := j; col < w; col++ {
			r.Set(row, col, r.At(row-1, col))
		}
	}
	for col := 0; col < n; col++ {
		u.Set(j, col, newURow[col])
	}
	for col := j; col < w; col++ {
		r.Set(j, col, newRRow[col-j])
	}
	reorthogonalize(r, j, w)
}

// reorthogonalize restores R's upper-triangular shape over [from, w) after
// insertVector writes a row expressed in the pre-insertion orthogonal
// frame, via a local Householder QR (mirrors internal/lllker's rotation
// repair for the same reason: a row combination leaves R valid but no
// longer triangular).
func reorthogonalize(r *mat.Dense, from, w int) {
	sub := mat.NewDense(w-from, w-from, nil)
	for i := from; i < w; i++ {
		for jc := from; jc < w; jc++ {
			sub.Set(i-from, jc-from, r.At(i, jc))
		}
	}
	var qr mat.QR
	qr.Factorize(sub)
	newR := qr.RTo(nil)
	for i := from; i < w; i++ {
		for jc := from; jc < w; jc++ {
			if jc < i {
				r.Set(i, jc, 0)
				continue
			}
			r.Set(i, jc, newR.At(i-from, jc-from))
		}
	}
}
