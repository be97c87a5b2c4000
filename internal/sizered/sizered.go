// Package sizered implements the size-reduction kernel (spec §4.C): given
// a w×w R-window and an accumulating w×w unimodular transform, it drives
// |R[i,j]| <= 1/2 |R[i,i]| for all j>i. Two interchangeable kernels are
// provided: Classical (row-by-row) and Seysen (batched via the inverse of
// the triangular part of R).
//
// Every function takes a base offset so it can operate on a window
// [base, base+w) carved out of a larger shared R/U pair without copying:
// this is what lets the BKZ kernel (internal/bkzker) run LLL and
// size-reduction on sliding sub-windows of its own w-wide block in place.
package sizered

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
)

// Classical implements the textbook sweep from spec §4.C: for j from 1 to
// w-1, for i from j-1 down to 0, q = round(R[i,j]/R[i,i]); R[:,j] -= q *
// R[:,i]. It always terminates (spec §4.C, "Failure: none").
//
// R[:,j] -= q*R[:,i] is a column operation on R, corresponding to the row
// operation row_j(B) -= q*row_i(B) on the basis itself (R's column j holds
// the Gram-Schmidt representation of basis row j). U tracks the basis
// directly, so the mirrored update on U is the row operation U[j,:] -=
// q*U[i,:], using the same i, j, q as the R update (spec §4.C, §4.A).
func Classical(r *mat.Dense, u *intmat.Matrix, base, w int) {
	for j := 1; j < w; j++ {
		for i := j - 1; i >= 0; i-- {
			rii := r.At(base+i, base+i)
			if rii == 0 {
				continue
			}
			q := math.Round(r.At(base+i, base+j) / rii)
			if q == 0 {
				continue
			}
			subtractColumnMultiple(r, base, i, j, q, i+1)
			subtractTransformRow(u, base, i, j, big.NewInt(int64(q)))
		}
	}
}

// subtractColumnMultiple performs R[:upto, j] -= q * R[:upto, i] on the
// floating R-window (indices relative to base); upto limits the update to
// the rows where column i of the upper-triangular R can be non-zero
// (rows 0..i).
func subtractColumnMultiple(r *mat.Dense, base, i, j int, q float64, upto int) {
	for row := 0; row < upto; row++ {
		r.Set(base+row, base+j, r.At(base+row, base+j)-q*r.At(base+row, base+i))
	}
}

// subtractTransformRow performs U[j,:] -= q * U[i,:] on the integer
// transform, over the full column range of U's own window (U's rows, like
// lllker's and bkzker's, always span the whole local transform, not just
// the [base, base+w) sub-window of the R update that produced q).
func subtractTransformRow(u *intmat.Matrix, base, i, j int, q *big.Int) {
	_, uw := u.Dims()
	acc := new(big.Int)
	for c := 0; c < uw; c++ {
		acc.Mul(q, u.At(base+i, c))
		u.Set(base+j, c, new(big.Int).Sub(u.At(base+j, c), acc))
	}
}

// Seysen computes every size-reduction quotient at once from R^-1 (the
// inverse of R's upper-triangular part), then applies them in a single
// batched pass. Because the quotients are all derived from the R that
// existed before any update was applied, a batched round can leave some
// pair outside the 1/2 bound; Seysen repairs those with one Classical
// pass, which is guaranteed to terminate and to restore the invariant.
func Seysen(r *mat.Dense, u *intmat.Matrix, base, w int) {
	tri := r.Slice(base, base+w, base, base+w).(*mat.Dense)
	var inv mat.Dense
	if err := inv.Inverse(tri); err != nil {
		// R is singular to working precision in this window; fall back
		// to the always-terminating classical sweep outright.
		Classical(r, u, base, w)
		return
	}

	// Batched quotients: writing R = D(I+N) with D = diag(R), the integer
	// unit-upper-triangular T = round((I+N)^-1) = round(Rinv * D) makes
	// R*T close to diagonal; q[i][j] = -T[i][j] for i < j.
	q := make([][]float64, w)
	for i := range q {
		q[i] = make([]float64, w)
	}
	for j := 1; j < w; j++ {
		for i := 0; i < j; i++ {
			q[i][j] = -math.Round(inv.At(i, j) * r.At(base+j, base+j))
		}
	}
	// Applied right to left: column j only borrows from columns i < j,
	// which are still unmodified at that point, so the batch computes
	// R := R*T (with the matching row operations on U).
	for j := w - 1; j >= 1; j-- {
		for i := j - 1; i >= 0; i-- {
			qij := q[i][j]
			if qij == 0 {
				continue
			}
			subtractColumnMultiple(r, base, i, j, qij, i+1)
			subtractTransformRow(u, base, i, j, big.NewInt(int64(qij)))
		}
	}
	// Repair pass: the batched step used a stale R for every quotient,
	// so guarantee the postcondition with one classical sweep.
	Classical(r, u, base, w)
}
