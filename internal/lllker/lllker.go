// Package lllker implements the LLL and deep-LLL in-block kernels
// (spec §4.D): a state machine over index k in [1,w) that alternates
// size-reduction, a Lovász check, and a row swap (or, for deep-LLL, a
// cyclic insertion up to Depth positions earlier).
//
// Like internal/sizered, every function takes a base offset so it can run
// on a window [base, base+w) of a larger shared R/U pair in place; this is
// what lets internal/bkzker re-run LLL on a sliding suffix of its own
// block without copying.
package lllker

import (
	"math"
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
)

// relTol is the numerical tolerance within which the Lovász test is
// treated as satisfied, guaranteeing forward progress even when R[i,i]
// has underflowed to something vanishingly small (spec §4.D, "Numerical
// edge cases").
const relTol = 1e-12

// Reduce runs classical LLL (depth=1) or deep-LLL (depth>1) on the
// w-wide window starting at base, in place, until the Lovász condition
// holds at every adjacent pair and the window is size-reduced (spec §4.D
// postcondition). sizeRed selects Classical or Seysen size-reduction per
// Options.UseSeysen.
func Reduce(r *mat.Dense, u *intmat.Matrix, base, w int, delta float64, depth int, sizeRed func(*mat.Dense, *intmat.Matrix, int, int)) {
	if depth < 1 {
		depth = 1
	}
	k := 1
	for k < w {
		sizeReduceUpTo(r, u, sizeRed, base, k, w)
		j := bestInsertionPosition(r, base, delta, k, depth)
		if j == k {
			// Lovász condition already holds at k-1: advance.
			k++
			continue
		}
		insert(r, u, base, j, k, w)
		if j == 0 {
			k = 1
		} else {
			k = j
		}
	}
}

// sizeReduceUpTo restricts the batched size-reduction kernels (which
// operate on a whole window) to the local [0,k] prefix that LLL has
// reduced so far, by invoking the kernel on a shrunk sub-window.
func sizeReduceUpTo(r *mat.Dense, u *intmat.Matrix, sizeRed func(*mat.Dense, *intmat.Matrix, int, int), base, k, w int) {
	upper := k + 1
	if upper > w {
		upper = w
	}
	sizeRed(r, u, base, upper)
}

// lovaszHolds reports whether delta*R[i,i]^2 <= R[i+1,i+1]^2 + R[i,i+1]^2,
// within relTol of equality, at adjacent pair (i, i+1) of the window
// starting at base.
func lovaszHolds(r *mat.Dense, base int, delta float64, i int) bool {
	rii := r.At(base+i, base+i)
	lhs := delta * rii * rii
	rhs := r.At(base+i+1, base+i+1)*r.At(base+i+1, base+i+1) + r.At(base+i, base+i+1)*r.At(base+i, base+i+1)
	return lhs <= rhs*(1+relTol) || math.Abs(lhs-rhs) <= relTol*math.Max(1, math.Abs(rhs))
}

// bestInsertionPosition finds the leftmost position j in
// [max(0,k-depth), k-1] at which delta*R[j,j]^2 exceeds the squared
// length of row k projected orthogonally to rows [0,j), i.e. where
// inserting row k shortens the Gram-Schmidt vector at j. It scans from
// k-1 down to the deepest candidate and keeps the last hit, so ties
// prefer the leftmost position (spec §4.D, "Tie-breaks in deep-LLL prefer
// the leftmost insertion position").
// depth==1 restricts the scan to j==k-1, i.e. classical Swap. Returns k
// itself when no insertion is needed (Lovász already holds at k-1).
func bestInsertionPosition(r *mat.Dense, base int, delta float64, k, depth int) int {
	if lovaszHolds(r, base, delta, k-1) {
		return k
	}
	lo := k - depth
	if lo < 0 {
		lo = 0
	}
	// Candidate norm-squared of the projection of row k onto the
	// orthogonal complement of rows [0,j): for j==k-1 this is exactly
	// the classical swap test; for smaller j we accumulate the running
	// GSO norm of row k against each candidate predecessor in turn (spec
	// §4.D, "would decrease the GSO norm of the prefix").
	candidateNormSq := r.At(base+k, base+k) * r.At(base+k, base+k)
	best := k - 1
	for j := k - 1; j >= lo; j-- {
		candidateNormSq += r.At(base+j, base+k) * r.At(base+j, base+k)
		if delta*r.At(base+j, base+j)*r.At(base+j, base+j) > candidateNormSq {
			best = j
		}
	}
	return best
}

// insert performs a cyclic shift of basis rows [j..k] (rows of u, columns
// of R) so that row k moves to position j, then repairs R with a
// re-factorization of the affected trailing rows (spec §4.D,
// "Swap"/deep-insertion generalization).
func insert(r *mat.Dense, u *intmat.Matrix, base, j, k, w int) {
	rotateRowsDown(u, base, j, k)
	rotateRDown(r, base, j, k, w)
	repairSign(r, u, base, j, w)
}

func rotateRowsDown(u *intmat.Matrix, base, j, k int) {
	if j == k {
		return
	}
	n, _ := u.Dims()
	last := make([]*big.Int, n)
	for c := 0; c < n; c++ {
		last[c] = new(big.Int).Set(u.At(base+k, c))
	}
	for row := k; row > j; row-- {
		for c := 0; c < n; c++ {
			u.Set(base+row, c, u.At(base+row-1, c))
		}
	}
	for c := 0; c < n; c++ {
		u.Set(base+j, c, last[c])
	}
}

// rotateRDown applies the floating analogue of rotateRowsDown to the
// R-window: basis row c is R's column c, so columns [j..k] are rotated so
// that column k moves to position j. It then re-derives an exact
// upper-triangular shape for the affected trailing rows via a local QR
// (the "2x2 Givens-like rotation" of spec §4.D, generalized to a
// multi-row cyclic shift).
func rotateRDown(r *mat.Dense, base, j, k, w int) {
	colK := make([]float64, w)
	for row := 0; row < w; row++ {
		colK[row] = r.At(base+row, base+k)
	}
	for c := k; c > j; c-- {
		for row := 0; row < w; row++ {
			r.Set(base+row, base+c, r.At(base+row, base+c-1))
		}
	}
	for row := 0; row < w; row++ {
		r.Set(base+row, base+j, colK[row])
	}
	reorthogonalize(r, base, j, w)
}

// reorthogonalize restores R's upper-triangular shape after a column
// rotation by running a Householder QR over the affected trailing rows
// and writing the new R back in place.
func reorthogonalize(r *mat.Dense, base, from, w int) {
	sub := mat.NewDense(w-from, w-from, nil)
	for i := from; i < w; i++ {
		for jj := from; jj < w; jj++ {
			sub.Set(i-from, jj-from, r.At(base+i, base+jj))
		}
	}
	var qr mat.QR
	qr.Factorize(sub)
	newR := qr.RTo(nil)
	for i := from; i < w; i++ {
		for jj := from; jj < w; jj++ {
			if jj < i {
				r.Set(base+i, base+jj, 0)
				continue
			}
			r.Set(base+i, base+jj, newR.At(i-from, jj-from))
		}
	}
}

// repairSign negates basis row j when rotation left R[j,j] negative,
// restoring the positive-diagonal convention (spec §4.D, "the kernel
// rebuilds sign via negation absorbed into U_w"): the negation is applied
// to row j of u and mirrored on R's column j (rows 0..j).
func repairSign(r *mat.Dense, u *intmat.Matrix, base, j, w int) {
	if r.At(base+j, base+j) >= 0 {
		return
	}
	for i := 0; i <= j; i++ {
		r.Set(base+i, base+j, -r.At(base+i, base+j))
	}
	u.NegateRow(base + j)
}
