// Package enum implements Schnorr-Euchner depth-first enumeration over
// the Gram-Schmidt tree of an N×N R-window (spec §4.E): find the integer
// coefficient vector v != 0 minimizing ||B*v||, subject to a pruning
// vector cutting branches whose partial norm exceeds pruning[k]*radius^2.
package enum

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaxEnumN is the largest block width enum will search; larger requests
// are rejected per spec §4.E ("enumeration of block size > MAX_ENUM_N is
// rejected (fatal)").
const MaxEnumN = 256

// ErrBlockTooLarge is returned when N exceeds MaxEnumN.
var ErrBlockTooLarge = errors.New("enum: block size exceeds MAX_ENUM_N")

// Result is the outcome of an enumeration call: the integer coefficient
// vector of the shortest vector found (relative to the window's own rows,
// index 0 is the window's first row) and its squared norm.
type Result struct {
	Coeffs []float64
	NormSq float64
}

// Enumerate performs unrestricted enumeration over the n-wide R-window
// starting at base: find the shortest non-zero integer combination of the
// window's rows, within the radius given by the squared length of the
// window's last row projected onto the window (a safe starting bound,
// since that row is itself a valid non-zero candidate).
func Enumerate(r *mat.Dense, base, n int, pruning []float64) (Result, error) {
	return enumerate(r, base, n, pruning, -1, 0)
}

// EnumerateFixed is the "last-one" variant: it fixes the leading
// coordinate (local index 0 of the window) to fixedCoeff, used by BKZ when
// inserting a found vector at a specific position (spec §4.E).
func EnumerateFixed(r *mat.Dense, base, n int, pruning []float64, fixedCoeff float64) (Result, error) {
	return enumerate(r, base, n, pruning, 0, fixedCoeff)
}

func enumerate(r *mat.Dense, base, n int, pruning []float64, fixedIdx int, fixedVal float64) (Result, error) {
	if n > MaxEnumN {
		return Result{}, errors.Wrapf(ErrBlockTooLarge, "n=%d", n)
	}
	if len(pruning) < n {
		p := make([]float64, n)
		for i := range p {
			if i < len(pruning) {
				p[i] = pruning[i]
			} else {
				p[i] = 1
			}
		}
		pruning = p
	}

	e := &enumerator{
		r:        r,
		base:     base,
		n:        n,
		pruning:  pruning,
		best:     nil,
		fixedIdx: fixedIdx,
		fixedVal: fixedVal,
	}
	// The starting candidate is e_{n-1} (with the fixed coordinate
	// applied, if any); its exact squared length is the starting radius.
	start := make([]float64, n)
	start[n-1] = 1
	if fixedIdx >= 0 {
		start[fixedIdx] = fixedVal
	}
	radius := 0.0
	for k := 0; k < n; k++ {
		radius += e.contribution(k, start)
	}
	e.radius = radius
	e.bestNorm = radius

	coeffs := append([]float64(nil), start...)
	e.search(n-1, 0, coeffs)

	if e.best == nil {
		// No candidate improved on the starting radius; the starting
		// candidate is itself a valid non-zero combination of that length.
		e.best = start
		e.bestNorm = radius
	}
	return Result{Coeffs: e.best, NormSq: e.bestNorm}, nil
}

type enumerator struct {
	r        *mat.Dense
	base     int
	n        int
	pruning  []float64
	radius   float64
	best     []float64
	bestNorm float64
	fixedIdx int
	fixedVal float64
}

// at reads the window-local (k,j) entry of R, i.e. the global (base+k,
// base+j) entry of the shared R matrix.
func (e *enumerator) at(k, j int) float64 { return e.r.At(e.base+k, e.base+j) }

// search is the depth-first zig-zag recursion over coordinate k, from
// n-1 down to 0. sigma is the partial squared norm accumulated from
// levels already fixed (k+1 .. n-1).
func (e *enumerator) search(k int, sigma float64, coeffs []float64) {
	if k < 0 {
		norm := sigma
		if norm < e.bestNorm && !isZero(coeffs) {
			e.best = append([]float64(nil), coeffs...)
			e.bestNorm = norm
		}
		return
	}

	if k == e.fixedIdx && e.fixedIdx >= 0 {
		coeffs[k] = e.fixedVal
		contrib := e.contribution(k, coeffs)
		newSigma := sigma + contrib
		if e.withinBound(k, newSigma) {
			e.search(k-1, newSigma, coeffs)
		}
		return
	}

	center := e.centerFor(k, coeffs)
	rk := int(math.Round(center))
	// maxSpan caps how far from the center the zig-zag probes. The loop
	// also stops at the first span with no value inside the bound, since
	// R[k,k] != 0 makes the per-coordinate term a strictly convex function
	// of coeffs[k] that only grows further from the center.
	maxSpan := e.n + 2
	for span := 0; span <= maxSpan; span++ {
		tried := false
		for _, delta := range zigZagDeltas(span) {
			coeffs[k] = float64(rk + delta)
			contrib := e.contribution(k, coeffs)
			newSigma := sigma + contrib
			if !e.withinBound(k, newSigma) {
				continue
			}
			tried = true
			e.search(k-1, newSigma, coeffs)
		}
		if !tried && span > 0 {
			return
		}
	}
}

// zigZagDeltas returns the offsets to probe at zig-zag distance span: for
// span==0 just {0}, otherwise {+span, -span}.
func zigZagDeltas(span int) []int {
	if span == 0 {
		return []int{0}
	}
	return []int{span, -span}
}

// contribution computes the squared length of the projection contributed
// by fixing coeffs[k], i.e. R[k,k]^2 * (coeffs[k] + sum_{j>k} R[k,j]/R[k,k]*coeffs[j])^2.
func (e *enumerator) contribution(k int, coeffs []float64) float64 {
	rkk := e.at(k, k)
	s := coeffs[k]
	for j := k + 1; j < e.n; j++ {
		s += e.at(k, j) / rkk * coeffs[j]
	}
	v := rkk * s
	return v * v
}

// centerFor computes the natural (unrounded) center for coordinate k
// given the coefficients already fixed above it, used to seed the
// zig-zag search at the most promising value first.
func (e *enumerator) centerFor(k int, coeffs []float64) float64 {
	rkk := e.at(k, k)
	if rkk == 0 {
		return 0
	}
	s := 0.0
	for j := k + 1; j < e.n; j++ {
		s += e.at(k, j) / rkk * coeffs[j]
	}
	return -s
}

// withinBound applies the pruning test at level k: prune when the partial
// sum exceeds pruning[k] * radius.
func (e *enumerator) withinBound(k int, sigma float64) bool {
	return sigma <= e.pruning[k]*e.radius
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
