package sizered

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
)

func sizeReduced(r *mat.Dense, w int) bool {
	for j := 1; j < w; j++ {
		for i := 0; i < j; i++ {
			if math.Abs(r.At(i, j)) > 0.5*math.Abs(r.At(i, i))+1e-9 {
				return false
			}
		}
	}
	return true
}

func skewedR(w int) *mat.Dense {
	r := mat.NewDense(w, w, nil)
	for i := 0; i < w; i++ {
		r.Set(i, i, float64(w-i))
		for j := i + 1; j < w; j++ {
			r.Set(i, j, float64(3*(j-i)))
		}
	}
	return r
}

func TestClassicalSizeReduces(t *testing.T) {
	r := skewedR(4)
	u := intmat.Identity(4)
	Classical(r, u, 0, 4)
	if !sizeReduced(r, 4) {
		t.Fatalf("R not size-reduced: %v", mat.Formatted(r))
	}
	if !u.IsIdentity() {
		t.Log("U accumulated a non-trivial transform, as expected for a skewed R")
	}
}

func TestSeysenSizeReduces(t *testing.T) {
	r := skewedR(5)
	u := intmat.Identity(5)
	Seysen(r, u, 0, 5)
	if !sizeReduced(r, 5) {
		t.Fatalf("R not size-reduced after Seysen: %v", mat.Formatted(r))
	}
}

func TestClassicalOnAlreadyReducedIsNoop(t *testing.T) {
	r := mat.NewDense(3, 3, []float64{2, 0.5, 0.1, 0, 2, 0.4, 0, 0, 2})
	u := intmat.Identity(3)
	Classical(r, u, 0, 3)
	if !u.IsIdentity() {
		t.Fatalf("expected no-op on already size-reduced R, got transform %v", u)
	}
}

func TestWindowedBaseOffsetLeavesPrefixUntouched(t *testing.T) {
	n := 6
	r := skewedR(n)
	u := intmat.Identity(n)
	before := r.At(0, 0)
	Classical(r, u, 2, 4)
	if r.At(0, 0) != before {
		t.Fatalf("Classical with base=2 touched row 0: got %v want %v", r.At(0, 0), before)
	}
	if !sizeReduced(r.Slice(2, n, 2, n).(*mat.Dense), 4) {
		t.Fatalf("windowed region not size-reduced")
	}
}
