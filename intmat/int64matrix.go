package intmat

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

// ErrOverflow is returned by Int64Matrix operations when a product or sum
// would overflow int64. Callers must retry in arbitrary-precision mode
// (Matrix) — spec §4.A. internal/driver never uses Int64Matrix, so no
// reduction call returns it.
var ErrOverflow = errors.New("intmat: fixed-width overflow")

// Int64Matrix is the bounded-growth companion to Matrix. It exists only
// for callers who can guarantee entries of B and U stay within int64
// range throughout reduction (spec §3): a caller may run its own
// reduction loop against Int64Matrix directly for the speed of native
// arithmetic, falling back to ToBig and the arbitrary-precision Matrix
// path on the first ErrOverflow. internal/driver itself always operates
// on the arbitrary-precision Matrix, since it has no a priori bound on
// entry growth to hand callers a safe default.
type Int64Matrix struct {
	rows, cols int
	data       []int64
}

// NewInt64 allocates a zeroed rows×cols fixed-width matrix.
func NewInt64(rows, cols int) *Int64Matrix {
	return &Int64Matrix{rows: rows, cols: cols, data: make([]int64, rows*cols)}
}

// IdentityInt64 allocates the n×n fixed-width identity.
func IdentityInt64(n int) *Int64Matrix {
	m := NewInt64(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func (m *Int64Matrix) Dims() (int, int) { return m.rows, m.cols }

func (m *Int64Matrix) At(i, j int) int64 { return m.data[i*m.cols+j] }

func (m *Int64Matrix) Set(i, j int, v int64) { m.data[i*m.cols+j] = v }

// mulOverflows reports whether a*b overflows int64, computing the would-be
// product via the full 128-bit widened multiply so the check is exact at
// the int64 boundary rather than approximate.
func mulOverflows(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(absInt64(a)), uint64(absInt64(b)))
	neg := (a < 0) != (b < 0)
	if hi != 0 {
		return 0, true
	}
	if !neg && lo > math.MaxInt64 {
		return 0, true
	}
	if neg && lo > uint64(math.MaxInt64)+1 {
		return 0, true
	}
	v := int64(lo)
	if neg {
		v = -v
	}
	return v, false
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// addOverflows reports whether a+b overflows int64.
func addOverflows(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, true
	}
	return s, false
}

// MulStrip is the fixed-width analogue of Matrix.MulStrip. It returns
// ErrOverflow, wrapped with the row and column of the offending output
// entry, on the first overflowing
// product or accumulation instead of wrapping silently (spec §4.A, §7).
func (a *Int64Matrix) MulStrip(col, w int, uw *Int64Matrix) error {
	if w <= 0 || col < 0 || col+w > a.cols {
		return errors.Wrap(ErrShape, "mulstrip: window out of range")
	}
	uwr, uwc := uw.Dims()
	if uwr != w || uwc != w {
		return errors.Wrapf(ErrShape, "mulstrip: want %dx%d transform, got %dx%d", w, w, uwr, uwc)
	}
	out := make([]int64, a.rows*w)
	for r := 0; r < a.rows; r++ {
		for c := 0; c < w; c++ {
			var sum int64
			for k := 0; k < w; k++ {
				prod, bad := mulOverflows(a.data[r*a.cols+col+k], uw.data[k*w+c])
				if bad {
					return errors.Wrapf(ErrOverflow, "mulstrip: row %d col %d", r, c)
				}
				s, bad := addOverflows(sum, prod)
				if bad {
					return errors.Wrapf(ErrOverflow, "mulstrip: row %d col %d", r, c)
				}
				sum = s
			}
			out[r*w+c] = sum
		}
	}
	for r := 0; r < a.rows; r++ {
		for c := 0; c < w; c++ {
			a.data[r*a.cols+col+c] = out[r*w+c]
		}
	}
	return nil
}

// ToBig converts to the arbitrary-precision Matrix type, the path every
// fixed-width overflow takes (spec §7 OverflowFailure: "caller must retry
// in arbitrary-precision mode").
func (a *Int64Matrix) ToBig() *Matrix {
	m := New(a.rows, a.cols)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < a.cols; j++ {
			m.data[i*a.cols+j].SetInt64(a.data[i*a.cols+j])
		}
	}
	return m
}
