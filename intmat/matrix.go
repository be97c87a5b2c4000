// Package intmat implements exact integer matrix arithmetic for lattice
// basis reduction: dense GEMM and in-place right-multiplication of strided
// column windows. Entries are arbitrary-precision (math/big), since basis
// and transform entries grow without an a priori bound during reduction.
package intmat

import (
	"math/big"

	"github.com/pkg/errors"
)

// Matrix is a dense, row-major n×n matrix of arbitrary-precision integers.
// The zero value is not usable; construct with New or Identity.
type Matrix struct {
	rows, cols int
	data       []*big.Int // row-major, len == rows*cols
}

// New allocates an rows×cols matrix of zeros.
func New(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic("intmat: non-positive dimension")
	}
	data := make([]*big.Int, rows*cols)
	for i := range data {
		data[i] = new(big.Int)
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Identity allocates the n×n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i].SetInt64(1)
	}
	return m
}

// FromInt64Rows builds a Matrix from row-major int64 values.
func FromInt64Rows(rows [][]int64) *Matrix {
	n := len(rows)
	if n == 0 {
		panic("intmat: empty input")
	}
	cols := len(rows[0])
	m := New(n, cols)
	for i, row := range rows {
		if len(row) != cols {
			panic("intmat: ragged input")
		}
		for j, v := range row {
			m.data[i*cols+j].SetInt64(v)
		}
	}
	return m
}

// Dims returns the matrix dimensions.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// At returns a reference to the (i,j) entry. Mutating the returned value
// mutates the matrix; callers that need a stable copy should clone it.
func (m *Matrix) At(i, j int) *big.Int {
	m.checkBounds(i, j)
	return m.data[i*m.cols+j]
}

// Set assigns v (copied) into (i,j).
func (m *Matrix) Set(i, j int, v *big.Int) {
	m.checkBounds(i, j)
	m.data[i*m.cols+j].Set(v)
}

func (m *Matrix) checkBounds(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic("intmat: index out of range")
	}
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := New(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i].Set(v)
	}
	return out
}

// IsIdentity reports whether m is the identity matrix, used by the driver
// to detect a block that produced no transform (spec §4.G step 7,
// convergence by "no block produced any non-identity U_w").
func (m *Matrix) IsIdentity() bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			want := int64(0)
			if i == j {
				want = 1
			}
			if m.data[i*m.cols+j].Cmp(big.NewInt(want)) != 0 {
				return false
			}
		}
	}
	return true
}

// Equal reports whether m and other have identical entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := range m.data {
		if m.data[i].Cmp(other.data[i]) != 0 {
			return false
		}
	}
	return true
}

// ErrShape is returned (wrapped) when operand shapes are incompatible.
var ErrShape = errors.New("intmat: shape mismatch")

// Mul computes c = a·b, allocating and returning c. Panics on shape
// mismatch: kernel errors are fatal by contract (spec §4.A), and the
// driver never calls Mul with mismatched operands.
func Mul(a, b *Matrix) *Matrix {
	if a.cols != b.rows {
		panic(errors.Wrapf(ErrShape, "mul: %dx%d * %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
	c := New(a.rows, b.cols)
	acc := new(big.Int)
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			aik := a.data[i*a.cols+k]
			if aik.Sign() == 0 {
				continue
			}
			for j := 0; j < b.cols; j++ {
				acc.Mul(aik, b.data[k*b.cols+j])
				c.data[i*c.cols+j].Add(c.data[i*c.cols+j], acc)
			}
		}
	}
	return c
}

// MulStrip performs the in-place column-strip update
//
//	A[:, col:col+w] := A[:, col:col+w] · Uw
//
// where Uw is w×w: the column-strip form of the composition primitive
// (spec §4.A). The segmented driver, which stores basis vectors as rows,
// composes block transforms with MulStripT instead. Safe to call concurrently with
// other MulStrip calls on disjoint, non-overlapping [col, col+w) ranges of
// the same underlying A, since each call only reads/writes its own strip.
func (a *Matrix) MulStrip(col, w int, uw *Matrix) {
	if w <= 0 || col < 0 || col+w > a.cols {
		panic(errors.Wrap(ErrShape, "mulstrip: window out of range"))
	}
	uwr, uwc := uw.Dims()
	if uwr != w || uwc != w {
		panic(errors.Wrapf(ErrShape, "mulstrip: want %dx%d transform, got %dx%d", w, w, uwr, uwc))
	}
	// Work on a private copy of the strip so row k of the result can be
	// accumulated without clobbering columns still needed by later rows.
	strip := make([]*big.Int, a.rows*w)
	for r := 0; r < a.rows; r++ {
		for c := 0; c < w; c++ {
			strip[r*w+c] = a.data[r*a.cols+col+c]
		}
	}
	acc := new(big.Int)
	out := make([]*big.Int, a.rows*w)
	for r := 0; r < a.rows; r++ {
		for c := 0; c < w; c++ {
			sum := new(big.Int)
			for k := 0; k < w; k++ {
				skr := strip[r*w+k]
				if skr.Sign() == 0 {
					continue
				}
				acc.Mul(skr, uw.data[k*w+c])
				sum.Add(sum, acc)
			}
			out[r*w+c] = sum
		}
	}
	for r := 0; r < a.rows; r++ {
		for c := 0; c < w; c++ {
			a.data[r*a.cols+col+c].Set(out[r*w+c])
		}
	}
}

// MulStripT performs the in-place row-strip update
//
//	A[row:row+w, :] := Uwᵀ · A[row:row+w, :]
//
// where Uw is w×w: the row-strip, transposed analogue of MulStrip. The
// segmented driver folds a block's unimodular transform into the global
// basis and transform with it, passing the transpose of that transform so
// the strip is left-multiplied by the transform itself (spec §4.A, §4.G
// step 4). Safe to call
// concurrently with other MulStripT calls on disjoint, non-overlapping
// [row, row+w) ranges of the same underlying A.
func (a *Matrix) MulStripT(row, w int, uw *Matrix) {
	if w <= 0 || row < 0 || row+w > a.rows {
		panic(errors.Wrap(ErrShape, "mulstript: window out of range"))
	}
	uwr, uwc := uw.Dims()
	if uwr != w || uwc != w {
		panic(errors.Wrapf(ErrShape, "mulstript: want %dx%d transform, got %dx%d", w, w, uwr, uwc))
	}
	strip := make([]*big.Int, w*a.cols)
	for r := 0; r < w; r++ {
		for c := 0; c < a.cols; c++ {
			strip[r*a.cols+c] = a.data[(row+r)*a.cols+c]
		}
	}
	acc := new(big.Int)
	out := make([]*big.Int, w*a.cols)
	for r := 0; r < w; r++ {
		for c := 0; c < a.cols; c++ {
			sum := new(big.Int)
			for k := 0; k < w; k++ {
				skc := strip[k*a.cols+c]
				if skc.Sign() == 0 {
					continue
				}
				// Uwᵀ[r,k] == Uw[k,r]
				acc.Mul(uw.data[k*w+r], skc)
				sum.Add(sum, acc)
			}
			out[r*a.cols+c] = sum
		}
	}
	for r := 0; r < w; r++ {
		for c := 0; c < a.cols; c++ {
			a.data[(row+r)*a.cols+c].Set(out[r*a.cols+c])
		}
	}
}

// RowCombine performs row i += q * row k (q, i, k within the matrix),
// restricted to columns [0, upto): the elementary add-a-multiple-of-a-row
// integer operation, which keeps a transform unimodular.
func (m *Matrix) RowCombine(i, k int, q *big.Int, upto int) {
	if q.Sign() == 0 {
		return
	}
	acc := new(big.Int)
	for c := 0; c < upto; c++ {
		acc.Mul(q, m.data[k*m.cols+c])
		m.data[i*m.cols+c].Add(m.data[i*m.cols+c], acc)
	}
}

// SwapRows exchanges rows i and k.
func (m *Matrix) SwapRows(i, k int) {
	if i == k {
		return
	}
	for c := 0; c < m.cols; c++ {
		m.data[i*m.cols+c], m.data[k*m.cols+c] = m.data[k*m.cols+c], m.data[i*m.cols+c]
	}
}

// NegateRow negates row i in place (used to repair sign after a rotation
// makes a diagonal R entry negative, spec §4.D).
func (m *Matrix) NegateRow(i int) {
	for c := 0; c < m.cols; c++ {
		m.data[i*m.cols+c].Neg(m.data[i*m.cols+c])
	}
}

// Det computes the determinant via fraction-free (Bareiss) elimination,
// which stays exact in integer arithmetic throughout and avoids the
// intermediate-fraction blowup of naive Gaussian elimination.
func (m *Matrix) Det() *big.Int {
	if m.rows != m.cols {
		panic(errors.Wrap(ErrShape, "det: non-square matrix"))
	}
	n := m.rows
	a := m.Clone()
	prev := big.NewInt(1)
	sign := 1
	for k := 0; k < n-1; k++ {
		if a.data[k*n+k].Sign() == 0 {
			// find a pivot
			swapped := false
			for r := k + 1; r < n; r++ {
				if a.data[r*n+k].Sign() != 0 {
					a.SwapRows(k, r)
					sign = -sign
					swapped = true
					break
				}
			}
			if !swapped {
				return big.NewInt(0)
			}
		}
		for i := k + 1; i < n; i++ {
			for j := k + 1; j < n; j++ {
				t := new(big.Int).Mul(a.data[i*n+j], a.data[k*n+k])
				t2 := new(big.Int).Mul(a.data[i*n+k], a.data[k*n+j])
				t.Sub(t, t2)
				t.Quo(t, prev)
				a.data[i*n+j] = t
			}
		}
		prev = a.data[k*n+k]
	}
	d := new(big.Int).Set(a.data[(n-1)*n+n-1])
	if sign < 0 {
		d.Neg(d)
	}
	return d
}

// ToFloat64Rows returns a row-major []float64 snapshot, used by the QR
// factorizer's Householder fallback (the Gram matrix itself is
// accumulated in big.Float).
func (m *Matrix) ToFloat64Rows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = make([]float64, m.cols)
		for j := 0; j < m.cols; j++ {
			f := new(big.Float).SetInt(m.data[i*m.cols+j])
			out[i][j], _ = f.Float64()
		}
	}
	return out
}
