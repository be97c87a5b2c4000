package blaster

import (
	"github.com/pkg/errors"
)

// ErrorKind categorizes the fatal error sources a reduction call can hit.
// Kernels themselves never fail (spec §4, §7); every ErrorKind originates
// in the driver: input validation, QR factorization, or fixed-width
// integer overflow.
//
//go:generate stringer -type=ErrorKind
type ErrorKind int

const (
	// InvalidInput covers a non-square basis, a singular basis, delta
	// outside (1/4, 1], beta > MAX_ENUM_N, or beta > block size.
	InvalidInput ErrorKind = iota
	// NumericalFailure covers a QR/Cholesky factorization that could not
	// produce a positive R diagonal after the bounded retry in
	// factorizeR.
	NumericalFailure
	// OverflowFailure covers fixed-width (Int64Matrix) integer overflow
	// during transform composition; the caller must retry with the
	// arbitrary-precision path. The driver composes with the
	// arbitrary-precision Matrix only, so Reduce and BKZReduce never
	// return this kind.
	OverflowFailure
)

// Error wraps a fatal reduction failure with its ErrorKind and an
// underlying cause carrying a stack trace (github.com/pkg/errors), so a
// caller can both switch on Kind and log/format the full chain with %+v.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

func wrapError(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Err: errors.Wrap(err, msg)}
}
