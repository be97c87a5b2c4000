// Package driver implements the segmented driver (spec §4.G): the
// coordinator that alternates QR refactorization, parallel in-block
// kernel dispatch over a staggered block grid, sequential composition of
// each block's unimodular transform into the global basis and transform,
// and a global size-reduction pass across block boundaries, until the
// basis stabilizes.
package driver

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/internal/bkzker"
	"github.com/cxzhong/BLASter/internal/lllker"
	"github.com/cxzhong/BLASter/internal/sizered"
	"github.com/cxzhong/BLASter/intmat"
)

// Kernel selects which in-block kernel the driver dispatches per pass.
type Kernel int

const (
	LLL Kernel = iota
	DeepLLL
	BKZ
)

// Config carries everything the driver loop needs. The root package owns
// the caller-facing Options type and translates it into a Config rather
// than this package importing the root package back (which imports
// internal/driver, not the reverse).
type Config struct {
	Kernel    Kernel
	Delta     float64
	BlockSize int
	Depth     int // deep-LLL insertion depth
	Beta      int // BKZ block size
	Tours     int // BKZ tours per block per pass
	Cores     int
	UseSeysen bool
	Verbose   bool
	Logger    *zerolog.Logger
	MaxPasses int
}

// Outcome is what Run hands back to the root package to assemble a Result.
type Outcome struct {
	B                 *intmat.Matrix
	U                 *intmat.Matrix
	R                 *mat.Dense
	Passes            int
	KernelInvocations int
	TimedOut          bool
}

// Factorize is the QR-factorizer contract the driver depends on, injected
// by the root package (the concrete implementation, factorizeR, lives in
// the root package, which in turn depends on this package — the
// dependency is inverted to avoid an import cycle).
type Factorize func(b *intmat.Matrix) (*mat.Dense, error)

// Run executes the driver loop until two consecutive clean passes at both
// offsets (spec §4.G step 7), ctx is cancelled, or MaxPasses is reached.
func Run(ctx context.Context, b *intmat.Matrix, cfg Config, factorize Factorize) (Outcome, error) {
	n, _ := b.Dims()
	u := intmat.Identity(n)

	cores := cfg.Cores
	if cores <= 0 {
		cores = runtime.GOMAXPROCS(0)
	}
	maxPasses := cfg.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 200
	}
	sizeRed := sizered.Classical
	if cfg.UseSeysen {
		sizeRed = sizered.Seysen
	}
	w := cfg.BlockSize
	if w <= 0 || w > n {
		w = n
	}

	start := time.Now()
	offset := 0
	cleanStreak := 0
	passes := 0
	kernelCalls := 0
	timedOut := false
	var r *mat.Dense

	for {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		if passes >= maxPasses {
			break
		}

		var err error
		r, err = factorize(b)
		if err != nil {
			return Outcome{}, err
		}

		windows := blockGrid(n, w, offset)
		uws := make([]*intmat.Matrix, len(windows))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cores)
		for idx, win := range windows {
			idx, win := idx, win
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				uw := intmat.Identity(win.width)
				sub := r.Slice(win.start, win.start+win.width, win.start, win.start+win.width).(*mat.Dense)
				runKernel(cfg, sub, uw, win.width, offset, sizeRed)
				uws[idx] = uw
				return nil
			})
		}
		if werr := g.Wait(); werr != nil {
			timedOut = true
			break
		}

		// Step 4: compose each block's U_w into B and U in block-index
		// order, so the result is schedule-invariant (spec §4.G, "Ordering
		// guarantee"). Every kernel applies to U_w the same row operation
		// it applies to the block's basis rows, so the strip update is
		// B[s:s+w] := U_w · B[s:s+w]; MulStripT multiplies by the transpose
		// of its argument, hence it is handed U_wᵀ.
		nonIdentity := 0
		for idx, win := range windows {
			uw := uws[idx]
			if !uw.IsIdentity() {
				nonIdentity++
			}
			uwT := transpose(uw)
			b.MulStripT(win.start, win.width, uwT)
			u.MulStripT(win.start, win.width, uwT)
			kernelCalls++
		}

		// Step 5: global size-reduction pass across block boundaries,
		// operating on a freshly refactorized R only.
		r, err = factorize(b)
		if err != nil {
			return Outcome{}, err
		}
		ug := intmat.Identity(n)
		sizeRed(r, ug, 0, n)
		globalClean := ug.IsIdentity()
		ugT := transpose(ug)
		b.MulStripT(0, n, ugT)
		u.MulStripT(0, n, ugT)

		passes++
		if cfg.Verbose && cfg.Logger != nil {
			cfg.Logger.Debug().
				Int("pass", passes).
				Int("offset", offset).
				Int("blocks", len(windows)).
				Int("non_identity_blocks", nonIdentity).
				Bool("global_clean", globalClean).
				Msg("driver pass complete")
		}

		// Step 7: convergence after two consecutive clean passes (spec
		// §4.G step 7); offsets alternate each pass so this naturally
		// covers "at both offsets".
		if nonIdentity == 0 && globalClean {
			cleanStreak++
		} else {
			cleanStreak = 0
		}
		offset = toggleOffset(offset, w)
		if cleanStreak >= 2 {
			break
		}
	}

	finalR, err := factorize(b)
	if err != nil {
		return Outcome{}, err
	}
	if cfg.Verbose && cfg.Logger != nil {
		cfg.Logger.Info().
			Int("passes", passes).
			Dur("elapsed", time.Since(start)).
			Bool("timed_out", timedOut).
			Msg("driver finished")
	}

	return Outcome{
		B:                 b,
		U:                 u,
		R:                 finalR,
		Passes:            passes,
		KernelInvocations: kernelCalls,
		TimedOut:          timedOut,
	}, nil
}

// runKernel dispatches the configured in-block kernel on the w-wide
// window (r, u), both 0-based local views. BKZ is disabled at the
// staggered offset per the spec's own conservative recommendation (§9
// Open Questions): plain LLL runs there instead, to avoid enumeration on
// a misaligned block.
func runKernel(cfg Config, r *mat.Dense, u *intmat.Matrix, w, offset int, sizeRed func(*mat.Dense, *intmat.Matrix, int, int)) {
	switch cfg.Kernel {
	case BKZ:
		if offset != 0 {
			lllker.Reduce(r, u, 0, w, cfg.Delta, 1, sizeRed)
			return
		}
		beta := cfg.Beta
		if beta <= 0 || beta > w {
			beta = w
		}
		tours := cfg.Tours
		if tours <= 0 {
			tours = 1
		}
		for t := 0; t < tours; t++ {
			bkzker.Tour(r, u, w, beta, cfg.Delta, sizeRed)
		}
	case DeepLLL:
		depth := cfg.Depth
		if depth < 1 {
			depth = 1
		}
		lllker.Reduce(r, u, 0, w, cfg.Delta, depth, sizeRed)
	default:
		lllker.Reduce(r, u, 0, w, cfg.Delta, 1, sizeRed)
	}
}

// window describes one contiguous block of the index range [0, n).
type window struct {
	start, width int
}

// blockGrid partitions [0, n) into contiguous windows of width <= w at the
// given offset (spec §3, "Block grid"): offset 0 starts the first window
// at 0; offset w/2 starts with a short leading window of width w/2 so
// boundary pairs straddling offset-0 block edges fall inside a block.
func blockGrid(n, w, offset int) []window {
	var out []window
	pos := 0
	if offset > 0 {
		lead := offset
		if lead > n {
			lead = n
		}
		out = append(out, window{start: 0, width: lead})
		pos = lead
	}
	for pos < n {
		width := w
		if pos+width > n {
			width = n - pos
		}
		out = append(out, window{start: pos, width: width})
		pos += width
	}
	return out
}

// toggleOffset alternates the block grid's starting offset between 0 and
// w/2 each pass (spec §4.G step 6).
func toggleOffset(offset, w int) int {
	if offset == 0 {
		return w / 2
	}
	return 0
}

// transpose returns mᵀ as a new matrix.
func transpose(m *intmat.Matrix) *intmat.Matrix {
	rows, cols := m.Dims()
	out := intmat.New(cols, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}
	return out
}
