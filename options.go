package blaster

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Algorithm selects the in-block kernel the segmented driver dispatches
// (spec §4.G). Dispatch on Algorithm happens once per block, never inside
// a kernel's inner arithmetic loop (spec §9, "Dynamic dispatch on
// algorithm choice").
//
//go:generate stringer -type=Algorithm
type Algorithm int

const (
	// LLL runs classical Lovász-swap LLL in every block.
	LLL Algorithm = iota
	// DeepLLL runs deep-insertion LLL with Options.Depth.
	DeepLLL
	// BKZ runs block Korkine-Zolotarev with Options.Beta/Options.Tours.
	BKZ
)

// Options configures a call to Reduce or BKZReduce. It mirrors gonum's own
// Settings/DefaultSettingsGlobal pattern (optimize.Settings): a plain
// struct with a constructor supplying defaults, no hidden package-level
// mutable state (spec §9, "Global mutable state").
type Options struct {
	// Algorithm selects the in-block kernel. BKZReduce always forces
	// BKZ regardless of this field.
	Algorithm Algorithm
	// Delta is the Lovász parameter, in (1/4, 1]. Default 0.99.
	Delta float64
	// BlockSize is the working block width w. Zero selects sqrt(n),
	// clamped to [8, 128] (spec §4.G).
	BlockSize int
	// Depth is the deep-LLL insertion depth; ignored unless Algorithm
	// is DeepLLL. Depth == 1 reduces to classical LLL.
	Depth int
	// Beta is the BKZ enumeration block size; must satisfy Beta <= w
	// and Beta <= MAX_ENUM_N.
	Beta int
	// Tours is the number of BKZ tour sweeps the driver performs.
	Tours int
	// Cores bounds worker parallelism. Zero selects
	// runtime.GOMAXPROCS(0). DefaultOptions fills it from the
	// BLASTER_CORES environment variable when that holds a positive
	// integer (spec §6, "only the worker thread count may be
	// overridden").
	Cores int
	// UseSeysen selects the batched Seysen size-reduction kernel instead
	// of the classical row-by-row sweep.
	UseSeysen bool
	// Verbose emits one log event per driver pass through Logger.
	Verbose bool
	// Logger receives progress events when Verbose is set. Defaults to
	// a console writer on stderr (github.com/rs/zerolog), matching
	// itohio/EasyRobot's pkg/logger.Log construction.
	Logger *zerolog.Logger
	// MaxPasses bounds the driver loop as a last-resort safety net; it
	// is not part of the spec's convergence criterion but prevents a
	// pathological input from looping forever if numerical noise keeps
	// the profile oscillating. Zero selects 200.
	MaxPasses int
	// Timeout, if positive, bounds total wall-clock time; the driver
	// checks it cooperatively at pass boundaries and returns the best
	// basis found so far with Metrics.TimedOut set, rather than a fatal
	// error (spec §5, "cooperative, non-fatal"). Zero means no deadline.
	Timeout time.Duration
}

var defaultLogger = func() *zerolog.Logger {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return &l
}()

// DefaultOptions returns the spec's documented defaults: delta=0.99,
// adaptive block size, classical LLL, full hardware concurrency.
func DefaultOptions() Options {
	cores := runtime.GOMAXPROCS(0)
	if v := os.Getenv("BLASTER_CORES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cores = n
		}
	}
	return Options{
		Algorithm: LLL,
		Delta:     0.99,
		BlockSize: 0,
		Depth:     1,
		Beta:      0,
		Tours:     1,
		Cores:     cores,
		UseSeysen: false,
		Verbose:   false,
		Logger:    defaultLogger,
		MaxPasses: 200,
		Timeout:   0,
	}
}

// blockSizeFor resolves Options.BlockSize, applying the adaptive sqrt(n)
// default clamped to [8, 128] (spec §4.G).
func blockSizeFor(opts Options, n int) int {
	if opts.BlockSize > 0 {
		return min(opts.BlockSize, n)
	}
	w := int(isqrt(n))
	if w < 8 {
		w = 8
	}
	if w > 128 {
		w = 128
	}
	return min(w, n)
}

func isqrt(n int) int64 {
	if n <= 0 {
		return 0
	}
	x := int64(1)
	for x*x < int64(n) {
		x++
	}
	return x
}
