// Package blaster implements a segmented parallel lattice basis reduction
// engine: classical LLL, deep-insertion LLL, and BKZ, driven by a block
// grid of integer basis columns reduced concurrently and composed back
// into the global basis and unimodular transform.
//
// The entry points are Reduce, BKZReduce, and IsLLLReduced; the heavy
// lifting lives in the internal kernel packages (internal/lllker,
// internal/bkzker, internal/enum, internal/sizered) coordinated by
// internal/driver, all operating on the exact integer matrices defined in
// package intmat and the floating R-factor produced by factorizeR.
package blaster
