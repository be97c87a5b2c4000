package driver

import (
	"context"
	"math/big"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cxzhong/BLASter/intmat"
)

// factorizeForTest is a small stand-in for the root package's factorizeR,
// avoiding an import of the root package (which imports this one).
func factorizeForTest(b *intmat.Matrix) (*mat.Dense, error) {
	n, _ := b.Dims()
	rows := b.ToFloat64Rows()
	bt := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			bt.Set(j, i, rows[i][j])
		}
	}
	var qr mat.QR
	qr.Factorize(bt)
	return qr.RTo(nil), nil
}

func TestRunConvergesOnSmallBasis(t *testing.T) {
	b := intmat.FromInt64Rows([][]int64{
		{201, 37, -14},
		{-58, 112, 9},
		{33, -7, 150},
	})
	cfg := Config{
		Kernel:    LLL,
		Delta:     0.99,
		BlockSize: 3,
		Cores:     2,
		MaxPasses: 50,
	}
	outcome, err := Run(context.Background(), b, cfg, factorizeForTest)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome.Passes == 0 {
		t.Fatal("expected at least one pass")
	}
	if outcome.TimedOut {
		t.Fatal("did not expect a timeout on a small basis")
	}
	det := outcome.U.Det()
	if det.CmpAbs(big.NewInt(1)) != 0 {
		t.Fatalf("U determinant = %v, want +-1", det)
	}
}

func TestRunRespectsCancelledContext(t *testing.T) {
	b := intmat.FromInt64Rows([][]int64{{5, 1}, {1, 5}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := Config{Kernel: LLL, Delta: 0.99, BlockSize: 2, MaxPasses: 50}
	outcome, err := Run(ctx, b, cfg, factorizeForTest)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !outcome.TimedOut {
		t.Fatal("expected TimedOut on an already-cancelled context")
	}
}

func TestBlockGridOffsetZero(t *testing.T) {
	got := blockGrid(10, 4, 0)
	want := []window{{0, 4}, {4, 4}, {8, 2}}
	if len(got) != len(want) {
		t.Fatalf("blockGrid = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("blockGrid[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBlockGridStaggeredOffset(t *testing.T) {
	got := blockGrid(10, 4, 2)
	want := []window{{0, 2}, {2, 4}, {6, 4}}
	if len(got) != len(want) {
		t.Fatalf("blockGrid = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("blockGrid[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestToggleOffset(t *testing.T) {
	if got := toggleOffset(0, 8); got != 4 {
		t.Fatalf("toggleOffset(0,8) = %d, want 4", got)
	}
	if got := toggleOffset(4, 8); got != 0 {
		t.Fatalf("toggleOffset(4,8) = %d, want 0", got)
	}
}

func TestRunHonorsTimeout(t *testing.T) {
	b := intmat.FromInt64Rows([][]int64{{9, 2}, {2, 9}})
	cfg := Config{Kernel: LLL, Delta: 0.99, BlockSize: 2, MaxPasses: 50}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	outcome, err := Run(ctx, b, cfg, factorizeForTest)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !outcome.TimedOut {
		t.Fatal("expected TimedOut on an elapsed deadline")
	}
}
