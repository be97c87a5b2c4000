package pruning

import "testing"

func TestCoefficientsForTabledSizeIsNonIncreasing(t *testing.T) {
	c := CoefficientsFor(30)
	for i := 1; i < len(c); i++ {
		if c[i] > c[i-1]+1e-12 {
			t.Fatalf("pruning schedule increased at index %d: %v > %v", i, c[i], c[i-1])
		}
	}
}

func TestCoefficientsForUntabledSizeIsUnpruned(t *testing.T) {
	c := CoefficientsFor(7)
	for i, v := range c {
		if v != 1 {
			t.Fatalf("CoefficientsFor(7)[%d] = %v, want 1 (unpruned)", i, v)
		}
	}
	if len(c) != 7 {
		t.Fatalf("len = %d, want 7", len(c))
	}
}

func TestCoefficientsForNonPositiveIsNil(t *testing.T) {
	if CoefficientsFor(0) != nil {
		t.Fatal("expected nil for beta <= 0")
	}
}

func TestEstimatedNodesGrowsWithBeta(t *testing.T) {
	if EstimatedNodes(20) <= EstimatedNodes(10) {
		t.Fatalf("EstimatedNodes should grow with beta: %d vs %d", EstimatedNodes(20), EstimatedNodes(10))
	}
	if EstimatedNodes(0) != 0 {
		t.Fatalf("EstimatedNodes(0) = %d, want 0", EstimatedNodes(0))
	}
}
