package pagedb

import "testing"

func populatedHistogram(t *testing.T) *IntHistogram {
	t.Helper()
	h, err := NewIntHistogram(10, 1, 100)
	if err != nil {
		t.Fatalf("NewIntHistogram: %v", err)
	}
	for v := int64(1); v <= 100; v++ {
		h.AddValue(v)
	}
	return h
}

func TestIntHistogramGreaterThanAroundHalf(t *testing.T) {
	h := populatedHistogram(t)
	sel := h.EstimateSelectivity(OpGt, 50)
	if sel < 0.4 || sel > 0.6 {
		t.Fatalf("selectivity for > 50 over a uniform [1,100] histogram = %v, want roughly 0.5", sel)
	}
}

func TestIntHistogramEqNeComplementary(t *testing.T) {
	h := populatedHistogram(t)
	eq := h.EstimateSelectivity(OpEq, 42)
	ne := h.EstimateSelectivity(OpNe, 42)
	if diff := (eq + ne) - 1; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("EQ(%v) + NE(%v) = %v, want 1", eq, ne, eq+ne)
	}
}

func TestIntHistogramLtGeComplementary(t *testing.T) {
	h := populatedHistogram(t)
	lt := h.EstimateSelectivity(OpLt, 42)
	ge := h.EstimateSelectivity(OpGe, 42)
	if diff := (lt + ge) - 1; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("LT(%v) + GE(%v) = %v, want 1", lt, ge, lt+ge)
	}
}

func TestIntHistogramLeGtComplementary(t *testing.T) {
	h := populatedHistogram(t)
	le := h.EstimateSelectivity(OpLe, 42)
	gt := h.EstimateSelectivity(OpGt, 42)
	if diff := (le + gt) - 1; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("LE(%v) + GT(%v) = %v, want 1", le, gt, le+gt)
	}
}

func TestIntHistogramOutOfRangeClamped(t *testing.T) {
	h := populatedHistogram(t)
	if sel := h.EstimateSelectivity(OpGt, 1000); sel != 0 {
		t.Fatalf("selectivity for > 1000 (above max) = %v, want 0", sel)
	}
	if sel := h.EstimateSelectivity(OpLt, -1000); sel != 0 {
		t.Fatalf("selectivity for < -1000 (below min) = %v, want 0", sel)
	}
}
