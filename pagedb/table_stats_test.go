package pagedb

import "testing"

func statsTestSetup(t *testing.T) (*BufferPool, *HeapFile) {
	t.Helper()
	bp := NewBufferPool(10, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	for i := 0; i < 50; i++ {
		tup := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
			IntField{Value: int64(i)},
			StringField{Value: "row"},
		}}
		if err := bp.InsertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return bp, hf
}

func TestComputeTableStatsCardinalityAndScanCost(t *testing.T) {
	bp, hf := statsTestSetup(t)
	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	if stats.baseTups != 50 {
		t.Fatalf("baseTups = %d, want 50", stats.baseTups)
	}
	if stats.EstimateScanCost() != float64(hf.numPages()*CostPerPage) {
		t.Fatalf("EstimateScanCost = %v, want %v", stats.EstimateScanCost(), hf.numPages()*CostPerPage)
	}
	if card := stats.EstimateCardinality(0.5); card != 25 {
		t.Fatalf("EstimateCardinality(0.5) = %d, want 25", card)
	}
}

func TestComputeTableStatsSelectivityOnIntField(t *testing.T) {
	bp, hf := statsTestSetup(t)
	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	sel, err := stats.EstimateSelectivity("id", OpGt, IntField{Value: 25})
	if err != nil {
		t.Fatalf("EstimateSelectivity: %v", err)
	}
	if sel < 0.3 || sel > 0.7 {
		t.Fatalf("selectivity for id > 25 over [0,49] = %v, want roughly 0.5", sel)
	}
}

func TestComputeTableStatsUnknownFieldDefaultsToOne(t *testing.T) {
	bp, hf := statsTestSetup(t)
	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	sel, err := stats.EstimateSelectivity("nonexistent", OpEq, IntField{Value: 1})
	if err != nil {
		t.Fatalf("EstimateSelectivity: %v", err)
	}
	if sel != 1.0 {
		t.Fatalf("selectivity for unknown field = %v, want 1.0", sel)
	}
}

func TestComputeStatisticsWalksCatalog(t *testing.T) {
	bp := NewBufferPool(10, nil)
	hfA := newTestHeapFile(t, bp)
	hfB := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("a", hfA)
	catalog.AddTable("b", hfB)
	bp.SetCatalog(catalog)

	tid := NewTID()
	for _, hf := range []*HeapFile{hfA, hfB} {
		for i := 0; i < 10; i++ {
			tup := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
				IntField{Value: int64(i)},
				StringField{Value: "row"},
			}}
			if err := bp.InsertTuple(tid, hf, tup); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
	}
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := ComputeStatistics(bp, catalog); err != nil {
		t.Fatalf("ComputeStatistics: %v", err)
	}

	statsA, ok := GetTableStats("a")
	if !ok {
		t.Fatal("expected stats for table a to be registered")
	}
	if statsA.baseTups != 10 {
		t.Fatalf("table a baseTups = %d, want 10", statsA.baseTups)
	}
	statsB, ok := GetTableStats("b")
	if !ok {
		t.Fatal("expected stats for table b to be registered")
	}
	if statsB.baseTups != 10 {
		t.Fatalf("table b baseTups = %d, want 10", statsB.baseTups)
	}
}

func TestTableStatsRegistry(t *testing.T) {
	bp, hf := statsTestSetup(t)
	stats, err := ComputeTableStats(bp, hf)
	if err != nil {
		t.Fatalf("ComputeTableStats: %v", err)
	}
	SetTableStats("regtest", stats)
	got, ok := GetTableStats("regtest")
	if !ok || got != stats {
		t.Fatal("GetTableStats did not return the stats just registered")
	}
	if _, ok := GetTableStats("nope"); ok {
		t.Fatal("GetTableStats should report not-found for an unregistered table")
	}
}
