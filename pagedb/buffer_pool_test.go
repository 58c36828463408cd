package pagedb

import "testing"

func insertNTuples(t *testing.T, bp *BufferPool, hf *HeapFile, tid TransactionID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		tup := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
			IntField{Value: int64(i)},
			StringField{Value: "row"},
		}}
		if err := bp.InsertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
}

func TestBufferPoolEvictsCleanBeforeDirty(t *testing.T) {
	// Capacity of 1: a second page can only be cached once the first is
	// flushed (clean), never while it's still dirty.
	bp := NewBufferPool(1, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	slotsPerPage, err := numSlotsForDesc(hf.getTupleDesc())
	if err != nil {
		t.Fatal(err)
	}
	insertNTuples(t, bp, hf, tid, slotsPerPage)
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tid2 := NewTID()
	insertNTuples(t, bp, hf, tid2, 1)
	if err := bp.CommitTransaction(tid2); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBufferPoolFullOfDirtyPagesErrors(t *testing.T) {
	bp := NewBufferPool(1, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	slotsPerPage, err := numSlotsForDesc(hf.getTupleDesc())
	if err != nil {
		t.Fatal(err)
	}
	// Fill page 0 without committing, so it stays dirty in the one-page pool.
	insertNTuples(t, bp, hf, tid, slotsPerPage)

	overflow := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
		IntField{Value: 999},
		StringField{Value: "row"},
	}}
	err = bp.InsertTuple(tid, hf, overflow)
	if err == nil {
		t.Fatal("expected insert requiring a second dirty page to fail the full pool")
	}
	ge, ok := err.(GoDBError)
	if !ok || ge.Code != BufferPoolFullError {
		t.Fatalf("expected BufferPoolFullError, got %v", err)
	}
}

func TestBufferPoolCommitFlushesAndClearsDirty(t *testing.T) {
	bp := NewBufferPool(10, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	insertNTuples(t, bp, hf, tid, 3)
	if err := bp.CommitTransaction(tid); err != nil {
		t.Fatalf("commit: %v", err)
	}

	page, err := bp.GetPage(hf, 0, NewTID(), ReadPerm)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if _, dirty := page.isDirty(); dirty {
		t.Fatal("page should be clean after commit")
	}
}

func TestBufferPoolAbortDiscardsDirtyPages(t *testing.T) {
	bp := NewBufferPool(10, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	seedTid := NewTID()
	insertNTuples(t, bp, hf, seedTid, 3)
	if err := bp.CommitTransaction(seedTid); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	abortTid := NewTID()
	insertNTuples(t, bp, hf, abortTid, 3)
	if err := bp.AbortTransaction(abortTid); err != nil {
		t.Fatalf("abort: %v", err)
	}

	readTid := NewTID()
	it, err := hf.iterator(readTid)
	if err != nil {
		t.Fatalf("iterator: %v", err)
	}
	count := 0
	for {
		tup, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if tup == nil {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("read %d tuples after abort, want 3 (aborted insert must not survive)", count)
	}
	_ = bp.CommitTransaction(readTid)
}
