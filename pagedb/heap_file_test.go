package pagedb

import (
	"path/filepath"
	"testing"
)

func newTestHeapFile(t *testing.T, bp *BufferPool) *HeapFile {
	t.Helper()
	desc := &TupleDesc{Fields: []FieldType{
		{Fname: "id", Ftype: IntType},
		{Fname: "name", Ftype: StringType},
	}}
	path := filepath.Join(t.TempDir(), "table.dat")
	hf, err := NewHeapFile(path, desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return hf
}

func TestHeapFileInsertReadIterate(t *testing.T) {
	bp := NewBufferPool(10, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	for i := 0; i < 20; i++ {
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
	if count != 20 {
		t.Fatalf("read %d tuples back, want 20", count)
	}
	_ = bp.CommitTransaction(readTid)
}

func TestHeapFileInsertSearchesHighestPageFirst(t *testing.T) {
	bp := NewBufferPool(10, nil)
	hf := newTestHeapFile(t, bp)
	catalog := NewMemCatalog()
	catalog.AddTable("t", hf)
	bp.SetCatalog(catalog)

	tid := NewTID()
	slotsPerPage, err := numSlotsForDesc(hf.getTupleDesc())
	if err != nil {
		t.Fatal(err)
	}
	// Fill page 0 and all but the last slot of page 1, then delete one tuple
	// from page 0, so both pages have exactly one free slot.
	var firstRid *RecordID
	for i := 0; i < slotsPerPage*2-1; i++ {
		tup := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
			IntField{Value: int64(i)},
			StringField{Value: "row"},
		}}
		if err := bp.InsertTuple(tid, hf, tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if i == 0 {
			firstRid = tup.Rid
		}
	}
	if err := bp.DeleteTuple(tid, &Tuple{Rid: firstRid}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Inserting one more tuple should land in page 1 (the highest page with
	// room), not back-fill page 0, under the highest-to-lowest search order.
	newTup := &Tuple{Desc: *hf.getTupleDesc(), Fields: []DBValue{
		IntField{Value: 999},
		StringField{Value: "row"},
	}}
	if err := bp.InsertTuple(tid, hf, newTup); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if newTup.Rid.PID.PageNo != 1 {
		t.Fatalf("expected new tuple on page 1, got page %d", newTup.Rid.PID.PageNo)
	}
	_ = bp.CommitTransaction(tid)
}
