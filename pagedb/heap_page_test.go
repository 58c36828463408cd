package pagedb

import "testing"

func pageTestDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "id", Ftype: IntType},
		{Fname: "name", Ftype: StringType},
	}}
}

func TestNewHeapPageSlotCount(t *testing.T) {
	desc := pageTestDesc()
	hp, err := newHeapPage(desc, 0, nil)
	if err != nil {
		t.Fatalf("newHeapPage: %v", err)
	}
	want, err := numSlotsForDesc(desc)
	if err != nil {
		t.Fatal(err)
	}
	if hp.numSlots != want {
		t.Fatalf("numSlots = %d, want %d", hp.numSlots, want)
	}
	if hp.getNumUnusedSlots() != hp.numSlots {
		t.Fatalf("fresh page should be entirely unused")
	}
}

func TestHeapPageInsertDelete(t *testing.T) {
	desc := pageTestDesc()
	hp, err := newHeapPage(desc, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 1}, StringField{Value: "a"}}}
	rid, err := hp.insertTuple(tup)
	if err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	if rid.SlotNo != 0 {
		t.Fatalf("expected first tuple in slot 0, got %d", rid.SlotNo)
	}
	if !hp.slotUsed(0) {
		t.Fatal("slot 0 should be marked used")
	}
	if err := hp.deleteTuple(tup); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	if hp.slotUsed(0) {
		t.Fatal("slot 0 should be free after delete")
	}
	if err := hp.deleteTuple(tup); err == nil {
		t.Fatal("deleting an already-deleted tuple should fail")
	}
}

func TestHeapPageFullReturnsPageFullError(t *testing.T) {
	desc := pageTestDesc()
	hp, err := newHeapPage(desc, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < hp.numSlots; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int64(i)}, StringField{Value: "x"}}}
		if _, err := hp.insertTuple(tup); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	overflow := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: 999}, StringField{Value: "y"}}}
	_, err = hp.insertTuple(overflow)
	ge, ok := err.(GoDBError)
	if !ok || ge.Code != PageFullError {
		t.Fatalf("expected PageFullError, got %v", err)
	}
}

func TestHeapPageSerializationRoundTrip(t *testing.T) {
	desc := pageTestDesc()
	hp, err := newHeapPage(desc, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		tup := &Tuple{Desc: *desc, Fields: []DBValue{IntField{Value: int64(i)}, StringField{Value: "row"}}}
		if _, err := hp.insertTuple(tup); err != nil {
			t.Fatal(err)
		}
	}
	data := hp.getPageData()
	if len(data) != PageSize {
		t.Fatalf("page data is %d bytes, want %d", len(data), PageSize)
	}

	restored, err := initHeapPageFromBuffer(data, 3, desc, nil)
	if err != nil {
		t.Fatalf("initHeapPageFromBuffer: %v", err)
	}
	if restored.getNumUnusedSlots() != hp.getNumUnusedSlots() {
		t.Fatalf("restored page has %d unused slots, want %d", restored.getNumUnusedSlots(), hp.getNumUnusedSlots())
	}
	for i := 0; i < 5; i++ {
		if !restored.slotUsed(i) {
			t.Fatalf("slot %d should be used after restore", i)
		}
	}
}
