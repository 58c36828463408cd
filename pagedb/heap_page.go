package pagedb

// heapPage implements Page for one page of a HeapFile. Every page is
// exactly PageSize bytes: a bitmap header of ceil(numSlots/8) bytes (one
// bit per slot, set iff the slot holds a tuple), followed by numSlots
// fixed-width tuple records, followed by zero padding out to PageSize.
//
// numSlots is a pure function of the page's TupleDesc and PageSize, so it
// never needs to be stored on disk:
//
//	numSlots = floor((PageSize*8) / (bytesPerTuple*8 + 1))
//
// the "+1" in the denominator reserves one header bit per slot.

import (
	"bytes"
	"fmt"
)

type heapPage struct {
	pageNo     int
	desc       *TupleDesc
	file       *HeapFile
	numSlots   int
	header     []byte
	tuples     []*Tuple
	dirty      bool
	dirtyTid   TransactionID
}

func numSlotsForDesc(desc *TupleDesc) (int, error) {
	width := desc.bytesPerTuple()
	if width <= 0 {
		return 0, newErr(MalformedDataError, "tuple desc has zero-width record")
	}
	return (PageSize * 8) / (width*8 + 1), nil
}

func headerBytesForSlots(numSlots int) int {
	return (numSlots + 7) / 8
}

// newHeapPage constructs a fresh, empty heap page for pageNo.
func newHeapPage(desc *TupleDesc, pageNo int, f *HeapFile) (*heapPage, error) {
	numSlots, err := numSlotsForDesc(desc)
	if err != nil {
		return nil, err
	}
	if numSlots == 0 {
		return nil, newErr(MalformedDataError, "tuple of width %d does not fit on a page of size %d", desc.bytesPerTuple(), PageSize)
	}
	return &heapPage{
		pageNo:   pageNo,
		desc:     desc,
		file:     f,
		numSlots: numSlots,
		header:   make([]byte, headerBytesForSlots(numSlots)),
		tuples:   make([]*Tuple, numSlots),
	}, nil
}

func (h *heapPage) pid() PageID {
	tableID := 0
	if h.file != nil {
		tableID = h.file.getID()
	}
	return PageID{TableID: tableID, PageNo: h.pageNo}
}

func (h *heapPage) slotUsed(slot int) bool {
	return h.header[slot/8]&(1<<uint(slot%8)) != 0
}

func (h *heapPage) setSlotUsed(slot int, used bool) {
	mask := byte(1 << uint(slot%8))
	if used {
		h.header[slot/8] |= mask
	} else {
		h.header[slot/8] &^= mask
	}
}

func (h *heapPage) getNumUnusedSlots() int {
	n := 0
	for i := 0; i < h.numSlots; i++ {
		if !h.slotUsed(i) {
			n++
		}
	}
	return n
}

// insertTuple places t into the lowest-numbered free slot, recording its
// RecordId, or returns PageFullError.
func (h *heapPage) insertTuple(t *Tuple) (RecordID, error) {
	if !t.Desc.equals(h.desc) {
		return RecordID{}, newErr(TypeMismatchError, "tuple schema does not match page schema")
	}
	for slot := 0; slot < h.numSlots; slot++ {
		if h.slotUsed(slot) {
			continue
		}
		rid := RecordID{PID: h.pid(), SlotNo: slot}
		stored := &Tuple{Desc: *h.desc, Fields: append([]DBValue{}, t.Fields...), Rid: &rid}
		h.tuples[slot] = stored
		h.setSlotUsed(slot, true)
		t.Rid = &rid
		return rid, nil
	}
	return RecordID{}, newErr(PageFullError, "page %s has no free slots", h.pid())
}

// deleteTuple removes the tuple identified by t.Rid.
func (h *heapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil {
		return newErr(TupleNotFoundError, "tuple has no record id")
	}
	rid := *t.Rid
	if rid.PID != h.pid() {
		return newErr(TupleNotFoundError, "record id %v does not belong to page %s", rid, h.pid())
	}
	if rid.SlotNo < 0 || rid.SlotNo >= h.numSlots || !h.slotUsed(rid.SlotNo) {
		return newErr(TupleNotFoundError, "no tuple in slot %d of page %s", rid.SlotNo, h.pid())
	}
	h.tuples[rid.SlotNo] = nil
	h.setSlotUsed(rid.SlotNo, false)
	return nil
}

func (h *heapPage) isDirty() (TransactionID, bool) {
	return h.dirtyTid, h.dirty
}

func (h *heapPage) markDirty(dirty bool, tid TransactionID) {
	h.dirty = dirty
	if dirty {
		h.dirtyTid = tid
	} else {
		h.dirtyTid = TransactionID{}
	}
}

func (h *heapPage) getFile() DBFile {
	return h.file
}

// getPageData serializes the page to exactly PageSize bytes: header bitmap,
// then every slot's tuple record (used or not — unused slot bytes are left
// zeroed), then padding.
func (h *heapPage) getPageData() []byte {
	buf := new(bytes.Buffer)
	buf.Write(h.header)
	for slot := 0; slot < h.numSlots; slot++ {
		if t := h.tuples[slot]; t != nil {
			_ = t.writeTo(buf)
		} else {
			buf.Write(make([]byte, h.desc.bytesPerTuple()))
		}
	}
	out := buf.Bytes()
	if len(out) < PageSize {
		out = append(out, make([]byte, PageSize-len(out))...)
	}
	return out[:PageSize]
}

// initHeapPageFromBuffer parses a page previously produced by getPageData.
func initHeapPageFromBuffer(data []byte, pageNo int, desc *TupleDesc, f *HeapFile) (*heapPage, error) {
	numSlots, err := numSlotsForDesc(desc)
	if err != nil {
		return nil, err
	}
	headerLen := headerBytesForSlots(numSlots)
	if len(data) < PageSize {
		return nil, newErr(MalformedDataError, "page data is %d bytes, want %d", len(data), PageSize)
	}
	h := &heapPage{
		pageNo:   pageNo,
		desc:     desc,
		file:     f,
		numSlots: numSlots,
		header:   append([]byte{}, data[:headerLen]...),
		tuples:   make([]*Tuple, numSlots),
	}
	body := bytes.NewBuffer(data[headerLen:])
	recordWidth := desc.bytesPerTuple()
	for slot := 0; slot < numSlots; slot++ {
		record := body.Next(recordWidth)
		if !h.slotUsed(slot) {
			continue
		}
		tup, err := readTupleFrom(bytes.NewBuffer(record), desc)
		if err != nil {
			return nil, fmt.Errorf("decoding slot %d of page %d: %w", slot, pageNo, err)
		}
		rid := RecordID{PID: h.pid(), SlotNo: slot}
		tup.Rid = &rid
		h.tuples[slot] = tup
	}
	return h, nil
}

// createEmptyPageData returns PageSize zeroed bytes: a valid serialization
// of an empty page under desc.
func createEmptyPageData(desc *TupleDesc) []byte {
	return make([]byte, PageSize)
}

// tupleIter returns a closure yielding each occupied slot's tuple in
// ascending slot order, then (nil, nil).
func (h *heapPage) tupleIter() func() (*Tuple, error) {
	slot := 0
	return func() (*Tuple, error) {
		for slot < h.numSlots {
			t := h.tuples[slot]
			slot++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}
