package pagedb

// HeapFile is an unordered, paged collection of tuples of a fixed
// TupleDesc, backed by a single OS file. All page access is routed through
// the owning BufferPool so that locking and caching stay centralized.

import (
	"bufio"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

type HeapFile struct {
	backingFile string
	tupleDesc   *TupleDesc
	bp          *BufferPool
	id          int

	mu            sync.Mutex
	numPagesCount int
}

// NewHeapFile opens (or creates) a heap file backed by fromFile. The file's
// table ID is derived deterministically from its canonical path, so the
// same file always maps to the same ID across process restarts.
func NewHeapFile(fromFile string, td *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	abs, err := filepath.Abs(fromFile)
	if err != nil {
		abs = fromFile
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Clean(abs)))

	f := &HeapFile{
		backingFile: fromFile,
		tupleDesc:   td,
		bp:          bp,
		id:          int(h.Sum32()),
	}
	f.numPagesCount = f.pagesOnDisk()
	return f, nil
}

func (f *HeapFile) BackingFile() string { return f.backingFile }

func (f *HeapFile) pagesOnDisk() int {
	info, err := os.Stat(f.backingFile)
	if err != nil {
		return 0
	}
	n := int(info.Size() / int64(PageSize))
	if info.Size()%int64(PageSize) != 0 {
		n++
	}
	return n
}

// NumPages returns the logical page count, including pages created in this
// process but not yet flushed to disk.
func (f *HeapFile) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPagesCount
}

func (f *HeapFile) numPages() int            { return f.NumPages() }
func (f *HeapFile) getID() int               { return f.id }
func (f *HeapFile) getTupleDesc() *TupleDesc { return f.tupleDesc }
func (f *HeapFile) Descriptor() *TupleDesc   { return f.tupleDesc }

// LoadFromCSV populates the heap file from a CSV file, one tuple per
// non-header line. skipLastField drops a trailing separator some datasets
// emit on every line.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	line := 0
	tid := NewTID()
	for scanner.Scan() {
		line++
		rawFields := strings.Split(scanner.Text(), sep)
		if skipLastField {
			rawFields = rawFields[:len(rawFields)-1]
		}
		if line == 1 && hasHeader {
			continue
		}
		if len(rawFields) != len(f.tupleDesc.Fields) {
			return newErr(MalformedDataError, "line %d: expected %d fields, got %d", line, len(f.tupleDesc.Fields), len(rawFields))
		}
		values := make([]DBValue, 0, len(rawFields))
		for i, fd := range f.tupleDesc.Fields {
			raw := strings.TrimSpace(rawFields[i])
			switch fd.Ftype {
			case IntType:
				v, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					return newErr(TypeMismatchError, "line %d: %q is not an int", line, raw)
				}
				values = append(values, IntField{Value: v})
			case DoubleType:
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return newErr(TypeMismatchError, "line %d: %q is not a double", line, raw)
				}
				values = append(values, DoubleField{Value: v})
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				values = append(values, StringField{Value: raw})
			}
		}
		tup := &Tuple{Desc: *f.tupleDesc, Fields: values}
		if err := f.bp.insertTuple(tid, f.id, tup); err != nil {
			return err
		}
	}
	return f.bp.transactionComplete(tid, true)
}

// readPage loads pageNo directly from the backing file, bypassing the
// buffer pool cache (the buffer pool calls this on a cache miss).
func (f *HeapFile) readPage(pageNo int) (Page, error) {
	if pageNo < 0 || pageNo >= f.NumPages() {
		return nil, newErr(PageNotFoundError, "page %d of table %d out of range", pageNo, f.id)
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, newErr(IoError, "opening %s: %v", f.backingFile, err)
	}
	defer file.Close()

	data := make([]byte, PageSize)
	if _, err := file.ReadAt(data, int64(pageNo)*PageSize); err != nil {
		// a page that was allocated logically but never flushed reads as
		// a valid, empty page.
		data = createEmptyPageData(f.tupleDesc)
	}
	return initHeapPageFromBuffer(data, pageNo, f.tupleDesc, f)
}

// writePage durably persists p to its slot in the backing file and clears
// its dirty flag.
func (f *HeapFile) writePage(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return newErr(MalformedDataError, "writePage: not a heapPage")
	}
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return newErr(IoError, "opening %s: %v", f.backingFile, err)
	}
	defer file.Close()

	if _, err := file.WriteAt(hp.getPageData(), int64(hp.pageNo)*PageSize); err != nil {
		return newErr(IoError, "writing page %d: %v", hp.pageNo, err)
	}
	if err := file.Sync(); err != nil {
		return newErr(IoError, "fsync %s: %v", f.backingFile, err)
	}
	hp.markDirty(false, TransactionID{})
	return nil
}

// insertTuple searches existing pages from the highest page number down to
// zero for one with a free slot, releasing any READ lock it did not already
// hold on a page that turns out to be full. If none has room, it allocates
// a fresh page and returns it unregistered, for the BufferPool to install
// and lock (see BufferPool.insertTuple).
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) ([]Page, error) {
	if len(t.Fields) != len(f.tupleDesc.Fields) {
		return nil, newErr(TypeMismatchError, "tuple has %d fields, table has %d", len(t.Fields), len(f.tupleDesc.Fields))
	}

	for pageNo := f.NumPages() - 1; pageNo >= 0; pageNo-- {
		pid := PageID{TableID: f.id, PageNo: pageNo}
		alreadyHeld := f.bp.lockManager.holdsLock(tid, pid)

		page, err := f.bp.getPage(tid, pid, ReadPerm)
		if err != nil {
			return nil, err
		}
		hp := page.(*heapPage)
		if hp.getNumUnusedSlots() == 0 {
			if !alreadyHeld {
				f.bp.unsafeReleasePage(tid, pid)
			}
			continue
		}
		if _, err := f.bp.getPage(tid, pid, WritePerm); err != nil {
			return nil, err
		}
		if _, err := hp.insertTuple(t); err != nil {
			return nil, err
		}
		hp.markDirty(true, tid)
		return []Page{hp}, nil
	}

	f.mu.Lock()
	newPageNo := f.numPagesCount
	f.mu.Unlock()

	newPage, err := newHeapPage(f.tupleDesc, newPageNo, f)
	if err != nil {
		return nil, err
	}
	if _, err := newPage.insertTuple(t); err != nil {
		return nil, err
	}
	newPage.markDirty(true, tid)

	f.mu.Lock()
	f.numPagesCount++
	f.mu.Unlock()

	return []Page{newPage}, nil
}

// deleteTuple removes t, located via t.Rid, from its page.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) (Page, error) {
	if t.Rid == nil {
		return nil, newErr(TupleNotFoundError, "tuple has no record id")
	}
	page, err := f.bp.getPage(tid, t.Rid.PID, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := page.(*heapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	hp.markDirty(true, tid)
	return hp, nil
}

type heapFileIterator struct {
	f       *HeapFile
	tid     TransactionID
	pageNo  int
	current func() (*Tuple, error)
}

func (it *heapFileIterator) Next() (*Tuple, error) {
	for it.pageNo < it.f.NumPages() {
		if it.current == nil {
			page, err := it.f.bp.getPage(it.tid, PageID{TableID: it.f.id, PageNo: it.pageNo}, ReadPerm)
			if err != nil {
				return nil, err
			}
			it.current = page.(*heapPage).tupleIter()
		}
		t, err := it.current()
		if err != nil {
			return nil, err
		}
		if t != nil {
			td := *it.f.tupleDesc
			t.Desc = td
			return t, nil
		}
		it.current = nil
		it.pageNo++
	}
	return nil, nil
}

func (it *heapFileIterator) Rewind() error {
	it.pageNo = 0
	it.current = nil
	return nil
}

func (it *heapFileIterator) Close() error { return nil }

// iterator returns a rewindable DBFileIterator over every tuple in the
// file, reading pages through the buffer pool.
func (f *HeapFile) iterator(tid TransactionID) (DBFileIterator, error) {
	return &heapFileIterator{f: f, tid: tid}, nil
}

// Iterator is a convenience wrapper matching the plain pull-closure shape
// used by SeqScan and the supplemental operators.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	it, err := f.iterator(tid)
	if err != nil {
		return nil, err
	}
	return it.Next, nil
}

func (f *HeapFile) pageKey(pageNo int) any {
	return PageID{TableID: f.id, PageNo: pageNo}
}
