package pagedb

// BufferPool caches pages read from DBFiles, enforces a fixed capacity via
// FIFO-over-clean-pages eviction, and serializes access to a Catalog's
// files through a LockManager so that transactions observe two-phase
// locking. GoDB is NO STEAL: a dirty page is never evicted, so commit only
// ever needs to flush, never to undo, and abort only ever needs to discard,
// never to redo.

import (
	"sync"
)

const DefaultMaxBufferPages = 50

type BufferPool struct {
	mu       sync.Mutex
	catalog  Catalog
	maxPages int
	pages    map[PageID]Page
	order    []PageID

	lockManager *LockManager
}

// NewBufferPool builds a BufferPool of the given capacity (page count),
// backed by catalog for cache-miss reads.
func NewBufferPool(maxPages int, catalog Catalog) *BufferPool {
	if maxPages <= 0 {
		maxPages = DefaultMaxBufferPages
	}
	return &BufferPool{
		catalog:     catalog,
		maxPages:    maxPages,
		pages:       make(map[PageID]Page),
		lockManager: NewLockManager(0),
	}
}

// SetCatalog wires the catalog after construction, for callers that build
// tables into the same catalog the pool will later read from.
func (bp *BufferPool) SetCatalog(c Catalog) { bp.catalog = c }

// getPage acquires the requested lock (blocking, subject to the lock
// manager's timeout) and returns the page, reading it from its DBFile and
// installing it in the cache on a miss.
func (bp *BufferPool) getPage(tid TransactionID, pid PageID, perm RWPerm) (Page, error) {
	var err error
	if perm == WritePerm {
		err = bp.lockManager.acquireExclusive(tid, pid)
	} else {
		err = bp.lockManager.acquireShared(tid, pid)
	}
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	if p, ok := bp.pages[pid]; ok {
		bp.mu.Unlock()
		return p, nil
	}
	bp.mu.Unlock()

	dbFile, err := bp.catalog.getDatabaseFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	page, err := dbFile.readPage(pid.PageNo)
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if existing, ok := bp.pages[pid]; ok {
		return existing, nil
	}
	if err := bp.makeRoomLocked(); err != nil {
		return nil, err
	}
	bp.pages[pid] = page
	bp.order = append(bp.order, pid)
	return page, nil
}

// GetPage is the public, teacher-shaped entry point for code (tests,
// operators in other packages) that already holds a DBFile handle.
func (bp *BufferPool) GetPage(file DBFile, pageNo int, tid TransactionID, perm RWPerm) (Page, error) {
	return bp.getPage(tid, PageID{TableID: file.getID(), PageNo: pageNo}, perm)
}

// makeRoomLocked evicts the oldest clean page, if the pool is at capacity.
// Must be called with bp.mu held.
func (bp *BufferPool) makeRoomLocked() error {
	if len(bp.pages) < bp.maxPages {
		return nil
	}
	for i, pid := range bp.order {
		p := bp.pages[pid]
		if _, dirty := p.isDirty(); dirty {
			continue
		}
		delete(bp.pages, pid)
		bp.order = append(bp.order[:i], bp.order[i+1:]...)
		return nil
	}
	return newErr(BufferPoolFullError, "buffer pool is full of dirty pages")
}

// unsafeReleasePage releases tid's lock on pid without flushing or
// otherwise changing cache state; HeapFile uses this to shed a READ lock on
// a page it peeked at but did not need.
func (bp *BufferPool) unsafeReleasePage(tid TransactionID, pid PageID) {
	bp.lockManager.release(tid, pid)
}

// insertTuple asks tableID's DBFile to insert t, then ensures every page it
// returns as dirtied is installed in the cache (new pages are not yet
// cached) and that tid holds an exclusive lock on it.
func (bp *BufferPool) insertTuple(tid TransactionID, tableID int, t *Tuple) error {
	dbFile, err := bp.catalog.getDatabaseFile(tableID)
	if err != nil {
		return err
	}
	pages, err := dbFile.insertTuple(tid, t)
	if err != nil {
		return err
	}
	for _, p := range pages {
		pid := p.pid()
		if err := bp.lockManager.acquireExclusive(tid, pid); err != nil {
			return err
		}
		bp.mu.Lock()
		if _, cached := bp.pages[pid]; !cached {
			if err := bp.makeRoomLocked(); err != nil {
				bp.mu.Unlock()
				return err
			}
			bp.pages[pid] = p
			bp.order = append(bp.order, pid)
		}
		bp.mu.Unlock()
	}
	return nil
}

// InsertTuple is the public, teacher-shaped entry point for code outside
// this package that already holds a DBFile handle (e.g. a SQL front end).
func (bp *BufferPool) InsertTuple(tid TransactionID, file DBFile, t *Tuple) error {
	return bp.insertTuple(tid, file.getID(), t)
}

// DeleteTuple is the public, teacher-shaped entry point mirroring
// InsertTuple; t must carry a RecordID from a prior scan.
func (bp *BufferPool) DeleteTuple(tid TransactionID, t *Tuple) error {
	return bp.deleteTuple(tid, t)
}

// deleteTuple asks t's table's DBFile to delete it.
func (bp *BufferPool) deleteTuple(tid TransactionID, t *Tuple) error {
	if t.Rid == nil {
		return newErr(TupleNotFoundError, "tuple has no record id")
	}
	dbFile, err := bp.catalog.getDatabaseFile(t.Rid.PID.TableID)
	if err != nil {
		return err
	}
	_, err = dbFile.deleteTuple(tid, t)
	return err
}

// transactionComplete ends tid's participation: on commit, every page it
// dirtied is flushed and marked clean; on abort, every page it dirtied is
// simply dropped from the cache (never having reached disk, since NO STEAL
// guarantees a dirty page is never written before commit). Either way,
// every lock tid holds is released.
func (bp *BufferPool) transactionComplete(tid TransactionID, commit bool) error {
	bp.mu.Lock()
	var dirtied []Page
	for _, pid := range bp.order {
		p := bp.pages[pid]
		if dtid, dirty := p.isDirty(); dirty && dtid == tid {
			dirtied = append(dirtied, p)
		}
	}
	bp.mu.Unlock()

	if commit {
		for _, p := range dirtied {
			if err := p.getFile().writePage(p); err != nil {
				return err
			}
		}
	} else {
		bp.mu.Lock()
		for _, p := range dirtied {
			bp.removePageLocked(p.pid())
		}
		bp.mu.Unlock()
	}

	bp.lockManager.releaseAll(tid)
	return nil
}

func (bp *BufferPool) removePageLocked(pid PageID) {
	delete(bp.pages, pid)
	for i, p := range bp.order {
		if p == pid {
			bp.order = append(bp.order[:i], bp.order[i+1:]...)
			break
		}
	}
}

// RemovePage evicts pid from the cache without flushing it.
func (bp *BufferPool) RemovePage(pid PageID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.removePageLocked(pid)
}

// FlushPage flushes pid, if cached, and clears its dirty flag.
func (bp *BufferPool) FlushPage(pid PageID) error {
	bp.mu.Lock()
	p, ok := bp.pages[pid]
	bp.mu.Unlock()
	if !ok {
		return nil
	}
	return p.getFile().writePage(p)
}

// FlushPages flushes every page dirtied by tid.
func (bp *BufferPool) FlushPages(tid TransactionID) error {
	bp.mu.Lock()
	var dirtied []Page
	for _, p := range bp.pages {
		if dtid, dirty := p.isDirty(); dirty && dtid == tid {
			dirtied = append(dirtied, p)
		}
	}
	bp.mu.Unlock()
	for _, p := range dirtied {
		if err := p.getFile().writePage(p); err != nil {
			return err
		}
	}
	return nil
}

// FlushAllPages flushes every dirty page in the cache. Intended for tests
// and shutdown, not for use mid-transaction.
func (bp *BufferPool) FlushAllPages() {
	bp.mu.Lock()
	var dirtied []Page
	for _, p := range bp.pages {
		if _, dirty := p.isDirty(); dirty {
			dirtied = append(dirtied, p)
		}
	}
	bp.mu.Unlock()
	for _, p := range dirtied {
		_ = p.getFile().writePage(p)
	}
}

// BeginTransaction exists for symmetry with the teacher's API; transactions
// in this package need no explicit registration, since the LockManager
// tracks state lazily from a transaction's first lock acquisition.
func (bp *BufferPool) BeginTransaction(tid TransactionID) error { return nil }

// CommitTransaction commits tid.
func (bp *BufferPool) CommitTransaction(tid TransactionID) error {
	return bp.transactionComplete(tid, true)
}

// AbortTransaction aborts tid.
func (bp *BufferPool) AbortTransaction(tid TransactionID) error {
	return bp.transactionComplete(tid, false)
}
