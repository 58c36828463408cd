// Package pagedb implements the storage, transactional concurrency, and
// query-execution core of a small teaching relational database: a
// page-oriented heap file, a buffer pool with FIFO-over-clean eviction, a
// per-page shared/exclusive lock manager enforcing two-phase locking with
// timeout-based abort, and a pull-based iterator pipeline of scan,
// aggregate, insert, and delete operators fed by an equi-width-histogram
// selectivity estimator.
package pagedb

import (
	"fmt"

	"github.com/google/uuid"
)

// PageSize is the fixed size, in bytes, of every page on disk and in the
// buffer pool.
const PageSize = 4096

// StringLength is the fixed maximum byte length of a STRING field. Strings
// shorter than this are zero-padded on disk; serializing a longer string
// fails with MalformedDataError.
const StringLength = 128

// DBType is the closed enumeration of field types a Tuple's schema can
// carry: INT32, STRING (bounded to StringLength bytes), or DOUBLE.
type DBType int

const (
	IntType DBType = iota
	StringType
	DoubleType
	// UnknownType is used internally during parsing, when a field's type
	// has not yet been resolved against a schema.
	UnknownType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	case DoubleType:
		return "double"
	default:
		return "unknown"
	}
}

// BoolOp is the six comparison operators plus LIKE that Field.compare
// supports. LIKE is only meaningful for StringField; for IntField and
// DoubleField it is rejected rather than silently treated as equality.
type BoolOp int

const (
	OpEq BoolOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
)

func (op BoolOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLike:
		return "LIKE"
	default:
		return "?"
	}
}

// ErrCode names the kind of a GoDBError, not a distinct Go type. Spec
// section 7 enumerates these kinds; the names below follow the teacher
// repo's own vocabulary where one already existed (PageFullError,
// TupleNotFoundError, BufferPoolFullError, MalformedDataError,
// TypeMismatchError, IncompatibleTypesError, AmbiguousNameError,
// IllegalOperationError) and extends it only where spec.md names a kind
// the teacher never needed.
type ErrCode int

const (
	AmbiguousNameError ErrCode = iota
	BufferPoolFullError
	IllegalOperationError
	IncompatibleTypesError
	MalformedDataError
	PageFullError
	TupleNotFoundError
	TypeMismatchError
	// PageNotFoundError is spec.md's PageNotFound kind: a read or delete
	// targeting a pageNumber >= numPages.
	PageNotFoundError
	// TransactionAbortedError is spec.md's TransactionAborted kind: a lock
	// timeout, or a signal cascaded from an inner call.
	TransactionAbortedError
	// UsageError is spec.md's UsageError kind: an operator used before
	// open or after close, or an unsupported aggregate op.
	UsageError
	// IoError is spec.md's IoError kind: an underlying file I/O failure.
	IoError
)

func (c ErrCode) String() string {
	switch c {
	case AmbiguousNameError:
		return "ambiguous name"
	case BufferPoolFullError:
		return "buffer pool full"
	case IllegalOperationError:
		return "illegal operation"
	case IncompatibleTypesError:
		return "incompatible types"
	case MalformedDataError:
		return "malformed data"
	case PageFullError:
		return "page full"
	case TupleNotFoundError:
		return "tuple not found"
	case TypeMismatchError:
		return "type mismatch"
	case PageNotFoundError:
		return "page not found"
	case TransactionAbortedError:
		return "transaction aborted"
	case UsageError:
		return "usage error"
	case IoError:
		return "io error"
	default:
		return "unknown error"
	}
}

// GoDBError is the one error type this package returns; Code distinguishes
// the kind so callers can branch on it without string matching.
type GoDBError struct {
	Code ErrCode
	Msg  string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrCode, format string, args ...any) GoDBError {
	return GoDBError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// TransactionID is an opaque, equality-comparable identifier for a
// transaction. A transaction begins implicitly on its first lock
// acquisition and ends at transactionComplete.
type TransactionID struct {
	id uuid.UUID
}

// NewTID allocates a fresh TransactionID.
func NewTID() TransactionID {
	return TransactionID{id: uuid.New()}
}

func (t TransactionID) String() string {
	return t.id.String()
}

// IsZero reports whether t is the zero TransactionID (no transaction).
func (t TransactionID) IsZero() bool {
	return t.id == uuid.Nil
}

// PageID identifies a page within a table by table ID and zero-based page
// number. It is comparable and usable as a map key directly.
type PageID struct {
	TableID int
	PageNo  int
}

func (p PageID) String() string {
	return fmt.Sprintf("%d:%d", p.TableID, p.PageNo)
}

// RecordID identifies a tuple's location: the page it lives on, and its
// slot index within that page's header bitmap.
type RecordID struct {
	PID    PageID
	SlotNo int
}

// RWPerm is the permission requested when fetching a page from the buffer
// pool: ReadPerm acquires a shared lock, WritePerm acquires exclusive.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// Page is the unit the buffer pool caches and the lock manager protects.
// HeapPage is this package's only implementation.
type Page interface {
	pid() PageID
	insertTuple(t *Tuple) (RecordID, error)
	deleteTuple(t *Tuple) error
	isDirty() (TransactionID, bool)
	markDirty(dirty bool, tid TransactionID)
	getFile() DBFile
	tupleIter() func() (*Tuple, error)
	getPageData() []byte
}

// DBFileIterator is a rewindable pull iterator over a DBFile's tuples.
type DBFileIterator interface {
	Next() (*Tuple, error)
	Rewind() error
	Close() error
}

// DBFile is the table-storage contract the buffer pool and query operators
// depend on. HeapFile is this package's only implementation; the interface
// exists so catalog lookups and operators never need to know that.
type DBFile interface {
	readPage(pageNo int) (Page, error)
	writePage(p Page) error
	insertTuple(tid TransactionID, t *Tuple) ([]Page, error)
	deleteTuple(tid TransactionID, t *Tuple) (Page, error)
	iterator(tid TransactionID) (DBFileIterator, error)
	getID() int
	getTupleDesc() *TupleDesc
	numPages() int
}

// Operator is the uniform pull protocol every query-execution node
// implements: Open before any call to HasNext/Next, Close when done,
// Rewind to restart from the top (Insert, Delete and Aggregate are one-shot
// and return a usage error from Rewind). Calling HasNext, Next or Rewind
// before Open or after Close, or Close on an operator that is not open, is
// a usage error rather than undefined behavior.
type Operator interface {
	Descriptor() *TupleDesc
	Open(tid TransactionID) error
	HasNext() (bool, error)
	Next() (*Tuple, error)
	Rewind() error
	Close() error
}
