package pagedb

// Insert does nothing at Open beyond opening its child; the drain — insert
// each child tuple into tableID's file through the buffer pool — happens
// lazily, once, the first time its fetch is pulled, producing a single
// result tuple: a one-column "count" of how many rows were inserted.

type Insert struct {
	baseOperator
	bp          *BufferPool
	tableID     int
	child       Operator
	desc        *TupleDesc
	childClosed bool
}

func NewInsertOp(bp *BufferPool, tableID int, child Operator) *Insert {
	return &Insert{
		bp:      bp,
		tableID: tableID,
		child:   child,
		desc:    &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (op *Insert) Descriptor() *TupleDesc { return op.desc }

func (op *Insert) Open(tid TransactionID) error {
	if err := op.child.Open(tid); err != nil {
		return err
	}
	delivered := false
	return op.start(func() (*Tuple, error) {
		if delivered {
			return nil, nil
		}
		delivered = true
		count := int64(0)
		for {
			has, err := op.child.HasNext()
			if err != nil {
				return nil, err
			}
			if !has {
				break
			}
			t, err := op.child.Next()
			if err != nil {
				return nil, err
			}
			if err := op.bp.insertTuple(tid, op.tableID, t); err != nil {
				return nil, err
			}
			count++
		}
		if err := op.child.Close(); err != nil {
			return nil, err
		}
		op.childClosed = true
		return &Tuple{Desc: *op.desc, Fields: []DBValue{IntField{Value: count}}}, nil
	})
}

func (op *Insert) Rewind() error {
	return newErr(UsageError, "Insert is one-shot and cannot be rewound")
}

func (op *Insert) Close() error {
	if err := op.stop(); err != nil {
		return err
	}
	if !op.childClosed {
		return op.child.Close()
	}
	return nil
}
