package pagedb

// Delete does nothing at Open beyond opening its child; the drain — delete
// each child tuple from the buffer pool, routed via the tuple's own record
// ID — happens lazily, once, the first time its fetch is pulled, producing
// a single result tuple: a one-column "count" of rows deleted.

type Delete struct {
	baseOperator
	bp          *BufferPool
	child       Operator
	desc        *TupleDesc
	childClosed bool
}

func NewDeleteOp(bp *BufferPool, child Operator) *Delete {
	return &Delete{
		bp:    bp,
		child: child,
		desc:  &TupleDesc{Fields: []FieldType{{Fname: "count", Ftype: IntType}}},
	}
}

func (op *Delete) Descriptor() *TupleDesc { return op.desc }

func (op *Delete) Open(tid TransactionID) error {
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
			if err := op.bp.deleteTuple(tid, t); err != nil {
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

func (op *Delete) Rewind() error {
	return newErr(UsageError, "Delete is one-shot and cannot be rewound")
}

func (op *Delete) Close() error {
	if err := op.stop(); err != nil {
		return err
	}
	if !op.childClosed {
		return op.child.Close()
	}
	return nil
}
