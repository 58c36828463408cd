package pagedb

// Filter passes through only the child tuples satisfying "left op right",
// where left and right are arbitrary expressions (so a filter can compare
// two fields, not just a field against a literal).

type Filter struct {
	baseOperator
	op    BoolOp
	left  Expr
	right Expr
	child Operator
}

// NewFilter builds a Filter evaluating "field op constExpr" (or, more
// generally, "field op right") over child's output.
func NewFilter(right Expr, op BoolOp, left Expr, child Operator) (*Filter, error) {
	return &Filter{op: op, left: left, right: right, child: child}, nil
}

func (f *Filter) Descriptor() *TupleDesc { return f.child.Descriptor() }

func (f *Filter) Open(tid TransactionID) error {
	if err := f.child.Open(tid); err != nil {
		return err
	}
	return f.start(func() (*Tuple, error) {
		for {
			has, err := f.child.HasNext()
			if err != nil || !has {
				return nil, err
			}
			t, err := f.child.Next()
			if err != nil {
				return nil, err
			}
			leftVal, err := f.left.EvalExpr(t)
			if err != nil {
				return nil, err
			}
			rightVal, err := f.right.EvalExpr(t)
			if err != nil {
				return nil, err
			}
			ok, err := leftVal.compare(f.op, rightVal)
			if err != nil {
				return nil, err
			}
			if ok {
				return t, nil
			}
		}
	})
}

func (f *Filter) Rewind() error {
	if err := f.requireOpen(); err != nil {
		return err
	}
	if err := f.child.Rewind(); err != nil {
		return err
	}
	f.havePeeked = false
	f.peeked = nil
	return nil
}

func (f *Filter) Close() error {
	if err := f.stop(); err != nil {
		return err
	}
	return f.child.Close()
}
