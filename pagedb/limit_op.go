package pagedb

// LimitOp returns at most the first N tuples of its child, where N is the
// value of a (typically constant) expression evaluated once at Open.

type LimitOp struct {
	baseOperator
	child     Operator
	limitTups Expr
	limit     int64
	count     int64
}

// NewLimitOp builds a LimitOp returning at most lim.EvalExpr(nil) tuples
// from child.
func NewLimitOp(lim Expr, child Operator) *LimitOp {
	return &LimitOp{child: child, limitTups: lim}
}

func (l *LimitOp) Descriptor() *TupleDesc { return l.child.Descriptor() }

func (l *LimitOp) Open(tid TransactionID) error {
	if err := l.child.Open(tid); err != nil {
		return err
	}
	limitVal, err := l.limitTups.EvalExpr(nil)
	if err != nil {
		return err
	}
	limit, ok := limitVal.(IntField)
	if !ok {
		return newErr(TypeMismatchError, "LIMIT value must be an integer")
	}
	l.limit = limit.Value
	l.count = 0
	return l.start(func() (*Tuple, error) {
		if l.count >= l.limit {
			return nil, nil
		}
		has, err := l.child.HasNext()
		if err != nil || !has {
			return nil, err
		}
		t, err := l.child.Next()
		if err != nil {
			return nil, err
		}
		l.count++
		return t, nil
	})
}

func (l *LimitOp) Rewind() error {
	if err := l.requireOpen(); err != nil {
		return err
	}
	if err := l.child.Rewind(); err != nil {
		return err
	}
	l.count = 0
	l.havePeeked = false
	l.peeked = nil
	return nil
}

func (l *LimitOp) Close() error {
	if err := l.stop(); err != nil {
		return err
	}
	return l.child.Close()
}
