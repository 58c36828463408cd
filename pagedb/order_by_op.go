package pagedb

// OrderBy is a blocking sort: at Open it drains its child into memory,
// sorts by the given list of expressions (each with its own ascending/
// descending direction), and serves the sorted result one tuple at a time.

import "sort"

type OrderBy struct {
	baseOperator
	orderBy    []Expr
	child      Operator
	ascending  []bool
	sorted     []*Tuple
	pos        int
}

// NewOrderBy builds an OrderBy over child, sorting by orderByFields in
// order (a stable multi-key sort), ascending[i] controlling the ith key's
// direction.
func NewOrderBy(orderByFields []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	if len(orderByFields) != len(ascending) {
		return nil, newErr(UsageError, "ORDER BY: %d fields but %d directions", len(orderByFields), len(ascending))
	}
	return &OrderBy{orderBy: orderByFields, child: child, ascending: ascending}, nil
}

func (o *OrderBy) Descriptor() *TupleDesc { return o.child.Descriptor() }

func (o *OrderBy) Open(tid TransactionID) error {
	if err := o.child.Open(tid); err != nil {
		return err
	}
	var all []*Tuple
	for {
		has, err := o.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := o.child.Next()
		if err != nil {
			return err
		}
		all = append(all, t)
	}
	sort.SliceStable(all, func(i, j int) bool { return o.less(all[i], all[j]) })
	o.sorted = all
	o.pos = 0
	return o.start(func() (*Tuple, error) {
		if o.pos >= len(o.sorted) {
			return nil, nil
		}
		t := o.sorted[o.pos]
		o.pos++
		return t, nil
	})
}

func (o *OrderBy) less(a, b *Tuple) bool {
	for i, expr := range o.orderBy {
		order, err := a.compareField(b, expr)
		if err != nil {
			return false
		}
		if order == OrderedEqual {
			continue
		}
		if o.ascending[i] {
			return order == OrderedLessThan
		}
		return order == OrderedGreaterThan
	}
	return false
}

func (o *OrderBy) Rewind() error {
	if err := o.requireOpen(); err != nil {
		return err
	}
	o.pos = 0
	o.havePeeked = false
	o.peeked = nil
	return nil
}

func (o *OrderBy) Close() error {
	if err := o.stop(); err != nil {
		return err
	}
	o.sorted = nil
	return o.child.Close()
}
