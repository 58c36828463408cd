package pagedb

// EqualityJoin is a sort-merge equi-join: both children are drained and
// sorted by their join key at Open, then merged in one linear pass —
// avoiding the quadratic blowup of a nested-loop join on large inputs,
// per the optional exercise every fork of this assignment carries.

import "sort"

type EqualityJoin struct {
	baseOperator
	left, right           Operator
	leftField, rightField Expr
	joined                []*Tuple
	pos                   int
}

// NewJoin builds an equi-join of left and right on leftField = rightField.
// Both fields must share a static type.
func NewJoin(left Operator, leftField Expr, right Operator, rightField Expr) (*EqualityJoin, error) {
	if leftField.GetExprType().Ftype != rightField.GetExprType().Ftype {
		return nil, newErr(TypeMismatchError, "join: left field type %v does not match right field type %v",
			leftField.GetExprType().Ftype, rightField.GetExprType().Ftype)
	}
	return &EqualityJoin{left: left, right: right, leftField: leftField, rightField: rightField}, nil
}

func (j *EqualityJoin) Descriptor() *TupleDesc {
	return j.left.Descriptor().merge(j.right.Descriptor())
}

func (j *EqualityJoin) Open(tid TransactionID) error {
	if err := j.left.Open(tid); err != nil {
		return err
	}
	if err := j.right.Open(tid); err != nil {
		return err
	}
	leftTuples, err := drainAll(j.left)
	if err != nil {
		return err
	}
	rightTuples, err := drainAll(j.right)
	if err != nil {
		return err
	}
	sortByField(leftTuples, j.leftField)
	sortByField(rightTuples, j.rightField)
	joined, err := mergeJoin(leftTuples, rightTuples, j.leftField, j.rightField)
	if err != nil {
		return err
	}
	j.joined = joined
	j.pos = 0
	return j.start(func() (*Tuple, error) {
		if j.pos >= len(j.joined) {
			return nil, nil
		}
		t := j.joined[j.pos]
		j.pos++
		return t, nil
	})
}

func drainAll(op Operator) ([]*Tuple, error) {
	var out []*Tuple
	for {
		has, err := op.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		t, err := op.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func sortByField(tuples []*Tuple, field Expr) {
	sort.SliceStable(tuples, func(i, j int) bool {
		order, _ := tuples[i].compareField(tuples[j], field)
		return order == OrderedLessThan
	})
}

// mergeJoin performs the merge step of a sort-merge join: for each run of
// equal keys on each side, it emits the full cross product of the two runs.
func mergeJoin(left, right []*Tuple, leftField, rightField Expr) ([]*Tuple, error) {
	var out []*Tuple
	i, k := 0, 0
	for i < len(left) && k < len(right) {
		leftVal, err := leftField.EvalExpr(left[i])
		if err != nil {
			return nil, err
		}
		rightVal, err := rightField.EvalExpr(right[k])
		if err != nil {
			return nil, err
		}
		order, err := compareFields(leftVal, rightVal)
		if err != nil {
			return nil, err
		}
		switch order {
		case OrderedLessThan:
			i++
		case OrderedGreaterThan:
			k++
		default:
			iEnd := equalRunEnd(left, i, leftField)
			kEnd := equalRunEnd(right, k, rightField)
			for a := i; a < iEnd; a++ {
				for b := k; b < kEnd; b++ {
					out = append(out, joinTuples(left[a], right[b]))
				}
			}
			i, k = iEnd, kEnd
		}
	}
	return out, nil
}

func equalRunEnd(tuples []*Tuple, start int, field Expr) int {
	end := start + 1
	for end < len(tuples) {
		order, err := tuples[end].compareField(tuples[start], field)
		if err != nil || order != OrderedEqual {
			break
		}
		end++
	}
	return end
}

func (j *EqualityJoin) Rewind() error {
	if err := j.requireOpen(); err != nil {
		return err
	}
	j.pos = 0
	j.havePeeked = false
	j.peeked = nil
	return nil
}

func (j *EqualityJoin) Close() error {
	if err := j.stop(); err != nil {
		return err
	}
	j.joined = nil
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}
