package pagedb

// Aggregator computes one of MIN/MAX/SUM/AVG/COUNT over a grouped or
// ungrouped stream of values. IntegerAggregator supports all five, over
// IntField and DoubleField inputs; StringAggregator supports only COUNT,
// since the other operations have no defined meaning over strings —
// rejected at construction time rather than silently ignored.

import "fmt"

// AggType names an aggregate function.
type AggType int

const (
	AggMin AggType = iota
	AggMax
	AggSum
	AggAvg
	AggCount
)

func (a AggType) String() string {
	switch a {
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggCount:
		return "COUNT"
	default:
		return "?"
	}
}

// noGroupingKey is the sentinel group key used when an aggregate has no
// GROUP BY clause: every tuple falls into the single group IntField{-1}.
var noGroupingKey DBValue = IntField{Value: -1}

type groupAccumulator struct {
	values []DBValue
}

// aggregator is the common shape IntegerAggregator and StringAggregator
// both implement: accumulate one value into its group, then produce one
// result tuple per group.
type aggregator interface {
	add(groupKey DBValue, value DBValue)
	iterator(groupFieldType *FieldType) func() (*Tuple, error)
	resultDesc(groupFieldType *FieldType) *TupleDesc
}

// IntegerAggregator aggregates IntField or DoubleField values, grouped by
// an arbitrary DBValue key (or the no-grouping sentinel).
type IntegerAggregator struct {
	op          AggType
	newField    string
	groups      map[DBValue]*groupAccumulator
	groupOrder  []DBValue
	useDouble   bool
}

func NewIntegerAggregator(op AggType, newField string) *IntegerAggregator {
	return &IntegerAggregator{op: op, newField: newField, groups: make(map[DBValue]*groupAccumulator)}
}

func (a *IntegerAggregator) add(groupKey DBValue, value DBValue) {
	if _, ok := value.(DoubleField); ok {
		a.useDouble = true
	}
	acc, ok := a.groups[groupKey]
	if !ok {
		acc = &groupAccumulator{}
		a.groups[groupKey] = acc
		a.groupOrder = append(a.groupOrder, groupKey)
	}
	acc.values = append(acc.values, value)
}

func (a *IntegerAggregator) compute(values []DBValue) DBValue {
	if a.op == AggCount {
		return IntField{Value: int64(len(values))}
	}
	if a.useDouble {
		return computeDoubleAgg(a.op, values)
	}
	return computeIntAgg(a.op, values)
}

func computeIntAgg(op AggType, values []DBValue) DBValue {
	if len(values) == 0 {
		return IntField{Value: 0}
	}
	sum := int64(0)
	min := values[0].(IntField).Value
	max := min
	for _, v := range values {
		n := v.(IntField).Value
		sum += n
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	switch op {
	case AggMin:
		return IntField{Value: min}
	case AggMax:
		return IntField{Value: max}
	case AggSum:
		return IntField{Value: sum}
	case AggAvg:
		return IntField{Value: sum / int64(len(values))}
	default:
		panic(fmt.Sprintf("unsupported integer aggregate op %v", op))
	}
}

func computeDoubleAgg(op AggType, values []DBValue) DBValue {
	if len(values) == 0 {
		return DoubleField{Value: 0}
	}
	toFloat := func(v DBValue) float64 {
		switch f := v.(type) {
		case DoubleField:
			return f.Value
		case IntField:
			return float64(f.Value)
		default:
			panic(fmt.Sprintf("unsupported value %T in numeric aggregate", v))
		}
	}
	sum := 0.0
	min := toFloat(values[0])
	max := min
	for _, v := range values {
		n := toFloat(v)
		sum += n
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	switch op {
	case AggMin:
		return DoubleField{Value: min}
	case AggMax:
		return DoubleField{Value: max}
	case AggSum:
		return DoubleField{Value: sum}
	case AggAvg:
		return DoubleField{Value: sum / float64(len(values))}
	default:
		panic(fmt.Sprintf("unsupported double aggregate op %v", op))
	}
}

func (a *IntegerAggregator) resultDesc(groupFieldType *FieldType) *TupleDesc {
	resultType := IntType
	if a.useDouble && a.op != AggCount {
		resultType = DoubleType
	}
	fields := []FieldType{{Fname: fmt.Sprintf("%s(%s)", a.op, a.newField), Ftype: resultType}}
	if groupFieldType != nil {
		fields = append([]FieldType{*groupFieldType}, fields...)
	}
	return &TupleDesc{Fields: fields}
}

func (a *IntegerAggregator) iterator(groupFieldType *FieldType) func() (*Tuple, error) {
	idx := 0
	desc := a.resultDesc(groupFieldType)
	return func() (*Tuple, error) {
		if idx >= len(a.groupOrder) {
			return nil, nil
		}
		key := a.groupOrder[idx]
		idx++
		acc := a.groups[key]
		result := a.compute(acc.values)
		fields := []DBValue{result}
		if groupFieldType != nil {
			fields = append([]DBValue{key}, fields...)
		}
		return &Tuple{Desc: *desc, Fields: fields}, nil
	}
}

// StringAggregator aggregates StringField values. Only COUNT is defined;
// NewAggregator rejects any other op over a STRING field at construction.
type StringAggregator struct {
	newField   string
	counts     map[DBValue]int64
	groupOrder []DBValue
}

func NewStringAggregator(newField string) *StringAggregator {
	return &StringAggregator{newField: newField, counts: make(map[DBValue]int64)}
}

func (a *StringAggregator) add(groupKey DBValue, value DBValue) {
	if _, ok := a.counts[groupKey]; !ok {
		a.groupOrder = append(a.groupOrder, groupKey)
	}
	a.counts[groupKey]++
}

func (a *StringAggregator) resultDesc(groupFieldType *FieldType) *TupleDesc {
	fields := []FieldType{{Fname: fmt.Sprintf("%s(%s)", AggCount, a.newField), Ftype: IntType}}
	if groupFieldType != nil {
		fields = append([]FieldType{*groupFieldType}, fields...)
	}
	return &TupleDesc{Fields: fields}
}

func (a *StringAggregator) iterator(groupFieldType *FieldType) func() (*Tuple, error) {
	idx := 0
	desc := a.resultDesc(groupFieldType)
	return func() (*Tuple, error) {
		if idx >= len(a.groupOrder) {
			return nil, nil
		}
		key := a.groupOrder[idx]
		idx++
		fields := []DBValue{IntField{Value: a.counts[key]}}
		if groupFieldType != nil {
			fields = append([]DBValue{key}, fields...)
		}
		return &Tuple{Desc: *desc, Fields: fields}, nil
	}
}

// Aggregate is the query operator wrapping an aggregator: it drains its
// child entirely at Open (aggregation is inherently blocking), then pulls
// results one group at a time.
type Aggregate struct {
	baseOperator
	child      Operator
	aggField   Expr
	groupField Expr
	agg        aggregator
	desc       *TupleDesc
}

// NewAggregator builds an Aggregate over child, applying op to aggField
// (optionally grouped by groupField, which may be nil for no grouping).
// Returns UsageError if op is anything but COUNT and aggField's static
// type is STRING.
func NewAggregator(op AggType, aggField Expr, aggFieldName string, groupField Expr, child Operator) (*Aggregate, error) {
	var agg aggregator
	if aggField.GetExprType().Ftype == StringType {
		if op != AggCount {
			return nil, newErr(UsageError, "aggregate %v is not defined over STRING fields; only COUNT is", op)
		}
		agg = NewStringAggregator(aggFieldName)
	} else {
		agg = NewIntegerAggregator(op, aggFieldName)
	}
	return &Aggregate{child: child, aggField: aggField, groupField: groupField, agg: agg}, nil
}

func (a *Aggregate) Descriptor() *TupleDesc { return a.desc }

func (a *Aggregate) groupFieldType() *FieldType {
	if a.groupField == nil {
		return nil
	}
	ft := a.groupField.GetExprType()
	return &ft
}

func (a *Aggregate) Open(tid TransactionID) error {
	if err := a.child.Open(tid); err != nil {
		return err
	}
	for {
		has, err := a.child.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		t, err := a.child.Next()
		if err != nil {
			return err
		}
		value, err := a.aggField.EvalExpr(t)
		if err != nil {
			return err
		}
		groupKey := noGroupingKey
		if a.groupField != nil {
			groupKey, err = a.groupField.EvalExpr(t)
			if err != nil {
				return err
			}
		}
		a.agg.add(groupKey, value)
	}
	if err := a.child.Close(); err != nil {
		return err
	}
	a.desc = a.agg.resultDesc(a.groupFieldType())
	return a.start(a.agg.iterator(a.groupFieldType()))
}

func (a *Aggregate) Rewind() error {
	return newErr(UsageError, "Aggregate is one-shot and cannot be rewound")
}

func (a *Aggregate) Close() error { return a.stop() }
