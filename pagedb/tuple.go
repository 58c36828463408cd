package pagedb

// This file defines FieldType, TupleDesc, DBValue and its field
// implementations, Tuple, and the small Expr trait used by the supplemental
// operators (filter/project/order-by/join) to evaluate expressions against
// a tuple.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the type of one field in a tuple: its name, the qualifying
// table (may be empty if the query never specified one), and its DBType.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc is the schema of a tuple: an ordered list of FieldType.
type TupleDesc struct {
	Fields []FieldType
}

// equals reports whether d1 and d2 have the same field names and types, in
// the same order.
func (d1 *TupleDesc) equals(d2 *TupleDesc) bool {
	if len(d1.Fields) != len(d2.Fields) {
		return false
	}
	for i := range d1.Fields {
		if d1.Fields[i].Fname != d2.Fields[i].Fname || d1.Fields[i].Ftype != d2.Fields[i].Ftype {
			return false
		}
	}
	return true
}

// copy returns a deep copy of td (the Fields slice is reallocated).
func (td *TupleDesc) copy() *TupleDesc {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	return &TupleDesc{Fields: fields}
}

// setTableAlias reassigns the TableQualifier of every field to alias.
func (td *TupleDesc) setTableAlias(alias string) {
	fields := make([]FieldType, len(td.Fields))
	copy(fields, td.Fields)
	for i := range fields {
		fields[i].TableQualifier = alias
	}
	td.Fields = fields
}

// merge returns a new TupleDesc with desc2's fields appended after desc's.
func (desc *TupleDesc) merge(desc2 *TupleDesc) *TupleDesc {
	fields := make([]FieldType, 0, len(desc.Fields)+len(desc2.Fields))
	fields = append(fields, desc.Fields...)
	fields = append(fields, desc2.Fields...)
	return &TupleDesc{Fields: fields}
}

// findFieldInTd finds the best match in desc for field, preferring a match
// on TableQualifier when field names one. Ambiguous unqualified matches are
// rejected with AmbiguousNameError.
func findFieldInTd(field FieldType, desc *TupleDesc) (int, error) {
	best := -1
	for i, f := range desc.Fields {
		if f.Fname != field.Fname || (f.Ftype != field.Ftype && field.Ftype != UnknownType) {
			continue
		}
		if field.TableQualifier == "" && best != -1 {
			return 0, newErr(AmbiguousNameError, "field name %s is ambiguous", f.Fname)
		}
		if f.TableQualifier == field.TableQualifier || best == -1 {
			best = i
		}
	}
	if best == -1 {
		return -1, newErr(IncompatibleTypesError, "field %s.%s not found", field.TableQualifier, field.Fname)
	}
	return best, nil
}

// bytesPerTuple returns the fixed on-disk width of one tuple under this
// schema: 4 bytes for an INT32, 8 for a DOUBLE (IEEE-754), and StringLength
// for a STRING.
func (td *TupleDesc) bytesPerTuple() int {
	n := 0
	for _, f := range td.Fields {
		switch f.Ftype {
		case IntType:
			n += 4
		case DoubleType:
			n += 8
		case StringType:
			n += StringLength
		}
	}
	return n
}

// DBValue is a single field's value. Implementations are IntField,
// StringField, and DoubleField. compare evaluates "this op other" and is a
// programmer error (it panics) if other is not the same concrete type,
// since the query layer is responsible for only ever comparing fields of
// matching schema. LIKE is only legal over StringField; compare on an
// IntField or DoubleField returns a GoDBError{IllegalOperationError} for it
// rather than panicking or silently falling back to equality.
type DBValue interface {
	compare(op BoolOp, other DBValue) (bool, error)
	writeTo(b *bytes.Buffer) error
}

// IntField is a 32-bit-range integer value, stored as a signed 64-bit Go
// int for arithmetic convenience but serialized as 4 bytes.
type IntField struct {
	Value int64
}

func (f IntField) writeTo(b *bytes.Buffer) error {
	return binary.Write(b, binary.BigEndian, int32(f.Value))
}

func (f IntField) compare(op BoolOp, other DBValue) (bool, error) {
	o, ok := other.(IntField)
	if !ok {
		panic(fmt.Sprintf("compare: type mismatch, IntField vs %T", other))
	}
	if op == OpLike {
		return false, newErr(IllegalOperationError, "LIKE is not defined over INT fields")
	}
	return compareOrdered(op, f.Value, o.Value), nil
}

// StringField is a variable-length string capped to StringLength bytes on
// disk.
type StringField struct {
	Value string
}

func (f StringField) writeTo(b *bytes.Buffer) error {
	if len(f.Value) > StringLength {
		return newErr(MalformedDataError, "string %q exceeds StringLength %d", f.Value, StringLength)
	}
	padded := make([]byte, StringLength)
	copy(padded, f.Value)
	return binary.Write(b, binary.BigEndian, padded)
}

func (f StringField) compare(op BoolOp, other DBValue) (bool, error) {
	o, ok := other.(StringField)
	if !ok {
		panic(fmt.Sprintf("compare: type mismatch, StringField vs %T", other))
	}
	if op == OpLike {
		return strings.Contains(o.Value, f.Value) || strings.Contains(f.Value, o.Value), nil
	}
	return compareOrdered(op, f.Value, o.Value), nil
}

// DoubleField is an IEEE-754 double-precision value. It supports the same
// comparisons and aggregate operations as IntField, but rejects LIKE.
type DoubleField struct {
	Value float64
}

func (f DoubleField) writeTo(b *bytes.Buffer) error {
	return binary.Write(b, binary.BigEndian, f.Value)
}

func (f DoubleField) compare(op BoolOp, other DBValue) (bool, error) {
	o, ok := other.(DoubleField)
	if !ok {
		panic(fmt.Sprintf("compare: type mismatch, DoubleField vs %T", other))
	}
	if op == OpLike {
		return false, newErr(IllegalOperationError, "LIKE is not defined over DOUBLE fields")
	}
	return compareOrdered(op, f.Value, o.Value), nil
}

type ordered interface {
	~int64 | ~float64 | ~string
}

// compareOrdered handles EQ/NE/LT/LE/GT/GE only; every DBValue.compare
// implementation resolves LIKE itself before delegating here.
func compareOrdered[T ordered](op BoolOp, a, b T) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	default:
		panic(fmt.Sprintf("compare: unsupported operator %v", op))
	}
}

// Tuple is a fixed-arity vector of DBValue under a TupleDesc, plus a
// mutable RecordId recording where it was read from (nil until it has been
// placed on a page).
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordID
}

func writeStringField(b *bytes.Buffer, f StringField) error { return f.writeTo(b) }
func writeIntField(b *bytes.Buffer, f IntField) error        { return f.writeTo(b) }
func writeDoubleField(b *bytes.Buffer, f DoubleField) error  { return f.writeTo(b) }

// writeTo serializes the tuple's fields, in schema order, into b. Every
// tuple under a given TupleDesc serializes to exactly TupleDesc.bytesPerTuple
// bytes.
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, field := range t.Fields {
		if err := field.writeTo(b); err != nil {
			return err
		}
	}
	return nil
}

func readStringField(b *bytes.Buffer) (StringField, error) {
	raw := make([]byte, StringLength)
	if err := binary.Read(b, binary.BigEndian, raw); err != nil {
		return StringField{}, err
	}
	return StringField{Value: strings.TrimRight(string(raw), "\x00")}, nil
}

func readIntField(b *bytes.Buffer) (IntField, error) {
	var v int32
	if err := binary.Read(b, binary.BigEndian, &v); err != nil {
		return IntField{}, err
	}
	return IntField{Value: int64(v)}, nil
}

func readDoubleField(b *bytes.Buffer) (DoubleField, error) {
	var v float64
	if err := binary.Read(b, binary.BigEndian, &v); err != nil {
		return DoubleField{}, err
	}
	return DoubleField{Value: v}, nil
}

// readTupleFrom deserializes one tuple of schema desc from b.
func readTupleFrom(b *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	tup := &Tuple{Desc: *desc, Fields: make([]DBValue, 0, len(desc.Fields))}
	for _, fd := range desc.Fields {
		switch fd.Ftype {
		case StringType:
			f, err := readStringField(b)
			if err != nil {
				return nil, err
			}
			tup.Fields = append(tup.Fields, f)
		case DoubleType:
			f, err := readDoubleField(b)
			if err != nil {
				return nil, err
			}
			tup.Fields = append(tup.Fields, f)
		default:
			f, err := readIntField(b)
			if err != nil {
				return nil, err
			}
			tup.Fields = append(tup.Fields, f)
		}
	}
	return tup, nil
}

// equals reports whether t1 and t2 have equal TupleDescs and equal fields.
func (t1 *Tuple) equals(t2 *Tuple) bool {
	if t1 == nil || t2 == nil {
		return t1 == t2
	}
	if !t1.Desc.equals(&t2.Desc) || len(t1.Fields) != len(t2.Fields) {
		return false
	}
	for i := range t1.Fields {
		if t1.Fields[i] != t2.Fields[i] {
			return false
		}
	}
	return true
}

// joinTuples concatenates t1's fields (and schema) with t2's, producing a
// new Tuple. Either side may be nil, in which case the other is returned.
func joinTuples(t1, t2 *Tuple) *Tuple {
	if t1 == nil {
		return t2
	}
	if t2 == nil {
		return t1
	}
	return &Tuple{
		Desc:   *t1.Desc.merge(&t2.Desc),
		Fields: append(append([]DBValue{}, t1.Fields...), t2.Fields...),
	}
}

// orderByState is the three-way result of compareField.
type orderByState int

const (
	OrderedLessThan orderByState = iota
	OrderedEqual
	OrderedGreaterThan
)

// Expr is an expression evaluable against a tuple: a field reference or a
// constant, as used by the supplemental Filter/Project/OrderBy/Join
// operators.
type Expr interface {
	EvalExpr(t *Tuple) (DBValue, error)
	GetExprType() FieldType
}

// FieldExpr extracts one named field from a tuple.
type FieldExpr struct {
	field FieldType
}

func NewFieldExpr(field FieldType) *FieldExpr { return &FieldExpr{field: field} }

func (e *FieldExpr) EvalExpr(t *Tuple) (DBValue, error) {
	idx, err := findFieldInTd(e.field, &t.Desc)
	if err != nil {
		return nil, err
	}
	return t.Fields[idx], nil
}

func (e *FieldExpr) GetExprType() FieldType { return e.field }

// ConstExpr evaluates to a fixed value regardless of the tuple supplied.
type ConstExpr struct {
	val   DBValue
	ftype DBType
}

func NewConstExpr(val DBValue, ftype DBType) *ConstExpr {
	return &ConstExpr{val: val, ftype: ftype}
}

func (e *ConstExpr) EvalExpr(t *Tuple) (DBValue, error) { return e.val, nil }
func (e *ConstExpr) GetExprType() FieldType             { return FieldType{Ftype: e.ftype} }

// compareField evaluates field against t and t2 and returns their relative
// order.
func (t *Tuple) compareField(t2 *Tuple, field Expr) (orderByState, error) {
	v1, err := field.EvalExpr(t)
	if err != nil {
		return OrderedEqual, err
	}
	v2, err := field.EvalExpr(t2)
	if err != nil {
		return OrderedEqual, err
	}
	return compareFields(v1, v2)
}

func compareFields(val1, val2 DBValue) (orderByState, error) {
	switch v1 := val1.(type) {
	case IntField:
		v2, ok := val2.(IntField)
		if !ok {
			break
		}
		return threeWay(v1.Value, v2.Value), nil
	case DoubleField:
		v2, ok := val2.(DoubleField)
		if !ok {
			break
		}
		return threeWay(v1.Value, v2.Value), nil
	case StringField:
		v2, ok := val2.(StringField)
		if !ok {
			break
		}
		return threeWay(v1.Value, v2.Value), nil
	}
	return OrderedEqual, fmt.Errorf("unsupported field comparison between %T and %T", val1, val2)
}

func threeWay[T ordered](a, b T) orderByState {
	switch {
	case a > b:
		return OrderedGreaterThan
	case a < b:
		return OrderedLessThan
	default:
		return OrderedEqual
	}
}

// project returns a new Tuple containing just the named fields, in the
// order given. Each field prefers a match on both name and TableQualifier
// but falls back to the first field with that name.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	out := &Tuple{Desc: TupleDesc{}, Fields: []DBValue{}}
	for _, want := range fields {
		idx := -1
		for i, f := range t.Desc.Fields {
			if f.Fname == want.Fname && f.TableQualifier == want.TableQualifier {
				idx = i
				break
			}
		}
		if idx == -1 {
			for i, f := range t.Desc.Fields {
				if f.Fname == want.Fname {
					idx = i
					break
				}
			}
		}
		if idx == -1 {
			return nil, newErr(IncompatibleTypesError, "field %s.%s not found", want.TableQualifier, want.Fname)
		}
		out.Fields = append(out.Fields, t.Fields[idx])
		out.Desc.Fields = append(out.Desc.Fields, t.Desc.Fields[idx])
	}
	return out, nil
}

// tupleKey computes a value usable as a map key representing this tuple's
// serialized contents (used by set-like operators such as DISTINCT).
func (t *Tuple) tupleKey() any {
	var buf bytes.Buffer
	_ = t.writeTo(&buf)
	return buf.String()
}

var winWidth = 120

func fmtCol(v string, ncols int) string {
	colWid := winWidth / ncols
	remLen := colWid - (len(v) + 3)
	if remLen > 0 {
		spacesRight := remLen / 2
		spacesLeft := remLen - spacesRight
		return strings.Repeat(" ", spacesLeft) + v + strings.Repeat(" ", spacesRight) + " |"
	}
	if colWid-4 < 0 || colWid-4 > len(v) {
		return " " + v + " |"
	}
	return " " + v[0:colWid-4] + " |"
}

// HeaderString renders the column names of d, tabular if aligned or
// comma-separated otherwise.
func (d *TupleDesc) HeaderString(aligned bool) string {
	out := ""
	for i, f := range d.Fields {
		name := f.Fname
		if f.TableQualifier != "" {
			name = f.TableQualifier + "." + name
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(name, len(d.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			out = fmt.Sprintf("%s%s%s", out, sep, name)
		}
	}
	return out
}

// PrettyPrintString renders t's field values, tabular if aligned or
// comma-separated otherwise.
func (t *Tuple) PrettyPrintString(aligned bool) string {
	out := ""
	for i, f := range t.Fields {
		str := ""
		switch v := f.(type) {
		case IntField:
			str = strconv.FormatInt(v.Value, 10)
		case DoubleField:
			str = strconv.FormatFloat(v.Value, 'g', -1, 64)
		case StringField:
			str = v.Value
		}
		if aligned {
			out = fmt.Sprintf("%s %s", out, fmtCol(str, len(t.Fields)))
		} else {
			sep := ","
			if i == 0 {
				sep = ""
			}
			out = fmt.Sprintf("%s%s%s", out, sep, str)
		}
	}
	return out
}
