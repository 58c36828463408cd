package pagedb

import (
	"bytes"
	"testing"

	"github.com/d4l3k/messagediff"
)

func testTupleDesc() *TupleDesc {
	return &TupleDesc{Fields: []FieldType{
		{Fname: "name", Ftype: StringType},
		{Fname: "age", Ftype: IntType},
		{Fname: "gpa", Ftype: DoubleType},
	}}
}

func TestTupleWriteReadRoundTrip(t *testing.T) {
	td := testTupleDesc()
	tup := &Tuple{Desc: *td, Fields: []DBValue{
		StringField{Value: "josie"},
		IntField{Value: 20},
		DoubleField{Value: 3.75},
	}}

	var buf bytes.Buffer
	if err := tup.writeTo(&buf); err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if buf.Len() != td.bytesPerTuple() {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), td.bytesPerTuple())
	}

	got, err := readTupleFrom(&buf, td)
	if err != nil {
		t.Fatalf("readTupleFrom: %v", err)
	}
	if diff, equal := messagediff.PrettyDiff(tup.Fields, got.Fields); !equal {
		t.Fatalf("round trip changed fields: %s", diff)
	}
}

func TestStringFieldRejectsOverflow(t *testing.T) {
	f := StringField{Value: string(make([]byte, StringLength+1))}
	var buf bytes.Buffer
	if err := f.writeTo(&buf); err == nil {
		t.Fatal("expected an error writing an over-length string")
	}
}

func TestTupleDescMerge(t *testing.T) {
	left := &TupleDesc{Fields: []FieldType{{Fname: "a", Ftype: IntType}}}
	right := &TupleDesc{Fields: []FieldType{{Fname: "b", Ftype: StringType}}}
	merged := left.merge(right)
	if len(merged.Fields) != 2 || merged.Fields[0].Fname != "a" || merged.Fields[1].Fname != "b" {
		t.Fatalf("unexpected merge result: %+v", merged.Fields)
	}
}

func TestFindFieldInTdAmbiguous(t *testing.T) {
	td := &TupleDesc{Fields: []FieldType{
		{Fname: "id", TableQualifier: "a", Ftype: IntType},
		{Fname: "id", TableQualifier: "b", Ftype: IntType},
	}}
	_, err := findFieldInTd(FieldType{Fname: "id"}, td)
	ge, ok := err.(GoDBError)
	if !ok || ge.Code != AmbiguousNameError {
		t.Fatalf("expected AmbiguousNameError, got %v", err)
	}
	idx, err := findFieldInTd(FieldType{Fname: "id", TableQualifier: "b"}, td)
	if err != nil || idx != 1 {
		t.Fatalf("qualified lookup failed: idx=%d err=%v", idx, err)
	}
}

func TestCompareFieldsThreeWay(t *testing.T) {
	order, err := compareFields(IntField{Value: 1}, IntField{Value: 2})
	if err != nil || order != OrderedLessThan {
		t.Fatalf("expected OrderedLessThan, got %v err=%v", order, err)
	}
	order, err = compareFields(StringField{Value: "b"}, StringField{Value: "a"})
	if err != nil || order != OrderedGreaterThan {
		t.Fatalf("expected OrderedGreaterThan, got %v err=%v", order, err)
	}
}

func TestCompareMismatchedTypesPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected compare to panic on type mismatch")
		}
	}()
	IntField{Value: 1}.compare(OpEq, StringField{Value: "1"})
}

func TestCompareLikeRejectedOverNumericFields(t *testing.T) {
	if _, err := (IntField{Value: 1}).compare(OpLike, IntField{Value: 1}); err == nil {
		t.Fatal("expected LIKE over IntField to error")
	} else if ge, ok := err.(GoDBError); !ok || ge.Code != IllegalOperationError {
		t.Fatalf("expected IllegalOperationError, got %v", err)
	}
	if _, err := (DoubleField{Value: 1}).compare(OpLike, DoubleField{Value: 1}); err == nil {
		t.Fatal("expected LIKE over DoubleField to error")
	} else if ge, ok := err.(GoDBError); !ok || ge.Code != IllegalOperationError {
		t.Fatalf("expected IllegalOperationError, got %v", err)
	}
	ok, err := (StringField{Value: "hello"}).compare(OpLike, StringField{Value: "ell"})
	if err != nil || !ok {
		t.Fatalf("expected LIKE over StringField to succeed, got ok=%v err=%v", ok, err)
	}
}
