package pagedb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DBValue is the interface satisfied by a tuple field's value.
type DBValue interface {
	fieldType() DBType
}

// IntField is the value of an INT field.
type IntField struct {
	Value int32
}

func (IntField) fieldType() DBType { return IntType }

// StringField is the value of a STRING field. Value is never longer than
// StringMaxLength bytes.
type StringField struct {
	Value string
}

func (StringField) fieldType() DBType { return StringType }

// Tuple is a schema plus one value per field, plus an optional RecordId
// identifying where it was read from. A freshly constructed tuple has a
// nil Rid until it is inserted into a HeapPage.
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    *RecordId
}

// NewTuple constructs a tuple with no RecordId. Panics if the field count
// or types disagree with desc, since that is always a caller bug.
func NewTuple(desc TupleDesc, fields []DBValue) *Tuple {
	if len(fields) != len(desc.Fields) {
		panic("pagedb: NewTuple: field count does not match schema")
	}
	for i, f := range fields {
		if f.fieldType() != desc.Fields[i].Type {
			panic(fmt.Sprintf("pagedb: NewTuple: field %d has type %s, schema wants %s", i, f.fieldType(), desc.Fields[i].Type))
		}
	}
	return &Tuple{Desc: desc, Fields: fields}
}

// writeTo serializes t's fields, in schema order, to buf using the
// on-disk format: INT as 4 bytes big-endian; STRING as a 4-byte
// big-endian length prefix followed by StringMaxLength zero-padded bytes.
func (t *Tuple) writeTo(buf *bytes.Buffer) error {
	for i, f := range t.Fields {
		switch v := f.(type) {
		case IntField:
			if err := binary.Write(buf, binary.BigEndian, v.Value); err != nil {
				return IoError.Wrap(err)
			}
		case StringField:
			if len(v.Value) > StringMaxLength {
				return SchemaMismatchError.New("string field %d exceeds %d bytes", i, StringMaxLength)
			}
			if err := binary.Write(buf, binary.BigEndian, int32(len(v.Value))); err != nil {
				return IoError.Wrap(err)
			}
			payload := make([]byte, StringMaxLength)
			copy(payload, v.Value)
			if _, err := buf.Write(payload); err != nil {
				return IoError.Wrap(err)
			}
		default:
			return SchemaMismatchError.New("unsupported field value type %T", f)
		}
	}
	return nil
}

// readTupleFrom deserializes one tuple matching desc from buf.
func readTupleFrom(buf *bytes.Buffer, desc *TupleDesc) (*Tuple, error) {
	fields := make([]DBValue, len(desc.Fields))
	for i, ft := range desc.Fields {
		switch ft.Type {
		case IntType:
			var v int32
			if err := binary.Read(buf, binary.BigEndian, &v); err != nil {
				return nil, IoError.Wrap(err)
			}
			fields[i] = IntField{Value: v}
		case StringType:
			var n int32
			if err := binary.Read(buf, binary.BigEndian, &n); err != nil {
				return nil, IoError.Wrap(err)
			}
			payload := make([]byte, StringMaxLength)
			if _, err := buf.Read(payload); err != nil {
				return nil, IoError.Wrap(err)
			}
			if n < 0 || int(n) > StringMaxLength {
				return nil, SchemaMismatchError.New("corrupt string length prefix %d", n)
			}
			fields[i] = StringField{Value: string(payload[:n])}
		default:
			return nil, SchemaMismatchError.New("unsupported field type %s", ft.Type)
		}
	}
	return &Tuple{Desc: *desc, Fields: fields}, nil
}

// Equals reports whether t and other have equal schemas and field values.
func (t *Tuple) Equals(other *Tuple) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.Desc.Equals(&other.Desc) || len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != other.Fields[i] {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	s := "("
	for i, f := range t.Fields {
		if i > 0 {
			s += ", "
		}
		switch v := f.(type) {
		case IntField:
			s += fmt.Sprintf("%d", v.Value)
		case StringField:
			s += v.Value
		}
	}
	return s + ")"
}
