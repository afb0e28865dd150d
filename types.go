package pagedb

import "fmt"

// DBType is the closed enumeration of field types a Tuple can hold.
type DBType int

const (
	IntType DBType = iota
	StringType
)

func (t DBType) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	default:
		return "unknown"
	}
}

const (
	// IntSize is the on-disk width of an INT field: 4 bytes, big-endian.
	IntSize = 4

	// StringMaxLength is the number of UTF-8 bytes a STRING field may
	// hold (excluding the length prefix).
	StringMaxLength = 128

	// StringSize is the on-disk width of a STRING field: a 4-byte
	// length prefix followed by StringMaxLength bytes of payload.
	StringSize = 4 + StringMaxLength

	// DefaultPageSize is the default page size in bytes.
	DefaultPageSize = 4096

	// DefaultBufferPoolSize is the default buffer pool capacity in pages.
	DefaultBufferPoolSize = 50

	// DefaultLockTimeoutMillis is the default total time a lock request
	// may wait before the requester is aborted.
	DefaultLockTimeoutMillis = 1000

	// LockWaitGranularityMillis is how long a blocked lock request sleeps
	// between grant-condition rechecks.
	LockWaitGranularityMillis = 50
)

// FieldSize returns the on-disk width, in bytes, of a field of type t.
func FieldSize(t DBType) int {
	switch t {
	case IntType:
		return IntSize
	case StringType:
		return StringSize
	default:
		return 0
	}
}

// FieldType names one column of a TupleDesc: its type and an optional name.
type FieldType struct {
	Name string
	Type DBType
}

// TupleDesc is the immutable schema of a Tuple: an ordered, non-empty
// sequence of fields. Equality and size are computed from the type
// sequence only; names are informational.
type TupleDesc struct {
	Fields []FieldType
}

// NewTupleDesc builds a TupleDesc from parallel type/name slices. Panics if
// the slices disagree in length or the schema would be empty, since both
// are caller bugs rather than runtime conditions.
func NewTupleDesc(types []DBType, names []string) *TupleDesc {
	if len(names) != 0 && len(types) != len(names) {
		panic("pagedb: NewTupleDesc: types/names length mismatch")
	}
	if len(types) == 0 {
		panic("pagedb: NewTupleDesc: schema must have at least one field")
	}
	fields := make([]FieldType, len(types))
	for i, ft := range types {
		name := ""
		if names != nil {
			name = names[i]
		}
		fields[i] = FieldType{Name: name, Type: ft}
	}
	return &TupleDesc{Fields: fields}
}

// Equals reports whether two TupleDescs have the same type sequence. Field
// names are ignored.
func (d *TupleDesc) Equals(other *TupleDesc) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i := range d.Fields {
		if d.Fields[i].Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

// Size is the sum, in bytes, of every field's on-disk width.
func (d *TupleDesc) Size() int {
	size := 0
	for _, f := range d.Fields {
		size += FieldSize(f.Type)
	}
	return size
}

// FieldIndex returns the index of the first field named name, or -1.
func (d *TupleDesc) FieldIndex(name string) (int, error) {
	for i, f := range d.Fields {
		if f.Name == name {
			return i, nil
		}
	}
	return -1, NoSuchFieldError.New("no field named %q", name)
}

func (d *TupleDesc) String() string {
	s := ""
	for i, f := range d.Fields {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s(%s)", f.Name, f.Type)
	}
	return s
}

// PageId identifies a page within a table: the table's stable id and a
// zero-based page number within that table's file.
type PageId struct {
	TableId    uint32
	PageNumber int
}

// RecordId identifies a tuple's slot within a page.
type RecordId struct {
	PageId PageId
	Slot   int
}

// Config bundles the storage engine's tunable knobs. The zero value is
// not valid; use DefaultConfig.
type Config struct {
	PageSize            int
	BufferPoolSize      int
	LockTimeoutMillis   int
	LockWaitGranularity int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:            DefaultPageSize,
		BufferPoolSize:      DefaultBufferPoolSize,
		LockTimeoutMillis:   DefaultLockTimeoutMillis,
		LockWaitGranularity: LockWaitGranularityMillis,
	}
}
