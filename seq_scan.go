package pagedb

// SeqScan is the leaf operator: it wraps a HeapFile's iterator, exposing
// every field of the underlying table prefixed with "alias.", following
// the usual table-qualified column naming convention.

import "go.uber.org/zap"

// SeqScan reads every tuple of one table, in heap order.
type SeqScan struct {
	file  *HeapFile
	alias string
	log   *zap.Logger

	tid    TransactionID
	desc   *TupleDesc
	next   func() (*Tuple, error)
	opened bool
	peeked *Tuple
}

// NewSeqScan builds a scan over file, qualifying its schema's field names
// with alias. alias defaults to "null" when empty, and an unnamed field
// is qualified as "null" too, so "null.field", "alias.null", and
// "null.null" are all permitted output names.
func NewSeqScan(file *HeapFile, alias string, log *zap.Logger) *SeqScan {
	if log == nil {
		log = zap.NewNop()
	}
	if alias == "" {
		alias = "null"
	}
	src := file.Schema()
	fields := make([]FieldType, len(src.Fields))
	for i, f := range src.Fields {
		name := f.Name
		if name == "" {
			name = "null"
		}
		fields[i] = FieldType{Name: alias + "." + name, Type: f.Type}
	}
	return &SeqScan{file: file, alias: alias, log: log, desc: &TupleDesc{Fields: fields}}
}

func (s *SeqScan) Open(tid TransactionID) error {
	it, err := s.file.Iterator(tid)
	if err != nil {
		return err
	}
	s.tid = tid
	s.next = it
	s.opened = true
	s.peeked = nil
	return nil
}

func (s *SeqScan) requireOpen() error {
	if !s.opened {
		return IllegalStateError.New("seq scan used before open or after close")
	}
	return nil
}

func (s *SeqScan) HasNext() (bool, error) {
	if err := s.requireOpen(); err != nil {
		return false, err
	}
	if s.peeked != nil {
		return true, nil
	}
	t, err := s.next()
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}
	s.peeked = t
	return true, nil
}

func (s *SeqScan) Next() (*Tuple, error) {
	ok, err := s.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NoSuchElementError.New("seq scan exhausted")
	}
	t := s.peeked
	s.peeked = nil
	out := &Tuple{Desc: *s.desc, Fields: t.Fields, Rid: t.Rid}
	return out, nil
}

func (s *SeqScan) Rewind() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	return s.Open(s.tid)
}

func (s *SeqScan) Close() error {
	s.opened = false
	s.next = nil
	s.peeked = nil
	return nil
}

func (s *SeqScan) Schema() *TupleDesc { return s.desc }
