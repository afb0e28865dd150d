package pagedb

// tupleListOperator is a trivial Operator over a fixed, in-memory slice of
// tuples. It backs Aggregator.Iterator: once an Aggregate operator has
// drained its child into an Aggregator, the per-group results are fully
// materialized and re-exposed through the same Operator capability so
// callers can't tell a materialized result from a streamed one.
type tupleListOperator struct {
	desc   *TupleDesc
	tuples []*Tuple
	pos    int
	opened bool
}

func newTupleListOperator(desc *TupleDesc, tuples []*Tuple) *tupleListOperator {
	return &tupleListOperator{desc: desc, tuples: tuples}
}

func (o *tupleListOperator) Open(tid TransactionID) error {
	o.pos = 0
	o.opened = true
	return nil
}

func (o *tupleListOperator) requireOpen() error {
	if !o.opened {
		return IllegalStateError.New("tuple list operator used before open or after close")
	}
	return nil
}

func (o *tupleListOperator) HasNext() (bool, error) {
	if err := o.requireOpen(); err != nil {
		return false, err
	}
	return o.pos < len(o.tuples), nil
}

func (o *tupleListOperator) Next() (*Tuple, error) {
	ok, err := o.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NoSuchElementError.New("tuple list operator exhausted")
	}
	t := o.tuples[o.pos]
	o.pos++
	return t, nil
}

func (o *tupleListOperator) Rewind() error {
	if err := o.requireOpen(); err != nil {
		return err
	}
	o.pos = 0
	return nil
}

func (o *tupleListOperator) Close() error {
	o.opened = false
	return nil
}

func (o *tupleListOperator) Schema() *TupleDesc { return o.desc }
