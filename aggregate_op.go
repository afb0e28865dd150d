package pagedb

// Aggregate is the operator that drains its child into an Aggregator on
// open, then streams the aggregator's per-group results.

// Aggregate computes one of COUNT/SUM/MIN/MAX/AVG over afield, optionally
// grouped by gfield (NoGrouping for a single implicit group).
type Aggregate struct {
	child     Operator
	gfield    int
	afield    int
	op        AggOp
	childName string

	result Operator
	opened bool
}

// NewAggregate builds an Aggregate over child. childName labels the child
// relation in the output schema (e.g. the table alias a SeqScan was
// constructed with).
func NewAggregate(child Operator, gfield, afield int, op AggOp, childName string) (*Aggregate, error) {
	desc := child.Schema()
	if afield < 0 || afield >= len(desc.Fields) {
		return nil, NoSuchFieldError.New("aggregate field index %d out of range", afield)
	}
	if gfield != NoGrouping && (gfield < 0 || gfield >= len(desc.Fields)) {
		return nil, NoSuchFieldError.New("group field index %d out of range", gfield)
	}
	if desc.Fields[afield].Type == StringType && op != AggCount {
		return nil, SchemaMismatchError.New("%s is not supported over a STRING field", op)
	}
	return &Aggregate{child: child, gfield: gfield, afield: afield, op: op, childName: childName}, nil
}

func (a *Aggregate) buildAggregator() Aggregator {
	desc := a.child.Schema()
	if desc.Fields[a.afield].Type == StringType {
		return NewStringAggregator(a.gfield, a.op, a.childName, desc)
	}
	return NewIntegerAggregator(a.gfield, a.afield, a.op, a.childName, desc)
}

// Open drains child fully into a fresh Aggregator, then opens the
// resulting per-group result operator.
func (a *Aggregate) Open(tid TransactionID) error {
	if err := a.child.Open(tid); err != nil {
		return err
	}
	defer a.child.Close()

	agg := a.buildAggregator()
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
		if err := agg.Merge(t); err != nil {
			return err
		}
	}

	a.result = agg.Iterator()
	if err := a.result.Open(tid); err != nil {
		return err
	}
	a.opened = true
	return nil
}

func (a *Aggregate) requireOpen() error {
	if !a.opened {
		return IllegalStateError.New("aggregate used before open or after close")
	}
	return nil
}

func (a *Aggregate) HasNext() (bool, error) {
	if err := a.requireOpen(); err != nil {
		return false, err
	}
	return a.result.HasNext()
}

func (a *Aggregate) Next() (*Tuple, error) {
	if err := a.requireOpen(); err != nil {
		return nil, err
	}
	return a.result.Next()
}

// Rewind restarts from the already-materialized result set; it does not
// re-drain the child.
func (a *Aggregate) Rewind() error {
	if err := a.requireOpen(); err != nil {
		return err
	}
	return a.result.Rewind()
}

func (a *Aggregate) Close() error {
	if a.result != nil {
		a.result.Close()
	}
	a.opened = false
	return nil
}

// schemaer is implemented by both aggregator variants; kept unexported
// since Aggregator itself only promises Merge/Iterator.
type schemaer interface {
	Schema() *TupleDesc
}

func (a *Aggregate) Schema() *TupleDesc {
	if a.result != nil {
		return a.result.Schema()
	}
	return a.buildAggregator().(schemaer).Schema()
}
