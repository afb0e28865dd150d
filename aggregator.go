package pagedb

// Aggregator is the accumulator capability behind the Aggregate operator:
// Merge folds one input tuple into per-group state; Iterator yields the
// finished per-group results as an Operator once every input tuple has
// been merged. Two variants exist, dispatched by the aggregate column's
// type: IntegerAggregator and StringAggregator.

import "math"

// AggOp is one of the five supported aggregate operators.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (op AggOp) String() string {
	switch op {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggAvg:
		return "AVG"
	default:
		return "UNKNOWN"
	}
}

// NoGrouping is the gfield sentinel meaning "one implicit group".
const NoGrouping = -1

// Aggregator accumulates Merge'd tuples into per-group state and produces
// the result rows on demand.
type Aggregator interface {
	Merge(t *Tuple) error
	Iterator() Operator
}

type groupKey struct {
	grouped bool
	value   DBValue
}

// IntegerAggregator implements COUNT/SUM/MIN/MAX/AVG over an INT afield,
// optionally grouped by gfield.
type IntegerAggregator struct {
	gfield    int
	afield    int
	op        AggOp
	childName string
	childDesc *TupleDesc

	order  []groupKey
	seen   map[groupKey]bool
	accum  map[groupKey]int64
	counts map[groupKey]int64
}

// NewIntegerAggregator builds an aggregator over childDesc.Fields[afield],
// grouped by childDesc.Fields[gfield] unless gfield is NoGrouping.
// childName labels the child relation for output schema naming.
func NewIntegerAggregator(gfield, afield int, op AggOp, childName string, childDesc *TupleDesc) *IntegerAggregator {
	return &IntegerAggregator{
		gfield:    gfield,
		afield:    afield,
		op:        op,
		childName: childName,
		childDesc: childDesc,
		seen:      make(map[groupKey]bool),
		accum:     make(map[groupKey]int64),
		counts:    make(map[groupKey]int64),
	}
}

func (a *IntegerAggregator) keyFor(t *Tuple) (groupKey, error) {
	if a.gfield == NoGrouping {
		return groupKey{grouped: false}, nil
	}
	if a.gfield < 0 || a.gfield >= len(t.Fields) {
		return groupKey{}, NoSuchFieldError.New("group field index %d out of range", a.gfield)
	}
	return groupKey{grouped: true, value: t.Fields[a.gfield]}, nil
}

func (a *IntegerAggregator) initial() int64 {
	switch a.op {
	case AggMin:
		return math.MaxInt64
	case AggMax:
		return math.MinInt64
	default:
		return 0
	}
}

// Merge folds one tuple into its group's running state.
func (a *IntegerAggregator) Merge(t *Tuple) error {
	key, err := a.keyFor(t)
	if err != nil {
		return err
	}
	if !a.seen[key] {
		a.seen[key] = true
		a.accum[key] = a.initial()
		a.order = append(a.order, key)
	}

	if a.op == AggCount {
		a.accum[key]++
		a.counts[key]++
		return nil
	}

	if a.afield < 0 || a.afield >= len(t.Fields) {
		return NoSuchFieldError.New("aggregate field index %d out of range", a.afield)
	}
	v, ok := t.Fields[a.afield].(IntField)
	if !ok {
		return SchemaMismatchError.New("integer aggregator requires an INT aggregate field")
	}
	val := int64(v.Value)

	switch a.op {
	case AggSum:
		a.accum[key] += val
	case AggMin:
		if val < a.accum[key] {
			a.accum[key] = val
		}
	case AggMax:
		if val > a.accum[key] {
			a.accum[key] = val
		}
	case AggAvg:
		a.accum[key] += val
		a.counts[key]++
	}
	return nil
}

// Schema returns the output schema this aggregator produces.
func (a *IntegerAggregator) Schema() *TupleDesc {
	aggName := a.op.String() + "(" + a.childName + ")"
	if a.gfield == NoGrouping {
		return NewTupleDesc([]DBType{IntType}, []string{aggName})
	}
	gbType := a.childDesc.Fields[a.gfield].Type
	gbName := a.childName + "(" + a.childDesc.Fields[a.gfield].Name + ")"
	return NewTupleDesc([]DBType{gbType, IntType}, []string{gbName, aggName})
}

// Iterator returns an Operator over the finished per-group results, in
// the order groups were first seen during Merge. An ungrouped COUNT or
// SUM over zero input tuples still yields one row (0); ungrouped
// MIN/MAX/AVG over zero input tuples yield no row, since there is no
// value to report a minimum, maximum, or average of.
func (a *IntegerAggregator) Iterator() Operator {
	desc := a.Schema()
	order := a.order
	if a.gfield == NoGrouping && len(order) == 0 && (a.op == AggCount || a.op == AggSum) {
		order = []groupKey{{grouped: false}}
		a.accum[order[0]] = 0
		a.counts[order[0]] = 0
	}
	tuples := make([]*Tuple, 0, len(order))
	for _, key := range order {
		value := a.accum[key]
		if a.op == AggAvg {
			value = value / a.counts[key]
		}
		var fields []DBValue
		if a.gfield == NoGrouping {
			fields = []DBValue{IntField{Value: int32(value)}}
		} else {
			fields = []DBValue{key.value, IntField{Value: int32(value)}}
		}
		tuples = append(tuples, NewTuple(*desc, fields))
	}
	return newTupleListOperator(desc, tuples)
}

// StringAggregator implements COUNT over a STRING afield (its constructor
// panics on every other operator), grouped by gfield unless it is
// NoGrouping.
type StringAggregator struct {
	gfield    int
	childName string
	childDesc *TupleDesc

	order  []groupKey
	seen   map[groupKey]bool
	counts map[groupKey]int64
}

// NewStringAggregator builds a COUNT-only aggregator. op must be
// AggCount; NewStringAggregator panics otherwise, since choosing the
// aggregator variant by column type is a planner-level decision, not a
// runtime one.
func NewStringAggregator(gfield int, op AggOp, childName string, childDesc *TupleDesc) *StringAggregator {
	if op != AggCount {
		panic("pagedb: string aggregator only supports COUNT")
	}
	return &StringAggregator{
		gfield:    gfield,
		childName: childName,
		childDesc: childDesc,
		seen:      make(map[groupKey]bool),
		counts:    make(map[groupKey]int64),
	}
}

func (a *StringAggregator) keyFor(t *Tuple) (groupKey, error) {
	if a.gfield == NoGrouping {
		return groupKey{grouped: false}, nil
	}
	if a.gfield < 0 || a.gfield >= len(t.Fields) {
		return groupKey{}, NoSuchFieldError.New("group field index %d out of range", a.gfield)
	}
	return groupKey{grouped: true, value: t.Fields[a.gfield]}, nil
}

// Merge counts one tuple into its group.
func (a *StringAggregator) Merge(t *Tuple) error {
	key, err := a.keyFor(t)
	if err != nil {
		return err
	}
	if !a.seen[key] {
		a.seen[key] = true
		a.order = append(a.order, key)
	}
	a.counts[key]++
	return nil
}

// Schema returns the output schema: a COUNT column, optionally preceded
// by the grouping column.
func (a *StringAggregator) Schema() *TupleDesc {
	aggName := AggCount.String() + "(" + a.childName + ")"
	if a.gfield == NoGrouping {
		return NewTupleDesc([]DBType{IntType}, []string{aggName})
	}
	gbType := a.childDesc.Fields[a.gfield].Type
	gbName := a.childName + "(" + a.childDesc.Fields[a.gfield].Name + ")"
	return NewTupleDesc([]DBType{gbType, IntType}, []string{gbName, aggName})
}

// Iterator returns an Operator over the finished per-group counts. An
// ungrouped COUNT over zero input tuples still yields one row (0), same
// as IntegerAggregator's COUNT.
func (a *StringAggregator) Iterator() Operator {
	desc := a.Schema()
	order := a.order
	if a.gfield == NoGrouping && len(order) == 0 {
		order = []groupKey{{grouped: false}}
		a.counts[order[0]] = 0
	}
	tuples := make([]*Tuple, 0, len(order))
	for _, key := range order {
		var fields []DBValue
		if a.gfield == NoGrouping {
			fields = []DBValue{IntField{Value: int32(a.counts[key])}}
		} else {
			fields = []DBValue{key.value, IntField{Value: int32(a.counts[key])}}
		}
		tuples = append(tuples, NewTuple(*desc, fields))
	}
	return newTupleListOperator(desc, tuples)
}
