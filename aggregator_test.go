package pagedb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gbDesc() *TupleDesc {
	return NewTupleDesc([]DBType{StringType, IntType}, []string{"gb", "v"})
}

func drain(t *testing.T, op Operator) []*Tuple {
	t.Helper()
	require.NoError(t, op.Open(1))
	defer op.Close()
	var out []*Tuple
	for {
		has, err := op.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := op.Next()
		require.NoError(t, err)
		out = append(out, tup)
	}
	return out
}

func TestIntegerAggregatorGroupedAvg(t *testing.T) {
	// (A,10),(A,20),(B,5),(B,15),(B,10) grouped by gb, AVG(v) ->
	// {(A,15),(B,10)}.
	desc := gbDesc()
	rows := []struct {
		gb string
		v  int32
	}{
		{"A", 10}, {"A", 20}, {"B", 5}, {"B", 15}, {"B", 10},
	}

	agg := NewIntegerAggregator(0, 1, AggAvg, "v", desc)
	for _, r := range rows {
		tup := NewTuple(*desc, []DBValue{StringField{Value: r.gb}, IntField{Value: r.v}})
		require.NoError(t, agg.Merge(tup))
	}

	got := map[string]int32{}
	for _, tup := range drain(t, agg.Iterator()) {
		gb := tup.Fields[0].(StringField).Value
		avg := tup.Fields[1].(IntField).Value
		got[gb] = avg
	}
	require.Equal(t, map[string]int32{"A": 15, "B": 10}, got)
}

func TestIntegerAggregatorUngroupedEmptyCountAndSum(t *testing.T) {
	// COUNT/SUM over an empty group yields a single zero row; MIN/MAX/AVG
	// yield no row.
	desc := gbDesc()

	countAgg := NewIntegerAggregator(NoGrouping, 1, AggCount, "v", desc)
	rows := drain(t, countAgg.Iterator())
	require.Len(t, rows, 1)
	require.Equal(t, int32(0), rows[0].Fields[0].(IntField).Value)

	sumAgg := NewIntegerAggregator(NoGrouping, 1, AggSum, "v", desc)
	rows = drain(t, sumAgg.Iterator())
	require.Len(t, rows, 1)
	require.Equal(t, int32(0), rows[0].Fields[0].(IntField).Value)

	maxAgg := NewIntegerAggregator(NoGrouping, 1, AggMax, "v", desc)
	require.Empty(t, drain(t, maxAgg.Iterator()))

	avgAgg := NewIntegerAggregator(NoGrouping, 1, AggAvg, "v", desc)
	require.Empty(t, drain(t, avgAgg.Iterator()))
}

func TestIntegerAggregatorMinMaxSentinels(t *testing.T) {
	desc := gbDesc()
	agg := NewIntegerAggregator(NoGrouping, 1, AggMin, "v", desc)
	for _, v := range []int32{5, -3, 100, 2} {
		tup := NewTuple(*desc, []DBValue{StringField{Value: "g"}, IntField{Value: v}})
		require.NoError(t, agg.Merge(tup))
	}
	rows := drain(t, agg.Iterator())
	require.Len(t, rows, 1)
	require.Equal(t, int32(-3), rows[0].Fields[0].(IntField).Value)
}

func TestStringAggregatorCountOnly(t *testing.T) {
	require.Panics(t, func() {
		NewStringAggregator(NoGrouping, AggSum, "name", testDesc())
	})

	desc := testDesc()
	agg := NewStringAggregator(NoGrouping, AggCount, "name", desc)
	for i := 0; i < 3; i++ {
		tup := NewTuple(*desc, []DBValue{IntField{Value: int32(i)}, StringField{Value: "x"}})
		require.NoError(t, agg.Merge(tup))
	}
	rows := drain(t, agg.Iterator())
	require.Len(t, rows, 1)
	require.Equal(t, int32(3), rows[0].Fields[0].(IntField).Value)
}

func TestAggregateOperatorSchemaNaming(t *testing.T) {
	desc := gbDesc()
	src := newTupleListOperator(desc, nil)
	aggOp, err := NewAggregate(src, 0, 1, AggAvg, "t")
	require.NoError(t, err)

	schema := aggOp.Schema()
	require.Len(t, schema.Fields, 2)
	require.Equal(t, "t(gb)", schema.Fields[0].Name)
	require.Equal(t, "AVG(t)", schema.Fields[1].Name)
}
