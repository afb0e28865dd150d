package pagedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T, bufferPoolSize int) (*Catalog, *BufferPool, *HeapFile) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.BufferPoolSize = bufferPoolSize

	cat := NewCatalog()
	bp := NewBufferPool(cfg, cat, nil)
	desc := testDesc()
	file, err := NewHeapFile(filepath.Join(dir, "t.dat"), desc, bp)
	require.NoError(t, err)
	cat.AddTable("t", file, "id")
	return cat, bp, file
}

func scanAll(t *testing.T, bp *BufferPool, file *HeapFile, tid TransactionID) []*Tuple {
	t.Helper()
	it, err := file.Iterator(tid)
	require.NoError(t, err)
	var out []*Tuple
	for {
		tup, err := it()
		require.NoError(t, err)
		if tup == nil {
			break
		}
		out = append(out, tup)
	}
	return out
}

func TestInsertScanCommit(t *testing.T) {
	// T1 inserts (1,"a"), (2,"b"), commits; a new transaction scans and
	// reads exactly [(1,"a"),(2,"b")] in insertion order.
	_, bp, file := newTestTable(t, 10)
	desc := file.Schema()

	t1 := NewTID()
	require.NoError(t, bp.InsertTuple(t1, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 1}, StringField{Value: "a"}})))
	require.NoError(t, bp.InsertTuple(t1, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 2}, StringField{Value: "b"}})))
	require.NoError(t, bp.TransactionComplete(t1, true))

	t2 := NewTID()
	got := scanAll(t, bp, file, t2)
	require.NoError(t, bp.TransactionComplete(t2, true))

	require.Len(t, got, 2)
	require.Equal(t, int32(1), got[0].Fields[0].(IntField).Value)
	require.Equal(t, "a", got[0].Fields[1].(StringField).Value)
	require.Equal(t, int32(2), got[1].Fields[0].(IntField).Value)
	require.Equal(t, "b", got[1].Fields[1].(StringField).Value)
}

func TestAbortRollback(t *testing.T) {
	// Starting from the prior committed state, T2 inserts (3,"c") then
	// aborts; a new scan reads exactly [(1,"a"),(2,"b")].
	_, bp, file := newTestTable(t, 10)
	desc := file.Schema()

	t1 := NewTID()
	require.NoError(t, bp.InsertTuple(t1, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 1}, StringField{Value: "a"}})))
	require.NoError(t, bp.InsertTuple(t1, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 2}, StringField{Value: "b"}})))
	require.NoError(t, bp.TransactionComplete(t1, true))

	t2 := NewTID()
	require.NoError(t, bp.InsertTuple(t2, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 3}, StringField{Value: "c"}})))
	require.NoError(t, bp.TransactionComplete(t2, false))

	t3 := NewTID()
	got := scanAll(t, bp, file, t3)
	require.NoError(t, bp.TransactionComplete(t3, true))

	require.Len(t, got, 2)
	require.Equal(t, int32(1), got[0].Fields[0].(IntField).Value)
	require.Equal(t, int32(2), got[1].Fields[0].(IntField).Value)
}

func TestBufferPoolLRUEviction(t *testing.T) {
	// Capacity 2; access P1, P2, P1, P3 (all clean). After P3's access
	// the cache holds {P1, P3} and P2 was evicted.
	_, bp, file := newTestTable(t, 2)

	for i := 0; i < 3; i++ {
		_, err := file.appendEmptyPage()
		require.NoError(t, err)
	}

	t2 := NewTID()
	p1 := PageId{TableId: file.Id(), PageNumber: 0}
	p2 := PageId{TableId: file.Id(), PageNumber: 1}
	p3 := PageId{TableId: file.Id(), PageNumber: 2}

	_, err := bp.GetPage(t2, p1, ReadPerm)
	require.NoError(t, err)
	_, err = bp.GetPage(t2, p2, ReadPerm)
	require.NoError(t, err)
	_, err = bp.GetPage(t2, p1, ReadPerm)
	require.NoError(t, err)
	_, err = bp.GetPage(t2, p3, ReadPerm)
	require.NoError(t, err)

	bp.mu.Lock()
	_, hasP1 := bp.cache[p1]
	_, hasP2 := bp.cache[p2]
	_, hasP3 := bp.cache[p3]
	bp.mu.Unlock()

	require.True(t, hasP1)
	require.False(t, hasP2)
	require.True(t, hasP3)

	require.NoError(t, bp.TransactionComplete(t2, true))
}

func TestBufferFullWhenEveryPageDirty(t *testing.T) {
	_, bp, file := newTestTable(t, 1)

	_, err := file.appendEmptyPage()
	require.NoError(t, err)

	tid := NewTID()
	p0 := PageId{TableId: file.Id(), PageNumber: 0}
	p1 := PageId{TableId: file.Id(), PageNumber: 1}

	page, err := bp.GetPage(tid, p0, WritePerm)
	require.NoError(t, err)
	page.(*heapPage).markDirty(true, tid)

	_, err = bp.GetPage(tid, p1, WritePerm)
	require.Error(t, err)
	require.True(t, BufferFullError.Has(err))
}
