package pagedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeqScanQualifiesFieldNamesWithAlias(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cat := NewCatalog()
	bp := NewBufferPool(cfg, cat, nil)
	desc := testDesc()
	file, err := NewHeapFile(filepath.Join(dir, "people.dat"), desc, bp)
	require.NoError(t, err)
	cat.AddTable("people", file, "id")

	tid := NewTID()
	require.NoError(t, bp.InsertTuple(tid, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 1}, StringField{Value: "a"}})))
	require.NoError(t, bp.InsertTuple(tid, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 2}, StringField{Value: "b"}})))
	require.NoError(t, bp.TransactionComplete(tid, true))

	scan := NewSeqScan(file, "p", nil)
	require.Equal(t, "p.id", scan.Schema().Fields[0].Name)
	require.Equal(t, "p.name", scan.Schema().Fields[1].Name)

	scanTid := NewTID()
	require.NoError(t, scan.Open(scanTid))
	defer scan.Close()

	var got []*Tuple
	for {
		has, err := scan.HasNext()
		require.NoError(t, err)
		if !has {
			break
		}
		tup, err := scan.Next()
		require.NoError(t, err)
		got = append(got, tup)
	}
	require.NoError(t, bp.TransactionComplete(scanTid, true))

	require.Len(t, got, 2)
	require.Equal(t, int32(1), got[0].Fields[0].(IntField).Value)
	require.Equal(t, "a", got[0].Fields[1].(StringField).Value)
	require.Equal(t, "p.id", got[0].Desc.Fields[0].Name)
	require.Equal(t, "p.name", got[0].Desc.Fields[1].Name)
}

func TestSeqScanDefaultsAliasAndFieldNamesToNull(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cat := NewCatalog()
	bp := NewBufferPool(cfg, cat, nil)

	// An unnamed schema field paired with an empty alias exercises every
	// null-safety case: "null.field", "alias.null", "null.null".
	anon := NewTupleDesc([]DBType{IntType, StringType}, []string{"id", ""})
	file, err := NewHeapFile(filepath.Join(dir, "anon.dat"), anon, bp)
	require.NoError(t, err)
	cat.AddTable("anon", file, "")

	noAlias := NewSeqScan(file, "", nil)
	require.Equal(t, "null.id", noAlias.Schema().Fields[0].Name)
	require.Equal(t, "null.null", noAlias.Schema().Fields[1].Name)

	aliased := NewSeqScan(file, "a", nil)
	require.Equal(t, "a.id", aliased.Schema().Fields[0].Name)
	require.Equal(t, "a.null", aliased.Schema().Fields[1].Name)
}

func TestSeqScanRewindRestartsStream(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cat := NewCatalog()
	bp := NewBufferPool(cfg, cat, nil)
	desc := testDesc()
	file, err := NewHeapFile(filepath.Join(dir, "t.dat"), desc, bp)
	require.NoError(t, err)
	cat.AddTable("t", file, "id")

	tid := NewTID()
	require.NoError(t, bp.InsertTuple(tid, file.Id(), NewTuple(*desc, []DBValue{IntField{Value: 1}, StringField{Value: "a"}})))
	require.NoError(t, bp.TransactionComplete(tid, true))

	scan := NewSeqScan(file, "t", nil)
	scanTid := NewTID()
	require.NoError(t, scan.Open(scanTid))

	has, err := scan.HasNext()
	require.NoError(t, err)
	require.True(t, has)
	_, err = scan.Next()
	require.NoError(t, err)

	has, err = scan.HasNext()
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, scan.Rewind())
	has, err = scan.HasNext()
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, scan.Close())
	require.NoError(t, bp.TransactionComplete(scanTid, true))
}

func TestSeqScanIllegalStateBeforeOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cat := NewCatalog()
	bp := NewBufferPool(cfg, cat, nil)
	desc := testDesc()
	file, err := NewHeapFile(filepath.Join(dir, "t.dat"), desc, bp)
	require.NoError(t, err)

	scan := NewSeqScan(file, "t", nil)
	_, err = scan.HasNext()
	require.Error(t, err)
	require.True(t, IllegalStateError.Has(err))
}
