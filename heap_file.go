package pagedb

// HeapFile is a table stored as the ordered, gap-free sequence of pages
// 0..numPages-1 in one local file. Tuple-level insert scans for the first
// page with a free slot, extending the file by one page when none is
// found; delete locates the page named by the tuple's RecordId. All page
// acquisition for insert/delete/iteration goes through the supplied
// BufferPool so that locking and caching stay centralized there.

import (
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// HeapFile backs one table.
type HeapFile struct {
	path     string
	id       uint32
	desc     *TupleDesc
	bp       *BufferPool
	pageSize int

	// extendMu serializes the read-numPages/append-one-page sequence in
	// insertTuple so two transactions racing to extend the file don't
	// clobber each other's new page.
	extendMu sync.Mutex
}

// NewHeapFile opens (creating if absent) the backing file at path for a
// table with schema desc, cached through bp.
func NewHeapFile(path string, desc *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, IoError.Wrap(err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, IoError.Wrap(err)
	}
	f.Close()

	h := fnv.New32a()
	_, _ = h.Write([]byte(abs))

	return &HeapFile{
		path:     abs,
		id:       h.Sum32(),
		desc:     desc,
		bp:       bp,
		pageSize: bp.pageSize,
	}, nil
}

// Id returns the stable 32-bit identifier derived from the file's absolute
// path.
func (f *HeapFile) Id() uint32 { return f.id }

// Schema returns the table's fixed TupleDesc.
func (f *HeapFile) Schema() *TupleDesc { return f.desc }

// NumPages computes the current page count from the file's length.
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return int(info.Size() / int64(f.pageSize))
}

// readPage seeks to pageNumber's offset and parses one page.
func (f *HeapFile) readPage(pid PageId) (*heapPage, error) {
	if pid.TableId != f.id {
		return nil, PageOutOfRangeError.New("page %v does not belong to table %d", pid, f.id)
	}
	if pid.PageNumber < 0 || pid.PageNumber >= f.NumPages() {
		return nil, PageOutOfRangeError.New("page number %d out of range [0,%d)", pid.PageNumber, f.NumPages())
	}

	file, err := os.OpenFile(f.path, os.O_RDONLY, 0666)
	if err != nil {
		return nil, IoError.Wrap(err)
	}
	defer file.Close()

	data := make([]byte, f.pageSize)
	offset := int64(pid.PageNumber) * int64(f.pageSize)
	if _, err := file.ReadAt(data, offset); err != nil && err != io.EOF {
		return nil, IoError.Wrap(err)
	}
	return newHeapPage(pid, data, f.desc, f.pageSize)
}

// writePage seeks to page's offset and overwrites it in place.
func (f *HeapFile) writePage(page *heapPage) error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return IoError.Wrap(err)
	}
	defer file.Close()

	data, err := page.serialize()
	if err != nil {
		return err
	}
	offset := int64(page.id.PageNumber) * int64(f.pageSize)
	if _, err := file.WriteAt(data, offset); err != nil {
		return IoError.Wrap(err)
	}
	return nil
}

// appendEmptyPage extends the file by one zeroed page and returns its
// page number.
func (f *HeapFile) appendEmptyPage() (int, error) {
	pageNo := f.NumPages()
	empty := newEmptyHeapPage(PageId{TableId: f.id, PageNumber: pageNo}, f.desc, f.pageSize)
	data, err := empty.serialize()
	if err != nil {
		return 0, err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return 0, IoError.Wrap(err)
	}
	defer file.Close()
	if _, err := file.WriteAt(data, int64(pageNo)*int64(f.pageSize)); err != nil {
		return 0, IoError.Wrap(err)
	}
	return pageNo, nil
}

// insertTuple scans pages in order for the first one with a free slot,
// acquiring each under WritePerm via the buffer pool; insert there if
// found. Otherwise extend the file by one page and insert into it.
// Returns the page the tuple was inserted into, dirtied for tid.
//
// Because another transaction may fill a page between NumPages() being
// read and the page's lock being acquired, insertTuple tolerates the page
// turning out to be full when it actually holds the lock and retries the
// scan from that page onward.
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) (*heapPage, error) {
	if !t.Desc.Equals(f.desc) {
		return nil, SchemaMismatchError.New("tuple schema does not match heap file schema")
	}

	for {
		n := f.NumPages()
		inserted := false
		var page *heapPage
		for pageNo := 0; pageNo < n; pageNo++ {
			pid := PageId{TableId: f.id, PageNumber: pageNo}
			p, err := f.bp.GetPage(tid, pid, WritePerm)
			if err != nil {
				return nil, err
			}
			hp := p.(*heapPage)
			if hp.getNumEmptySlots() == 0 {
				continue
			}
			if err := hp.insertTuple(t); err != nil {
				if PageFullError.Has(err) {
					continue
				}
				return nil, err
			}
			hp.markDirty(true, tid)
			page, inserted = hp, true
			break
		}
		if inserted {
			return page, nil
		}

		f.extendMu.Lock()
		if f.NumPages() == n {
			if _, err := f.appendEmptyPage(); err != nil {
				f.extendMu.Unlock()
				return nil, err
			}
		}
		f.extendMu.Unlock()
		// Loop around: the new page (or a page another transaction
		// just freed up) will be picked up on the next pass.
	}
}

// deleteTuple acquires the tuple's page under WritePerm, deletes it
// there, and marks the page dirty for tid.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) (*heapPage, error) {
	if t.Rid == nil {
		return nil, NotOnThisPageError.New("tuple has no record id")
	}
	p, err := f.bp.GetPage(tid, t.Rid.PageId, WritePerm)
	if err != nil {
		return nil, err
	}
	hp := p.(*heapPage)
	if err := hp.deleteTuple(t); err != nil {
		return nil, err
	}
	hp.markDirty(true, tid)
	return hp, nil
}

// Iterator returns a pull iterator over every live tuple in the file, in
// (pageNumber, slot) order. It loads page 0 via the buffer pool under
// ReadPerm up front; there is no explicit close since locks are released
// at TransactionComplete, not here.
func (f *HeapFile) Iterator(tid TransactionID) (func() (*Tuple, error), error) {
	pageNo := 0
	var pageIter func() (*Tuple, error)

	var advance func() error
	advance = func() error {
		for {
			if pageNo >= f.NumPages() {
				pageIter = nil
				return nil
			}
			pid := PageId{TableId: f.id, PageNumber: pageNo}
			p, err := f.bp.GetPage(tid, pid, ReadPerm)
			if err != nil {
				return err
			}
			pageIter = p.(*heapPage).iterator()
			return nil
		}
	}
	if err := advance(); err != nil {
		return nil, err
	}

	return func() (*Tuple, error) {
		for {
			if pageIter == nil {
				return nil, nil
			}
			t, err := pageIter()
			if err != nil {
				return nil, err
			}
			if t != nil {
				return t, nil
			}
			pageNo++
			if err := advance(); err != nil {
				return nil, err
			}
		}
	}, nil
}
