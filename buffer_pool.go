package pagedb

// BufferPool is the bounded page cache: pages are read through it on
// behalf of a transaction, which first acquires the page's lock via the
// LockManager; eviction is LRU among clean pages only (NO STEAL — a dirty
// page is never written before its transaction commits);
// TransactionComplete either flushes every page tid dirtied (commit) or
// restores each to its before-image (abort), then releases tid's locks.

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RWPerm is the permission requested when fetching a page.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

func (p RWPerm) lockMode() LockMode {
	if p == WritePerm {
		return Exclusive
	}
	return Shared
}

// Page is the cache's unit of storage. heapPage is the only implementation
// today; the interface keeps BufferPool from depending on heap_page.go's
// internals directly.
type Page interface {
	pageId() PageId
}

func (p *heapPage) pageId() PageId { return p.id }

// BufferPool caches up to numPages pages, evicting by LRU among clean
// pages when full.
type BufferPool struct {
	mu       sync.Mutex
	cache    map[PageId]*list.Element // value is *cacheEntry
	lru      *list.List               // front = most recently used
	pageSize int
	capacity int

	catalog *Catalog
	locks   *LockManager
	log     *zap.Logger
}

type cacheEntry struct {
	pid  PageId
	page *heapPage
}

// NewBufferPool builds a BufferPool of the given capacity (pages) backed
// by catalog for table resolution. cfg supplies the page size and lock
// timing; log may be nil.
func NewBufferPool(cfg Config, catalog *Catalog, log *zap.Logger) *BufferPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &BufferPool{
		cache:    make(map[PageId]*list.Element),
		lru:      list.New(),
		pageSize: cfg.PageSize,
		capacity: cfg.BufferPoolSize,
		catalog:  catalog,
		locks: NewLockManager(
			time.Duration(cfg.LockTimeoutMillis)*time.Millisecond,
			time.Duration(cfg.LockWaitGranularity)*time.Millisecond,
			log,
		),
		log: log,
	}
}

// GetPage returns the page pid from the cache, acquiring its lock for tid
// under perm first and loading it from disk on a cache miss. The
// returned Page is always a *heapPage.
func (bp *BufferPool) GetPage(tid TransactionID, pid PageId, perm RWPerm) (Page, error) {
	if err := bp.locks.AcquireLock(tid, pid, perm.lockMode()); err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if elem, ok := bp.cache[pid]; ok {
		bp.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).page, nil
	}

	if len(bp.cache) >= bp.capacity {
		if err := bp.evictOneLocked(); err != nil {
			return nil, err
		}
	}

	file, err := bp.catalog.FileForId(pid.TableId)
	if err != nil {
		return nil, err
	}
	page, err := file.readPage(pid)
	if err != nil {
		return nil, err
	}
	bp.insertLocked(pid, page)
	return page, nil
}

func (bp *BufferPool) insertLocked(pid PageId, page *heapPage) {
	elem := bp.lru.PushFront(&cacheEntry{pid: pid, page: page})
	bp.cache[pid] = elem
}

// evictOneLocked implements NO STEAL eviction: scan LRU order oldest
// first, evict the first clean page found. Returns BufferFullError if
// every cached page is dirty.
func (bp *BufferPool) evictOneLocked() error {
	for elem := bp.lru.Back(); elem != nil; elem = elem.Prev() {
		entry := elem.Value.(*cacheEntry)
		if _, dirty := entry.page.isDirty(); dirty {
			continue
		}
		bp.lru.Remove(elem)
		delete(bp.cache, entry.pid)
		bp.log.Debug("evicted clean page", zap.Any("page", entry.pid))
		return nil
	}
	return BufferFullError.New("buffer pool full of dirty pages")
}

// discardPageLocked removes pid from the cache without writing it back,
// regardless of its dirty bit. Used when restoring a before-image on
// abort and when recachePage replaces an entry.
func (bp *BufferPool) discardPageLocked(pid PageId) {
	if elem, ok := bp.cache[pid]; ok {
		bp.lru.Remove(elem)
		delete(bp.cache, pid)
	}
}

// InsertTuple delegates to the table's HeapFile and marks the returned
// page dirty for tid in the cache.
func (bp *BufferPool) InsertTuple(tid TransactionID, tableId uint32, t *Tuple) error {
	file, err := bp.catalog.FileForId(tableId)
	if err != nil {
		return err
	}
	page, err := file.insertTuple(tid, t)
	if err != nil {
		return err
	}
	bp.recachePage(page)
	return nil
}

// DeleteTuple delegates to t's HeapFile and marks the returned page dirty
// for tid in the cache.
func (bp *BufferPool) DeleteTuple(tid TransactionID, t *Tuple) error {
	if t.Rid == nil {
		return NotOnThisPageError.New("tuple has no record id")
	}
	file, err := bp.catalog.FileForId(t.Rid.PageId.TableId)
	if err != nil {
		return err
	}
	page, err := file.deleteTuple(tid, t)
	if err != nil {
		return err
	}
	bp.recachePage(page)
	return nil
}

// recachePage installs page into the cache, replacing any prior entry for
// its id.
func (bp *BufferPool) recachePage(page *heapPage) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.discardPageLocked(page.id)
	bp.insertLocked(page.id, page)
}

// TransactionComplete ends tid's involvement with the cache: on commit,
// flush every page tid dirtied and refresh its before-image; on abort,
// replace every page tid dirtied with its before-image. Either way,
// tid's locks are released afterward.
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	bp.mu.Lock()
	var dirtied []*cacheEntry
	for _, elem := range bp.cache {
		entry := elem.Value.(*cacheEntry)
		if owner, dirty := entry.page.isDirty(); dirty && owner == tid {
			dirtied = append(dirtied, entry)
		}
	}
	bp.mu.Unlock()

	var firstErr error
	for _, entry := range dirtied {
		if commit {
			if err := bp.flushEntry(entry, tid); err != nil && firstErr == nil {
				firstErr = err
			}
		} else {
			if err := bp.restoreBeforeImage(entry); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	bp.locks.ReleaseAllLocks(tid)
	return firstErr
}

func (bp *BufferPool) flushEntry(entry *cacheEntry, tid TransactionID) error {
	file, err := bp.catalog.FileForId(entry.pid.TableId)
	if err != nil {
		return err
	}
	if err := file.writePage(entry.page); err != nil {
		return err
	}
	entry.page.markDirty(false, tid)
	return entry.page.setBeforeImage()
}

func (bp *BufferPool) restoreBeforeImage(entry *cacheEntry) error {
	if _, err := bp.catalog.FileForId(entry.pid.TableId); err != nil {
		return err
	}
	restored, err := newHeapPage(entry.pid, entry.page.getBeforeImage(), entry.page.desc, bp.pageSize)
	if err != nil {
		return err
	}
	bp.mu.Lock()
	bp.discardPageLocked(entry.pid)
	bp.insertLocked(entry.pid, restored)
	bp.mu.Unlock()
	return nil
}

// FlushPage writes pid's page to disk and clears its dirty bit, if it is
// present and dirty.
func (bp *BufferPool) FlushPage(pid PageId) error {
	bp.mu.Lock()
	elem, ok := bp.cache[pid]
	bp.mu.Unlock()
	if !ok {
		return nil
	}
	entry := elem.Value.(*cacheEntry)
	if _, dirty := entry.page.isDirty(); !dirty {
		return nil
	}
	return bp.flushEntry(entry, 0)
}

// FlushPages flushes every cached page dirtied by tid.
func (bp *BufferPool) FlushPages(tid TransactionID) error {
	bp.mu.Lock()
	var dirtied []*cacheEntry
	for _, elem := range bp.cache {
		entry := elem.Value.(*cacheEntry)
		if owner, dirty := entry.page.isDirty(); dirty && owner == tid {
			dirtied = append(dirtied, entry)
		}
	}
	bp.mu.Unlock()

	var firstErr error
	for _, entry := range dirtied {
		if err := bp.flushEntry(entry, tid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FlushAllPages flushes every dirty page in the cache, regardless of
// owner. Provided for tests; calling it mid-transaction breaks NO STEAL.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	var dirtied []*cacheEntry
	for _, elem := range bp.cache {
		entry := elem.Value.(*cacheEntry)
		if _, dirty := entry.page.isDirty(); dirty {
			dirtied = append(dirtied, entry)
		}
	}
	bp.mu.Unlock()

	var firstErr error
	for _, entry := range dirtied {
		owner, _ := entry.page.isDirty()
		if err := bp.flushEntry(entry, owner); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HoldsLock is a pass-through to the lock manager.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageId) bool {
	return bp.locks.HoldsLock(tid, pid)
}

// UnsafeReleasePage releases tid's lock on pid without waiting for
// TransactionComplete. Named "unsafe" because it breaks two-phase
// locking's release discipline.
func (bp *BufferPool) UnsafeReleasePage(tid TransactionID, pid PageId) {
	bp.locks.ReleaseLock(tid, pid)
}
