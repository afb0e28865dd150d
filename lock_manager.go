package pagedb

// LockManager implements per-page shared/exclusive locking with upgrade,
// timeout, and wait-for cycle detection. It is a monitor: every public
// method holds mu for the duration it touches shared state, and blocking
// is implemented with a condition variable rather than a spin loop.

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LockMode is the mode a TransactionID holds a lock in.
type LockMode int

const (
	Shared LockMode = iota
	Exclusive
)

type lockEntry struct {
	tid  TransactionID
	mode LockMode
}

// LockManager is safe for concurrent use.
type LockManager struct {
	mu   sync.Mutex
	cond *sync.Cond

	locks   map[PageId][]lockEntry
	held    map[TransactionID]map[PageId]struct{}
	waitFor map[TransactionID]map[TransactionID]struct{}

	timeout  time.Duration
	waitStep time.Duration
	log      *zap.Logger
}

// NewLockManager builds a LockManager with the given total wait timeout
// and per-attempt wait granularity. log may be nil, in which case a no-op
// logger is used.
func NewLockManager(timeout, waitStep time.Duration, log *zap.Logger) *LockManager {
	if log == nil {
		log = zap.NewNop()
	}
	lm := &LockManager{
		locks:    make(map[PageId][]lockEntry),
		held:     make(map[TransactionID]map[PageId]struct{}),
		waitFor:  make(map[TransactionID]map[TransactionID]struct{}),
		timeout:  timeout,
		waitStep: waitStep,
		log:      log,
	}
	lm.cond = sync.NewCond(&lm.mu)
	return lm
}

// waitTimeout waits on the monitor's condition for at most d, assuming mu
// is already held. It always reacquires mu before returning, matching
// sync.Cond.Wait's contract. A timer forces the wait to wake even if no
// other goroutine ever calls Broadcast/Signal, so grant conditions are
// rechecked at least every d.
func (lm *LockManager) waitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		lm.mu.Lock()
		lm.cond.Broadcast()
		lm.mu.Unlock()
	})
	defer timer.Stop()
	lm.cond.Wait()
}

// AcquireLock blocks until tid holds pid in at least mode, or returns
// TransactionAbortedError on deadlock or timeout.
func (lm *LockManager) AcquireLock(tid TransactionID, pid PageId, mode LockMode) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	deadline := time.Now().Add(lm.timeout)
	for {
		if lm.grantable(tid, pid, mode) {
			lm.grant(tid, pid, mode)
			delete(lm.waitFor, tid)
			return nil
		}

		lm.recordWaitFor(tid, pid, mode)
		if lm.hasCycle(tid) {
			delete(lm.waitFor, tid)
			lm.log.Warn("deadlock detected, aborting requester",
				zap.Int64("tid", int64(tid)), zap.Any("page", pid))
			return TransactionAbortedError.New("deadlock detected for transaction %d on page %v", tid, pid)
		}
		if time.Now().After(deadline) {
			delete(lm.waitFor, tid)
			lm.log.Warn("lock wait timed out, aborting requester",
				zap.Int64("tid", int64(tid)), zap.Any("page", pid))
			return TransactionAbortedError.New("lock timeout for transaction %d on page %v", tid, pid)
		}

		lm.waitTimeout(lm.waitStep)
	}
}

// grantable reports whether mode can be granted to tid on pid right now:
// shared locks are compatible with other shared locks, and a sole
// existing holder may always be granted (including an upgrade to
// exclusive); any other conflict blocks.
func (lm *LockManager) grantable(tid TransactionID, pid PageId, mode LockMode) bool {
	entries := lm.locks[pid]
	if len(entries) == 0 {
		return true
	}
	if mode == Shared {
		for _, e := range entries {
			if e.mode == Exclusive && e.tid != tid {
				return false
			}
		}
		return true
	}
	// Exclusive.
	if len(entries) == 1 && entries[0].tid == tid {
		return true
	}
	for _, e := range entries {
		if e.tid != tid {
			return false
		}
	}
	return true
}

// grant installs the lock, upgrading an existing sole entry in place
// rather than creating a second entry for the same (tid, pid).
func (lm *LockManager) grant(tid TransactionID, pid PageId, mode LockMode) {
	entries := lm.locks[pid]
	for i, e := range entries {
		if e.tid == tid {
			if mode == Exclusive {
				entries[i].mode = Exclusive
			}
			lm.locks[pid] = entries
			lm.markHeld(tid, pid)
			return
		}
	}
	lm.locks[pid] = append(entries, lockEntry{tid: tid, mode: mode})
	lm.markHeld(tid, pid)
}

func (lm *LockManager) markHeld(tid TransactionID, pid PageId) {
	set, ok := lm.held[tid]
	if !ok {
		set = make(map[PageId]struct{})
		lm.held[tid] = set
	}
	set[pid] = struct{}{}
}

// recordWaitFor rebuilds tid's wait-for edges to every current holder of
// pid, other than itself, that blocks the request (a shared holder does
// not block a shared request).
func (lm *LockManager) recordWaitFor(tid TransactionID, pid PageId, mode LockMode) {
	edges := make(map[TransactionID]struct{})
	for _, e := range lm.locks[pid] {
		if e.tid == tid {
			continue
		}
		if mode == Shared && e.mode == Shared {
			continue
		}
		edges[e.tid] = struct{}{}
	}
	lm.waitFor[tid] = edges
}

// hasCycle runs a DFS from tid through the wait-for graph, returning true
// if a back-edge to tid is found.
func (lm *LockManager) hasCycle(tid TransactionID) bool {
	visited := make(map[TransactionID]bool)
	var dfs func(cur TransactionID) bool
	dfs = func(cur TransactionID) bool {
		for next := range lm.waitFor[cur] {
			if next == tid {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(tid)
}

// ReleaseLock removes tid's lock on pid, if any, and wakes waiters.
func (lm *LockManager) ReleaseLock(tid TransactionID, pid PageId) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.releaseLocked(tid, pid)
	lm.cond.Broadcast()
}

func (lm *LockManager) releaseLocked(tid TransactionID, pid PageId) {
	entries := lm.locks[pid]
	for i, e := range entries {
		if e.tid == tid {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(lm.locks, pid)
	} else {
		lm.locks[pid] = entries
	}
	if set, ok := lm.held[tid]; ok {
		delete(set, pid)
		if len(set) == 0 {
			delete(lm.held, tid)
		}
	}
}

// ReleaseAllLocks releases every lock tid currently holds.
func (lm *LockManager) ReleaseAllLocks(tid TransactionID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	pages := make([]PageId, 0, len(lm.held[tid]))
	for pid := range lm.held[tid] {
		pages = append(pages, pid)
	}
	for _, pid := range pages {
		lm.releaseLocked(tid, pid)
	}
	delete(lm.waitFor, tid)
	lm.cond.Broadcast()
}

// HoldsLock reports whether tid holds any lock on pid.
func (lm *LockManager) HoldsLock(tid TransactionID, pid PageId) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, e := range lm.locks[pid] {
		if e.tid == tid {
			return true
		}
	}
	return false
}
