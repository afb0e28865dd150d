package pagedb

import "sync/atomic"

// TransactionID names one transaction across the lock manager and buffer
// pool. The zero value is not a valid id; use NewTID.
type TransactionID int64

var tidCounter int64

// NewTID allocates a fresh, process-unique TransactionID.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&tidCounter, 1))
}
