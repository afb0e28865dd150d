package pagedb

// Error taxonomy for pagedb. Every kind below is its own [errs.Class] so
// call sites that need to discriminate can do so with [errs.Class.Has],
// while everything still satisfies the plain error interface for call
// sites that don't care.

import "github.com/zeebo/errs"

var (
	// DbError is the generic class, used directly by call sites that
	// don't warrant one of the specific kinds below (e.g. a malformed
	// catalog line). It is an errs.Class like any other here, not an
	// umbrella that the other kinds also belong to.
	DbError = errs.Class("pagedb")

	// NoSuchTableError is returned by catalog lookups that miss by id or
	// name.
	NoSuchTableError = errs.Class("no such table")

	// NoSuchFieldError is returned when a field name doesn't resolve
	// against a TupleDesc.
	NoSuchFieldError = errs.Class("no such field")

	// PageOutOfRangeError is returned by HeapFile.readPage for a page of
	// another table or a page number outside [0, numPages).
	PageOutOfRangeError = errs.Class("page out of range")

	// PageFullError is returned by HeapPage.insertTuple when no slot is
	// free.
	PageFullError = errs.Class("page full")

	// SlotEmptyError is returned by HeapPage.deleteTuple when the target
	// slot's bitmap bit is already 0.
	SlotEmptyError = errs.Class("slot empty")

	// SchemaMismatchError is returned when a tuple's schema doesn't equal
	// the page's schema.
	SchemaMismatchError = errs.Class("schema mismatch")

	// NotOnThisPageError is returned by HeapPage.deleteTuple when the
	// tuple's RecordId names a different page.
	NotOnThisPageError = errs.Class("not on this page")

	// BufferFullError is returned when every cached page is dirty and
	// none can be evicted under NO STEAL.
	BufferFullError = errs.Class("buffer full")

	// IoError wraps an underlying file operation failure.
	IoError = errs.Class("io error")

	// TransactionAbortedError is raised by the lock manager on timeout,
	// cycle detection, or interrupted wait.
	TransactionAbortedError = errs.Class("transaction aborted")

	// IllegalStateError is a programmer error: an operator method called
	// before open or after close.
	IllegalStateError = errs.Class("illegal state")

	// NoSuchElementError is a programmer error: Next called when HasNext
	// is false.
	NoSuchElementError = errs.Class("no such element")

	// UnsupportedOperationError is a programmer error: e.g. Rewind on an
	// operator that doesn't support it.
	UnsupportedOperationError = errs.Class("unsupported operation")
)
