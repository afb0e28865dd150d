package pagedb

// HeapPage is the fixed-size, bitmap-slotted page layout: a header bitmap
// (one bit per slot, LSB-first within each byte, bit i set iff slot i is
// occupied) followed by numSlots fixed-size tuple slots, the whole thing
// padded with zero bytes to exactly PageSize.
//
// numSlots is derived from the page size and the per-tuple size:
//
//	numSlots = floor((pageSize*8) / (schemaSize*8 + 1))
//
// because each slot costs schemaSize bytes of body plus one header bit.

import (
	"bytes"
)

// heapPage is the in-memory representation of one HeapFile page.
type heapPage struct {
	id       PageId
	desc     *TupleDesc
	pageSize int

	numSlots int
	header   []byte // ceil(numSlots/8) bytes
	tuples   []*Tuple

	dirty      bool
	dirtyingTx TransactionID

	beforeImage []byte
}

// numSlotsFor computes numSlots for a schema of size schemaSize bytes on a
// page of pageSize bytes.
func numSlotsFor(pageSize, schemaSize int) int {
	if schemaSize <= 0 {
		return 0
	}
	return (pageSize * 8) / (schemaSize*8 + 1)
}

// newHeapPage parses pageSize bytes of on-disk page data into a heapPage.
// The supplied bytes are kept as the page's initial before-image.
func newHeapPage(id PageId, data []byte, desc *TupleDesc, pageSize int) (*heapPage, error) {
	if len(data) != pageSize {
		return nil, IoError.New("heap page %v: expected %d bytes, got %d", id, pageSize, len(data))
	}
	numSlots := numSlotsFor(pageSize, desc.Size())
	headerBytes := (numSlots + 7) / 8

	p := &heapPage{
		id:       id,
		desc:     desc,
		pageSize: pageSize,
		numSlots: numSlots,
		header:   make([]byte, headerBytes),
		tuples:   make([]*Tuple, numSlots),
	}
	copy(p.header, data[:headerBytes])

	buf := bytes.NewBuffer(data[headerBytes:])
	for slot := 0; slot < numSlots; slot++ {
		if !p.isSlotUsed(slot) {
			buf.Next(desc.Size())
			continue
		}
		t, err := readTupleFrom(buf, desc)
		if err != nil {
			return nil, err
		}
		t.Rid = &RecordId{PageId: id, Slot: slot}
		p.tuples[slot] = t
	}

	before := make([]byte, pageSize)
	copy(before, data)
	p.beforeImage = before
	return p, nil
}

// newEmptyHeapPage builds a fresh, all-unoccupied page for id, as created
// when a HeapFile is extended by one page.
func newEmptyHeapPage(id PageId, desc *TupleDesc, pageSize int) *heapPage {
	numSlots := numSlotsFor(pageSize, desc.Size())
	headerBytes := (numSlots + 7) / 8
	p := &heapPage{
		id:       id,
		desc:     desc,
		pageSize: pageSize,
		numSlots: numSlots,
		header:   make([]byte, headerBytes),
		tuples:   make([]*Tuple, numSlots),
	}
	before := make([]byte, pageSize)
	p.beforeImage = before
	return p
}

// isSlotUsed reports whether bit i (LSB-first within its byte) is set.
func (p *heapPage) isSlotUsed(i int) bool {
	byteIdx, bit := i/8, uint(i%8)
	return p.header[byteIdx]&(1<<bit) != 0
}

// markSlotUsed sets or clears bit i.
func (p *heapPage) markSlotUsed(i int, used bool) {
	byteIdx, bit := i/8, uint(i%8)
	if used {
		p.header[byteIdx] |= 1 << bit
	} else {
		p.header[byteIdx] &^= 1 << bit
	}
}

// getNumEmptySlots returns the count of unoccupied slots.
func (p *heapPage) getNumEmptySlots() int {
	empty := 0
	for i := 0; i < p.numSlots; i++ {
		if !p.isSlotUsed(i) {
			empty++
		}
	}
	return empty
}

// insertTuple assigns t to the lowest-indexed free slot.
func (p *heapPage) insertTuple(t *Tuple) error {
	if !t.Desc.Equals(p.desc) {
		return SchemaMismatchError.New("tuple schema does not match page schema")
	}
	for slot := 0; slot < p.numSlots; slot++ {
		if p.isSlotUsed(slot) {
			continue
		}
		stored := &Tuple{Desc: *p.desc, Fields: t.Fields}
		rid := &RecordId{PageId: p.id, Slot: slot}
		stored.Rid = rid
		p.tuples[slot] = stored
		p.markSlotUsed(slot, true)
		t.Rid = rid
		return nil
	}
	return PageFullError.New("page %v has no free slots", p.id)
}

// deleteTuple clears t's slot.
func (p *heapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil || t.Rid.PageId != p.id {
		return NotOnThisPageError.New("tuple's record id does not name page %v", p.id)
	}
	slot := t.Rid.Slot
	if slot < 0 || slot >= p.numSlots || !p.isSlotUsed(slot) {
		return SlotEmptyError.New("slot %d on page %v is already empty", slot, p.id)
	}
	p.tuples[slot] = nil
	p.markSlotUsed(slot, false)
	return nil
}

// iterator returns a lazy, non-restartable sequence of the page's live
// tuples in slot-index order.
func (p *heapPage) iterator() func() (*Tuple, error) {
	slot := 0
	return func() (*Tuple, error) {
		for slot < p.numSlots {
			i := slot
			slot++
			if p.tuples[i] != nil {
				return p.tuples[i], nil
			}
		}
		return nil, nil
	}
}

// markDirty sets or clears the dirty bit, recording the dirtying
// transaction when setting it.
func (p *heapPage) markDirty(dirty bool, tid TransactionID) {
	p.dirty = dirty
	if dirty {
		p.dirtyingTx = tid
	}
}

// isDirty returns the dirtying transaction id and true, or the zero value
// and false if the page is clean.
func (p *heapPage) isDirty() (TransactionID, bool) {
	if !p.dirty {
		return 0, false
	}
	return p.dirtyingTx, true
}

// getBeforeImage returns the byte snapshot taken at the last load or
// commit.
func (p *heapPage) getBeforeImage() []byte {
	img := make([]byte, len(p.beforeImage))
	copy(img, p.beforeImage)
	return img
}

// setBeforeImage overwrites the byte snapshot with the page's current
// serialized contents. Called on commit.
func (p *heapPage) setBeforeImage() error {
	data, err := p.serialize()
	if err != nil {
		return err
	}
	p.beforeImage = data
	return nil
}

// serialize produces exactly pageSize bytes: the header bitmap, then each
// slot (occupied slots hold their tuple's bytes, empty slots hold zeros),
// all padded to pageSize.
func (p *heapPage) serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(p.header)
	for slot := 0; slot < p.numSlots; slot++ {
		if p.tuples[slot] == nil {
			buf.Write(make([]byte, p.desc.Size()))
			continue
		}
		if err := p.tuples[slot].writeTo(buf); err != nil {
			return nil, err
		}
	}
	out := buf.Bytes()
	if len(out) > p.pageSize {
		return nil, IoError.New("serialized page %v exceeds page size", p.id)
	}
	padded := make([]byte, p.pageSize)
	copy(padded, out)
	return padded, nil
}
