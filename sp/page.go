// Package sp implements the slotted page layer: variable-length record
// storage inside one 4 KiB buffer, with a 32-byte header, a slot directory
// growing down from offset 32, and record bytes growing up from offset
// 4096.
//
// Grounded on the cell directory in btree/page.go
// (cellDirOffset/getCellOffset/setCellOffset/freePtr/InsertCell/
// DeleteCell), adapted from a sorted B-tree cell array to an
// insertion-order slot array with tombstone reuse and no cross-record
// reordering on insert.
package sp

import (
	"encoding/binary"

	"github.com/toylabs/toypager/internal/common"
)

const (
	// PageSize is the fixed size of every slotted page.
	PageSize = 4096

	// HeaderSize is the fixed 32-byte page header.
	HeaderSize = 32

	hdrOffPageID     = 0  // int32
	hdrOffNumSlots   = 4  // int16
	hdrOffFreeOffset = 6  // int16
	hdrOffFreeSize   = 8  // int16
	hdrOffNextPage   = 10 // int32
	hdrOffPrevPage   = 14 // int32
	// bytes [18,32) are reserved

	slotSize       = 4 // offset:i16, length:i16
	slotDirStart   = HeaderSize
)

// Init writes a fresh page header into buf: no slots, all 4064 bytes past
// the header free, no linked neighbors.
func Init(buf []byte, pageID int32) {
	mustPageSize(buf)
	for i := range buf {
		buf[i] = 0
	}
	putI32(buf, hdrOffPageID, pageID)
	putI16(buf, hdrOffNumSlots, 0)
	putI16(buf, hdrOffFreeOffset, PageSize)
	putI16(buf, hdrOffFreeSize, PageSize-HeaderSize)
	putI32(buf, hdrOffNextPage, -1)
	putI32(buf, hdrOffPrevPage, -1)
}

// PageID returns the page's own id, as stamped by Init.
func PageID(buf []byte) int32 { return i32(buf, hdrOffPageID) }

// NumSlots returns the number of slot directory entries, live or
// tombstoned.
func NumSlots(buf []byte) int16 { return i16(buf, hdrOffNumSlots) }

// FreeSpaceOffset returns the offset record bytes currently start at.
func FreeSpaceOffset(buf []byte) int16 { return i16(buf, hdrOffFreeOffset) }

// FreeSpace returns the number of bytes available to a new insert,
// accounting for the slot entry it would also need.
func FreeSpace(buf []byte) int16 { return i16(buf, hdrOffFreeSize) }

// NextPage returns the page linked after this one, or -1.
func NextPage(buf []byte) int32 { return i32(buf, hdrOffNextPage) }

// SetNextPage sets the forward link.
func SetNextPage(buf []byte, p int32) { putI32(buf, hdrOffNextPage, p) }

// PrevPage returns the page linked before this one, or -1.
func PrevPage(buf []byte) int32 { return i32(buf, hdrOffPrevPage) }

// SetPrevPage sets the backward link.
func SetPrevPage(buf []byte, p int32) { putI32(buf, hdrOffPrevPage, p) }

func slotOffset(n int16) int { return slotDirStart + int(n)*slotSize }

func slotAt(buf []byte, n int16) (offset, length int16) {
	o := slotOffset(n)
	return i16(buf, o), i16(buf, o+2)
}

func setSlot(buf []byte, n int16, offset, length int16) {
	o := slotOffset(n)
	putI16(buf, o, offset)
	putI16(buf, o+2, length)
}

// InsertRecord writes rec into buf, returning the slot it was stored at.
// It reuses the first tombstoned slot in index order if one exists,
// otherwise appends a new slot. A reused tombstone still deducts 4 bytes
// for "the slot" even though its directory entry already existed, the
// same accounting a brand new slot gets, so each reuse leaves FreeSpace
// 4 bytes below the bytes actually available.
func InsertRecord(buf []byte, rec []byte) (int16, error) {
	mustPageSize(buf)
	length := int16(len(rec))
	if int(length)+4 > int(FreeSpace(buf)) {
		return 0, common.ErrNoSpace
	}

	numSlots := NumSlots(buf)
	slot := int16(-1)
	for i := int16(0); i < numSlots; i++ {
		off, ln := slotAt(buf, i)
		if off == 0 && ln == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = numSlots
		putI16(buf, hdrOffNumSlots, numSlots+1)
	}

	newOffset := FreeSpaceOffset(buf) - length
	copy(buf[newOffset:newOffset+length], rec)
	setSlot(buf, slot, newOffset, length)

	putI16(buf, hdrOffFreeOffset, newOffset)
	putI16(buf, hdrOffFreeSize, FreeSpace(buf)-(length+4))

	return slot, nil
}

// DeleteRecord tombstones slot. Its byte range becomes fragmentation: the
// record length is refunded to free space, but the slot itself is never
// removed from the directory, so num_slots never shrinks.
func DeleteRecord(buf []byte, slot int16) error {
	mustPageSize(buf)
	if slot < 0 || slot >= NumSlots(buf) {
		return common.ErrInvalidSlot
	}
	_, length := slotAt(buf, slot)
	setSlot(buf, slot, 0, 0)
	putI16(buf, hdrOffFreeSize, FreeSpace(buf)+length)
	return nil
}

// GetRecord copies the bytes stored at slot.
func GetRecord(buf []byte, slot int16) ([]byte, error) {
	mustPageSize(buf)
	if slot < 0 || slot >= NumSlots(buf) {
		return nil, common.ErrInvalidSlot
	}
	offset, length := slotAt(buf, slot)
	if offset == 0 {
		return nil, common.ErrInvalidSlot
	}
	out := make([]byte, length)
	copy(out, buf[offset:offset+length])
	return out, nil
}

// Live reports whether slot holds a record rather than a tombstone.
func Live(buf []byte, slot int16) bool {
	if slot < 0 || slot >= NumSlots(buf) {
		return false
	}
	offset, length := slotAt(buf, slot)
	return !(offset == 0 && length == 0)
}

// Compact snapshots every live record in ascending slot order and
// rewrites the page with them densely end-packed, starting from slot 0.
// This renumbers slot indices: any RecordID referencing a slot on this
// page by its old index is invalidated by this call. Callers must never
// hold a RecordID across a Compact.
func Compact(buf []byte) {
	mustPageSize(buf)
	type live struct {
		bytes []byte
	}
	numSlots := NumSlots(buf)
	var records []live
	for i := int16(0); i < numSlots; i++ {
		if !Live(buf, i) {
			continue
		}
		rec, _ := GetRecord(buf, i)
		records = append(records, live{bytes: rec})
	}

	pageID := PageID(buf)
	next := NextPage(buf)
	prev := PrevPage(buf)
	Init(buf, pageID)
	SetNextPage(buf, next)
	SetPrevPage(buf, prev)

	for _, r := range records {
		// Space was already validated when these records were first
		// inserted, and compaction never increases total bytes used.
		if _, err := InsertRecord(buf, r.bytes); err != nil {
			panic("compact: unexpected out-of-space repacking live records")
		}
	}
}

func mustPageSize(buf []byte) {
	if len(buf) != PageSize {
		panic("sp: buffer is not a 4096-byte page")
	}
}

func i16(buf []byte, off int) int16 { return int16(binary.LittleEndian.Uint16(buf[off:])) }
func i32(buf []byte, off int) int32 { return int32(binary.LittleEndian.Uint32(buf[off:])) }

func putI16(buf []byte, off int, v int16) { binary.LittleEndian.PutUint16(buf[off:], uint16(v)) }
func putI32(buf []byte, off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
