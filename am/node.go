// Package am implements the access-method layer: a B+ tree secondary
// index over fixed-width byte keys, mapping to RecordIDs in the paged
// record files built on pf/sp. Two construction paths are supported:
// online insertion (InsertEntry, which also backs scan-and-insert, driven
// by repeated calls from an external scan) and a sorted bottom-up
// bulk-loader that is the centerpiece of this layer.
//
// Node encode/decode is grounded on the cell-based page in btree/node.go
// and btree/page.go, generalized from a single sorted cell array to
// separate leaf/internal tag-byte layouts and fixed (not varint) key
// widths.
package am

import (
	"bytes"
	"encoding/binary"

	"github.com/toylabs/toypager/sp"
)

const (
	// PageSize is the AM layer's own page payload size. It is smaller
	// than the 4 KiB PF/SP page: every B+ tree node occupies one full PF
	// page but only uses its first PageSize bytes, a layer-internal
	// constant that just needs to stay fixed once chosen.
	PageSize = 1020

	TagLeaf     byte = 'L' // 0x4C
	TagInternal byte = 'I' // 0x49

	leafHeaderSize     = 1 + 4 + 4*2 + 2 + 2 + 2 // 19
	internalHeaderSize = 1 + 2 + 2 + 2            // 7

	leafOffTag      = 0
	leafOffNextLeaf = 1
	leafOffReserved = 5 // 4 reserved int16 slots, 8 bytes
	leafOffAttrLen  = 13
	leafOffNumKeys  = 15
	leafOffMaxKeys  = 17

	intOffTag     = 0
	intOffNumKeys = 1
	intOffMaxKeys = 3
	intOffAttrLen = 5

	recIDSize = 4 // RecordID packed into a single int32
)

// PackRecordID encodes a (pageNum, slotNum) pair into the single int32
// an index's on-disk entries store. This assumes both page numbers and
// slot numbers fit in 16 bits, true for any file under 65536 pages of up
// to 65536 slots each.
func PackRecordID(rid sp.RecordID) int32 {
	return int32(uint32(rid.PageNum)<<16 | uint32(uint16(rid.SlotNum)))
}

// UnpackRecordID reverses PackRecordID.
func UnpackRecordID(v int32) sp.RecordID {
	u := uint32(v)
	return sp.RecordID{
		PageNum: int32(u >> 16),
		SlotNum: int16(u & 0xFFFF),
	}
}

// InitLeaf formats buf (a 4 KiB PF page) as an empty leaf node.
func InitLeaf(buf []byte, attrLen int16) {
	mustPage(buf)
	for i := 0; i < PageSize; i++ {
		buf[i] = 0
	}
	buf[leafOffTag] = TagLeaf
	putI32(buf, leafOffNextLeaf, -1)
	putI16(buf, leafOffAttrLen, attrLen)
	putI16(buf, leafOffNumKeys, 0)
	putI16(buf, leafOffMaxKeys, maxPerLeaf(attrLen))
}

// InitInternal formats buf as an empty internal node with a single
// leftmost child.
func InitInternal(buf []byte, attrLen int16, leftmostChild int32) {
	mustPage(buf)
	for i := 0; i < PageSize; i++ {
		buf[i] = 0
	}
	buf[intOffTag] = TagInternal
	putI16(buf, intOffNumKeys, 0)
	putI16(buf, intOffMaxKeys, maxPerInternal(attrLen))
	putI16(buf, intOffAttrLen, attrLen)
	putI32(buf, internalHeaderSize, leftmostChild)
}

// IsLeaf reports whether buf holds a leaf node.
func IsLeaf(buf []byte) bool { return buf[0] == TagLeaf }

// maxPerLeaf is the leaf fanout: (PageSize-leaf_hdr)/leaf_entry.
func maxPerLeaf(attrLen int16) int16 {
	entry := int(attrLen) + recIDSize
	return int16((PageSize - leafHeaderSize) / entry)
}

// maxPerInternal is the internal fanout: (PageSize-int_hdr-4)/int_entry,
// the extra 4 being the leftmost child pointer with no preceding
// separator key.
func maxPerInternal(attrLen int16) int16 {
	entry := int(attrLen) + 4
	return int16((PageSize - internalHeaderSize - 4) / entry)
}

// FillFactor is floor(0.90 * max_per_leaf), the bulk-loader's target leaf
// occupancy.
func FillFactor(attrLen int16) int16 {
	return int16(float64(maxPerLeaf(attrLen)) * 0.90)
}

// --- leaf accessors ---

func leafAttrLen(buf []byte) int16 { return i16(buf, leafOffAttrLen) }

// LeafNumKeys returns the number of entries currently stored in the leaf.
func LeafNumKeys(buf []byte) int16 { return i16(buf, leafOffNumKeys) }

func leafMaxKeys(buf []byte) int16 { return i16(buf, leafOffMaxKeys) }

// LeafNextPage returns the page number of the next leaf in ascending key
// order, or -1 for the last leaf.
func LeafNextPage(buf []byte) int32 { return i32(buf, leafOffNextLeaf) }

// SetLeafNextPage sets the forward leaf-chain link.
func SetLeafNextPage(buf []byte, next int32) { putI32(buf, leafOffNextLeaf, next) }

func leafEntryOffset(attrLen, i int16) int {
	return leafHeaderSize + int(i)*(int(attrLen)+recIDSize)
}

// LeafKeyAt returns the key of the i-th entry.
func LeafKeyAt(buf []byte, i int16) []byte {
	al := leafAttrLen(buf)
	off := leafEntryOffset(al, i)
	return append([]byte(nil), buf[off:off+int(al)]...)
}

// LeafRecIDAt returns the packed RecordID of the i-th entry.
func LeafRecIDAt(buf []byte, i int16) int32 {
	al := leafAttrLen(buf)
	off := leafEntryOffset(al, i) + int(al)
	return i32(buf, off)
}

// LeafInsertAt inserts (key, rid) as the i-th entry, shifting later
// entries right. Caller must ensure LeafNumKeys(buf) < leafMaxKeys(buf)
// before calling.
func LeafInsertAt(buf []byte, i int16, key []byte, rid int32) {
	al := leafAttrLen(buf)
	n := LeafNumKeys(buf)
	entrySize := int(al) + recIDSize

	for j := n; j > i; j-- {
		srcOff := leafEntryOffset(al, j-1)
		dstOff := leafEntryOffset(al, j)
		copy(buf[dstOff:dstOff+entrySize], buf[srcOff:srcOff+entrySize])
	}

	off := leafEntryOffset(al, i)
	copy(buf[off:off+int(al)], key)
	putI32(buf, off+int(al), rid)
	putI16(buf, leafOffNumKeys, n+1)
}

// LeafFindInsertPos returns the position the first entry with key >=
// target occupies (a stable insertion point that preserves ascending
// order under duplicate keys).
func LeafFindInsertPos(buf []byte, target []byte) int16 {
	n := LeafNumKeys(buf)
	lo, hi := int16(0), n
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(LeafKeyAt(buf, mid), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// LeafSearch returns the first entry equal to target, if any.
func LeafSearch(buf []byte, target []byte) (sp.RecordID, bool) {
	n := LeafNumKeys(buf)
	pos := LeafFindInsertPos(buf, target)
	if pos < n && bytes.Equal(LeafKeyAt(buf, pos), target) {
		return UnpackRecordID(LeafRecIDAt(buf, pos)), true
	}
	return sp.RecordID{}, false
}

// --- internal accessors ---

func internalAttrLen(buf []byte) int16 { return i16(buf, intOffAttrLen) }

// InternalNumKeys returns the number of separator keys.
func InternalNumKeys(buf []byte) int16 { return i16(buf, intOffNumKeys) }

func internalMaxKeys(buf []byte) int16 { return i16(buf, intOffMaxKeys) }

func internalChildOffset(attrLen, i int16) int {
	// child_0 sits right after the header; child_i (i>0) follows key_i.
	return internalHeaderSize + int(i)*(int(attrLen)+4)
}

func internalKeyOffset(attrLen, i int16) int {
	// key_i sits just before child_i, for i in [1, numKeys].
	return internalChildOffset(attrLen, i) - int(attrLen)
}

// InternalChildAt returns child_i, for i in [0, numKeys].
func InternalChildAt(buf []byte, i int16) int32 {
	al := internalAttrLen(buf)
	return i32(buf, internalChildOffset(al, i))
}

// InternalKeyAt returns separator key k_i, for i in [1, numKeys].
func InternalKeyAt(buf []byte, i int16) []byte {
	al := internalAttrLen(buf)
	off := internalKeyOffset(al, i)
	return append([]byte(nil), buf[off:off+int(al)]...)
}

// InternalFindChild finds the smallest i such that key < k_{i+1}
// (treating k_{numKeys+1} as +inf) and returns child_i.
func InternalFindChild(buf []byte, key []byte) int32 {
	n := InternalNumKeys(buf)
	i := int16(0)
	for i < n && bytes.Compare(key, InternalKeyAt(buf, i+1)) >= 0 {
		i++
	}
	return InternalChildAt(buf, i)
}

// InternalInsertAt inserts separator key k at position pos (1-indexed
// among keys) with the child it introduces, shifting later (key, child)
// pairs right. Caller must ensure InternalNumKeys(buf) < internalMaxKeys.
func InternalInsertAt(buf []byte, pos int16, key []byte, child int32) {
	al := internalAttrLen(buf)
	n := InternalNumKeys(buf)

	for j := n; j >= pos; j-- {
		srcKeyOff := internalKeyOffset(al, j)
		dstKeyOff := internalKeyOffset(al, j+1)
		copy(buf[dstKeyOff:dstKeyOff+int(al)], buf[srcKeyOff:srcKeyOff+int(al)])
		srcChildOff := internalChildOffset(al, j)
		dstChildOff := internalChildOffset(al, j+1)
		putI32(buf, dstChildOff, i32(buf, srcChildOff))
	}

	keyOff := internalKeyOffset(al, pos)
	copy(buf[keyOff:keyOff+int(al)], key)
	putI32(buf, internalChildOffset(al, pos), child)
	putI16(buf, intOffNumKeys, n+1)
}

// InternalFindChildPos returns the index i such that InternalChildAt(i)
// equals child, or -1.
func InternalFindChildPos(buf []byte, child int32) int16 {
	n := InternalNumKeys(buf)
	for i := int16(0); i <= n; i++ {
		if InternalChildAt(buf, i) == child {
			return i
		}
	}
	return -1
}

func mustPage(buf []byte) {
	if len(buf) < PageSize {
		panic("am: buffer smaller than AM page payload")
	}
}

func i16(buf []byte, off int) int16 { return int16(binary.LittleEndian.Uint16(buf[off:])) }
func i32(buf []byte, off int) int32 { return int32(binary.LittleEndian.Uint32(buf[off:])) }

func putI16(buf []byte, off int, v int16) { binary.LittleEndian.PutUint16(buf[off:], uint16(v)) }
func putI32(buf []byte, off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
