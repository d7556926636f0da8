package am_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/am"
	"github.com/toylabs/toypager/sp"
)

func TestPackUnpackRecordIDRoundTrip(t *testing.T) {
	rid := sp.RecordID{PageNum: 1234, SlotNum: 56}
	packed := am.PackRecordID(rid)
	got := am.UnpackRecordID(packed)
	require.Equal(t, rid, got)
}

func TestPackUnpackRecordIDNegativeSlotBits(t *testing.T) {
	// SlotNum's top bit must not bleed into PageNum on unpack.
	rid := sp.RecordID{PageNum: 7, SlotNum: -1}
	got := am.UnpackRecordID(am.PackRecordID(rid))
	require.Equal(t, rid, got)
}

func TestLeafInsertAtKeepsAscendingOrder(t *testing.T) {
	buf := make([]byte, am.PageSize)
	am.InitLeaf(buf, 4)

	am.LeafInsertAt(buf, 0, []byte{0, 0, 0, 10}, 1)
	pos := am.LeafFindInsertPos(buf, []byte{0, 0, 0, 20})
	am.LeafInsertAt(buf, pos, []byte{0, 0, 0, 20}, 2)
	pos = am.LeafFindInsertPos(buf, []byte{0, 0, 0, 5})
	am.LeafInsertAt(buf, pos, []byte{0, 0, 0, 5}, 3)

	require.Equal(t, int16(3), am.LeafNumKeys(buf))
	require.Equal(t, []byte{0, 0, 0, 5}, am.LeafKeyAt(buf, 0))
	require.Equal(t, []byte{0, 0, 0, 10}, am.LeafKeyAt(buf, 1))
	require.Equal(t, []byte{0, 0, 0, 20}, am.LeafKeyAt(buf, 2))
}

func TestLeafSearchFindsExactMatchOnly(t *testing.T) {
	buf := make([]byte, am.PageSize)
	am.InitLeaf(buf, 4)
	am.LeafInsertAt(buf, 0, []byte{0, 0, 0, 1}, am.PackRecordID(sp.RecordID{PageNum: 9, SlotNum: 2}))

	rid, found := am.LeafSearch(buf, []byte{0, 0, 0, 1})
	require.True(t, found)
	require.Equal(t, sp.RecordID{PageNum: 9, SlotNum: 2}, rid)

	_, found = am.LeafSearch(buf, []byte{0, 0, 0, 2})
	require.False(t, found)
}

func TestInternalInsertAndFindChild(t *testing.T) {
	buf := make([]byte, am.PageSize)
	am.InitInternal(buf, 4, 100)

	am.InternalInsertAt(buf, 1, []byte{0, 0, 0, 10}, 200)
	am.InternalInsertAt(buf, 2, []byte{0, 0, 0, 20}, 300)

	require.Equal(t, int16(2), am.InternalNumKeys(buf))
	require.Equal(t, int32(100), am.InternalChildAt(buf, 0))
	require.Equal(t, int32(200), am.InternalChildAt(buf, 1))
	require.Equal(t, int32(300), am.InternalChildAt(buf, 2))

	require.Equal(t, int32(100), am.InternalFindChild(buf, []byte{0, 0, 0, 5}))
	require.Equal(t, int32(200), am.InternalFindChild(buf, []byte{0, 0, 0, 10}))
	require.Equal(t, int32(200), am.InternalFindChild(buf, []byte{0, 0, 0, 15}))
	require.Equal(t, int32(300), am.InternalFindChild(buf, []byte{0, 0, 0, 20}))
	require.Equal(t, int32(300), am.InternalFindChild(buf, []byte{0, 0, 0, 99}))
}

func TestInternalFindChildPos(t *testing.T) {
	buf := make([]byte, am.PageSize)
	am.InitInternal(buf, 4, 1)
	am.InternalInsertAt(buf, 1, []byte{0, 0, 0, 1}, 2)
	am.InternalInsertAt(buf, 2, []byte{0, 0, 0, 2}, 3)

	require.Equal(t, int16(0), am.InternalFindChildPos(buf, 1))
	require.Equal(t, int16(1), am.InternalFindChildPos(buf, 2))
	require.Equal(t, int16(2), am.InternalFindChildPos(buf, 3))
	require.Equal(t, int16(-1), am.InternalFindChildPos(buf, 999))
}

func TestFillFactorIsNinetyPercentOfCapacity(t *testing.T) {
	ff := am.FillFactor(4)
	require.Greater(t, ff, int16(0))
	// (1020-19)/(4+4) = 125 entries per leaf; 90% of that, floored, is 112.
	require.Equal(t, int16(112), ff)
	// Filling leaves at FillFactor must never exceed the leaf's real capacity.
	buf := make([]byte, am.PageSize)
	am.InitLeaf(buf, 4)
	for i := int16(0); i < ff; i++ {
		pos := am.LeafFindInsertPos(buf, []byte{0, 0, byte(i >> 8), byte(i)})
		am.LeafInsertAt(buf, pos, []byte{0, 0, byte(i >> 8), byte(i)}, int32(i))
	}
	require.Equal(t, ff, am.LeafNumKeys(buf))
}
