package am_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/am"
	"github.com/toylabs/toypager/sp"
)

func TestBulkLoadProducesSearchableSortedIndex(t *testing.T) {
	mgr := newManager(t)

	const n = 1000
	entries := make([]am.Entry, n)
	// Feed entries out of order to confirm BulkLoad sorts them itself.
	for i := 0; i < n; i++ {
		k := (i * 7919) % n
		entries[i] = am.Entry{Key: keyOf(int32(k)), Rid: sp.RecordID{PageNum: int32(k)}}
	}

	idx, err := am.BulkLoad(mgr, "bulk", 1, 4, entries)
	require.NoError(t, err)
	defer idx.Close()

	require.Equal(t, int32(n), idx.NumKeys())

	for i := int32(0); i < n; i++ {
		rid, found, err := idx.Search(keyOf(i))
		require.NoError(t, err)
		require.True(t, found, "key %d missing after bulk load", i)
		require.Equal(t, i, rid.PageNum)
	}
}

func TestBulkLoadLeafChainYieldsFullSortedScan(t *testing.T) {
	mgr := newManager(t)

	const n = 3000
	entries := make([]am.Entry, n)
	for i := 0; i < n; i++ {
		entries[i] = am.Entry{Key: keyOf(int32(n - 1 - i)), Rid: sp.RecordID{PageNum: int32(n - 1 - i)}}
	}

	idx, err := am.BulkLoad(mgr, "bulk2", 2, 4, entries)
	require.NoError(t, err)
	defer idx.Close()

	require.Greater(t, idx.Height(), int32(1), "3000 entries must need an internal level above the leaves")

	scan, err := idx.OpenScan(nil, nil)
	require.NoError(t, err)
	defer scan.Close()

	var prev int32 = -1
	count := 0
	for {
		k, _, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		cur := int32(0)
		for _, b := range k {
			cur = cur<<8 | int32(b)
		}
		require.Greater(t, cur, prev, "leaf chain must yield strictly increasing keys")
		prev = cur
		count++
	}
	require.Equal(t, n, count)
}
