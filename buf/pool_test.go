package buf_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/buf"
	"github.com/toylabs/toypager/internal/common"
)

// memDisk is a tiny in-memory stand-in for a paged file, letting tests
// assert exactly when a physical read or write happens.
type memDisk struct {
	pages map[int64][]byte
}

func newMemDisk() *memDisk { return &memDisk{pages: make(map[int64][]byte)} }

func (d *memDisk) read(_ int, pageNo int64, dst []byte) error {
	if p, ok := d.pages[pageNo]; ok {
		copy(dst, p)
	}
	return nil
}

func (d *memDisk) write(_ int, pageNo int64, src []byte) error {
	cp := make([]byte, len(src))
	copy(cp, src)
	d.pages[pageNo] = cp
	return nil
}

func TestPool_AllocGetUnfix(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 4, PageSize: 16})

	data, err := p.Alloc(1, 0, disk.write)
	require.NoError(t, err)
	copy(data, []byte("hello world12345"))
	require.NoError(t, p.Unfix(1, 0, true))

	require.NoError(t, p.ReleaseFile(1, disk.write))
	require.Equal(t, []byte("hello world12345"), disk.pages[0])

	data2, err := p.Get(1, 0, disk.read, disk.write)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world12345"), data2)
	require.NoError(t, p.Unfix(1, 0, false))
}

func TestPool_GetAlreadyFixedStillReturnsData(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 4, PageSize: 16})

	data, err := p.Alloc(1, 0, disk.write)
	require.NoError(t, err)
	copy(data, []byte("0123456789abcdef"))

	data2, err := p.Get(1, 0, disk.read, disk.write)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrPageFixed))
	require.Equal(t, data, data2)
}

func TestPool_LRUEviction(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 2, PageSize: 8, Strategy: "lru"})

	for i := int64(0); i < 2; i++ {
		_, err := p.Alloc(1, i, disk.write)
		require.NoError(t, err)
		require.NoError(t, p.Unfix(1, i, false))
	}

	// Touch page 0 again so it becomes most-recently-used; page 1 becomes
	// the LRU victim once a third page is requested.
	_, err := p.Get(1, 0, disk.read, disk.write)
	require.NoError(t, err)
	require.NoError(t, p.Unfix(1, 0, false))

	_, err = p.Alloc(1, 2, disk.write)
	require.NoError(t, err)
	require.NoError(t, p.Unfix(1, 2, false))

	fixed, unfixed, free := p.FrameCounts()
	require.Equal(t, 0, fixed)
	require.Equal(t, 2, unfixed)
	require.Equal(t, 0, free)

	stats := p.Statistics()
	require.Equal(t, int64(1), stats.BufferHits)

	_, err = p.Get(1, 0, disk.read, disk.write)
	require.NoError(t, err)
	require.NoError(t, p.Unfix(1, 0, false))
	stats = p.Statistics()
	require.Equal(t, int64(2), stats.BufferHits, "page 0 should have survived the LRU eviction")
}

func TestPool_MRUEviction(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 2, PageSize: 8, Strategy: "mru"})

	for i := int64(0); i < 2; i++ {
		_, err := p.Alloc(1, i, disk.write)
		require.NoError(t, err)
		require.NoError(t, p.Unfix(1, i, false))
	}
	// Page 1 was touched last, so under MRU it is the next victim.
	_, err := p.Alloc(1, 2, disk.write)
	require.NoError(t, err)
	require.NoError(t, p.Unfix(1, 2, false))

	_, err = p.Get(1, 0, disk.read, disk.write)
	require.NoError(t, err)
	require.NoError(t, p.Unfix(1, 0, false))
	stats := p.Statistics()
	require.Equal(t, int64(1), stats.BufferHits, "page 0 should have survived the MRU eviction")
}

func TestPool_ReleaseFileFailsWhilePinned(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 2, PageSize: 8})
	_, err := p.Alloc(1, 0, disk.write)
	require.NoError(t, err)

	err = p.ReleaseFile(1, disk.write)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrPageFixed))
}

func TestPool_NoBufWhenAllFramesFixed(t *testing.T) {
	disk := newMemDisk()
	p := buf.NewPool(buf.Config{MaxBufs: 1, PageSize: 8})
	_, err := p.Alloc(1, 0, disk.write)
	require.NoError(t, err)

	_, err = p.Alloc(1, 1, disk.write)
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrNoBuf))
}
