package recfile_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/internal/testutil"
	"github.com/toylabs/toypager/pf"
	"github.com/toylabs/toypager/recfile"
)

func newManager(t *testing.T) *pf.Manager {
	t.Helper()
	dir := testutil.TempDir(t)
	mgr, err := pf.NewManager(pf.DefaultConfig(dir))
	require.NoError(t, err)
	return mgr
}

func TestFileInsertGetDelete(t *testing.T) {
	mgr := newManager(t)
	name := testutil.ScratchName(".rf")
	require.NoError(t, recfile.Create(mgr, name))

	rf, err := recfile.Open(mgr, name, recfile.StudentCodec{})
	require.NoError(t, err)
	defer rf.Close()

	rid, err := rf.Insert(recfile.Record{RollNo: "7", Name: "Grace Hopper", JoinYr: 1940})
	require.NoError(t, err)

	got, err := rf.Get(rid)
	require.NoError(t, err)
	require.Equal(t, "Grace Hopper", got.Name)
	require.Equal(t, "7", got.RollNo)
	require.Equal(t, int32(1940), got.JoinYr)

	require.NoError(t, rf.Delete(rid))
	_, err = rf.Get(rid)
	require.Error(t, err)
}

func TestFileInsertReusesFreeSpaceBeforeAllocatingNewPage(t *testing.T) {
	mgr := newManager(t)
	name := testutil.ScratchName(".rf")
	require.NoError(t, recfile.Create(mgr, name))

	rf, err := recfile.Open(mgr, name, recfile.StudentCodec{})
	require.NoError(t, err)
	defer rf.Close()

	first, err := rf.Insert(recfile.Record{RollNo: "1", Name: "A"})
	require.NoError(t, err)

	second, err := rf.Insert(recfile.Record{RollNo: "2", Name: "B"})
	require.NoError(t, err)

	require.Equal(t, first.PageNum, second.PageNum, "second insert should land on the same data page while space remains")
}

func TestFileScanYieldsAllLiveRecords(t *testing.T) {
	mgr := newManager(t)
	name := testutil.ScratchName(".rf")
	require.NoError(t, recfile.Create(mgr, name))

	rf, err := recfile.Open(mgr, name, recfile.StudentCodec{})
	require.NoError(t, err)
	defer rf.Close()

	const n = 50
	for i := 0; i < n; i++ {
		_, err := rf.Insert(recfile.Record{RollNo: fmt.Sprintf("%d", i), Name: "student"})
		require.NoError(t, err)
	}

	scan, err := rf.Scan()
	require.NoError(t, err)
	defer scan.Close()

	seen := make(map[string]bool)
	for {
		rec, _, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[rec.RollNo] = true
	}
	require.Len(t, seen, n)
}

func TestFileSpaceStatsReflectsLiveAndFreeSpace(t *testing.T) {
	mgr := newManager(t)
	name := testutil.ScratchName(".rf")
	require.NoError(t, recfile.Create(mgr, name))

	rf, err := recfile.Open(mgr, name, recfile.StudentCodec{})
	require.NoError(t, err)
	defer rf.Close()

	rid, err := rf.Insert(recfile.Record{RollNo: "1", Name: "A"})
	require.NoError(t, err)

	stats, err := rf.SpaceStats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalPages)
	require.Greater(t, stats.UsedSpace, 0)
	require.Greater(t, stats.UtilizationPct, 0.0)

	require.NoError(t, rf.Delete(rid))
	afterDelete, err := rf.SpaceStats()
	require.NoError(t, err)
	require.Equal(t, 0, afterDelete.UsedSpace)
}
