package sp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/internal/testutil"
	"github.com/toylabs/toypager/pf"
	"github.com/toylabs/toypager/sp"
)

func TestComputeSpaceStatsAccountsForFragmentationAndUsage(t *testing.T) {
	dir := testutil.TempDir(t)
	mgr, err := pf.NewManager(pf.DefaultConfig(dir))
	require.NoError(t, err)

	name := testutil.ScratchName(".sp")
	require.NoError(t, mgr.CreateFile(name))
	fd, err := mgr.OpenFile(name)
	require.NoError(t, err)
	defer mgr.CloseFile(fd)

	pageNo, buf, err := mgr.AllocPage(fd)
	require.NoError(t, err)
	sp.Init(buf, int32(pageNo))
	_, err = sp.InsertRecord(buf, []byte("aaaa"))
	require.NoError(t, err)
	deadSlot, err := sp.InsertRecord(buf, []byte("bb"))
	require.NoError(t, err)
	require.NoError(t, sp.DeleteRecord(buf, deadSlot))
	require.NoError(t, mgr.UnfixPage(fd, pageNo, true))

	numPages, err := mgr.NumPages(fd)
	require.NoError(t, err)
	stats, err := sp.ComputeSpaceStats(mgr, fd, 0, int32(numPages))
	require.NoError(t, err)

	require.Equal(t, 1, stats.TotalPages)
	require.Equal(t, sp.PageSize, stats.TotalSpace)
	require.Equal(t, 4, stats.UsedSpace, "only the live 4-byte record counts")
	require.Equal(t, sp.HeaderSize, stats.HeaderOverhead)
	require.Equal(t, 1.0, stats.AvgRecordsPerPage)
	require.Greater(t, stats.UtilizationPct, 0.0)
	require.Less(t, stats.UtilizationPct, 1.0)
	require.Equal(t, stats.TotalSpace, stats.UsedSpace+stats.SlotOverhead+stats.HeaderOverhead+stats.FreeSpace+stats.FragmentedSpace)
}
