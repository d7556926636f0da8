package sp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/internal/testutil"
	"github.com/toylabs/toypager/pf"
	"github.com/toylabs/toypager/sp"
)

func TestScanWalksEveryLiveRecordAcrossPages(t *testing.T) {
	dir := testutil.TempDir(t)
	mgr, err := pf.NewManager(pf.DefaultConfig(dir))
	require.NoError(t, err)

	name := testutil.ScratchName(".sp")
	require.NoError(t, mgr.CreateFile(name))
	fd, err := mgr.OpenFile(name)
	require.NoError(t, err)
	defer mgr.CloseFile(fd)

	var ids []sp.RecordID
	for page := 0; page < 3; page++ {
		pageNo, buf, err := mgr.AllocPage(fd)
		require.NoError(t, err)
		sp.Init(buf, int32(pageNo))
		for rec := 0; rec < 2; rec++ {
			slot, err := sp.InsertRecord(buf, []byte{byte(page), byte(rec)})
			require.NoError(t, err)
			ids = append(ids, sp.RecordID{PageNum: int32(pageNo), SlotNum: slot})
		}
		require.NoError(t, mgr.UnfixPage(fd, pageNo, true))
	}

	// Delete one record mid-file; the scan must skip its tombstone.
	buf, err := mgr.GetThisPage(fd, 1)
	require.NoError(t, err)
	require.NoError(t, sp.DeleteRecord(buf, 0))
	require.NoError(t, mgr.UnfixPage(fd, 1, true))

	numPages, err := mgr.NumPages(fd)
	require.NoError(t, err)
	scan := sp.OpenScan(mgr, fd, 0, int32(numPages))
	defer scan.Close()

	var seen int
	for {
		_, _, ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen++
	}
	require.Equal(t, 5, seen, "6 inserted minus 1 deleted")
}
