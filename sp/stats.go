package sp

import "github.com/toylabs/toypager/pf"

// SpaceStats summarizes how a range of slotted pages has its bytes
// divided between live records, slot-directory overhead, page headers,
// contiguous free space and delete-fragmentation.
//
// Grounded on SF_GetSpaceStats (original_source/objective2/student_file.c,
// via student_file.h's SpaceStats struct), which the original's own
// benchmark driver (test_objective2_final.c) prints as its headline
// utilization metric. Ported here at the sp layer instead of recfile's
// since every field is derived purely from slotted-page headers and slot
// directories, with no dependency on a particular record schema.
type SpaceStats struct {
	TotalPages        int
	TotalSpace        int
	UsedSpace         int
	SlotOverhead      int
	HeaderOverhead    int
	FreeSpace         int
	FragmentedSpace   int
	UtilizationPct    float64
	AvgRecordsPerPage float64
}

// ComputeSpaceStats walks pages [firstDataPage, totalPages) of fd through
// mgr, tallying per-page header/slot/used/free space into one report.
func ComputeSpaceStats(mgr *pf.Manager, fd int, firstDataPage, totalPages int32) (SpaceStats, error) {
	var stats SpaceStats
	stats.TotalPages = int(totalPages - firstDataPage)
	if stats.TotalPages < 0 {
		stats.TotalPages = 0
	}
	stats.TotalSpace = stats.TotalPages * PageSize
	stats.HeaderOverhead = stats.TotalPages * HeaderSize

	numRecords := 0
	for pageNo := firstDataPage; pageNo < totalPages; pageNo++ {
		buf, err := mgr.GetThisPage(fd, int64(pageNo))
		if err != nil {
			return SpaceStats{}, err
		}

		numSlots := NumSlots(buf)
		stats.SlotOverhead += int(numSlots) * slotSize
		stats.FreeSpace += int(FreeSpaceOffset(buf)) - slotDirStart - int(numSlots)*slotSize

		for i := int16(0); i < numSlots; i++ {
			if Live(buf, i) {
				_, length := slotAt(buf, i)
				stats.UsedSpace += int(length)
				numRecords++
			}
		}

		if err := mgr.UnfixPage(fd, int64(pageNo), false); err != nil {
			return SpaceStats{}, err
		}
	}

	stats.FragmentedSpace = stats.TotalSpace - stats.UsedSpace - stats.SlotOverhead -
		stats.HeaderOverhead - stats.FreeSpace

	if stats.TotalSpace > 0 {
		stats.UtilizationPct = float64(stats.UsedSpace) / float64(stats.TotalSpace) * 100
	}
	if stats.TotalPages > 0 {
		stats.AvgRecordsPerPage = float64(numRecords) / float64(stats.TotalPages)
	}

	return stats, nil
}
