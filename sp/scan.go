package sp

import "github.com/toylabs/toypager/pf"

// RecordID identifies a record by the page it lives on and its slot
// within that page. It is stable across its page's lifetime but is
// invalidated by a Compact of that page.
type RecordID struct {
	PageNum int32
	SlotNum int16
}

// Scan walks every live record of a paged file in (page, slot) order,
// routing page access through the pf.Manager/buf.Pool stack rather than
// reading the file directly, so scans participate in the same pinning
// and replacement bookkeeping as every other access path.
type Scan struct {
	mgr      *pf.Manager
	fd       int
	curPage  int32
	curSlot  int16
	numPages int32
}

// OpenScan begins a scan over fd, covering page numbers [firstDataPage,
// totalPages). firstDataPage lets callers skip any leading pages that
// hold layer-specific metadata rather than records.
func OpenScan(mgr *pf.Manager, fd int, firstDataPage, totalPages int32) *Scan {
	return &Scan{
		mgr:      mgr,
		fd:       fd,
		curPage:  firstDataPage,
		curSlot:  0,
		numPages: totalPages,
	}
}

// Next returns the next live record and its id, or ok=false once the scan
// is exhausted.
func (s *Scan) Next() (rec []byte, rid RecordID, ok bool, err error) {
	for s.curPage < s.numPages {
		buf, gerr := s.mgr.GetThisPage(s.fd, int64(s.curPage))
		if gerr != nil {
			return nil, RecordID{}, false, gerr
		}

		numSlots := NumSlots(buf)
		for s.curSlot < numSlots {
			slot := s.curSlot
			s.curSlot++
			if !Live(buf, slot) {
				continue
			}
			rec, _ = GetRecord(buf, slot)
			rid = RecordID{PageNum: s.curPage, SlotNum: slot}
			if uerr := s.mgr.UnfixPage(s.fd, int64(s.curPage), false); uerr != nil {
				return nil, RecordID{}, false, uerr
			}
			return rec, rid, true, nil
		}

		if uerr := s.mgr.UnfixPage(s.fd, int64(s.curPage), false); uerr != nil {
			return nil, RecordID{}, false, uerr
		}
		s.curPage++
		s.curSlot = 0
	}
	return nil, RecordID{}, false, nil
}

// Close releases any resources held by the scan. There is nothing to pin
// between calls to Next, so this is a no-op kept for symmetry with
// SP_CloseScan.
func (s *Scan) Close() {}
