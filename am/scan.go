package am

import (
	"bytes"

	"github.com/toylabs/toypager/sp"
)

// IndexScan walks an index's leaf chain in ascending key order between two
// optional bounds. A nil bound is unbounded on that side. This is not part
// of the online/bulk-load construction strategies; it supplements them
// with a range cursor: one descent to the leaf holding the low bound, then
// a forward walk of the leaf chain.
type IndexScan struct {
	ix      *Index
	highKey []byte
	curPage int32
	curPos  int16
	done    bool
}

// OpenScan returns a cursor over all entries with lowKey <= key <= highKey.
// Either bound may be nil.
func (ix *Index) OpenScan(lowKey, highKey []byte) (*IndexScan, error) {
	var leafPage int32
	if lowKey == nil {
		page := ix.rootPage
		for {
			buf, err := ix.mgr.GetThisPage(ix.fd, int64(page))
			if err != nil {
				return nil, err
			}
			leaf := IsLeaf(buf)
			var next int32
			if !leaf {
				next = InternalChildAt(buf, 0)
			}
			if err := ix.mgr.UnfixPage(ix.fd, int64(page), false); err != nil {
				return nil, err
			}
			if leaf {
				leafPage = page
				break
			}
			page = next
		}
	} else {
		_, lp, err := ix.descend(lowKey)
		if err != nil {
			return nil, err
		}
		leafPage = lp
	}

	pos := int16(0)
	if lowKey != nil {
		buf, err := ix.mgr.GetThisPage(ix.fd, int64(leafPage))
		if err != nil {
			return nil, err
		}
		pos = LeafFindInsertPos(buf, lowKey)
		if err := ix.mgr.UnfixPage(ix.fd, int64(leafPage), false); err != nil {
			return nil, err
		}
	}

	return &IndexScan{ix: ix, highKey: highKey, curPage: leafPage, curPos: pos}, nil
}

// Next returns the next (key, RecordID) pair in range, or ok=false once the
// scan passes highKey or runs off the end of the leaf chain.
func (s *IndexScan) Next() (key []byte, rid sp.RecordID, ok bool, err error) {
	if s.done {
		return nil, sp.RecordID{}, false, nil
	}
	for s.curPage != -1 {
		buf, gerr := s.ix.mgr.GetThisPage(s.ix.fd, int64(s.curPage))
		if gerr != nil {
			return nil, sp.RecordID{}, false, gerr
		}
		n := LeafNumKeys(buf)
		if s.curPos < n {
			k := LeafKeyAt(buf, s.curPos)
			if s.highKey != nil && bytes.Compare(k, s.highKey) > 0 {
				s.done = true
				if uerr := s.ix.mgr.UnfixPage(s.ix.fd, int64(s.curPage), false); uerr != nil {
					return nil, sp.RecordID{}, false, uerr
				}
				return nil, sp.RecordID{}, false, nil
			}
			foundRid := UnpackRecordID(LeafRecIDAt(buf, s.curPos))
			s.curPos++
			if uerr := s.ix.mgr.UnfixPage(s.ix.fd, int64(s.curPage), false); uerr != nil {
				return nil, sp.RecordID{}, false, uerr
			}
			return k, foundRid, true, nil
		}
		next := LeafNextPage(buf)
		if uerr := s.ix.mgr.UnfixPage(s.ix.fd, int64(s.curPage), false); uerr != nil {
			return nil, sp.RecordID{}, false, uerr
		}
		s.curPage = next
		s.curPos = 0
	}
	s.done = true
	return nil, sp.RecordID{}, false, nil
}

// Close releases any resources held by the scan. There is nothing pinned
// between calls to Next, so this is a no-op kept for symmetry with Scan.
func (s *IndexScan) Close() {}
