package am

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/toylabs/toypager/pf"
)

// BulkLoad builds a new index from entries in one pass: sort, pack leaves
// at FillFactor occupancy and chain them, then build each internal level
// bottom-up from the level below. This is the sorted bottom-up strategy;
// against one online InsertEntry call per key it trades incremental
// availability for doing every split decision once, up front, instead of
// splaying the tree through repeated page splits.
//
// Internal levels are built from a per-node "first key" array carried
// alongside each level's page numbers, not from the leftmost leaf's own
// first key re-derived after the fact: a node's first separator going up
// must be the first key of its own leftmost child, which for anything but
// the very first node in a level is not the same value that was used to
// split it from its own left sibling one level down.
func BulkLoad(mgr *pf.Manager, name string, idxNo int, attrLen int16, entries []Entry) (*Index, error) {
	fname := indexFileName(name, idxNo)
	if err := mgr.CreateFile(fname); err != nil {
		return nil, err
	}
	fd, err := mgr.OpenFile(fname)
	if err != nil {
		return nil, err
	}

	hdrPage, hdrBuf, err := mgr.AllocPage(fd)
	if err != nil {
		return nil, err
	}
	if hdrPage != headerPageNumber {
		return nil, errors.Errorf("am: expected header at page 0, got %d", hdrPage)
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})

	var rootPage int32
	var height int32

	if len(sorted) == 0 {
		rp, rootBuf, err := mgr.AllocPage(fd)
		if err != nil {
			return nil, err
		}
		InitLeaf(rootBuf, attrLen)
		if err := mgr.UnfixPage(fd, rp, true); err != nil {
			return nil, err
		}
		rootPage, height = int32(rp), 1
	} else {
		rootPage, height, err = buildFromSorted(mgr, fd, attrLen, sorted)
		if err != nil {
			return nil, err
		}
	}

	writeHeader(hdrBuf, rootPage, height, attrLen, int32(len(sorted)))
	if err := mgr.UnfixPage(fd, hdrPage, true); err != nil {
		return nil, err
	}

	return &Index{
		mgr:      mgr,
		fd:       fd,
		attrLen:  attrLen,
		rootPage: rootPage,
		height:   height,
		numKeys:  int32(len(sorted)),
		log:      logrus.WithFields(logrus.Fields{"component": "am", "index": name}),
	}, nil
}

func buildFromSorted(mgr *pf.Manager, fd int, attrLen int16, sorted []Entry) (rootPage int32, height int32, err error) {
	fill := int(FillFactor(attrLen))
	if fill < 1 {
		fill = 1
	}

	var leafPages []int32
	var firsts [][]byte
	prevLeaf := int32(-1)

	for i := 0; i < len(sorted); {
		end := i + fill
		if end > len(sorted) {
			end = len(sorted)
		}
		chunk := sorted[i:end]

		pageNo, buf, aerr := mgr.AllocPage(fd)
		if aerr != nil {
			return 0, 0, aerr
		}
		InitLeaf(buf, attrLen)
		for k, e := range chunk {
			LeafInsertAt(buf, int16(k), e.Key, PackRecordID(e.Rid))
		}
		SetLeafNextPage(buf, -1)
		page := int32(pageNo)
		if err := mgr.UnfixPage(fd, pageNo, true); err != nil {
			return 0, 0, err
		}

		if prevLeaf != -1 {
			pbuf, gerr := mgr.GetThisPage(fd, int64(prevLeaf))
			if gerr != nil {
				return 0, 0, gerr
			}
			SetLeafNextPage(pbuf, page)
			if err := mgr.UnfixPage(fd, int64(prevLeaf), true); err != nil {
				return 0, 0, err
			}
		}

		leafPages = append(leafPages, page)
		firsts = append(firsts, append([]byte(nil), chunk[0].Key...))
		prevLeaf = page
		i = end
	}

	children := leafPages
	childFirsts := firsts
	height = 1
	maxChildren := int(maxPerInternal(attrLen)) + 1

	for len(children) > 1 {
		var nextChildren []int32
		var nextFirsts [][]byte

		for idx := 0; idx < len(children); {
			groupSize := maxChildren
			if idx+groupSize > len(children) {
				groupSize = len(children) - idx
			}
			group := children[idx : idx+groupSize]
			groupFirsts := childFirsts[idx : idx+groupSize]

			pageNo, buf, aerr := mgr.AllocPage(fd)
			if aerr != nil {
				return 0, 0, aerr
			}
			InitInternal(buf, attrLen, group[0])
			for g := 1; g < len(group); g++ {
				InternalInsertAt(buf, int16(g), groupFirsts[g], group[g])
			}
			if err := mgr.UnfixPage(fd, pageNo, true); err != nil {
				return 0, 0, err
			}

			nextChildren = append(nextChildren, int32(pageNo))
			nextFirsts = append(nextFirsts, groupFirsts[0])
			idx += groupSize
		}

		children = nextChildren
		childFirsts = nextFirsts
		height++
	}

	return children[0], height, nil
}
