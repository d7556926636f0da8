package am

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/toylabs/toypager/internal/common"
	"github.com/toylabs/toypager/pf"
	"github.com/toylabs/toypager/sp"
)

const (
	amHdrOffRoot     = 0  // int32
	amHdrOffHeight   = 4  // int32
	amHdrOffAttrLen  = 8  // int16
	amHdrOffNumKeys  = 10 // int32
	headerPageNumber = 0
)

// Entry pairs a fixed-width key with the record it points to, the unit
// both InsertEntry and BulkLoad operate on.
type Entry struct {
	Key []byte
	Rid sp.RecordID
}

// Index is an open B+ tree secondary index: a paged file of leaf and
// internal nodes plus a dedicated header page (page 0) recording the
// root, height and key width. Both CreateIndex/InsertEntry and BulkLoad
// maintain this header.
type Index struct {
	mgr      *pf.Manager
	fd       int
	attrLen  int16
	rootPage int32
	height   int32
	numKeys  int32
	log      *logrus.Entry
}

func indexFileName(name string, idxNo int) string {
	return fmt.Sprintf("%s.%d.idx", name, idxNo)
}

// CreateIndex creates an empty index file named "<name>.<idxNo>.idx" with
// a single empty leaf root.
func CreateIndex(mgr *pf.Manager, name string, idxNo int, attrLen int16) error {
	fname := indexFileName(name, idxNo)
	if err := mgr.CreateFile(fname); err != nil {
		return err
	}
	fd, err := mgr.OpenFile(fname)
	if err != nil {
		return err
	}
	defer mgr.CloseFile(fd)

	hdrPage, hdrBuf, err := mgr.AllocPage(fd)
	if err != nil {
		return err
	}
	if hdrPage != headerPageNumber {
		return errors.Errorf("am: expected header at page 0, got %d", hdrPage)
	}

	rootPage, rootBuf, err := mgr.AllocPage(fd)
	if err != nil {
		return err
	}
	InitLeaf(rootBuf, attrLen)
	if err := mgr.UnfixPage(fd, rootPage, true); err != nil {
		return err
	}

	writeHeader(hdrBuf, rootPage, 1, attrLen, 0)
	return mgr.UnfixPage(fd, hdrPage, true)
}

// DestroyIndex removes the index file. The index must not currently be
// open.
func DestroyIndex(mgr *pf.Manager, name string, idxNo int) error {
	return mgr.DestroyFile(indexFileName(name, idxNo))
}

// OpenIndex opens a previously created index.
func OpenIndex(mgr *pf.Manager, name string, idxNo int) (*Index, error) {
	fd, err := mgr.OpenFile(indexFileName(name, idxNo))
	if err != nil {
		return nil, err
	}
	hdrBuf, err := mgr.GetThisPage(fd, headerPageNumber)
	if err != nil {
		mgr.CloseFile(fd)
		return nil, err
	}
	root, height, attrLen, count := readHeader(hdrBuf)
	if err := mgr.UnfixPage(fd, headerPageNumber, false); err != nil {
		return nil, err
	}

	return &Index{
		mgr:      mgr,
		fd:       fd,
		attrLen:  attrLen,
		rootPage: root,
		height:   height,
		numKeys:  count,
		log:      logrus.WithFields(logrus.Fields{"component": "am", "index": name}),
	}, nil
}

// Close persists the header and closes the underlying file.
func (ix *Index) Close() error {
	if err := ix.persistHeader(); err != nil {
		return err
	}
	return ix.mgr.CloseFile(ix.fd)
}

// AttrLen returns the fixed key width this index was created with.
func (ix *Index) AttrLen() int16 { return ix.attrLen }

// RootPage returns the current root page number.
func (ix *Index) RootPage() int32 { return ix.rootPage }

// Height returns the current tree height (1 for a root-only tree).
func (ix *Index) Height() int32 { return ix.height }

// NumKeys returns the number of entries currently indexed.
func (ix *Index) NumKeys() int32 { return ix.numKeys }

func writeHeader(buf []byte, root, height int32, attrLen int16, numKeys int32) {
	putI32(buf, amHdrOffRoot, root)
	putI32(buf, amHdrOffHeight, height)
	putI16(buf, amHdrOffAttrLen, attrLen)
	putI32(buf, amHdrOffNumKeys, numKeys)
}

func readHeader(buf []byte) (root, height int32, attrLen int16, numKeys int32) {
	return i32(buf, amHdrOffRoot), i32(buf, amHdrOffHeight), i16(buf, amHdrOffAttrLen), i32(buf, amHdrOffNumKeys)
}

func (ix *Index) persistHeader() error {
	buf, err := ix.mgr.GetThisPage(ix.fd, headerPageNumber)
	if err != nil {
		return err
	}
	writeHeader(buf, ix.rootPage, ix.height, ix.attrLen, ix.numKeys)
	return ix.mgr.UnfixPage(ix.fd, headerPageNumber, true)
}

// InsertEntry inserts (key, rid) via the standard B+ tree path: descend
// to the target leaf, insert, and split leaves (then internal nodes, then
// possibly the root) as needed.
func (ix *Index) InsertEntry(key []byte, rid sp.RecordID) error {
	if len(key) != int(ix.attrLen) {
		return errors.Errorf("am: key length %d, want %d", len(key), ix.attrLen)
	}

	path, leafPage, err := ix.descend(key)
	if err != nil {
		return err
	}

	if err := ix.insertIntoLeaf(path, leafPage, key, PackRecordID(rid)); err != nil {
		return err
	}
	ix.numKeys++
	return nil
}

// descend walks from the root to the leaf that should contain key,
// returning the internal pages visited (root-to-parent) so a later split
// can propagate separators back up without parent pointers.
func (ix *Index) descend(key []byte) (path []int32, leafPage int32, err error) {
	page := ix.rootPage
	for {
		buf, gerr := ix.mgr.GetThisPage(ix.fd, int64(page))
		if gerr != nil {
			return nil, 0, gerr
		}
		if IsLeaf(buf) {
			if uerr := ix.mgr.UnfixPage(ix.fd, int64(page), false); uerr != nil {
				return nil, 0, uerr
			}
			return path, page, nil
		}
		child := InternalFindChild(buf, key)
		if uerr := ix.mgr.UnfixPage(ix.fd, int64(page), false); uerr != nil {
			return nil, 0, uerr
		}
		path = append(path, page)
		page = child
	}
}

// Search returns one RecordID stored under key, if any. Duplicate keys
// are tolerated, so any matching entry satisfies the contract.
func (ix *Index) Search(key []byte) (sp.RecordID, bool, error) {
	_, leafPage, err := ix.descend(key)
	if err != nil {
		return sp.RecordID{}, false, err
	}
	buf, err := ix.mgr.GetThisPage(ix.fd, int64(leafPage))
	if err != nil {
		return sp.RecordID{}, false, err
	}
	rid, found := LeafSearch(buf, key)
	if err := ix.mgr.UnfixPage(ix.fd, int64(leafPage), false); err != nil {
		return sp.RecordID{}, false, err
	}
	if !found {
		return sp.RecordID{}, false, common.ErrKeyNotFound
	}
	return rid, true, nil
}
