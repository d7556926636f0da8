package recfile

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/toylabs/toypager/pf"
	"github.com/toylabs/toypager/sp"
)

// firstDataPage is the first page holding records: page 0 is reserved as
// the record file's own metadata page, mirroring am.Index's header page
// so every layer above pf follows the same convention.
const firstDataPage = 1

// File is a sequential, fixed-record store over one paged file, using T
// as the in-memory record type and codec to translate it to and from the
// bytes a slotted page stores.
type File[T any] struct {
	mgr   *pf.Manager
	fd    int
	codec Codec[T]
	log   *logrus.Entry
}

// Create initializes name as an empty record file: a paged-file header
// plus a reserved metadata page at index 0.
func Create(mgr *pf.Manager, name string) error {
	if err := mgr.CreateFile(name); err != nil {
		return err
	}
	fd, err := mgr.OpenFile(name)
	if err != nil {
		return err
	}
	defer mgr.CloseFile(fd)

	pageNo, buf, err := mgr.AllocPage(fd)
	if err != nil {
		return err
	}
	if pageNo != 0 {
		return errors.Errorf("recfile: expected metadata page at 0, got %d", pageNo)
	}
	for i := range buf {
		buf[i] = 0
	}
	return mgr.UnfixPage(fd, pageNo, true)
}

// Open opens a previously created record file for use with codec.
func Open[T any](mgr *pf.Manager, name string, codec Codec[T]) (*File[T], error) {
	fd, err := mgr.OpenFile(name)
	if err != nil {
		return nil, err
	}
	return &File[T]{
		mgr:   mgr,
		fd:    fd,
		codec: codec,
		log:   logrus.WithFields(logrus.Fields{"component": "recfile", "file": name}),
	}, nil
}

// Close closes the underlying paged file.
func (f *File[T]) Close() error { return f.mgr.CloseFile(f.fd) }

// SpaceStats reports how this file's data pages currently divide their
// bytes between live records, slot overhead, headers, free space and
// fragmentation, the sp-layer equivalent of SF_GetSpaceStats.
func (f *File[T]) SpaceStats() (sp.SpaceStats, error) {
	numPages, err := f.mgr.NumPages(f.fd)
	if err != nil {
		return sp.SpaceStats{}, err
	}
	return sp.ComputeSpaceStats(f.mgr, f.fd, firstDataPage, int32(numPages))
}

// Insert encodes v and stores it on the first data page with enough free
// space, allocating a new page only when none of the existing ones do.
func (f *File[T]) Insert(v T) (sp.RecordID, error) {
	rec := f.codec.Encode(v)
	needed := int16(len(rec)) + 4

	numPages, err := f.mgr.NumPages(f.fd)
	if err != nil {
		return sp.RecordID{}, err
	}

	for pageNo := int64(firstDataPage); pageNo < numPages; pageNo++ {
		buf, gerr := f.mgr.GetThisPage(f.fd, pageNo)
		if gerr != nil {
			return sp.RecordID{}, gerr
		}
		if sp.FreeSpace(buf) >= needed {
			slot, ierr := sp.InsertRecord(buf, rec)
			if ierr != nil {
				f.mgr.UnfixPage(f.fd, pageNo, false)
				return sp.RecordID{}, ierr
			}
			if err := f.mgr.UnfixPage(f.fd, pageNo, true); err != nil {
				return sp.RecordID{}, err
			}
			return sp.RecordID{PageNum: int32(pageNo), SlotNum: slot}, nil
		}
		if err := f.mgr.UnfixPage(f.fd, pageNo, false); err != nil {
			return sp.RecordID{}, err
		}
	}

	pageNo, buf, err := f.mgr.AllocPage(f.fd)
	if err != nil {
		return sp.RecordID{}, err
	}
	sp.Init(buf, int32(pageNo))
	slot, err := sp.InsertRecord(buf, rec)
	if err != nil {
		return sp.RecordID{}, err
	}
	if err := f.mgr.UnfixPage(f.fd, pageNo, true); err != nil {
		return sp.RecordID{}, err
	}
	return sp.RecordID{PageNum: int32(pageNo), SlotNum: slot}, nil
}

// Get decodes the record identified by rid.
func (f *File[T]) Get(rid sp.RecordID) (T, error) {
	var zero T
	buf, err := f.mgr.GetThisPage(f.fd, int64(rid.PageNum))
	if err != nil {
		return zero, err
	}
	raw, err := sp.GetRecord(buf, rid.SlotNum)
	if err != nil {
		f.mgr.UnfixPage(f.fd, int64(rid.PageNum), false)
		return zero, err
	}
	if err := f.mgr.UnfixPage(f.fd, int64(rid.PageNum), false); err != nil {
		return zero, err
	}
	return f.codec.Decode(raw)
}

// Delete tombstones the record identified by rid.
func (f *File[T]) Delete(rid sp.RecordID) error {
	buf, err := f.mgr.GetThisPage(f.fd, int64(rid.PageNum))
	if err != nil {
		return err
	}
	if derr := sp.DeleteRecord(buf, rid.SlotNum); derr != nil {
		f.mgr.UnfixPage(f.fd, int64(rid.PageNum), false)
		return derr
	}
	return f.mgr.UnfixPage(f.fd, int64(rid.PageNum), true)
}

// Scan returns a cursor over every live record in the file, in (page,
// slot) order.
func (f *File[T]) Scan() (*RecordScan[T], error) {
	numPages, err := f.mgr.NumPages(f.fd)
	if err != nil {
		return nil, err
	}
	return &RecordScan[T]{
		codec: f.codec,
		inner: sp.OpenScan(f.mgr, f.fd, firstDataPage, int32(numPages)),
	}, nil
}

// RecordScan decodes each raw record sp.Scan yields into T.
type RecordScan[T any] struct {
	codec Codec[T]
	inner *sp.Scan
}

// Next returns the next live record, or ok=false once exhausted.
func (s *RecordScan[T]) Next() (v T, rid sp.RecordID, ok bool, err error) {
	raw, rid, ok, err := s.inner.Next()
	if err != nil || !ok {
		var zero T
		return zero, sp.RecordID{}, false, err
	}
	v, err = s.codec.Decode(raw)
	if err != nil {
		var zero T
		return zero, sp.RecordID{}, false, err
	}
	return v, rid, true, nil
}

// Close releases any resources held by the scan.
func (s *RecordScan[T]) Close() { s.inner.Close() }
