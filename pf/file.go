// Package pf implements the paged file layer: it maps file names to
// descriptors and exposes CreateFile/DestroyFile/OpenFile/CloseFile/
// AllocPage/GetThisPage/UnfixPage/DisposePage atop a shared buf.Pool,
// supplying the concrete read/write callbacks the pool needs. It owns the
// 4 KiB file header and the file-wide metadata that lives there: the page
// count and the free-page-list head.
//
// Grounded on btree.Pager's metadata page (readMetadata/writeMetadata in
// btree/pager.go), split apart from its LRU/cache bookkeeping, which now
// lives entirely in buf.Pool.
package pf

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/toylabs/toypager/buf"
	"github.com/toylabs/toypager/internal/common"
)

const (
	headerSize = 4096

	hdrOffNumPages  = 0 // int64
	hdrOffFreeHead  = 8 // int64, -1 when empty
	hdrOffReserved  = 16
)

// noFreePage marks an empty free-page chain.
const noFreePage int64 = -1

type openFile struct {
	name     string
	handle   *os.File
	numPages int64
	freeHead int64
}

// Manager owns every open file and the single buf.Pool they share.
type Manager struct {
	pool    *buf.Pool
	dataDir string

	byFd   map[int]*openFile
	byName map[string]int
	nextFd int

	log *logrus.Entry
}

// NewManager creates a Manager rooted at cfg.DataDir, backed by a fresh
// buf.Pool sized per cfg.Buffer.
func NewManager(cfg Config) (*Manager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %q", cfg.DataDir)
	}
	return &Manager{
		pool:    buf.NewPool(cfg.Buffer),
		dataDir: cfg.DataDir,
		byFd:    make(map[int]*openFile),
		byName:  make(map[string]int),
		nextFd:  1,
		log:     logrus.WithField("component", "pf"),
	}, nil
}

// Pool exposes the underlying buffer pool, e.g. for BUF_SetStrategy /
// BUF_GetStatistics callers.
func (m *Manager) Pool() *buf.Pool { return m.pool }

func (m *Manager) path(name string) string {
	return filepath.Join(m.dataDir, name)
}

// CreateFile creates a new, empty paged file: a zero-filled 4 KiB header
// and no data pages.
func (m *Manager) CreateFile(name string) error {
	path := m.path(name)
	if _, err := os.Stat(path); err == nil {
		return errors.Wrapf(common.ErrDuplicateFile, "file %q", name)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create file %q", name)
	}
	defer f.Close()

	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(hdr[hdrOffNumPages:], 0)
	binary.LittleEndian.PutUint64(hdr[hdrOffFreeHead:], uint64(noFreePage))
	if _, err := f.WriteAt(hdr, 0); err != nil {
		os.Remove(path)
		return errors.Wrapf(common.ErrHdrWrite, "file %q: %v", name, err)
	}
	return nil
}

// DestroyFile removes a paged file entirely. A file never shrinks: pages
// handed to DisposePage are only recycled by a later AllocPage, and their
// disk space is released only by destroying the whole file.
func (m *Manager) DestroyFile(name string) error {
	if fd, ok := m.byName[name]; ok {
		return errors.Wrapf(common.ErrPageInBuf, "file %q is open (fd=%d)", name, fd)
	}
	if err := os.Remove(m.path(name)); err != nil {
		return errors.Wrapf(err, "destroy file %q", name)
	}
	return nil
}

// OpenFile opens name, returning a descriptor for subsequent calls.
func (m *Manager) OpenFile(name string) (int, error) {
	if fd, ok := m.byName[name]; ok {
		return fd, nil
	}

	handle, err := os.OpenFile(m.path(name), os.O_RDWR, 0o644)
	if err != nil {
		return 0, errors.Wrapf(err, "open file %q", name)
	}

	hdr := make([]byte, headerSize)
	if n, err := handle.ReadAt(hdr, 0); err != nil || n != headerSize {
		handle.Close()
		return 0, errors.Wrapf(common.ErrHdrRead, "file %q", name)
	}

	of := &openFile{
		name:     name,
		handle:   handle,
		numPages: int64(binary.LittleEndian.Uint64(hdr[hdrOffNumPages:])),
		freeHead: int64(binary.LittleEndian.Uint64(hdr[hdrOffFreeHead:])),
	}

	fd := m.nextFd
	m.nextFd++
	m.byFd[fd] = of
	m.byName[name] = fd

	return fd, nil
}

// CloseFile releases every frame belonging to fd (flushing dirty ones),
// persists the header, then closes the OS handle.
func (m *Manager) CloseFile(fd int) error {
	of, ok := m.byFd[fd]
	if !ok {
		return errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}

	if err := m.pool.ReleaseFile(fd, m.writeFn(of)); err != nil {
		return err
	}

	if err := m.writeHeader(of); err != nil {
		return err
	}
	if err := of.handle.Close(); err != nil {
		return errors.Wrapf(err, "close file %q", of.name)
	}

	delete(m.byFd, fd)
	delete(m.byName, of.name)
	return nil
}

func (m *Manager) writeHeader(of *openFile) error {
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(hdr[hdrOffNumPages:], uint64(of.numPages))
	binary.LittleEndian.PutUint64(hdr[hdrOffFreeHead:], uint64(of.freeHead))
	if _, err := of.handle.WriteAt(hdr, 0); err != nil {
		return errors.Wrapf(common.ErrHdrWrite, "file %q: %v", of.name, err)
	}
	return nil
}

func (m *Manager) readFn(of *openFile) buf.ReadFunc {
	return func(_ int, pageNo int64, dst []byte) error {
		offset := headerSize + pageNo*int64(m.pool.PageSize())
		n, err := of.handle.ReadAt(dst, offset)
		if err != nil {
			return errors.Wrap(err, "page read")
		}
		if n != len(dst) {
			return common.ErrIncompleteRead
		}
		return nil
	}
}

func (m *Manager) writeFn(of *openFile) buf.WriteFunc {
	return func(_ int, pageNo int64, src []byte) error {
		offset := headerSize + pageNo*int64(m.pool.PageSize())
		n, err := of.handle.WriteAt(src, offset)
		if err != nil {
			return errors.Wrap(err, "page write")
		}
		if n != len(src) {
			return common.ErrIncompleteWrite
		}
		return nil
	}
}

// AllocPage returns a pinned, dirty-ready page whose number is either
// recycled from the free list left by DisposePage or one greater than the
// file's previous highest page.
func (m *Manager) AllocPage(fd int) (int64, []byte, error) {
	of, ok := m.byFd[fd]
	if !ok {
		return 0, nil, errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}

	var pageNo int64
	if of.freeHead != noFreePage {
		pageNo = of.freeHead
		data, err := m.pool.Get(fd, pageNo, m.readFn(of), m.writeFn(of))
		if err != nil {
			return 0, nil, err
		}
		of.freeHead = int64(binary.LittleEndian.Uint64(data[:8]))
		return pageNo, data, nil
	}

	pageNo = of.numPages
	data, err := m.pool.Alloc(fd, pageNo, m.writeFn(of))
	if err != nil {
		return 0, nil, err
	}
	of.numPages++
	m.log.WithField("page", pageNo).Debug("allocated new page")
	return pageNo, data, nil
}

// GetThisPage returns a pinned page, loading it from disk if it is not
// already resident.
func (m *Manager) GetThisPage(fd int, pageNo int64) ([]byte, error) {
	of, ok := m.byFd[fd]
	if !ok {
		return nil, errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}
	if pageNo < 0 || pageNo >= of.numPages {
		return nil, errors.Wrapf(common.ErrInvalidPage, "page=%d", pageNo)
	}
	return m.pool.Get(fd, pageNo, m.readFn(of), m.writeFn(of))
}

// UnfixPage releases the pin obtained by AllocPage or GetThisPage.
func (m *Manager) UnfixPage(fd int, pageNo int64, dirty bool) error {
	if _, ok := m.byFd[fd]; !ok {
		return errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}
	return m.pool.Unfix(fd, pageNo, dirty)
}

// DisposePage returns a page to the file's free list so a later AllocPage
// can recycle it. The page may or may not already be pinned by the
// caller; either way it is left unfixed by this call. Its first 8 bytes
// are overwritten with the free-list link.
func (m *Manager) DisposePage(fd int, pageNo int64) error {
	of, ok := m.byFd[fd]
	if !ok {
		return errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}
	data, err := m.pool.Get(fd, pageNo, m.readFn(of), m.writeFn(of))
	if err != nil && !errors.Is(err, common.ErrPageFixed) {
		return err
	}
	binary.LittleEndian.PutUint64(data[:8], uint64(of.freeHead))
	of.freeHead = pageNo
	return m.pool.Unfix(fd, pageNo, true)
}

// NumPages reports the current page count of fd's file.
func (m *Manager) NumPages(fd int) (int64, error) {
	of, ok := m.byFd[fd]
	if !ok {
		return 0, errors.Wrapf(common.ErrFileNotOpen, "fd=%d", fd)
	}
	return of.numPages, nil
}
