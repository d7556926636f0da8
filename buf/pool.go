// Package buf implements the pinnable, fixed-size shared buffer pool that
// every higher layer of the engine reads and writes pages through. It owns
// no file descriptors and performs no I/O policy decisions of its own:
// callers supply a ReadFunc/WriteFunc per call, keeping the pool itself
// agnostic to where bytes ultimately live.
//
// Adapted from the cache/lru/dirty bookkeeping in btree.Pager (btree/pager.go):
// here the pin is a boolean, not a count, a naked hit does not re-promote in
// the used list, and eviction is driven by a pluggable Strategy instead of
// being hardwired to LRU.
package buf

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/toylabs/toypager/internal/common"
)

// ReadFunc reads the page (fd, pageNo) into buf, which is exactly PageSize
// bytes long.
type ReadFunc func(fd int, pageNo int64, buf []byte) error

// WriteFunc writes buf (exactly PageSize bytes) out to page (fd, pageNo).
type WriteFunc func(fd int, pageNo int64, buf []byte) error

// Pool is the shared buffer pool. It is not safe for concurrent use: the
// engine it backs is single-threaded by design.
type Pool struct {
	pageSize int
	maxBufs  int
	strategy Strategy

	frames       []frame
	numAllocated int
	free         []FrameID
	hash         map[PageKey]FrameID

	usedHead FrameID
	usedTail FrameID

	stats Stats
	log   *logrus.Entry
}

// NewPool creates a pool governed by cfg. Frames are allocated lazily, up
// to cfg.MaxBufs, rather than up front.
func NewPool(cfg Config) *Pool {
	if cfg.MaxBufs <= 0 {
		cfg.MaxBufs = DefaultMaxBufs
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Pool{
		pageSize: cfg.PageSize,
		maxBufs:  cfg.MaxBufs,
		strategy: cfg.strategy(),
		hash:     make(map[PageKey]FrameID, cfg.MaxBufs),
		usedHead: NoFrame,
		usedTail: NoFrame,
		log:      logrus.WithField("component", "buf"),
	}
}

// PageSize reports the fixed frame size this pool was configured with.
func (p *Pool) PageSize() int { return p.pageSize }

// SetStrategy changes the replacement policy used by future evictions.
// Frames already resident are unaffected; only the scan direction used by
// the next acquire() changes.
func (p *Pool) SetStrategy(s Strategy) {
	p.strategy = s
	p.log.WithField("strategy", s.String()).Debug("replacement strategy changed")
}

// Statistics returns a snapshot of the aggregate counters.
func (p *Pool) Statistics() Stats { return p.stats }

// ResetStatistics zeroes every counter.
func (p *Pool) ResetStatistics() { p.stats = Stats{} }

// PrintStatistics renders the counters as a human-readable report.
func (p *Pool) PrintStatistics() string { return p.stats.Report() }

// Get pins page (fd, pageNo), loading it from disk via read if it is not
// already resident. On a hit against an already-fixed page it returns
// ErrPageFixed but still hands back the frame's bytes, so a caller that
// only wants to inspect an already-pinned page's contents is not forced
// to thread its own "do I already hold this" bookkeeping through.
func (p *Pool) Get(fd int, pageNo int64, read ReadFunc, write WriteFunc) ([]byte, error) {
	key := PageKey{Fd: fd, PageNo: pageNo}
	p.stats.LogicalReads++

	if id, ok := p.hash[key]; ok {
		f := &p.frames[id]
		if f.fixed {
			p.stats.BufferHits++
			return f.data, errors.Wrapf(common.ErrPageFixed, "fd=%d page=%d", fd, pageNo)
		}
		f.fixed = true
		p.stats.BufferHits++
		return f.data, nil
	}

	p.stats.BufferMisses++

	id, err := p.acquire(write)
	if err != nil {
		return nil, err
	}
	f := &p.frames[id]

	if err := read(fd, pageNo, f.data); err != nil {
		p.free = append(p.free, id)
		return nil, errors.Wrapf(err, "read fd=%d page=%d", fd, pageNo)
	}

	f.key = key
	f.dirty = false
	f.fixed = true
	f.resident = true
	p.hash[key] = id
	p.pushUsedHead(id)
	p.stats.PhysicalReads++

	return f.data, nil
}

// Alloc reserves a brand new, pinned, dirty-ready frame for (fd, pageNo).
// The caller is responsible for choosing pageNo (usually one past the
// file's current highest page) and for persisting it on Unfix.
func (p *Pool) Alloc(fd int, pageNo int64, write WriteFunc) ([]byte, error) {
	key := PageKey{Fd: fd, PageNo: pageNo}
	if _, ok := p.hash[key]; ok {
		return nil, errors.Wrapf(common.ErrPageInBuf, "fd=%d page=%d", fd, pageNo)
	}

	id, err := p.acquire(write)
	if err != nil {
		return nil, err
	}
	f := &p.frames[id]
	for i := range f.data {
		f.data[i] = 0
	}
	f.key = key
	f.fixed = true
	f.dirty = false
	f.resident = true

	p.hash[key] = id
	p.pushUsedHead(id)

	return f.data, nil
}

// Unfix releases the pin on (fd, pageNo). When dirty is true the frame is
// marked for eventual write-back and a logical write is counted.
func (p *Pool) Unfix(fd int, pageNo int64, dirty bool) error {
	key := PageKey{Fd: fd, PageNo: pageNo}
	id, ok := p.hash[key]
	if !ok {
		return errors.Wrapf(common.ErrPageNotInBuf, "fd=%d page=%d", fd, pageNo)
	}
	f := &p.frames[id]
	if !f.fixed {
		return errors.Wrapf(common.ErrPageUnfixed, "fd=%d page=%d", fd, pageNo)
	}

	if dirty {
		f.dirty = true
		p.stats.LogicalWrites++
	}
	f.fixed = false

	p.unlinkUsed(id)
	p.pushUsedHead(id)

	return nil
}

// MarkUsed promotes an already-fixed page to the head of the used list and
// marks it dirty, for callers that mutate a page in place while still
// holding its pin instead of going through Unfix(dirty=true).
func (p *Pool) MarkUsed(fd int, pageNo int64) error {
	key := PageKey{Fd: fd, PageNo: pageNo}
	id, ok := p.hash[key]
	if !ok {
		return errors.Wrapf(common.ErrPageNotInBuf, "fd=%d page=%d", fd, pageNo)
	}
	f := &p.frames[id]
	if !f.fixed {
		return errors.Wrapf(common.ErrPageUnfixed, "fd=%d page=%d", fd, pageNo)
	}
	f.dirty = true
	p.unlinkUsed(id)
	p.pushUsedHead(id)
	return nil
}

// ReleaseFile flushes and evicts every frame belonging to fd, in
// preparation for closing the underlying file. It fails with
// ErrPageFixed, leaving state untouched, if any frame for fd is still
// pinned.
func (p *Pool) ReleaseFile(fd int, write WriteFunc) error {
	var victims []FrameID
	for key, id := range p.hash {
		if key.Fd != fd {
			continue
		}
		if p.frames[id].fixed {
			return errors.Wrapf(common.ErrPageFixed, "fd=%d page=%d", fd, key.PageNo)
		}
		victims = append(victims, id)
	}

	for _, id := range victims {
		f := &p.frames[id]
		if f.dirty {
			if err := write(f.key.Fd, f.key.PageNo, f.data); err != nil {
				return errors.Wrapf(err, "flush fd=%d page=%d", f.key.Fd, f.key.PageNo)
			}
			p.stats.PhysicalWrites++
			f.dirty = false
		}
		f.resident = false
		delete(p.hash, f.key)
		p.unlinkUsed(id)
		p.free = append(p.free, id)
	}

	return nil
}

// acquire returns an empty (not hash-resident, not on the used list)
// frame: first from the free list, then a fresh allocation up to maxBufs,
// then an eviction scan under the configured Strategy.
func (p *Pool) acquire(write WriteFunc) (FrameID, error) {
	if n := len(p.free); n > 0 {
		id := p.free[n-1]
		p.free = p.free[:n-1]
		return id, nil
	}

	if p.numAllocated < p.maxBufs {
		id := FrameID(len(p.frames))
		p.frames = append(p.frames, frame{data: make([]byte, p.pageSize), prev: NoFrame, next: NoFrame})
		p.numAllocated++
		return id, nil
	}

	var cur FrameID
	if p.strategy == LRU {
		cur = p.usedTail
	} else {
		cur = p.usedHead
	}

	for cur != NoFrame {
		f := &p.frames[cur]
		next := f.prev
		if p.strategy == MRU {
			next = f.next
		}

		if !f.fixed {
			if f.dirty {
				if err := write(f.key.Fd, f.key.PageNo, f.data); err != nil {
					return NoFrame, errors.Wrapf(err, "evict fd=%d page=%d", f.key.Fd, f.key.PageNo)
				}
				p.stats.PhysicalWrites++
				f.dirty = false
			}
			f.resident = false
			delete(p.hash, f.key)
			p.unlinkUsed(cur)
			p.log.WithFields(logrus.Fields{"fd": f.key.Fd, "page": f.key.PageNo}).Debug("evicted frame")
			return cur, nil
		}

		cur = next
	}

	p.log.Warn("no unfixed frame available for eviction")
	return NoFrame, common.ErrNoBuf
}

func (p *Pool) pushUsedHead(id FrameID) {
	f := &p.frames[id]
	f.prev = NoFrame
	f.next = p.usedHead
	if p.usedHead != NoFrame {
		p.frames[p.usedHead].prev = id
	}
	p.usedHead = id
	if p.usedTail == NoFrame {
		p.usedTail = id
	}
}

func (p *Pool) unlinkUsed(id FrameID) {
	f := &p.frames[id]
	if f.prev != NoFrame {
		p.frames[f.prev].next = f.next
	} else {
		p.usedHead = f.next
	}
	if f.next != NoFrame {
		p.frames[f.next].prev = f.prev
	} else {
		p.usedTail = f.prev
	}
	f.prev = NoFrame
	f.next = NoFrame
}

// FrameCounts reports how many frames are fixed, unfixed-but-resident, and
// on the free list. fixed+unfixed+freeCount always equals the pool's
// configured MaxBufs once every frame has been touched at least once.
func (p *Pool) FrameCounts() (fixed, unfixed, freeCount int) {
	for id := 0; id < p.numAllocated; id++ {
		f := &p.frames[FrameID(id)]
		if !f.resident {
			continue
		}
		if f.fixed {
			fixed++
		} else {
			unfixed++
		}
	}
	freeCount = len(p.free)
	return
}
