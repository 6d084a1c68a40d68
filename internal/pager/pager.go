// Package pager manages a bounded pool of resident pages backed by a single
// database file. It is the only component that touches the file directly;
// every higher layer (the B-tree, the table store) addresses pages purely
// by page id and lets the pager decide what stays resident, what gets
// evicted, and when dirty pages are written back.
package pager

import (
	"container/list"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/embeddb/embeddb/internal/page"
)

// Mode gates what a Pager will allow. A Pager opened ModeRead refuses
// Allocate and any write-back of dirty pages; ModeWrite allows both. This
// mirrors the single-writer, exclusive-access rule a transaction holds for
// its lifetime.
type Mode int

const (
	ModeNone Mode = iota
	ModeRead
	ModeWrite
)

// Err is pager's sentinel error kind.
type Err string

func (e Err) Error() string { return string(e) }

const (
	ErrReadOnly      Err = "pager: cannot modify pager in read mode"
	ErrPageNotFound  Err = "pager: page not found"
	ErrPoolExhausted Err = "pager: no evictable frame available"
	ErrAlreadyLocked Err = "pager: database file is locked by another process"
	ErrClosed        Err = "pager: pager is closed"
)

type frame struct {
	pg       *page.Page
	pinCount int
	elem     *list.Element // position in the LRU list, nil while pinned
}

// Pager is the pool of resident pages over one open database file.
type Pager struct {
	mu sync.Mutex

	file     *os.File
	mode     Mode
	capacity int
	log      *logrus.Logger

	resident map[uint64]*frame
	lru      *list.List // least-recently-used list of unpinned page ids, front = least recent
	lruElems map[uint64]*list.Element

	nextPageID uint64
	closed     bool
}

// Open opens (creating if necessary) the database file at path, takes an
// advisory exclusive lock on it so a second process cannot open the same
// file concurrently, and returns a Pager with the given resident-page
// capacity.
func Open(path string, capacity int, mode Mode, log *logrus.Logger) (*Pager, error) {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = logrus.New()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("pager: flock %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	p := &Pager{
		file:       f,
		mode:       mode,
		capacity:   capacity,
		log:        log,
		resident:   make(map[uint64]*frame),
		lru:        list.New(),
		lruElems:   make(map[uint64]*list.Element),
		nextPageID: uint64(info.Size()) / page.PageSize,
	}
	return p, nil
}

func (p *Pager) Mode() Mode { p.mu.Lock(); defer p.mu.Unlock(); return p.mode }

func (p *Pager) SetMode(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
}

// PageCount reports how many pages the underlying file currently spans.
func (p *Pager) PageCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextPageID
}

// Get returns the resident page for id, reading it from disk and admitting
// it into the pool (possibly evicting another unpinned page) if it is not
// already resident. The returned page is pinned; callers must call Unpin
// when done to make it eligible for eviction again.
func (p *Pager) Get(id uint64) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if fr, ok := p.resident[id]; ok {
		p.pin(id, fr)
		return fr.pg, nil
	}

	if err := p.ensureRoom(); err != nil {
		return nil, err
	}

	pg, err := page.ReadFromDisk(p.file, id)
	if err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	fr := &frame{pg: pg}
	p.resident[id] = fr
	p.pin(id, fr)
	return pg, nil
}

// Allocate extends the file by one page and returns it pinned and resident.
// It fails if the pager is not in ModeWrite.
func (p *Pager) Allocate(kind page.Kind) (*page.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.mode != ModeWrite {
		return nil, ErrReadOnly
	}
	if err := p.ensureRoom(); err != nil {
		return nil, err
	}

	id := p.nextPageID
	p.nextPageID++
	pg := page.New(id, kind)
	fr := &frame{pg: pg}
	p.resident[id] = fr
	p.pin(id, fr)
	return pg, nil
}

// Unpin releases one reference on page id, making it eligible for eviction
// again once no references remain.
func (p *Pager) Unpin(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fr, ok := p.resident[id]
	if !ok || fr.pinCount == 0 {
		return
	}
	fr.pinCount--
	if fr.pinCount == 0 {
		fr.elem = p.lru.PushBack(id)
		p.lruElems[id] = fr.elem
	}
}

func (p *Pager) pin(id uint64, fr *frame) {
	if fr.elem != nil {
		p.lru.Remove(fr.elem)
		delete(p.lruElems, id)
		fr.elem = nil
	}
	fr.pinCount++
}

// ensureRoom evicts the least-recently-used unpinned page, if any, until
// the resident set has room for one more frame. Dirty pages are written
// back before eviction.
func (p *Pager) ensureRoom() error {
	if len(p.resident) < p.capacity {
		return nil
	}
	elem := p.lru.Front()
	if elem == nil {
		return ErrPoolExhausted
	}
	id := elem.Value.(uint64)
	fr := p.resident[id]
	if fr.pg.IsDirty() {
		if p.mode != ModeWrite {
			return ErrReadOnly
		}
		if err := fr.pg.WriteToDisk(p.file); err != nil {
			return fmt.Errorf("pager: evict write-back page %d: %w", id, err)
		}
	}
	p.lru.Remove(elem)
	delete(p.lruElems, id)
	delete(p.resident, id)
	p.log.WithField("page_id", id).Debug("pager: evicted page")
	return nil
}

// Flush writes back every dirty resident page without evicting any of them.
// Pages are written in map iteration order, which is unspecified.
func (p *Pager) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != ModeWrite {
		return ErrReadOnly
	}
	for id, fr := range p.resident {
		if !fr.pg.IsDirty() {
			continue
		}
		if err := fr.pg.WriteToDisk(p.file); err != nil {
			return fmt.Errorf("pager: flush page %d: %w", id, err)
		}
	}
	return nil
}

// Close flushes dirty pages (if in ModeWrite), releases the advisory lock,
// and closes the underlying file.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if p.mode == ModeWrite {
		for id, fr := range p.resident {
			if fr.pg.IsDirty() {
				if err := fr.pg.WriteToDisk(p.file); err != nil {
					return fmt.Errorf("pager: close flush page %d: %w", id, err)
				}
			}
		}
	}
	p.closed = true
	unix.Flock(int(p.file.Fd()), unix.LOCK_UN)
	return p.file.Close()
}
