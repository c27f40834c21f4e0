// Package pager implements the paged file manager spec.md names as an
// external collaborator: fixed-size page reads/writes, allocation, and
// free-page reuse, backed by a flat file plus an in-memory LRU cache.
package pager

import (
	"context"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tokenbucket"

	"ixtree/internal/page"
)

// Pager manages a file of fixed-size pages.
type Pager struct {
	file     *os.File
	cache    *lruCache
	numPages int64

	// freeHead is the page id at the head of an on-disk singly-linked
	// free list, page.NoPage if the list is empty. Each freed page's
	// first 8 bytes hold the id of the next free page (or NoPage),
	// so the list survives a close/reopen instead of living only in
	// this struct.
	freeHead int64

	limiter *tokenbucket.TokenBucket
}

// Option configures a Pager at Open time.
type Option func(*Pager)

// WithRateLimit throttles WritePage/AppendPage to ratePerSec pages per
// second with the given burst allowance. It is disabled by default;
// the manager enables it from configuration (SPEC_FULL.md §6).
func WithRateLimit(ratePerSec, burst float64) Option {
	return func(p *Pager) {
		tb := &tokenbucket.TokenBucket{}
		tb.Init(tokenbucket.Rate(ratePerSec), tokenbucket.Tokens(burst))
		p.limiter = tb
	}
}

// Open opens (or creates) a pager backed by the file at path.
// cachePages bounds the LRU page cache size.
func Open(path string, cachePages int, opts ...Option) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open")
	}

	p := &Pager{
		file:     f,
		cache:    newLRUCache(cachePages),
		freeHead: page.NoPage,
	}
	for _, opt := range opts {
		opt(p)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "pager: stat")
	}
	p.numPages = info.Size() / page.Size
	if p.numPages < 0 {
		p.numPages = 0
	}
	return p, nil
}

// PageCount returns the number of pages in the file, including pages
// on the free list: a freed page stays in the file until reused.
func (p *Pager) PageCount() int64 {
	return p.numPages
}

func (p *Pager) throttle() {
	if p.limiter == nil {
		return
	}
	_ = p.limiter.Wait(context.Background(), 1)
}

// Allocate reserves a page, preferring reuse of a previously freed page
// over growing the file.
func (p *Pager) Allocate() (int64, error) {
	if p.freeHead != page.NoPage {
		id := p.freeHead
		pg, err := p.ReadPage(id)
		if err != nil {
			return 0, errors.Wrapf(err, "pager: read free-list head %d", id)
		}
		p.freeHead = int64(binary.LittleEndian.Uint64(pg[:8]))
		return id, nil
	}

	p.throttle()
	id := p.numPages
	p.numPages++
	var blank page.Page
	if _, err := p.file.WriteAt(blank[:], id*page.Size); err != nil {
		p.numPages--
		return 0, errors.Wrapf(err, "pager: allocate page %d", id)
	}
	return id, nil
}

// Free returns a page to the on-disk free list for reuse by a later
// Allocate. The page's contents are overwritten with a link to the
// prior free-list head, so FreeHead/SetFreeHead can persist the list
// across a close/reopen (spec.md §4.1's free-page reuse hint).
func (p *Pager) Free(id int64) error {
	p.cache.delete(id)
	var pg page.Page
	binary.LittleEndian.PutUint64(pg[:8], uint64(p.freeHead))
	if err := p.WritePage(id, &pg); err != nil {
		return errors.Wrapf(err, "pager: free page %d", id)
	}
	p.freeHead = id
	return nil
}

// FreeHead reports the page id at the head of the on-disk free list,
// page.NoPage if empty. The caller persists it in the metadata page.
func (p *Pager) FreeHead() int64 {
	return p.freeHead
}

// SetFreeHead restores the free list's head from a previously
// persisted metadata page, page.NoPage if there was none.
func (p *Pager) SetFreeHead(id int64) {
	p.freeHead = id
}

// ReadPage returns the page with the given id, from cache or disk.
func (p *Pager) ReadPage(id int64) (*page.Page, error) {
	if pg := p.cache.get(id); pg != nil {
		return pg, nil
	}
	var pg page.Page
	if _, err := p.file.ReadAt(pg[:], id*page.Size); err != nil {
		return nil, errors.Wrapf(err, "pager: read page %d", id)
	}
	p.cache.put(id, &pg)
	return &pg, nil
}

// WritePage writes a page back to disk and refreshes the cache.
func (p *Pager) WritePage(id int64, pg *page.Page) error {
	p.throttle()
	if _, err := p.file.WriteAt(pg[:], id*page.Size); err != nil {
		return errors.Wrapf(err, "pager: write page %d", id)
	}
	p.cache.put(id, pg)
	return nil
}

// AppendPage allocates a fresh page and writes its initial contents in
// one step, returning the new page number.
func (p *Pager) AppendPage(pg *page.Page) (int64, error) {
	id, err := p.Allocate()
	if err != nil {
		return 0, err
	}
	if err := p.WritePage(id, pg); err != nil {
		return 0, err
	}
	return id, nil
}

// Close closes the underlying file. WritePage writes straight to the
// file, so the cache holds no unwritten pages.
func (p *Pager) Close() error {
	return p.file.Close()
}

// ─── LRU cache ────────────────────────────────────────────────────────────────

type lruEntry struct {
	id   int64
	page *page.Page
	prev *lruEntry
	next *lruEntry
}

type lruCache struct {
	cap   int
	items map[int64]*lruEntry
	head  *lruEntry
	tail  *lruEntry
}

func newLRUCache(cap int) *lruCache {
	if cap < 1 {
		cap = 1
	}
	return &lruCache{cap: cap, items: make(map[int64]*lruEntry, cap)}
}

func (c *lruCache) get(id int64) *page.Page {
	e, ok := c.items[id]
	if !ok {
		return nil
	}
	c.moveToFront(e)
	return e.page
}

func (c *lruCache) put(id int64, pg *page.Page) {
	if e, ok := c.items[id]; ok {
		e.page = pg
		c.moveToFront(e)
		return
	}
	e := &lruEntry{id: id, page: pg}
	c.items[id] = e
	c.pushFront(e)
	if len(c.items) > c.cap {
		c.evict()
	}
}

func (c *lruCache) delete(id int64) {
	e, ok := c.items[id]
	if !ok {
		return
	}
	c.unlink(e)
	delete(c.items, id)
}

func (c *lruCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if c.head == e {
		c.head = e.next
	}
	if c.tail == e {
		c.tail = e.prev
	}
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) evict() {
	if c.tail == nil {
		return
	}
	id := c.tail.id
	c.unlink(c.tail)
	delete(c.items, id)
}
