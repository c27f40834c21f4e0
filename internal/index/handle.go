// Package index implements the index handle: the component that opens
// and closes an index file, owns the root and tree height, dispatches
// InsertEntry/DeleteEntry to the correct monomorphic engine, and
// flushes the updated/deleted node sets the engine produces.
package index

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ixtree/internal/btree"
	"ixtree/internal/page"
	"ixtree/internal/pager"
	"ixtree/internal/rid"
)

// FlushStats summarizes one InsertEntry/DeleteEntry's effect on disk,
// surfaced so internal/manager can feed its Prometheus collectors
// (spec.md §4.4 [EXPANSION]).
type FlushStats struct {
	PagesWritten  int
	PagesFreed    int
	Splits        int
	Merges        int
	Redistributes int
}

// Handle is an open index file: the paged file manager connection,
// the tree's root page number and height, and the key type it was
// opened with. A Handle is not safe for concurrent use (spec.md §5).
type Handle struct {
	path     string
	pager    *pager.Pager
	keyKind  page.KeyKind
	d        int
	root     int64
	height   int
	poisoned bool
	logger   *zap.Logger

	lastStats FlushStats
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	cachePages int
	pagerOpts  []pager.Option
	logger     *zap.Logger
}

// WithCachePages bounds the pager's LRU page cache. Default 64.
func WithCachePages(n int) Option {
	return func(c *openConfig) { c.cachePages = n }
}

// WithRateLimit throttles page writes, per SPEC_FULL.md §6.
func WithRateLimit(ratePerSec, burst float64) Option {
	return func(c *openConfig) {
		c.pagerOpts = append(c.pagerOpts, pager.WithRateLimit(ratePerSec, burst))
	}
}

// WithLogger injects a zap logger for lifecycle/flush/error events.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// Open opens (creating if necessary) the index file at path for keys
// of kind keyKind. If the file has no metadata page yet, Open
// bootstraps one with a single empty leaf as root (spec.md §4.4).
func Open(path string, keyKind page.KeyKind, opts ...Option) (*Handle, error) {
	if keyKind != page.KeyKindInt && keyKind != page.KeyKindFloat {
		return nil, errors.Wrapf(ErrInvalidOperation, "index: unsupported key kind %s", keyKind)
	}

	cfg := &openConfig{cachePages: 64, logger: zap.NewNop()}
	for _, o := range opts {
		o(cfg)
	}

	p, err := pager.Open(path, cfg.cachePages, cfg.pagerOpts...)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "index: open pager"), ErrFileOpError)
	}

	h := &Handle{path: path, pager: p, keyKind: keyKind, logger: cfg.logger, d: page.Order(page.Size)}

	if p.PageCount() == 0 {
		if err := h.bootstrap(); err != nil {
			return nil, err
		}
	} else {
		meta, err := h.readMetadata()
		if err != nil {
			return nil, err
		}
		if meta.KeyKind != keyKind {
			return nil, errors.Wrapf(ErrInvalidOperation,
				"index: file key kind %s does not match requested %s", meta.KeyKind, keyKind)
		}
		h.root = int64(meta.RootPageNum)
		h.height = int(meta.Height)
		if meta.FreePageHint != 0 {
			p.SetFreeHead(int64(meta.FreePageHint))
		}
	}

	h.logger.Info("index opened",
		zap.String("path", path),
		zap.String("key_kind", h.keyKind.String()),
		zap.Int64("root", h.root),
		zap.Int("height", h.height))
	return h, nil
}

func (h *Handle) bootstrap() error {
	metaPage, err := h.pager.Allocate()
	if err != nil {
		return errors.Mark(err, ErrFileOpError)
	}
	rootPage, err := h.pager.Allocate()
	if err != nil {
		return errors.Mark(err, ErrFileOpError)
	}

	var pg *page.Page
	switch h.keyKind {
	case page.KeyKindInt:
		pg, err = page.EncodeNode[int32](&page.NodeData[int32]{
			Kind: page.KindLeaf, LeftPageNum: page.NoPage, RightPageNum: page.NoPage,
		}, h.d)
	case page.KeyKindFloat:
		pg, err = page.EncodeNode[float32](&page.NodeData[float32]{
			Kind: page.KindLeaf, LeftPageNum: page.NoPage, RightPageNum: page.NoPage,
		}, h.d)
	}
	if err != nil {
		return errors.Mark(err, ErrFileOpError)
	}
	if err := h.pager.WritePage(rootPage, pg); err != nil {
		return errors.Mark(err, ErrFileOpError)
	}

	meta := page.Metadata{KeyKind: h.keyKind, RootPageNum: uint32(rootPage), Height: 0, FreePageHint: 0}
	if err := h.pager.WritePage(metaPage, page.EncodeMetadata(meta)); err != nil {
		return errors.Mark(err, ErrFileOpError)
	}

	h.root, h.height = rootPage, 0
	return nil
}

func (h *Handle) readMetadata() (page.Metadata, error) {
	pg, err := h.pager.ReadPage(0)
	if err != nil {
		return page.Metadata{}, errors.Mark(err, ErrFileOpError)
	}
	meta, err := page.DecodeMetadata(pg)
	if err != nil {
		return page.Metadata{}, errors.Mark(err, ErrFileOpError)
	}
	return meta, nil
}

// Close closes the underlying paged file. A poisoned handle (one
// whose last flush failed) closes without attempting further I/O.
func (h *Handle) Close() error {
	h.logger.Info("index closed", zap.String("path", h.path))
	return h.pager.Close()
}

// KeyKind reports the key type this handle was opened with.
func (h *Handle) KeyKind() page.KeyKind { return h.keyKind }

// Height reports the current tree height (0 for a single-leaf tree).
func (h *Handle) Height() int { return h.height }

// RootPageNum reports the current root's page number.
func (h *Handle) RootPageNum() int64 { return h.root }

// LastFlushStats reports the statistics from the most recently
// completed InsertEntry/DeleteEntry.
func (h *Handle) LastFlushStats() FlushStats { return h.lastStats }

func rootKind(height int) page.Kind {
	if height == 0 {
		return page.KindLeaf
	}
	return page.KindInternal
}

// InsertEntry decodes key from the boundary attribute buffer (§6) and
// inserts (key, r). Returns ErrKeyExists if the exact pair is already
// present.
func (h *Handle) InsertEntry(keyBuf []byte, r rid.RID) error {
	if h.poisoned {
		return ErrInvalidOperation
	}
	switch h.keyKind {
	case page.KeyKindInt:
		k, err := decodeIntKey(keyBuf)
		if err != nil {
			return err
		}
		return insertTyped(h, k, r)
	case page.KeyKindFloat:
		k, err := decodeFloatKey(keyBuf)
		if err != nil {
			return err
		}
		return insertTyped(h, k, r)
	default:
		return ErrInvalidOperation
	}
}

// DeleteEntry decodes key from the boundary attribute buffer and
// removes the exact (key, r) entry. Returns ErrRecordNotFound if no
// such entry exists.
func (h *Handle) DeleteEntry(keyBuf []byte, r rid.RID) error {
	if h.poisoned {
		return ErrInvalidOperation
	}
	switch h.keyKind {
	case page.KeyKindInt:
		k, err := decodeIntKey(keyBuf)
		if err != nil {
			return err
		}
		return deleteTyped(h, k, r)
	case page.KeyKindFloat:
		k, err := decodeFloatKey(keyBuf)
		if err != nil {
			return err
		}
		return deleteTyped(h, k, r)
	default:
		return ErrInvalidOperation
	}
}

func insertTyped[K page.Key](h *Handle, key K, r rid.RID) error {
	cache := btree.NewCache[K](loaderFor[K](h), allocatorFor(h))
	engine := btree.NewEngine[K](h.d, cache)

	root, err := cache.Get(h.root, rootKind(h.height))
	if err != nil {
		return errors.Mark(err, ErrFileOpError)
	}

	newRoot, newHeight, err := engine.Insert(root, h.height, key, r)
	if err != nil {
		if errors.Is(err, btree.ErrKeyExists) {
			return ErrKeyExists
		}
		return errors.Mark(err, ErrFileOpError)
	}

	return commit(h, cache, engine, newRoot, newHeight)
}

func deleteTyped[K page.Key](h *Handle, key K, r rid.RID) error {
	cache := btree.NewCache[K](loaderFor[K](h), allocatorFor(h))
	engine := btree.NewEngine[K](h.d, cache)

	root, err := cache.Get(h.root, rootKind(h.height))
	if err != nil {
		return errors.Mark(err, ErrFileOpError)
	}

	newRoot, newHeight, err := engine.Delete(root, h.height, key, r)
	if err != nil {
		if errors.Is(err, btree.ErrNotFound) {
			return ErrRecordNotFound
		}
		return errors.Mark(err, ErrFileOpError)
	}

	return commit(h, cache, engine, newRoot, newHeight)
}

func loaderFor[K page.Key](h *Handle) btree.Loader[K] {
	return func(pageNum int64, expectedKind page.Kind) (*btree.Node[K], error) {
		pg, err := h.pager.ReadPage(pageNum)
		if err != nil {
			return nil, err
		}
		nd, err := page.DecodeNode[K](pg, h.d)
		if err != nil {
			return nil, err
		}
		if nd.Kind != expectedKind {
			return nil, errors.Newf("index: page %d has kind %d, expected %d", pageNum, nd.Kind, expectedKind)
		}
		return fromNodeData[K](pageNum, nd), nil
	}
}

func allocatorFor(h *Handle) btree.Allocator {
	return func() (int64, error) { return h.pager.Allocate() }
}

// commit flushes an engine's updated/deleted node sets, writes the
// metadata page if the root, height, or free-list head changed, and
// records the new root/height and flush statistics on success. Per
// spec.md §5's ordering requirement, newly allocated nodes already
// carry real page numbers (internal/btree's eager allocation), so
// updated nodes write in one pass, then deleted pages free, then
// metadata.
func commit[K page.Key](h *Handle, cache *btree.Cache[K], engine *btree.Engine[K], newRoot *btree.Node[K], newHeight int) error {
	var stats FlushStats
	for _, n := range cache.Updated() {
		pg, err := page.EncodeNode[K](toNodeData[K](n), h.d)
		if err != nil {
			h.poisoned = true
			h.logger.Error("flush encode failed", zap.Error(err))
			return errors.Mark(err, ErrFileOpError)
		}
		if err := h.pager.WritePage(n.PageNum, pg); err != nil {
			h.poisoned = true
			h.logger.Error("flush write failed", zap.Error(err))
			return errors.Mark(err, ErrFileOpError)
		}
		stats.PagesWritten++
	}
	for _, n := range cache.Deleted() {
		if err := h.pager.Free(n.PageNum); err != nil {
			h.poisoned = true
			h.logger.Error("flush free failed", zap.Error(err))
			return errors.Mark(err, ErrFileOpError)
		}
		stats.PagesFreed++
	}

	hint := uint32(0)
	if head := h.pager.FreeHead(); head != page.NoPage {
		hint = uint32(head)
	}
	writeMeta := newRoot.PageNum != h.root || newHeight != h.height || stats.PagesFreed > 0
	if !writeMeta {
		// Allocate may have popped the free list without any page freed.
		old, err := h.readMetadata()
		writeMeta = err != nil || old.FreePageHint != hint
	}
	if writeMeta {
		meta := page.Metadata{KeyKind: h.keyKind, RootPageNum: uint32(newRoot.PageNum), Height: uint32(newHeight), FreePageHint: hint}
		if err := h.pager.WritePage(0, page.EncodeMetadata(meta)); err != nil {
			h.poisoned = true
			h.logger.Error("flush metadata write failed", zap.Error(err))
			return errors.Mark(err, ErrFileOpError)
		}
	}

	stats.Splits, stats.Merges, stats.Redistributes = engine.Splits, engine.Merges, engine.Redistributes
	h.lastStats = stats
	h.root, h.height = newRoot.PageNum, newHeight
	return nil
}
