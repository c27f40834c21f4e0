// Package manager implements the index manager facade: create/destroy/
// open/close operations backed by a catalog and the paged file
// manager, adapted from the original header's IX_Manager (singleton
// Instance(), CreateIndex/DestroyIndex/OpenIndex/CloseIndex) into an
// idiomatic Go constructor with no singleton (SPEC_FULL.md §6).
package manager

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ixtree/internal/catalog"
	"ixtree/internal/index"
	"ixtree/internal/metrics"
	"ixtree/internal/page"
)

// ErrIndexExists is returned by CreateIndex when the catalog already
// has an entry for (table, attribute).
var ErrIndexExists = errors.New("manager: index already exists")

// ErrIndexOpen is returned by DestroyIndex when the index is still
// held open by a Handle.
var ErrIndexOpen = errors.New("manager: index is open")

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger injects a zap logger for lifecycle and error events.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCachePages bounds the page cache each opened index's pager uses.
func WithCachePages(n int) Option {
	return func(m *Manager) { m.cachePages = n }
}

// WithRateLimit throttles every opened index's page writes.
func WithRateLimit(ratePerSec, burst float64) Option {
	return func(m *Manager) { m.rateLimited, m.ratePerSec, m.burst = true, ratePerSec, burst }
}

// WithRegisterer points the manager's Prometheus collectors at a
// specific registry instead of the default global one. Tests should
// always supply their own to avoid cross-test collisions.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Manager) { m.registerer = reg }
}

// WithSentryReporting enables sentry-go error reporting for poisoned-
// handle flush failures. enabled must be true only once
// sentry.Init has been called by the caller (typically cmd/ixctl);
// the manager never calls sentry.Init itself.
func WithSentryReporting(enabled bool) Option {
	return func(m *Manager) { m.sentryEnabled = enabled }
}

// Manager is the facade over a directory of index files, keyed by
// (table, attribute) through a catalog.Catalog.
type Manager struct {
	baseDir string
	cat     catalog.Catalog
	logger  *zap.Logger

	cachePages  int
	rateLimited bool
	ratePerSec  float64
	burst       float64

	registerer    prometheus.Registerer
	metrics       *metrics.Collectors
	sentryEnabled bool

	mu   sync.Mutex
	open map[string]*Handle
}

// Open constructs a Manager rooted at baseDir, opening or creating the
// JSON catalog at baseDir/catalog.json.
func Open(baseDir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		baseDir:    baseDir,
		logger:     zap.NewNop(),
		cachePages: 64,
		registerer: prometheus.DefaultRegisterer,
		open:       make(map[string]*Handle),
	}
	for _, o := range opts {
		o(m)
	}

	cat, err := catalog.OpenFileCatalog(filepath.Join(baseDir, "catalog.json"))
	if err != nil {
		return nil, errors.Wrap(err, "manager: open catalog")
	}
	m.cat = cat
	m.metrics = metrics.New(m.registerer)
	return m, nil
}

func composite(table, attribute string) string { return table + "." + attribute }

// CreateIndex registers and bootstraps a new empty index file for
// (table, attribute) over keys of kind keyKind.
func (m *Manager) CreateIndex(table, attribute string, keyKind page.KeyKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.cat.Lookup(table, attribute); err == nil {
		return errors.Wrapf(ErrIndexExists, "manager: %s.%s", table, attribute)
	}

	fileName := composite(table, attribute) + ".ix"
	fullPath := filepath.Join(m.baseDir, fileName)

	h, err := index.Open(fullPath, keyKind, index.WithLogger(m.logger))
	if err != nil {
		return err
	}
	if err := h.Close(); err != nil {
		return err
	}

	if err := m.cat.Register(table, attribute, catalog.Entry{KeyKind: keyKind, FileName: fileName}); err != nil {
		return errors.Wrap(err, "manager: register catalog entry")
	}

	m.logger.Info("index created", zap.String("table", table), zap.String("attribute", attribute))
	return nil
}

// DestroyIndex removes the catalog entry and backing file for
// (table, attribute). It refuses to destroy an index that is
// currently open.
func (m *Manager) DestroyIndex(table, attribute string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := composite(table, attribute)
	if _, ok := m.open[key]; ok {
		return errors.Wrapf(ErrIndexOpen, "manager: %s", key)
	}

	entry, err := m.cat.Lookup(table, attribute)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(m.baseDir, entry.FileName)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "manager: remove index file")
	}
	if err := m.cat.Remove(table, attribute); err != nil {
		return errors.Wrap(err, "manager: remove catalog entry")
	}

	m.logger.Info("index destroyed", zap.String("table", table), zap.String("attribute", attribute))
	return nil
}

// OpenIndex opens the index registered for (table, attribute),
// wrapping it in a Handle that reports metrics on every operation.
func (m *Manager) OpenIndex(table, attribute string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := composite(table, attribute)
	entry, err := m.cat.Lookup(table, attribute)
	if err != nil {
		return nil, err
	}

	var opts []index.Option
	opts = append(opts, index.WithCachePages(m.cachePages), index.WithLogger(m.logger))
	if m.rateLimited {
		opts = append(opts, index.WithRateLimit(m.ratePerSec, m.burst))
	}

	h, err := index.Open(filepath.Join(m.baseDir, entry.FileName), entry.KeyKind, opts...)
	if err != nil {
		return nil, err
	}

	handle := &Handle{
		mgr:       m,
		key:       key,
		table:     table,
		attribute: attribute,
		inner:     h,
	}
	m.open[key] = handle
	return handle, nil
}

// CloseIndex closes h and unregisters it from the manager's open set.
func (m *Manager) CloseIndex(h *Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.open, h.key)
	return h.inner.Close()
}

// reportFlushFailure logs and, if enabled, sends an I/O failure to
// Sentry. Per SPEC_FULL.md §7, KEY_EXISTS and RECORD_NOT_FOUND never
// reach here; every FILE_OP_ERROR does: flush failures, which poison
// the handle, and page read failures, which do not.
func (m *Manager) reportFlushFailure(table, attribute string, err error) {
	m.logger.Error("index operation failed with an I/O error",
		zap.String("table", table), zap.String("attribute", attribute), zap.Error(err))
	if m.sentryEnabled {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("table", table)
			scope.SetTag("attribute", attribute)
			sentry.CaptureException(err)
		})
	}
}

func (m *Manager) recordOp(op string, stats index.FlushStats, elapsed time.Duration) {
	m.metrics.Ops.WithLabelValues(op).Inc()
	m.metrics.Splits.Add(float64(stats.Splits))
	m.metrics.Merges.Add(float64(stats.Merges))
	m.metrics.Redistributes.Add(float64(stats.Redistributes))
	m.metrics.FlushDuration.Observe(elapsed.Seconds())
}
