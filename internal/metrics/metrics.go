// Package metrics declares the Prometheus collectors internal/manager
// feeds from each index operation's internal/index.FlushStats
// (SPEC_FULL.md §2, §4.4).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors groups the counters and histogram a Manager updates
// after every InsertEntry/DeleteEntry. All are labeled by operation
// ("insert"/"delete") where that distinction is meaningful.
type Collectors struct {
	Ops           *prometheus.CounterVec
	Splits        prometheus.Counter
	Merges        prometheus.Counter
	Redistributes prometheus.Counter
	FlushDuration prometheus.Histogram
}

// New registers a fresh Collectors set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the
// default global registry across test cases.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ix",
			Name:      "operations_total",
			Help:      "Index operations processed, labeled by kind.",
		}, []string{"op"}),
		Splits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ix",
			Name:      "node_splits_total",
			Help:      "Leaf and internal node splits performed.",
		}),
		Merges: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ix",
			Name:      "node_merges_total",
			Help:      "Leaf and internal node merges performed.",
		}),
		Redistributes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ix",
			Name:      "node_redistributes_total",
			Help:      "Sibling key redistributions performed.",
		}),
		FlushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ix",
			Name:      "flush_duration_seconds",
			Help:      "Time spent on an index operation, including flushing its dirty pages.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
