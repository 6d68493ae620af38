package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/meshkv/internal/storage/memory"
)

// KeyspaceSource is what the collector reads at scrape time.
type KeyspaceSource interface {
	KeyCounts() []int
	Stats() memory.Stats
}

// KeyspaceCollector reports per-database key counts and expiration totals.
type KeyspaceCollector struct {
	src KeyspaceSource

	keys    *prometheus.Desc
	expired *prometheus.Desc
}

// NewKeyspaceCollector creates a collector reading from src.
func NewKeyspaceCollector(src KeyspaceSource) *KeyspaceCollector {
	return &KeyspaceCollector{
		src: src,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Keys stored per database, including expired keys not yet purged.",
			[]string{"db"}, nil,
		),
		expired: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "expired_keys_total"),
			"Keys removed because their deadline passed, by removal mode.",
			[]string{"mode"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expired
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	for db, n := range c.src.KeyCounts() {
		if n == 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(n), strconv.Itoa(db))
	}

	st := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.ExpiredLazy), "lazy")
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.CounterValue, float64(st.ExpiredActive), "active")
}
