package meshcache

import "github.com/prometheus/client_golang/prometheus"

// Collector exports cache statistics as Prometheus metrics, labelled by
// kind. It reads Stats on every scrape, so it needs no updates of its own.
type Collector struct {
	cache *Cache

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	bytes     *prometheus.Desc
	entries   *prometheus.Desc
}

// NewCollector returns a collector for c. Register it explicitly.
func NewCollector(c *Cache) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("atomfill", "meshcache", name), help, []string{"kind"}, nil)
	}
	return &Collector{
		cache:     c,
		hits:      desc("hits_total", "Cache lookups that found an entry."),
		misses:    desc("misses_total", "Cache lookups that found nothing."),
		evictions: desc("evictions_total", "Entries evicted to stay within budget."),
		bytes:     desc("bytes", "Bytes held by cached entries."),
		entries:   desc("entries", "Number of cached entries."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.bytes
	ch <- c.entries
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()
	for _, k := range []struct {
		kind  Kind
		stats KindStats
	}{{KindMesh, s.Mesh}, {KindSketch, s.Sketch}} {
		label := k.kind.String()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(k.stats.Hits), label)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(k.stats.Misses), label)
		ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(k.stats.Evictions), label)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(k.stats.Bytes), label)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(k.stats.Entries), label)
	}
}
