// Package meshcache keeps polygonized geometry keyed by geometry content
// hash, so that rebuilding an unchanged tree does not re-run the kernel.
//
// Meshes and sketches live in separate least-recently-used lists, each with
// its own byte budget. A lookup only ever returns an entry stored under the
// same full digest.
package meshcache

import (
	"container/list"
	"sync"

	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/chazu/atomfill/pkg/kernel"
	"github.com/sirupsen/logrus"
)

// Default byte budgets.
const (
	DefaultMeshBudget   int64 = 256 << 20
	DefaultSketchBudget int64 = 32 << 20
)

// Kind selects one of the two caches.
type Kind int

const (
	KindMesh Kind = iota
	KindSketch
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindSketch:
		return "sketch"
	default:
		return "unknown"
	}
}

// Options sets the byte budget of each cache. Zero means the default.
type Options struct {
	MeshBudget   int64
	SketchBudget int64
}

// KindStats counts activity for one kind of entry.
type KindStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Bytes     int64
	Entries   int
	Budget    int64
}

// HitRate is hits over lookups, or 0 before the first lookup.
func (s KindStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Stats is a snapshot of both caches.
type Stats struct {
	Mesh   KindStats
	Sketch KindStats
}

type sized interface {
	SizeBytes() int64
}

type entry struct {
	key   geotree.Digest
	value sized
	size  int64
}

// lru is one budgeted list. Front is most recently used.
type lru struct {
	ll    *list.List
	items map[geotree.Digest]*list.Element
	stats KindStats
}

func newLRU(budget int64) *lru {
	return &lru{
		ll:    list.New(),
		items: make(map[geotree.Digest]*list.Element),
		stats: KindStats{Budget: budget},
	}
}

func (c *lru) get(key geotree.Digest) (sized, bool) {
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	c.ll.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lru) put(key geotree.Digest, v sized) bool {
	size := v.SizeBytes()
	if size > c.stats.Budget {
		return false
	}
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		c.stats.Bytes += size - e.size
		e.value, e.size = v, size
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(&entry{key: key, value: v, size: size})
		c.stats.Bytes += size
		c.stats.Entries++
	}
	for c.stats.Bytes > c.stats.Budget {
		c.evict()
	}
	return true
}

func (c *lru) evict() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	e := c.ll.Remove(el).(*entry)
	delete(c.items, e.key)
	c.stats.Bytes -= e.size
	c.stats.Entries--
	c.stats.Evictions++
}

func (c *lru) reset() {
	c.ll.Init()
	c.items = make(map[geotree.Digest]*list.Element)
	c.stats = KindStats{Budget: c.stats.Budget}
}

// Cache is a pair of budgeted LRU caches. It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	mesh   *lru
	sketch *lru
}

// New returns an empty cache.
func New(opts Options) *Cache {
	if opts.MeshBudget <= 0 {
		opts.MeshBudget = DefaultMeshBudget
	}
	if opts.SketchBudget <= 0 {
		opts.SketchBudget = DefaultSketchBudget
	}
	return &Cache{mesh: newLRU(opts.MeshBudget), sketch: newLRU(opts.SketchBudget)}
}

// GetMesh returns the mesh stored for d.
func (c *Cache) GetMesh(d geotree.Digest) (*kernel.Mesh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.mesh.get(d)
	if !ok {
		return nil, false
	}
	return v.(*kernel.Mesh), true
}

// PutMesh stores m under d, evicting old meshes as needed. A mesh larger
// than the whole budget is not stored and PutMesh returns false.
func (c *Cache) PutMesh(d geotree.Digest, m *kernel.Mesh) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mesh.put(d, m)
}

// GetSketch returns the sketch stored for d.
func (c *Cache) GetSketch(d geotree.Digest) (*kernel.Sketch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.sketch.get(d)
	if !ok {
		return nil, false
	}
	return v.(*kernel.Sketch), true
}

// PutSketch stores s under d; see PutMesh.
func (c *Cache) PutSketch(d geotree.Digest, s *kernel.Sketch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sketch.put(d, s)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Mesh: c.mesh.stats, Sketch: c.sketch.stats}
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mesh.reset()
	c.sketch.reset()
}

// Log writes the statistics at debug level.
func (s Stats) Log(l logrus.FieldLogger) {
	for _, k := range []struct {
		kind  Kind
		stats KindStats
	}{{KindMesh, s.Mesh}, {KindSketch, s.Sketch}} {
		l.WithFields(logrus.Fields{
			"kind":      k.kind,
			"hits":      k.stats.Hits,
			"misses":    k.stats.Misses,
			"hit_rate":  k.stats.HitRate(),
			"evictions": k.stats.Evictions,
			"entries":   k.stats.Entries,
			"bytes":     k.stats.Bytes,
			"budget":    k.stats.Budget,
		}).Debug("mesh cache statistics")
	}
}
