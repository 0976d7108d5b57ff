package tessellate

import (
	"io"

	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/chazu/atomfill/pkg/kernel"
	"github.com/chazu/atomfill/pkg/meshcache"
	"github.com/sirupsen/logrus"
)

// Converter converts trees through a kernel, memoizing results by content
// hash. Two trees built independently but structurally equal share one
// cache entry. A nil Cache disables memoization.
type Converter struct {
	Kernel kernel.Kernel
	Cache  *meshcache.Cache
	Logger logrus.FieldLogger
}

// NewConverter returns a converter over k and c.
func NewConverter(k kernel.Kernel, c *meshcache.Cache) *Converter {
	return &Converter{Kernel: k, Cache: c}
}

func (c *Converter) log() logrus.FieldLogger {
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return c.Logger
}

// Mesh returns the mesh for the solid n, converting it only on a cache miss.
// The returned mesh is shared with the cache and must not be modified.
func (c *Converter) Mesh(n *geotree.Node) (*kernel.Mesh, error) {
	if n == nil {
		return nil, ErrNilGeometry
	}
	key := n.Hash()
	if c.Cache != nil {
		if m, ok := c.Cache.GetMesh(key); ok {
			c.log().WithField("hash", key.Short()).Debug("mesh cache hit")
			return m, nil
		}
	}
	m, err := ToMesh(n, c.Kernel)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil && !c.Cache.PutMesh(key, m) {
		c.log().WithFields(logrus.Fields{
			"hash":  key.Short(),
			"bytes": m.SizeBytes(),
		}).Debug("mesh larger than cache budget, not cached")
	}
	return m, nil
}

// Sketch is the planar counterpart of Mesh.
func (c *Converter) Sketch(n *geotree.Node) (*kernel.Sketch, error) {
	if n == nil {
		return nil, ErrNilGeometry
	}
	key := n.Hash()
	if c.Cache != nil {
		if s, ok := c.Cache.GetSketch(key); ok {
			c.log().WithField("hash", key.Short()).Debug("sketch cache hit")
			return s, nil
		}
	}
	s, err := ToSketch(n, c.Kernel)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil && !c.Cache.PutSketch(key, s) {
		c.log().WithFields(logrus.Fields{
			"hash":  key.Short(),
			"bytes": s.SizeBytes(),
		}).Debug("sketch larger than cache budget, not cached")
	}
	return s, nil
}
