// Package geotree defines the geometry expression tree for atomfill.
// A tree is an immutable DAG of 2D and 3D primitives combined by boolean
// operations, rigid transforms and extrusion. Every node carries a content
// hash so structurally equal subtrees are interchangeable as cache keys.
package geotree
