// Package lattice fills a geometry tree with atoms arranged on a periodic
// crystal lattice.
//
// A UnitCell gives the three lattice vectors, a Motif lists the atomic sites
// inside one cell and the bonds between sites of the same or neighbouring
// cells. Fill walks the geometry's region with an adaptive box subdivision,
// samples every motif site of every cell that can touch the solid, and
// keeps the sites whose signed distance is within tolerance of the surface.
// Optional post-processing removes under-coordinated atoms, reconstructs
// diamond (100) surfaces into dimers and caps dangling bonds with hydrogen.
package lattice
