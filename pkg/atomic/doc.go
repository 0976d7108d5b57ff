// Package atomic holds the output of a lattice fill: atoms with positions,
// elements and per-atom metadata, and the bonds between them.
package atomic
