package atomic

import (
	"strings"

	"github.com/samber/lo"
)

// Element describes a chemical element as far as filling and passivation
// need it.
type Element struct {
	Z              int
	Symbol         string
	Name           string
	CovalentRadius float64 // Å, single bond
	Valence        int     // expected number of single bonds in a saturated solid
}

// DefaultCovalentRadius is used for elements missing from the table.
const DefaultCovalentRadius = 0.7

// Covalent radii after Cordero et al. (2008).
var elements = map[int]Element{
	1:  {1, "H", "Hydrogen", 0.31, 1},
	5:  {5, "B", "Boron", 0.84, 3},
	6:  {6, "C", "Carbon", 0.76, 4},
	7:  {7, "N", "Nitrogen", 0.71, 3},
	8:  {8, "O", "Oxygen", 0.66, 2},
	9:  {9, "F", "Fluorine", 0.57, 1},
	14: {14, "Si", "Silicon", 1.11, 4},
	15: {15, "P", "Phosphorus", 1.07, 3},
	16: {16, "S", "Sulfur", 1.05, 2},
	17: {17, "Cl", "Chlorine", 1.02, 1},
	32: {32, "Ge", "Germanium", 1.20, 4},
}

// ElementByZ looks up an element by atomic number.
func ElementByZ(z int) (Element, bool) {
	e, ok := elements[z]
	return e, ok
}

// ElementBySymbol looks up an element by symbol, ignoring case.
func ElementBySymbol(sym string) (Element, bool) {
	return lo.Find(lo.Values(elements), func(e Element) bool {
		return strings.EqualFold(e.Symbol, sym)
	})
}

// Symbol returns the element symbol for z, or "X" if unknown.
func Symbol(z int) string {
	if e, ok := elements[z]; ok {
		return e.Symbol
	}
	return "X"
}

// CovalentRadius returns the single-bond covalent radius of z in Å.
func CovalentRadius(z int) float64 {
	if e, ok := elements[z]; ok {
		return e.CovalentRadius
	}
	return DefaultCovalentRadius
}

// Valence returns the expected bond count of z, or 0 if unknown.
func Valence(z int) int {
	return elements[z].Valence
}
