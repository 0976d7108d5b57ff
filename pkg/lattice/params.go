package lattice

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/atomfill/pkg/atomic"
)

// ParseParameterElements reads parameter overrides in the form
//
//	PRIMARY Si
//	SECONDARY 6
//
// one per line. The element may be a symbol or an atomic number. Blank lines
// and lines starting with # are ignored.
func ParseParameterElements(text string) (map[string]int, error) {
	out := make(map[string]int)
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return nil, fmt.Errorf("lattice: parameters line %d: expected NAME ELEMENT, got %q", line, s)
		}
		z, err := parseElement(fields[1])
		if err != nil {
			return nil, fmt.Errorf("lattice: parameters line %d: %w", line, err)
		}
		out[fields[0]] = z
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("lattice: parameters: %w", err)
	}
	return out, nil
}

func parseElement(s string) (int, error) {
	if z, err := strconv.Atoi(s); err == nil {
		if z <= 0 {
			return 0, fmt.Errorf("atomic number must be positive, got %d", z)
		}
		return z, nil
	}
	e, ok := atomic.ElementBySymbol(s)
	if !ok {
		return 0, fmt.Errorf("unknown element %q", s)
	}
	return e.Z, nil
}

// ResolveParameterElements converts symbol-valued overrides, as found in
// config files, to atomic numbers.
func ResolveParameterElements(in map[string]string) (map[string]int, error) {
	out := make(map[string]int, len(in))
	for name, v := range in {
		z, err := parseElement(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("lattice: parameter %s: %w", name, err)
		}
		out[name] = z
	}
	return out, nil
}
