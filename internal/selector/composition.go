// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"fmt"
	"math"
	"sort"
)

// Composition maps an element symbol to its atom count.
type Composition map[string]float64

// ParseComposition converts a decoded JSON object of element counts.
func ParseComposition(v any) (Composition, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object of element counts, got %T", v)
	}
	c := make(Composition, len(m))
	for el, raw := range m {
		n, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("count for %s: %w", el, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count %v for %s", n, el)
		}
		c[el] = n
	}
	return c, nil
}

// Elements returns the element symbols in sorted order.
func (c Composition) Elements() []string {
	out := make([]string, 0, len(c))
	for el := range c {
		out = append(out, el)
	}
	sort.Strings(out)
	return out
}

// GCD returns the greatest common divisor of all counts. Every count must
// be integral and fit in an int32, and the result is at least 1.
func (c Composition) GCD() (int, error) {
	g := 0
	for _, el := range c.Elements() {
		n := c[el]
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integral count %v for %s", n, el)
		}
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("count %v for %s out of range", n, el)
		}
		g = gcd(g, int(n))
	}
	if g < 1 {
		return 0, fmt.Errorf("no positive atom counts")
	}
	return g, nil
}

// Cell formats the count for el with zero decimal places, or "0" when
// el is absent.
func (c Composition) Cell(el string) string {
	n, ok := c[el]
	if !ok {
		return "0"
	}
	return fmt.Sprintf("%.0f", n)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
