package query

import (
	"math"
	"strconv"
	"strings"
)

// PriceRange is an inclusive price interval. An unbounded range has no
// upper end.
type PriceRange struct {
	Min     float64
	Max     float64
	Bounded bool
}

// ParsePriceRange decodes the "<min>-<max>" wire form.
//
// An absent, empty or zero max means "min and above". Malformed input
// reports ok == false and callers must apply no price filter at all.
func ParsePriceRange(s string) (r PriceRange, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriceRange{}, false
	}

	minS, maxS, hasMax := strings.Cut(s, "-")
	if strings.Contains(maxS, "-") {
		return PriceRange{}, false
	}

	lo, ok := parseBound(minS)
	if !ok {
		return PriceRange{}, false
	}
	r.Min = lo

	maxS = strings.TrimSpace(maxS)
	if !hasMax || maxS == "" {
		return r, true
	}

	hi, ok := parseBound(maxS)
	if !ok {
		return PriceRange{}, false
	}
	if hi == 0 {
		return r, true
	}
	r.Max = hi
	r.Bounded = true
	return r, true
}

func parseBound(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func (r PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	return !r.Bounded || price <= r.Max
}

// String returns the wire form of r.
func (r PriceRange) String() string {
	lo := strconv.FormatFloat(r.Min, 'f', -1, 64)
	if !r.Bounded {
		return lo
	}
	return lo + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64)
}
