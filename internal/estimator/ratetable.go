package estimator

import (
	"fmt"
	"math"
)

// Breakpoint prices every volume up to and including UpTo. UpTo of zero is unbounded.
type Breakpoint struct {
	UpTo int     `json:"up_to" yaml:"up_to"`
	Rate float64 `json:"rate" yaml:"rate"`
}

// TieredRateTable is an ascending list of volume breakpoints. A lookup picks the
// first breakpoint whose UpTo is >= the requested volume.
type TieredRateTable []Breakpoint

// Lookup returns the rate for volume, or false when volume lies past the last
// bounded breakpoint.
func (t TieredRateTable) Lookup(volume int) (float64, bool) {
	for _, bp := range t {
		if bp.UpTo == 0 || volume <= bp.UpTo {
			return bp.Rate, true
		}
	}
	return 0, false
}

// LookupOrLast is Lookup with volumes past the table priced at the top band.
func (t TieredRateTable) LookupOrLast(volume int) float64 {
	if rate, ok := t.Lookup(volume); ok {
		return rate
	}
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].Rate
}

func (t TieredRateTable) validate(name string) error {
	if len(t) == 0 {
		return fmt.Errorf("%s: table is empty", name)
	}
	prev := 0
	for i, bp := range t {
		if math.IsNaN(bp.Rate) || math.IsInf(bp.Rate, 0) || bp.Rate < 0 {
			return fmt.Errorf("%s: breakpoint %d has invalid rate %v", name, i, bp.Rate)
		}
		if bp.UpTo < 0 {
			return fmt.Errorf("%s: breakpoint %d has negative bound %d", name, i, bp.UpTo)
		}
		if bp.UpTo == 0 {
			if i != len(t)-1 {
				return fmt.Errorf("%s: unbounded breakpoint must be last", name)
			}
			continue
		}
		if bp.UpTo <= prev {
			return fmt.Errorf("%s: breakpoints must be strictly ascending", name)
		}
		prev = bp.UpTo
	}
	return nil
}

func (t TieredRateTable) clone() TieredRateTable {
	out := make(TieredRateTable, len(t))
	copy(out, t)
	return out
}
