package tax

import "math"

const (
	// Rate is the marketplace sell tax.
	Rate = 0.02
	// Cap is the maximum tax charged on a single item.
	Cap = 5_000_000
	// ExemptBelow is the price under which no tax is charged.
	ExemptBelow = 50
)

// capApplied is the lowest net price that can only result from a capped
// gross (gross >= 250M taxes flat 5M, so net >= 245M).
const capApplied = 245_000_000

// Tax returns the sell tax on a gross price: 2% rounded down, capped at 5M.
// Prices under 50 gp are exempt.
func Tax(gross int64) int64 {
	if gross < ExemptBelow {
		return 0
	}
	t := int64(math.Floor(float64(gross) * Rate))
	if t > Cap {
		return Cap
	}
	return t
}

// NetToGross inverts Tax: given a net price (gross minus tax, as the trade
// history reports it) it recovers the gross price the buyer paid.
//
// Net 49 is ambiguous: it can come from gross 49 (exempt) or gross 50
// (taxed by 1). We resolve it toward exemption, so every net below 50
// passes through unchanged.
func NetToGross(net int64) int64 {
	if net < ExemptBelow {
		return net
	}
	if net >= capApplied {
		return net + Cap
	}

	est := int64(math.Round(float64(net) / (1 - Rate)))
	if est-Tax(est) == net {
		return est
	}
	// Rounding can land one or two gp off; probe the neighbors.
	for _, off := range []int64{1, -1, 2, -2} {
		g := est + off
		if g-Tax(g) == net {
			return g
		}
	}
	return est
}

// Net returns the proceeds of selling at the given gross price.
func Net(gross int64) int64 {
	return gross - Tax(gross)
}
