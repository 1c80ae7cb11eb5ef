package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Money represents a monetary value in minor units (whole pesos).
type Money = int64

// FromNumber converts a backend-supplied amount into Money, rounding to the
// nearest whole unit. Menu prices arrive as either integers or decimal strings
// depending on the backend's price-list configuration.
func FromNumber(n json.Number) Money {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Money(math.Round(f))
}

// LineSubtotal computes quantity * unit price, guarding against negative input.
func LineSubtotal(unitPrice Money, quantity int) Money {
	if quantity <= 0 {
		return 0
	}
	return unitPrice * Money(quantity)
}

// Surcharge returns the chargeable difference between a charged price and a
// base price. Swapping a combo slot to a cheaper product never produces a
// refund, so negative differences clamp to zero.
func Surcharge(base, charged Money) Money {
	if charged <= base {
		return 0
	}
	return charged - base
}
