// Package pnl contains the pure profit-and-loss math used by
// reconciliation. No I/O, no failure modes beyond invalid numeric input,
// which callers are expected to guard (entry = 0 is treated upstream as
// a price-unavailable condition).
package pnl

import (
	"fmt"
	"math"

	"cryptoTradeDesk/internal/domain"
)

// Unrealized computes unrealized P&L for a trade from its side, entry
// price, current price and quantity.
func Unrealized(side domain.OrderSide, entry, current, qty float64) float64 {
	if side == domain.Buy {
		return (current - entry) * qty
	}
	return (entry - current) * qty
}

// PercentString expresses priceDiff as a percentage of entry, formatted
// with two decimal places for display. Callers guard entry = 0.
func PercentString(entry, priceDiff float64) string {
	return fmt.Sprintf("%.2f", priceDiff/entry*100)
}

// PositionValue is the entry value of an exchange position:
// |size| * entry.
func PositionValue(size, entry float64) float64 {
	return math.Abs(size) * entry
}

// PositionUnrealized computes unrealized P&L for an exchange-reported
// position. The sign of size selects the direction: long positions gain
// when the current value exceeds the entry value, shorts the reverse.
func PositionUnrealized(size, entry, current float64) float64 {
	positionValue := math.Abs(size) * entry
	currentValue := math.Abs(size) * current
	if size >= 0 {
		return currentValue - positionValue
	}
	return positionValue - currentValue
}

// ROE is the unrealized P&L expressed as a percentage of the position's
// entry value, rounded to two decimal places. Zero when the position
// value is zero.
func ROE(unrealized, positionValue float64) float64 {
	if positionValue == 0 {
		return 0
	}
	return math.Round(unrealized/positionValue*100*100) / 100
}
