package domain

import "math"

// RawPosition is an exchange-reported position snapshot, read-only.
// Size is signed: positive long, negative short. MarkPrice may be
// stale or absent (0).
type RawPosition struct {
	Symbol        string
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnL float64
}

// IsFlat reports whether the position is considered flat and should be
// excluded from the active view.
func (p RawPosition) IsFlat() bool {
	return math.Abs(p.Size) <= FlatPositionEpsilon
}

// Side derives the direction from the sign of the size.
func (p RawPosition) Side() OrderSide {
	if p.Size < 0 {
		return Sell
	}
	return Buy
}

// ExchangePosition is the enriched view of a RawPosition returned by
// reconciliation. The derived fields are computed per request, never
// stored.
type ExchangePosition struct {
	Symbol        string    `json:"symbol"`
	Size          float64   `json:"size"`
	Side          OrderSide `json:"side"`
	EntryPrice    float64   `json:"entryPrice"`
	MarkPrice     float64   `json:"markPrice"`
	CurrentPrice  float64   `json:"currentPrice"`
	PositionValue float64   `json:"positionValue"`
	UnrealizedPnL float64   `json:"unrealizedPnl"`
	ROE           float64   `json:"roePercentage"`
	PriceError    bool      `json:"price_error"`
}
