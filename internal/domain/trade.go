package domain

import "time"

// Trade is the locally owned record of an intended or completed position.
// It is created and mutated by the lifecycle manager; reconciliation only
// fills the transient enrichment fields, which are never persisted.
type Trade struct {
	ID           int64       `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         OrderSide   `json:"side"`
	Quantity     float64     `json:"quantity"`
	EntryPrice   float64     `json:"entryPrice"`
	StopLoss     float64     `json:"stopLoss,omitempty"`   // 0 means no stop-loss order
	TakeProfit   float64     `json:"takeProfit,omitempty"` // 0 means no take-profit order
	Status       TradeStatus `json:"status"`
	OpenTime     time.Time   `json:"openTime"`
	CloseTime    time.Time   `json:"closeTime,omitempty"` // zero value iff not closed
	RealizedPnL  float64     `json:"realizedPnl"`         // authoritative only when Status == closed
	Fees         float64     `json:"fees"`
	IsPaperTrade bool        `json:"isPaperTrade"`
	CloseReason  CloseReason `json:"closeReason,omitempty"`

	// Exchange order IDs for bracket management (nil when no bracket
	// order was placed, e.g. paper trades).
	StopLossOrderID   *int64 `json:"stopLossOrderId,omitempty"`
	TakeProfitOrderID *int64 `json:"takeProfitOrderId,omitempty"`

	// Transient enrichment fields, recomputed on every reconciliation
	// request and never written back to storage.
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	CurrentPrice  float64 `json:"currentPrice,omitempty"`
	PnLPercent    string  `json:"pnlPercentage,omitempty"`
	PriceDegraded bool    `json:"priceDegraded,omitempty"`
}

// IsOpen reports whether the trade currently holds exposure.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// IsDeletable reports whether the trade may be removed from the ledger.
// Trades holding exposure are undeletable.
func (t *Trade) IsDeletable() bool {
	return t.Status != StatusOpen
}
