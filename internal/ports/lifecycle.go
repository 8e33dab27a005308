package ports

import (
	"context"

	"cryptoTradeDesk/internal/domain"
)

// TradeParams carries the inputs for opening a trade through the
// lifecycle manager.
type TradeParams struct {
	Symbol     string
	Side       domain.OrderSide
	Quantity   float64
	StopLoss   float64 // 0 disables the stop-loss bracket
	TakeProfit float64 // 0 disables the take-profit bracket
	Reason     string  // free-form audit note (e.g. "reversal")
}

// TradeLifecycle is the full trade-lifecycle manager: order submission
// with bracket orders, persistence, and close/settlement bookkeeping.
// The fast execution path deliberately bypasses it; reversal goes
// through it so the reversal stays auditable.
type TradeLifecycle interface {
	// ExecuteTrade validates params, places the entry (and brackets),
	// persists the resulting trade and returns it.
	ExecuteTrade(ctx context.Context, params TradeParams) (*domain.Trade, error)
	// CreateManualTrade books a market order as a proper trade record
	// without bracket orders.
	CreateManualTrade(ctx context.Context, params TradeParams) (*domain.Trade, error)
	// CloseTrade closes an open trade, settles realized P&L and persists
	// the final state.
	CloseTrade(ctx context.Context, id int64, reason domain.CloseReason) (*domain.Trade, error)
}
