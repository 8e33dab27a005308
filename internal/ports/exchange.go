package ports

import (
	"context"
	"time"

	"cryptoTradeDesk/internal/domain"
)

// OrderResult represents the essential details returned after placing an order.
type OrderResult struct {
	OrderID       int64     // Exchange's order ID
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	Price         float64   // Price of the order (0 for market orders initially)
	AvgPrice      float64   // Average filled price
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type (e.g., MARKET, STOP_MARKET)
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// ExchangeClient defines the interface for interacting with a cryptocurrency
// exchange. The core depends only on this abstraction; the Binance adapter
// is one implementation.
type ExchangeClient interface {
	// GetTickerPrice retrieves the last traded price for a symbol.
	// It may fail or time out; callers apply their own deadline.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetMarkPrice retrieves the current mark price for a symbol.
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)

	// GetPositions retrieves all exchange-reported positions, including
	// flat ones. Filtering is the caller's concern.
	GetPositions(ctx context.Context) ([]domain.RawPosition, error)

	// PlaceQuickOrder places a plain market order with no bracket setup.
	// This is the fast-path primitive: no bookkeeping happens here.
	PlaceQuickOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*OrderResult, error)

	// ClosePosition closes size units of an open position with a
	// reduce-only market order. The sign of size indicates the direction
	// of the position being closed (positive long, negative short).
	ClosePosition(ctx context.Context, symbol string, size float64) (*OrderResult, error)

	// PlaceStopMarketOrder places a stop-market order that closes the
	// position when triggered.
	PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*OrderResult, error)

	// PlaceTakeProfitMarketOrder places a take-profit-market order that
	// closes the position when triggered.
	PlaceTakeProfitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*OrderResult, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderResult, error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error
}
