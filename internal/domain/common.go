package domain

import "fmt"

// OrderSide represents the direction of an order or trade.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// Opposite returns the closing side for a position opened on this side.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// NormalizeSide maps user-supplied side tokens onto OrderSide.
// "long" and "short" are accepted as aliases for buy and sell.
func NormalizeSide(raw string) (OrderSide, error) {
	switch raw {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	default:
		return "", fmt.Errorf("invalid side %q (expected buy, sell, long or short)", raw)
	}
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusOpen      TradeStatus = "open"
	StatusClosed    TradeStatus = "closed"
	StatusCancelled TradeStatus = "cancelled"
)

// CloseReason indicates why a trade was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonReversal   CloseReason = "REVERSAL"
	CloseReasonUnknown    CloseReason = "Unknown"
)

// FlatPositionEpsilon is the size below which an exchange-reported
// position is considered flat and excluded from the active view.
const FlatPositionEpsilon = 0.00001

// MinReversibleSize is the smallest absolute position size that
// reversal accepts as an active position.
const MinReversibleSize = 0.001
