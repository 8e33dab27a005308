package app

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/ports"
)

// QuickOrderRequest is a transient fast-path order request. Quantity
// arrives as a string and must parse to a positive number.
type QuickOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity string `json:"quantity"`
}

// QuickCloseRequest closes size units of a position. The sign of size
// indicates the direction of the position being closed; it is not
// validated against the live position.
type QuickCloseRequest struct {
	Symbol string `json:"symbol"`
	Size   string `json:"size"`
}

// ReverseRequest asks for the position on a symbol to be flipped to the
// opposite direction.
type ReverseRequest struct {
	Symbol string `json:"symbol"`
}

// QuickResult carries the collaborator's order response plus the
// wall-clock latency of the request. ElapsedMs is always populated,
// success or failure, so callers can observe fast-path latency as a
// first-class signal.
type QuickResult struct {
	Order     *ports.OrderResult `json:"order,omitempty"`
	ElapsedMs int64              `json:"elapsedMs"`
}

// ReverseResult is the outcome of a position reversal, booked through
// the lifecycle manager.
type ReverseResult struct {
	Trade           *domain.Trade    `json:"trade"`
	ReverseQuantity float64          `json:"reverseQuantity"`
	ReverseSide     domain.OrderSide `json:"reverseSide"`
}

// QuickExecutor is the low-latency order path. Trade and close requests
// go straight to the exchange with no database write and no bracket
// setup; that is the latency trade-off this path exists for. Reversal
// is the exception: it changes book state, so it is delegated to the
// lifecycle manager and recorded as a proper trade.
type QuickExecutor struct {
	exchange  ports.ExchangeClient
	lifecycle ports.TradeLifecycle
	logger    ports.Logger
	now       func() time.Time // swappable clock for latency tests
}

// NewQuickExecutor creates the fast execution path.
func NewQuickExecutor(exchange ports.ExchangeClient, lifecycle ports.TradeLifecycle, logger ports.Logger) (*QuickExecutor, error) {
	if exchange == nil || lifecycle == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for QuickExecutor")
	}
	return &QuickExecutor{
		exchange:  exchange,
		lifecycle: lifecycle,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (q *QuickExecutor) elapsedMs(start time.Time) int64 {
	return q.now().Sub(start).Milliseconds()
}

// ExecuteQuickTrade validates and normalizes a quick-trade request, then
// places a plain market order. No retries happen at this layer; a
// collaborator failure is surfaced with its message and the elapsed time
// measured so far.
func (q *QuickExecutor) ExecuteQuickTrade(ctx context.Context, req QuickOrderRequest) (QuickResult, error) {
	start := q.now()

	if req.Symbol == "" || req.Side == "" || req.Quantity == "" {
		return QuickResult{ElapsedMs: q.elapsedMs(start)},
			fmt.Errorf("%w: symbol, side and quantity are required", ports.ErrValidation)
	}
	side, err := domain.NormalizeSide(req.Side)
	if err != nil {
		return QuickResult{ElapsedMs: q.elapsedMs(start)},
			fmt.Errorf("%w: %v", ports.ErrValidation, err)
	}
	quantity, err := strconv.ParseFloat(req.Quantity, 64)
	if err != nil || quantity <= 0 {
		return QuickResult{ElapsedMs: q.elapsedMs(start)},
			fmt.Errorf("%w: quantity must be a positive number, got %q", ports.ErrValidation, req.Quantity)
	}

	order, err := q.exchange.PlaceQuickOrder(ctx, req.Symbol, side, quantity)
	elapsed := q.elapsedMs(start)
	if err != nil {
		q.logger.Error(ctx, err, "Quick trade failed", map[string]interface{}{
			"symbol": req.Symbol, "side": side, "quantity": quantity, "elapsedMs": elapsed,
		})
		return QuickResult{ElapsedMs: elapsed}, fmt.Errorf("quick trade failed after %dms: %w", elapsed, err)
	}

	q.logger.Info(ctx, "Quick trade executed", map[string]interface{}{
		"symbol": req.Symbol, "side": side, "quantity": quantity, "orderID": order.OrderID, "elapsedMs": elapsed,
	})
	return QuickResult{Order: order, ElapsedMs: elapsed}, nil
}

// ClosePositionQuick closes size units of a position via the fast path.
// Size must be a nonzero parseable number; its sign is passed through to
// the exchange unvalidated against the live position.
func (q *QuickExecutor) ClosePositionQuick(ctx context.Context, req QuickCloseRequest) (QuickResult, error) {
	start := q.now()

	if req.Symbol == "" || req.Size == "" {
		return QuickResult{ElapsedMs: q.elapsedMs(start)},
			fmt.Errorf("%w: symbol and size are required", ports.ErrValidation)
	}
	size, err := strconv.ParseFloat(req.Size, 64)
	if err != nil || size == 0 {
		return QuickResult{ElapsedMs: q.elapsedMs(start)},
			fmt.Errorf("%w: size must be a nonzero number, got %q", ports.ErrValidation, req.Size)
	}

	order, err := q.exchange.ClosePosition(ctx, req.Symbol, size)
	elapsed := q.elapsedMs(start)
	if err != nil {
		q.logger.Error(ctx, err, "Quick close failed", map[string]interface{}{
			"symbol": req.Symbol, "size": size, "elapsedMs": elapsed,
		})
		return QuickResult{ElapsedMs: elapsed}, fmt.Errorf("quick close failed after %dms: %w", elapsed, err)
	}

	q.logger.Info(ctx, "Quick close executed", map[string]interface{}{
		"symbol": req.Symbol, "size": size, "orderID": order.OrderID, "elapsedMs": elapsed,
	})
	return QuickResult{Order: order, ElapsedMs: elapsed}, nil
}

// ReversePosition flips an open position: it closes the current exposure
// and opens the same exposure in the opposite direction, in one market
// order of twice the position size. The order is booked through the
// lifecycle manager so the reversal stays auditable.
func (q *QuickExecutor) ReversePosition(ctx context.Context, req ReverseRequest) (ReverseResult, error) {
	if req.Symbol == "" {
		return ReverseResult{}, fmt.Errorf("%w: symbol is required", ports.ErrValidation)
	}

	positions, err := q.exchange.GetPositions(ctx)
	if err != nil {
		return ReverseResult{}, fmt.Errorf("failed to fetch positions for reversal: %w", err)
	}

	var current *domain.RawPosition
	for i := range positions {
		if positions[i].Symbol == req.Symbol {
			current = &positions[i]
			break
		}
	}
	if current == nil || math.Abs(current.Size) < domain.MinReversibleSize {
		return ReverseResult{}, fmt.Errorf("%w: no active position for %s", ports.ErrNotFound, req.Symbol)
	}

	reverseQuantity := math.Abs(current.Size) * 2
	reverseSide := domain.Sell
	if current.Size < 0 {
		reverseSide = domain.Buy
	}

	trade, err := q.lifecycle.CreateManualTrade(ctx, ports.TradeParams{
		Symbol:   req.Symbol,
		Side:     reverseSide,
		Quantity: reverseQuantity,
		Reason:   "reversal",
	})
	if err != nil {
		q.logger.Error(ctx, err, "Position reversal failed", map[string]interface{}{
			"symbol": req.Symbol, "reverseSide": reverseSide, "reverseQuantity": reverseQuantity,
		})
		return ReverseResult{}, fmt.Errorf("position reversal failed: %w", err)
	}

	q.logger.Info(ctx, "Position reversed", map[string]interface{}{
		"symbol": req.Symbol, "reverseSide": reverseSide, "reverseQuantity": reverseQuantity, "tradeID": trade.ID,
	})
	return ReverseResult{Trade: trade, ReverseQuantity: reverseQuantity, ReverseSide: reverseSide}, nil
}
