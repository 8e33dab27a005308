// Package lifecycle implements the full trade-lifecycle manager: order
// submission with bracket orders, persistence, and close/settlement
// bookkeeping. The fast execution path bypasses this package entirely;
// everything that must stay auditable goes through it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cryptoTradeDesk/config"
	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/pnl"
	"cryptoTradeDesk/internal/ports"
	"cryptoTradeDesk/internal/risk"
)

// Manager implements ports.TradeLifecycle.
type Manager struct {
	exchange ports.ExchangeClient
	repo     ports.TradeRepository
	risk     *risk.Store
	runtime  *config.Runtime
	logger   ports.Logger
}

// NewManager creates the trade lifecycle manager.
func NewManager(exchange ports.ExchangeClient, repo ports.TradeRepository, riskStore *risk.Store, runtime *config.Runtime, logger ports.Logger) (*Manager, error) {
	if exchange == nil || repo == nil || riskStore == nil || runtime == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for lifecycle Manager")
	}
	return &Manager{
		exchange: exchange,
		repo:     repo,
		risk:     riskStore,
		runtime:  runtime,
		logger:   logger,
	}, nil
}

func validateParams(params ports.TradeParams) error {
	if params.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ports.ErrValidation)
	}
	if params.Side != domain.Buy && params.Side != domain.Sell {
		return fmt.Errorf("%w: side must be buy or sell, got %q", ports.ErrValidation, params.Side)
	}
	if params.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ports.ErrValidation)
	}
	if params.StopLoss < 0 || params.TakeProfit < 0 {
		return fmt.Errorf("%w: bracket prices cannot be negative", ports.ErrValidation)
	}
	return nil
}

// ExecuteTrade places a market entry with bracket orders and persists
// the resulting trade. In paper mode no exchange order is placed; the
// trade is booked at the current mark price.
func (m *Manager) ExecuteTrade(ctx context.Context, params ports.TradeParams) (*domain.Trade, error) {
	op := "ExecuteTrade"
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if m.runtime.Current().PaperTrading {
		return m.bookPaperTrade(ctx, params)
	}

	// 1. Entry market order
	entryOrder, err := m.exchange.PlaceQuickOrder(ctx, params.Symbol, params.Side, params.Quantity)
	if err != nil {
		m.logger.Error(ctx, err, op+": Failed to place entry order", map[string]interface{}{"symbol": params.Symbol})
		return nil, fmt.Errorf("entry order failed: %w", err)
	}
	entryPrice := entryOrder.AvgPrice
	if entryPrice == 0 {
		// Some order responses omit the fill price; fall back to the
		// mark price so the record is not booked at zero.
		entryPrice, err = m.exchange.GetMarkPrice(ctx, params.Symbol)
		if err != nil {
			m.logger.Warn(ctx, op+": Entry fill price unknown and mark price fetch failed", map[string]interface{}{"symbol": params.Symbol})
			entryPrice = 0
		}
	}

	// 2. Resolve the stop-loss level. When the caller did not set one
	// and auto stop-loss is enabled for the symbol, derive it from the
	// effective max risk per trade.
	stopLoss := params.StopLoss
	if stopLoss == 0 && entryPrice > 0 {
		effective := m.risk.EffectiveFor(params.Symbol)
		if effective.AutoStopLoss {
			riskFraction := effective.MaxRiskPerTrade / 100
			if params.Side == domain.Buy {
				stopLoss = entryPrice * (1 - riskFraction)
			} else {
				stopLoss = entryPrice * (1 + riskFraction)
			}
		}
	}

	trade := &domain.Trade{
		Symbol:     params.Symbol,
		Side:       params.Side,
		Quantity:   params.Quantity,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		TakeProfit: params.TakeProfit,
		Status:     domain.StatusOpen,
		OpenTime:   time.Now().UTC(),
	}

	// 3. Bracket orders (opposite side). A failed stop-loss leg leaves
	// naked exposure, so the position is closed immediately.
	closeSide := params.Side.Opposite()
	if stopLoss > 0 {
		slOrder, err := m.exchange.PlaceStopMarketOrder(ctx, params.Symbol, closeSide, params.Quantity, stopLoss)
		if err != nil {
			m.logger.Error(ctx, err, op+": Failed to place stop loss order, closing exposure", map[string]interface{}{"symbol": params.Symbol})
			m.emergencyClose(ctx, params.Symbol, params.Side, params.Quantity)
			return nil, fmt.Errorf("stop loss order failed after entry: %w (position closed)", err)
		}
		trade.StopLossOrderID = &slOrder.OrderID
	}
	if params.TakeProfit > 0 {
		tpOrder, err := m.exchange.PlaceTakeProfitMarketOrder(ctx, params.Symbol, closeSide, params.Quantity, params.TakeProfit)
		if err != nil {
			m.logger.Error(ctx, err, op+": Failed to place take profit order, closing exposure", map[string]interface{}{"symbol": params.Symbol})
			if trade.StopLossOrderID != nil {
				m.cancelOrderWarn(ctx, params.Symbol, *trade.StopLossOrderID, "SL")
			}
			m.emergencyClose(ctx, params.Symbol, params.Side, params.Quantity)
			return nil, fmt.Errorf("take profit order failed after entry: %w (position closed)", err)
		}
		trade.TakeProfitOrderID = &tpOrder.OrderID
	}

	// 4. Persist
	if _, err := m.repo.Create(ctx, trade); err != nil {
		m.logger.Error(ctx, err, op+": Failed to persist trade, closing exposure", map[string]interface{}{"symbol": params.Symbol})
		if trade.StopLossOrderID != nil {
			m.cancelOrderWarn(ctx, params.Symbol, *trade.StopLossOrderID, "SL")
		}
		if trade.TakeProfitOrderID != nil {
			m.cancelOrderWarn(ctx, params.Symbol, *trade.TakeProfitOrderID, "TP")
		}
		m.emergencyClose(ctx, params.Symbol, params.Side, params.Quantity)
		return nil, fmt.Errorf("failed to persist trade after placing orders: %w (position closed)", err)
	}

	m.logger.Info(ctx, op+": Trade opened", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "side": trade.Side,
		"quantity": trade.Quantity, "entryPrice": trade.EntryPrice,
	})
	return trade, nil
}

// CreateManualTrade books a market order as a proper trade record with
// no bracket orders. Used by position reversal and the manual trade
// endpoint.
func (m *Manager) CreateManualTrade(ctx context.Context, params ports.TradeParams) (*domain.Trade, error) {
	op := "CreateManualTrade"
	if err := validateParams(params); err != nil {
		return nil, err
	}

	if m.runtime.Current().PaperTrading {
		return m.bookPaperTrade(ctx, params)
	}

	order, err := m.exchange.PlaceQuickOrder(ctx, params.Symbol, params.Side, params.Quantity)
	if err != nil {
		m.logger.Error(ctx, err, op+": Failed to place order", map[string]interface{}{"symbol": params.Symbol, "reason": params.Reason})
		return nil, fmt.Errorf("manual trade order failed: %w", err)
	}
	entryPrice := order.AvgPrice
	if entryPrice == 0 {
		if mark, markErr := m.exchange.GetMarkPrice(ctx, params.Symbol); markErr == nil {
			entryPrice = mark
		}
	}

	trade := &domain.Trade{
		Symbol:     params.Symbol,
		Side:       params.Side,
		Quantity:   params.Quantity,
		EntryPrice: entryPrice,
		Status:     domain.StatusOpen,
		OpenTime:   time.Now().UTC(),
	}
	if _, err := m.repo.Create(ctx, trade); err != nil {
		// The order is already live; surface the bookkeeping failure
		// rather than unwinding the exposure the caller asked for.
		m.logger.Error(ctx, err, op+": Order placed but trade not persisted", map[string]interface{}{"symbol": params.Symbol, "orderID": order.OrderID})
		return nil, fmt.Errorf("manual trade placed but not persisted: %w", err)
	}

	m.logger.Info(ctx, op+": Manual trade booked", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "side": trade.Side,
		"quantity": trade.Quantity, "reason": params.Reason,
	})
	return trade, nil
}

// CloseTrade closes an open trade, settles realized P&L and persists the
// final state.
func (m *Manager) CloseTrade(ctx context.Context, id int64, reason domain.CloseReason) (*domain.Trade, error) {
	op := "CloseTrade"
	trade, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: trade %d", ports.ErrNotFound, id)
	}
	if !trade.IsOpen() {
		return nil, fmt.Errorf("%w: trade %d is not open (status %s)", ports.ErrValidation, id, trade.Status)
	}
	if reason == "" {
		reason = domain.CloseReasonManual
	}

	var exitPrice float64
	if trade.IsPaperTrade {
		exitPrice, err = m.exchange.GetMarkPrice(ctx, trade.Symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to price paper trade close: %w", err)
		}
	} else {
		signedSize := trade.Quantity
		if trade.Side == domain.Sell {
			signedSize = -trade.Quantity
		}
		closeOrder, err := m.exchange.ClosePosition(ctx, trade.Symbol, signedSize)
		if err != nil {
			m.logger.Error(ctx, err, op+": Failed to place closing order", map[string]interface{}{"tradeID": id})
			return nil, fmt.Errorf("failed to close trade %d: %w", id, err)
		}
		exitPrice = closeOrder.AvgPrice
		if exitPrice == 0 {
			if mark, markErr := m.exchange.GetMarkPrice(ctx, trade.Symbol); markErr == nil {
				exitPrice = mark
			}
		}

		// Outstanding brackets would re-trigger against a flat position.
		if trade.StopLossOrderID != nil {
			m.cancelOrderWarn(ctx, trade.Symbol, *trade.StopLossOrderID, "SL")
		}
		if trade.TakeProfitOrderID != nil {
			m.cancelOrderWarn(ctx, trade.Symbol, *trade.TakeProfitOrderID, "TP")
		}
	}

	trade.Status = domain.StatusClosed
	trade.CloseTime = time.Now().UTC()
	trade.CloseReason = reason
	trade.RealizedPnL = pnl.Unrealized(trade.Side, trade.EntryPrice, exitPrice, trade.Quantity)

	if err := m.repo.Update(ctx, trade); err != nil {
		m.logger.Error(ctx, err, op+": Failed to persist closed trade", map[string]interface{}{"tradeID": id})
		return nil, fmt.Errorf("failed to persist closed trade %d: %w", id, err)
	}

	m.logger.Info(ctx, op+": Trade closed", map[string]interface{}{
		"tradeID": id, "reason": reason, "realizedPnl": trade.RealizedPnL,
	})
	return trade, nil
}

// bookPaperTrade records a simulated trade at the current mark price
// without touching the exchange order book.
func (m *Manager) bookPaperTrade(ctx context.Context, params ports.TradeParams) (*domain.Trade, error) {
	price, err := m.exchange.GetMarkPrice(ctx, params.Symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to price paper trade: %w", err)
	}

	trade := &domain.Trade{
		Symbol:       params.Symbol,
		Side:         params.Side,
		Quantity:     params.Quantity,
		EntryPrice:   price,
		StopLoss:     params.StopLoss,
		TakeProfit:   params.TakeProfit,
		Status:       domain.StatusOpen,
		OpenTime:     time.Now().UTC(),
		IsPaperTrade: true,
	}
	if _, err := m.repo.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to persist paper trade: %w", err)
	}

	m.logger.Info(ctx, "Paper trade booked", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "side": trade.Side, "entryPrice": price,
	})
	return trade, nil
}

// emergencyClose places a reduce-only market order to flatten exposure
// after a bracket or persistence failure. Purely a safety mechanism on
// the exchange side; no trade record is written.
func (m *Manager) emergencyClose(ctx context.Context, symbol string, entrySide domain.OrderSide, quantity float64) {
	signedSize := quantity
	if entrySide == domain.Sell {
		signedSize = -quantity
	}
	if _, err := m.exchange.ClosePosition(ctx, symbol, signedSize); err != nil {
		// A failed emergency close leaves naked exposure and needs
		// manual intervention.
		m.logger.Error(ctx, err, "EMERGENCY CLOSE FAILED", map[string]interface{}{"symbol": symbol, "quantity": quantity})
		return
	}
	m.logger.Warn(ctx, "Emergency close order placed", map[string]interface{}{"symbol": symbol, "quantity": quantity})
}

// cancelOrderWarn attempts to cancel an order and logs a warning on
// failure. An already-filled or already-cancelled order is not an error.
func (m *Manager) cancelOrderWarn(ctx context.Context, symbol string, orderID int64, orderType string) {
	if _, err := m.exchange.CancelOrder(ctx, symbol, orderID); err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			m.logger.Debug(ctx, "Order already gone, skipping cancel", map[string]interface{}{"orderID": orderID, "type": orderType})
			return
		}
		m.logger.Warn(ctx, "Failed to cancel bracket order", map[string]interface{}{"orderID": orderID, "type": orderType, "error": err.Error()})
	}
}
