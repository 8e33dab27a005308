package app

import (
	"context"
	"errors"
	"sync"

	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/ports"
)

// --- Mocks ---

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockExchange implements ports.ExchangeClient with overridable
// function fields. Unset methods fail loudly so tests notice unexpected
// collaborator calls.
type mockExchange struct {
	mu sync.Mutex

	getPositionsFunc    func(ctx context.Context) ([]domain.RawPosition, error)
	placeQuickOrderFunc func(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResult, error)
	closePositionFunc   func(ctx context.Context, symbol string, size float64) (*ports.OrderResult, error)

	placeQuickOrderCalls int
	closePositionCalls   int
	getPositionsCalls    int
}

var errUnexpectedCall = errors.New("unexpected exchange call")

func (m *mockExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errUnexpectedCall
}

func (m *mockExchange) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errUnexpectedCall
}

func (m *mockExchange) GetPositions(ctx context.Context) ([]domain.RawPosition, error) {
	m.mu.Lock()
	m.getPositionsCalls++
	m.mu.Unlock()
	if m.getPositionsFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.getPositionsFunc(ctx)
}

func (m *mockExchange) PlaceQuickOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResult, error) {
	m.mu.Lock()
	m.placeQuickOrderCalls++
	m.mu.Unlock()
	if m.placeQuickOrderFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.placeQuickOrderFunc(ctx, symbol, side, quantity)
}

func (m *mockExchange) ClosePosition(ctx context.Context, symbol string, size float64) (*ports.OrderResult, error) {
	m.mu.Lock()
	m.closePositionCalls++
	m.mu.Unlock()
	if m.closePositionFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.closePositionFunc(ctx, symbol, size)
}

func (m *mockExchange) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*ports.OrderResult, error) {
	return nil, errUnexpectedCall
}

func (m *mockExchange) PlaceTakeProfitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*ports.OrderResult, error) {
	return nil, errUnexpectedCall
}

func (m *mockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResult, error) {
	return nil, errUnexpectedCall
}

func (m *mockExchange) Ping(ctx context.Context) error { return nil }

// mockPriceSource implements PriceSource from a static price table.
// A symbol missing from the table fails with ports.ErrPriceUnavailable.
type mockPriceSource struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func newMockPriceSource(prices map[string]float64) *mockPriceSource {
	return &mockPriceSource{prices: prices, calls: make(map[string]int)}
}

func (m *mockPriceSource) Price(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[symbol]++
	price, ok := m.prices[symbol]
	if !ok {
		return 0, ports.ErrPriceUnavailable
	}
	return price, nil
}

func (m *mockPriceSource) callCount(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// mockLifecycle implements ports.TradeLifecycle.
type mockLifecycle struct {
	createManualFunc func(ctx context.Context, params ports.TradeParams) (*domain.Trade, error)

	createManualCalls int
	lastManualParams  ports.TradeParams
	executeTradeCalls int
	closeTradeCalls   int
}

func (m *mockLifecycle) ExecuteTrade(ctx context.Context, params ports.TradeParams) (*domain.Trade, error) {
	m.executeTradeCalls++
	return nil, errUnexpectedCall
}

func (m *mockLifecycle) CreateManualTrade(ctx context.Context, params ports.TradeParams) (*domain.Trade, error) {
	m.createManualCalls++
	m.lastManualParams = params
	if m.createManualFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.createManualFunc(ctx, params)
}

func (m *mockLifecycle) CloseTrade(ctx context.Context, id int64, reason domain.CloseReason) (*domain.Trade, error) {
	m.closeTradeCalls++
	return nil, errUnexpectedCall
}
