package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/ports"
)

type stubExchange struct {
	price  float64
	err    error
	delay  time.Duration
	gotCtx context.Context
}

func (s *stubExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	s.gotCtx = ctx
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return s.price, s.err
}

func (s *stubExchange) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, s.err
}
func (s *stubExchange) GetPositions(ctx context.Context) ([]domain.RawPosition, error) {
	return nil, nil
}
func (s *stubExchange) PlaceQuickOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubExchange) ClosePosition(ctx context.Context, symbol string, size float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubExchange) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubExchange) PlaceTakeProfitMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity float64, stopPrice float64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResult, error) {
	return nil, nil
}
func (s *stubExchange) Ping(ctx context.Context) error { return nil }

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestPriceSuccess(t *testing.T) {
	ex := &stubExchange{price: 43000}
	lookup, err := New(ex, time.Second, nopLogger{})
	require.NoError(t, err)

	price, err := lookup.Price(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 43000.0, price)
}

func TestPriceTransportFailureIsTyped(t *testing.T) {
	ex := &stubExchange{err: errors.New("connection reset")}
	lookup, err := New(ex, time.Second, nopLogger{})
	require.NoError(t, err)

	_, err = lookup.Price(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPriceUnavailable)
}

func TestPriceTimeoutIsTyped(t *testing.T) {
	ex := &stubExchange{price: 43000, delay: 200 * time.Millisecond}
	lookup, err := New(ex, 10*time.Millisecond, nopLogger{})
	require.NoError(t, err)

	_, err = lookup.Price(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPriceUnavailable)
}

func TestNonPositivePriceIsUnavailable(t *testing.T) {
	ex := &stubExchange{price: 0}
	lookup, err := New(ex, time.Second, nopLogger{})
	require.NoError(t, err)

	_, err = lookup.Price(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ports.ErrPriceUnavailable)
}

func TestPerCallDeadlineApplied(t *testing.T) {
	ex := &stubExchange{price: 1}
	lookup, err := New(ex, 5*time.Second, nopLogger{})
	require.NoError(t, err)

	_, err = lookup.Price(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	_, ok := ex.gotCtx.Deadline()
	assert.True(t, ok, "exchange call should carry a deadline")
}
