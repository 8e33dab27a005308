package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptoTradeDesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTrade(id int64, symbol string, side domain.OrderSide, entry, qty float64) *domain.Trade {
	return &domain.Trade{
		ID:         id,
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: entry,
		Status:     domain.StatusOpen,
		OpenTime:   time.Now(),
	}
}

func TestNewReconciler_MissingDeps(t *testing.T) {
	_, err := NewReconciler(nil, newMockPriceSource(nil), &mockLogger{})
	assert.Error(t, err)
	_, err = NewReconciler(&mockExchange{}, nil, &mockLogger{})
	assert.Error(t, err)
	_, err = NewReconciler(&mockExchange{}, newMockPriceSource(nil), nil)
	assert.Error(t, err)
}

func TestReconciler_EnrichTrades(t *testing.T) {
	ctx := context.Background()

	t.Run("open trade gets live fields", func(t *testing.T) {
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		trades := []*domain.Trade{openTrade(1, "BTCUSDT", domain.Buy, 42000.0, 1.0)}
		out := r.EnrichTrades(ctx, trades)

		require.Len(t, out, 1)
		assert.Equal(t, 43000.0, out[0].CurrentPrice)
		assert.Equal(t, 1000.0, out[0].UnrealizedPnL)
		assert.Equal(t, "2.38", out[0].PnLPercent)
		assert.False(t, out[0].PriceDegraded)
	})

	t.Run("short trade flips the percentage sign", func(t *testing.T) {
		prices := newMockPriceSource(map[string]float64{"ETHUSDT": 1900.0})
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		trades := []*domain.Trade{openTrade(2, "ETHUSDT", domain.Sell, 2000.0, 2.0)}
		out := r.EnrichTrades(ctx, trades)

		require.Len(t, out, 1)
		assert.Equal(t, 200.0, out[0].UnrealizedPnL)
		assert.Equal(t, "5.00", out[0].PnLPercent)
	})

	t.Run("failed lookup degrades instead of failing", func(t *testing.T) {
		prices := newMockPriceSource(nil) // every symbol unavailable
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		trades := []*domain.Trade{openTrade(3, "BTCUSDT", domain.Buy, 42000.0, 1.0)}
		out := r.EnrichTrades(ctx, trades)

		require.Len(t, out, 1)
		assert.Equal(t, 0.0, out[0].UnrealizedPnL)
		assert.Equal(t, 42000.0, out[0].CurrentPrice)
		assert.Equal(t, "0.00", out[0].PnLPercent)
		assert.True(t, out[0].PriceDegraded)
	})

	t.Run("one failing symbol does not degrade the rest", func(t *testing.T) {
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		trades := []*domain.Trade{
			openTrade(1, "BTCUSDT", domain.Buy, 42000.0, 1.0),
			openTrade(2, "ETHUSDT", domain.Buy, 2000.0, 1.0),
		}
		out := r.EnrichTrades(ctx, trades)

		require.Len(t, out, 2)
		assert.False(t, out[0].PriceDegraded)
		assert.Equal(t, 1000.0, out[0].UnrealizedPnL)
		assert.True(t, out[1].PriceDegraded)
	})

	t.Run("closed trade reports realized pnl", func(t *testing.T) {
		prices := newMockPriceSource(nil)
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		closed := &domain.Trade{
			ID: 4, Symbol: "BTCUSDT", Side: domain.Buy,
			Status: domain.StatusClosed, RealizedPnL: 512.5,
		}
		out := r.EnrichTrades(ctx, []*domain.Trade{closed})

		require.Len(t, out, 1)
		assert.Equal(t, 512.5, out[0].UnrealizedPnL)
		// No lookup should happen for closed trades.
		assert.Equal(t, 0, prices.callCount("BTCUSDT"))
	})

	t.Run("duplicate symbols fetch once", func(t *testing.T) {
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		trades := []*domain.Trade{
			openTrade(1, "BTCUSDT", domain.Buy, 42000.0, 1.0),
			openTrade(2, "BTCUSDT", domain.Sell, 44000.0, 0.5),
		}
		out := r.EnrichTrades(ctx, trades)

		require.Len(t, out, 2)
		assert.Equal(t, 1, prices.callCount("BTCUSDT"))
		assert.False(t, out[0].PriceDegraded)
		assert.False(t, out[1].PriceDegraded)
	})

	t.Run("zero entry price degrades", func(t *testing.T) {
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		out := r.EnrichTrades(ctx, []*domain.Trade{openTrade(5, "BTCUSDT", domain.Buy, 0, 1.0)})

		require.Len(t, out, 1)
		assert.True(t, out[0].PriceDegraded)
		assert.Equal(t, "0.00", out[0].PnLPercent)
	})

	t.Run("empty input", func(t *testing.T) {
		prices := newMockPriceSource(nil)
		r, err := NewReconciler(&mockExchange{}, prices, &mockLogger{})
		require.NoError(t, err)

		out := r.EnrichTrades(ctx, nil)
		assert.Empty(t, out)
	})
}

func TestReconciler_EnrichPositions(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot failure is fatal", func(t *testing.T) {
		exch := &mockExchange{
			getPositionsFunc: func(ctx context.Context) ([]domain.RawPosition, error) {
				return nil, errors.New("exchange down")
			},
		}
		r, err := NewReconciler(exch, newMockPriceSource(nil), &mockLogger{})
		require.NoError(t, err)

		_, err = r.EnrichPositions(ctx)
		assert.Error(t, err)
	})

	t.Run("flat positions are dropped", func(t *testing.T) {
		exch := &mockExchange{
			getPositionsFunc: func(ctx context.Context) ([]domain.RawPosition, error) {
				return []domain.RawPosition{
					{Symbol: "BTCUSDT", Size: 0.5, EntryPrice: 42000.0, MarkPrice: 42500.0},
					{Symbol: "ETHUSDT", Size: 0.000001, EntryPrice: 2000.0},
					{Symbol: "SOLUSDT", Size: 0, EntryPrice: 0},
				}, nil
			},
		}
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(exch, prices, &mockLogger{})
		require.NoError(t, err)

		out, err := r.EnrichPositions(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "BTCUSDT", out[0].Symbol)
		// Flat symbols must not be looked up at all.
		assert.Equal(t, 0, prices.callCount("ETHUSDT"))
		assert.Equal(t, 0, prices.callCount("SOLUSDT"))
	})

	t.Run("long position enriched with live price", func(t *testing.T) {
		exch := &mockExchange{
			getPositionsFunc: func(ctx context.Context) ([]domain.RawPosition, error) {
				return []domain.RawPosition{
					{Symbol: "BTCUSDT", Size: 0.5, EntryPrice: 42000.0, MarkPrice: 42500.0},
				}, nil
			},
		}
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(exch, prices, &mockLogger{})
		require.NoError(t, err)

		out, err := r.EnrichPositions(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		p := out[0]
		assert.Equal(t, domain.Buy, p.Side)
		assert.Equal(t, 43000.0, p.CurrentPrice)
		assert.Equal(t, 21000.0, p.PositionValue)
		assert.Equal(t, 500.0, p.UnrealizedPnL)
		assert.Equal(t, 2.38, p.ROE)
		assert.False(t, p.PriceError)
	})

	t.Run("short position math", func(t *testing.T) {
		exch := &mockExchange{
			getPositionsFunc: func(ctx context.Context) ([]domain.RawPosition, error) {
				return []domain.RawPosition{
					{Symbol: "ETHUSDT", Size: -2.0, EntryPrice: 100.0, MarkPrice: 95.0},
				}, nil
			},
		}
		prices := newMockPriceSource(map[string]float64{"ETHUSDT": 90.0})
		r, err := NewReconciler(exch, prices, &mockLogger{})
		require.NoError(t, err)

		out, err := r.EnrichPositions(ctx)
		require.NoError(t, err)
		require.Len(t, out, 1)
		p := out[0]
		assert.Equal(t, domain.Sell, p.Side)
		assert.Equal(t, 200.0, p.PositionValue)
		assert.Equal(t, 20.0, p.UnrealizedPnL)
		assert.Equal(t, 10.0, p.ROE)
	})

	t.Run("price failure falls back to mark price", func(t *testing.T) {
		exch := &mockExchange{
			getPositionsFunc: func(ctx context.Context) ([]domain.RawPosition, error) {
				return []domain.RawPosition{
					{Symbol: "BTCUSDT", Size: 0.5, EntryPrice: 42000.0, MarkPrice: 42500.0},
					{Symbol: "ETHUSDT", Size: 1.0, EntryPrice: 2000.0, MarkPrice: 2100.0},
				}, nil
			},
		}
		prices := newMockPriceSource(map[string]float64{"BTCUSDT": 43000.0})
		r, err := NewReconciler(exch, prices, &mockLogger{})
		require.NoError(t, err)

		out, err := r.EnrichPositions(ctx)
		require.NoError(t, err)
		require.Len(t, out, 2)

		var degraded *domain.ExchangePosition
		for i := range out {
			if out[i].Symbol == "ETHUSDT" {
				degraded = &out[i]
			}
		}
		require.NotNil(t, degraded)
		assert.True(t, degraded.PriceError)
		assert.Equal(t, 2100.0, degraded.CurrentPrice)
		assert.Equal(t, 100.0, degraded.UnrealizedPnL)
		assert.Equal(t, 0.0, degraded.ROE)
	})
}
