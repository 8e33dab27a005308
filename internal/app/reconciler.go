package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"cryptoTradeDesk/internal/domain"
	"cryptoTradeDesk/internal/pnl"
	"cryptoTradeDesk/internal/ports"
)

// PriceSource yields the current price for a symbol or a typed
// ports.ErrPriceUnavailable failure. internal/pricing.Lookup is the
// production implementation.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Reconciler enriches locally-known trades and exchange-reported
// positions with live price-derived fields, tolerating partial lookup
// failure. One slow or failing symbol never fails the batch and never
// delays siblings beyond its own timeout.
type Reconciler struct {
	exchange ports.ExchangeClient
	prices   PriceSource
	logger   ports.Logger
}

// NewReconciler creates a reconciliation engine.
func NewReconciler(exchange ports.ExchangeClient, prices PriceSource, logger ports.Logger) (*Reconciler, error) {
	if exchange == nil || prices == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Reconciler")
	}
	return &Reconciler{exchange: exchange, prices: prices, logger: logger}, nil
}

// priceResult is the outcome of one symbol's lookup, success or typed
// failure. Failures are data here, not errors: the scatter-gather join
// always completes.
type priceResult struct {
	price float64
	err   error
}

// fetchPrices runs one bounded-timeout lookup per distinct symbol and
// waits for all of them. Each lookup runs in its own goroutine with an
// independent cancellation scope; a failing symbol records its failure
// and never cancels siblings.
func (r *Reconciler) fetchPrices(ctx context.Context, symbols []string) map[string]priceResult {
	results := make(map[string]priceResult, len(symbols))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			price, err := r.prices.Price(groupCtx, symbol)
			mu.Lock()
			results[symbol] = priceResult{price: price, err: err}
			mu.Unlock()
			// Absorb the failure: returning it would cancel sibling
			// lookups through the group context.
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// EnrichTrades fills the transient price-derived fields on every open
// trade. Closed trades pass through with UnrealizedPnL set to the
// realized figure; pending and cancelled trades pass through untouched.
// Exactly one result per input trade is returned, always.
func (r *Reconciler) EnrichTrades(ctx context.Context, trades []*domain.Trade) []*domain.Trade {
	seen := make(map[string]struct{})
	symbols := make([]string, 0, len(trades))
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		if _, ok := seen[t.Symbol]; ok {
			continue
		}
		seen[t.Symbol] = struct{}{}
		symbols = append(symbols, t.Symbol)
	}

	var results map[string]priceResult
	if len(symbols) > 0 {
		results = r.fetchPrices(ctx, symbols)
	}

	for _, t := range trades {
		switch {
		case t.IsOpen():
			r.enrichOpenTrade(ctx, t, results[t.Symbol])
		case t.Status == domain.StatusClosed:
			t.UnrealizedPnL = t.RealizedPnL
		}
	}
	return trades
}

func (r *Reconciler) enrichOpenTrade(ctx context.Context, t *domain.Trade, res priceResult) {
	// Entry price zero would make the percentage undefined; treat it the
	// same as a failed lookup.
	if res.err == nil && t.EntryPrice > 0 {
		t.CurrentPrice = res.price
		t.UnrealizedPnL = pnl.Unrealized(t.Side, t.EntryPrice, res.price, t.Quantity)
		priceDiff := res.price - t.EntryPrice
		if t.Side == domain.Sell {
			priceDiff = t.EntryPrice - res.price
		}
		t.PnLPercent = pnl.PercentString(t.EntryPrice, priceDiff)
		t.PriceDegraded = false
		return
	}

	t.UnrealizedPnL = 0
	t.CurrentPrice = t.EntryPrice
	t.PnLPercent = "0.00"
	t.PriceDegraded = true
	r.logger.Warn(ctx, "Price unavailable for open trade, returning degraded result", map[string]interface{}{
		"tradeID": t.ID,
		"symbol":  t.Symbol,
	})
}

// EnrichPositions fetches the exchange's position snapshot, drops flat
// entries and enriches the rest with live prices. On a per-symbol price
// failure the entry falls back to the reported mark price (or entry
// price when no mark price was reported), gets ROE = 0 and is flagged
// with PriceError; it is still included, never dropped.
func (r *Reconciler) EnrichPositions(ctx context.Context) ([]domain.ExchangePosition, error) {
	raw, err := r.exchange.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange positions: %w", err)
	}

	active := make([]domain.RawPosition, 0, len(raw))
	seen := make(map[string]struct{})
	symbols := make([]string, 0, len(raw))
	for _, p := range raw {
		if p.IsFlat() {
			continue
		}
		active = append(active, p)
		if _, ok := seen[p.Symbol]; !ok {
			seen[p.Symbol] = struct{}{}
			symbols = append(symbols, p.Symbol)
		}
	}

	var results map[string]priceResult
	if len(symbols) > 0 {
		results = r.fetchPrices(ctx, symbols)
	}

	enriched := make([]domain.ExchangePosition, 0, len(active))
	for _, p := range active {
		enriched = append(enriched, r.buildPositionView(ctx, p, results[p.Symbol]))
	}
	return enriched, nil
}

func (r *Reconciler) buildPositionView(ctx context.Context, p domain.RawPosition, res priceResult) domain.ExchangePosition {
	view := domain.ExchangePosition{
		Symbol:        p.Symbol,
		Size:          p.Size,
		Side:          p.Side(),
		EntryPrice:    p.EntryPrice,
		MarkPrice:     p.MarkPrice,
		PositionValue: pnl.PositionValue(p.Size, p.EntryPrice),
	}

	if res.err != nil {
		// Degraded entry: the caller still needs to see the position
		// exists even when enrichment fails.
		fallback := p.MarkPrice
		if fallback == 0 {
			fallback = p.EntryPrice
		}
		view.CurrentPrice = fallback
		view.UnrealizedPnL = pnl.PositionUnrealized(p.Size, p.EntryPrice, fallback)
		view.ROE = 0
		view.PriceError = true
		r.logger.Warn(ctx, "Price unavailable for position, falling back to reported mark price", map[string]interface{}{
			"symbol": p.Symbol,
		})
		return view
	}

	view.CurrentPrice = res.price
	view.UnrealizedPnL = pnl.PositionUnrealized(p.Size, p.EntryPrice, res.price)
	view.ROE = pnl.ROE(view.UnrealizedPnL, view.PositionValue)
	return view
}
