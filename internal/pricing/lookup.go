// Package pricing wraps single-symbol price fetches against the exchange
// with a bounded per-call timeout and a typed failure mode.
package pricing

import (
	"context"
	"fmt"
	"time"

	"cryptoTradeDesk/internal/ports"
)

const defaultTimeout = 3 * time.Second

// Lookup fetches current prices from the exchange. Every call carries its
// own deadline so one hanging symbol cannot stall a batch.
type Lookup struct {
	exchange ports.ExchangeClient
	timeout  time.Duration
	logger   ports.Logger
}

// New creates a price lookup client. A non-positive timeout falls back to
// the default.
func New(exchange ports.ExchangeClient, timeout time.Duration, logger ports.Logger) (*Lookup, error) {
	if exchange == nil {
		return nil, fmt.Errorf("exchange client is required for price lookup")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for price lookup")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Lookup{exchange: exchange, timeout: timeout, logger: logger}, nil
}

// Price fetches the last traded price for symbol. On any transport
// failure, timeout, or nonsensical result it returns an error wrapping
// ports.ErrPriceUnavailable; the raw transport error is retained in the
// chain for logging but callers only branch on the sentinel.
func (l *Lookup) Price(ctx context.Context, symbol string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	price, err := l.exchange.GetTickerPrice(callCtx, symbol)
	if err != nil {
		l.logger.Debug(ctx, "price fetch failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return 0, fmt.Errorf("%w: %s: %w", ports.ErrPriceUnavailable, symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %s: non-positive price %v", ports.ErrPriceUnavailable, symbol, price)
	}
	return price, nil
}
