package ports

import (
	"context"

	"cryptoTradeDesk/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving trades.
// The reconciliation core only reads trades it is given; writes belong to
// the lifecycle manager.
type TradeRepository interface {
	// Create saves a new trade and returns its assigned ID.
	Create(ctx context.Context, trade *domain.Trade) (int64, error)
	// Update modifies an existing trade. Returns ErrNotFound if the ID
	// does not exist.
	Update(ctx context.Context, trade *domain.Trade) error
	// FindByID retrieves a trade by its unique ID. Returns nil, nil if
	// not found.
	FindByID(ctx context.Context, id int64) (*domain.Trade, error)
	// FindAll retrieves all trades, ordered by open time descending.
	FindAll(ctx context.Context) ([]*domain.Trade, error)
	// FindByStatus retrieves all trades with the given status, ordered by
	// open time descending.
	FindByStatus(ctx context.Context, status domain.TradeStatus) ([]*domain.Trade, error)
	// Delete removes a trade by ID. Returns ErrTradeActive for trades
	// that still hold exposure and ErrNotFound for unknown IDs.
	Delete(ctx context.Context, id int64) error
}
