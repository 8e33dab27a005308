package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels so
// the core can branch on errors.Is without knowing the transport.
var (
	// Request/validation errors (client fault, no retry)
	ErrValidation     = errors.New("invalid or missing request fields")
	ErrNotFound       = errors.New("resource not found")
	ErrTradeActive    = errors.New("trade is active and cannot be deleted")
	ErrInvalidRequest = errors.New("invalid request parameters or format")

	// Price enrichment (per-item, non-fatal, triggers fallback)
	ErrPriceUnavailable = errors.New("price unavailable for symbol")

	// General transport errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Exchange specific errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderNotFound        = errors.New("order not found on the exchange")
	ErrPositionNotFound     = errors.New("position not found on the exchange")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")
)
