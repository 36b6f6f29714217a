package engine

import "errors"

var (
	// ErrNotAuthenticated means no exchange session has been established.
	ErrNotAuthenticated = errors.New("not authenticated: establish an exchange session first")

	// ErrInvalidAmount and ErrInvalidPrice are local validation failures;
	// they never reach the network.
	ErrInvalidAmount = errors.New("invalid amount: must be greater than zero")
	ErrInvalidPrice  = errors.New("invalid price: must be strictly between 0 and 1")

	// ErrNoLiquidity means the required side of the book is empty.
	ErrNoLiquidity = errors.New("no liquidity on the required side of the book")

	// ErrQuoteUnavailable is a transient data-source failure. Callers must
	// treat it as "cannot act", never as price zero.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrExchangeRejected wraps a remote rejection; the exchange's message
	// is kept verbatim because it is user-actionable.
	ErrExchangeRejected = errors.New("exchange rejected order")
)
