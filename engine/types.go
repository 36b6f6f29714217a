package engine

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

// MarketOrderRequest asks for an immediate fill. Amount is asymmetric by
// side: collateral (USDC) to spend for BUY, number of shares to sell for
// SELL — that is the shape the exchange's market primitive accepts.
type MarketOrderRequest struct {
	TokenID string
	Side    Side
	Amount  float64
}

// LimitOrderRequest rests at an explicit price until filled or cancelled.
type LimitOrderRequest struct {
	TokenID string
	Side    Side
	Price   float64 // in (0,1) exclusive
	Size    float64 // shares
}

// OrderResult reports one submission. ExecutedPrice/ExecutedSize are
// derived locally from the quote used and are estimates only — the exchange
// fill is authoritative, and the price can move between the quote read and
// the submission.
type OrderResult struct {
	Success       bool
	OrderID       string
	ExecutedPrice float64
	ExecutedSize  float64
	Error         string
}

func failedResult(err error) OrderResult {
	return OrderResult{Error: err.Error()}
}
