package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"stopbot/client"
	"stopbot/logger"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// FeeSource answers the current fee rate for a token.
type FeeSource interface {
	GetFeeRateBps(ctx context.Context, tokenID string) (int, error)
}

// Executor turns trade intents into signed orders against the exchange.
type Executor struct {
	session *Session
	quotes  QuoteSource
	fees    FeeSource
	log     *logger.Logger

	mu       sync.RWMutex
	feeCache map[string]int
}

func NewExecutor(session *Session, quotes QuoteSource, fees FeeSource, log *logger.Logger) *Executor {
	return &Executor{
		session:  session,
		quotes:   quotes,
		fees:     fees,
		log:      log,
		feeCache: make(map[string]int),
	}
}

// ExecuteMarketOrder submits an immediate fill-or-kill order. The execution
// price is taken from the current quote: BUY pays the best ask, SELL
// receives the best bid. The submitted order preserves the original request
// semantics — BUY spends exactly Amount of collateral, SELL offers exactly
// Amount shares; the returned price/size figures are local estimates.
func (e *Executor) ExecuteMarketOrder(ctx context.Context, req MarketOrderRequest) OrderResult {
	if req.Amount <= 0 {
		return failedResult(ErrInvalidAmount)
	}

	st := e.session.snapshot()
	if st == nil {
		return failedResult(ErrNotAuthenticated)
	}

	quote, err := e.quotes.GetQuote(ctx, req.TokenID)
	if err != nil {
		return failedResult(err)
	}

	var price, size float64
	switch req.Side {
	case BUY:
		if !quote.HasAsk {
			return failedResult(ErrNoLiquidity)
		}
		price = quote.Ask
		size = req.Amount / price
	case SELL:
		if !quote.HasBid {
			return failedResult(ErrNoLiquidity)
		}
		price = quote.Bid
		size = req.Amount
	default:
		return failedResult(fmt.Errorf("unknown side %q", req.Side))
	}

	result := e.submit(ctx, st, req.TokenID, req.Side, price, size, "FOK")
	if result.Success {
		result.ExecutedPrice = price
		result.ExecutedSize = size
		e.log.Info("market_order_placed", "token", req.TokenID, "side", req.Side,
			"amount", req.Amount, "est_price", price, "order_id", result.OrderID)
	}
	return result
}

// SubmitLimitOrder rests a good-til-cancelled order at the caller's exact
// price. Invalid input fails before any network round-trip.
func (e *Executor) SubmitLimitOrder(ctx context.Context, req LimitOrderRequest) OrderResult {
	if req.Price <= 0 || req.Price >= 1 {
		return failedResult(ErrInvalidPrice)
	}
	if req.Size <= 0 {
		return failedResult(ErrInvalidAmount)
	}

	st := e.session.snapshot()
	if st == nil {
		return failedResult(ErrNotAuthenticated)
	}

	result := e.submit(ctx, st, req.TokenID, req.Side, req.Price, req.Size, "GTC")
	if result.Success {
		e.log.Info("limit_order_placed", "token", req.TokenID, "side", req.Side,
			"price", req.Price, "size", req.Size, "order_id", result.OrderID)
	}
	return result
}

// CancelOrder cancels a resting exchange order by id.
func (e *Executor) CancelOrder(ctx context.Context, orderID string) error {
	st := e.session.snapshot()
	if st == nil {
		return ErrNotAuthenticated
	}

	if _, err := st.exchange.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeRejected, err)
	}
	return nil
}

func (e *Executor) submit(ctx context.Context, st *sessionState, tokenID string, side Side, price, size float64, orderType string) OrderResult {
	signed, err := st.signer.SignOrder(client.OrderSignParams{
		TokenID:       tokenID,
		Side:          string(side),
		Price:         price,
		Size:          size,
		Maker:         st.funder,
		Signer:        st.signer.Address().Hex(),
		Taker:         zeroAddress,
		Nonce:         "0",
		FeeRateBps:    e.feeRate(ctx, tokenID),
		Expiration:    0,
		SignatureType: 0,
	})
	if err != nil {
		return failedResult(fmt.Errorf("failed to sign order: %w", err))
	}

	resp, err := st.exchange.PlaceOrder(ctx, client.OrderPlacement{
		Order:     *signed,
		Owner:     st.owner,
		OrderType: orderType,
	})
	if err != nil {
		// The exchange's rejection reason is user-actionable; keep it as-is.
		e.log.Warn("order_rejected", "token", tokenID, "side", side, "err", err)
		return failedResult(fmt.Errorf("%w: %v", ErrExchangeRejected, err))
	}

	return OrderResult{Success: true, OrderID: resp.OrderID}
}

// feeRate returns the cached fee rate for a token, fetching it on first
// use. A fetch failure falls back to 0 bps rather than failing the order.
func (e *Executor) feeRate(ctx context.Context, tokenID string) string {
	e.mu.RLock()
	fee, ok := e.feeCache[tokenID]
	e.mu.RUnlock()
	if ok {
		return strconv.Itoa(fee)
	}

	if e.fees == nil {
		return "0"
	}

	fee, err := e.fees.GetFeeRateBps(ctx, tokenID)
	if err != nil {
		e.log.Error("fee_fetch_failed", "token", tokenID, "err", err)
		return "0"
	}

	e.mu.Lock()
	e.feeCache[tokenID] = fee
	e.mu.Unlock()

	return strconv.Itoa(fee)
}
