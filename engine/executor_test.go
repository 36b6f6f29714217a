package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopbot/client"
	"stopbot/logger"
)

type fakeSigner struct {
	addr common.Address
}

func (f fakeSigner) SignOrder(p client.OrderSignParams) (*client.SignedOrder, error) {
	return &client.SignedOrder{
		TokenID:    p.TokenID,
		Side:       p.Side,
		Maker:      p.Maker,
		Signer:     p.Signer,
		FeeRateBps: p.FeeRateBps,
		Signature:  "0xfake",
	}, nil
}

func (f fakeSigner) SignAuth(timestamp int64, nonce int) (string, error) {
	return "0xfakeauth", nil
}

func (f fakeSigner) Address() common.Address { return f.addr }

type fakeCreds struct {
	calls int
	err   error
}

func (f *fakeCreds) CreateOrDeriveApiKey(ctx context.Context, signer client.OrderSigner) (*client.ApiKeyResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &client.ApiKeyResponse{ApiKey: "key-uuid", Secret: "c2VjcmV0", Passphrase: "pass"}, nil
}

type fakeExchange struct {
	placements []client.OrderPlacement
	placeErr   error
	cancels    []string
	balance    float64
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req client.OrderPlacement) (*client.OrderResponse, error) {
	f.placements = append(f.placements, req)
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &client.OrderResponse{Success: true, OrderID: "exch-1"}, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) (*client.CancelResponse, error) {
	f.cancels = append(f.cancels, orderID)
	return &client.CancelResponse{Success: true}, nil
}

func (f *fakeExchange) GetBalance(ctx context.Context) (float64, error) {
	return f.balance, nil
}

type fakeQuotes struct {
	quotes map[string]Quote
	errs   map[string]error
	calls  int
}

func (f *fakeQuotes) GetQuote(ctx context.Context, tokenID string) (Quote, error) {
	f.calls++
	if err, ok := f.errs[tokenID]; ok {
		return Quote{}, err
	}
	q, ok := f.quotes[tokenID]
	if !ok {
		return Quote{}, nil
	}
	return q, nil
}

func newEstablishedSession(t *testing.T, exchange *fakeExchange) *Session {
	t.Helper()

	session := NewSession(&fakeCreds{}, func(auth *client.L2Auth) Exchange {
		return exchange
	}, logger.Nop())

	err := session.Establish(context.Background(), fakeSigner{addr: common.HexToAddress("0x01")}, "0xfunder")
	require.NoError(t, err)
	return session
}

func TestExecuteMarketOrder_BuyUsesBestAsk(t *testing.T) {
	exchange := &fakeExchange{}
	quotes := &fakeQuotes{quotes: map[string]Quote{
		"tok": {Bid: 0.50, Ask: 0.55, HasBid: true, HasAsk: true},
	}}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: BUY, Amount: 11.0,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "exch-1", result.OrderID)
	assert.Equal(t, 0.55, result.ExecutedPrice)
	assert.InDelta(t, 11.0/0.55, result.ExecutedSize, 1e-9)

	require.Len(t, exchange.placements, 1)
	placed := exchange.placements[0]
	assert.Equal(t, "FOK", placed.OrderType)
	assert.Equal(t, "BUY", placed.Order.Side)
	assert.Equal(t, "key-uuid", placed.Owner)
	assert.Equal(t, "0xfunder", placed.Order.Maker)
}

func TestExecuteMarketOrder_SellUsesBestBid(t *testing.T) {
	exchange := &fakeExchange{}
	quotes := &fakeQuotes{quotes: map[string]Quote{
		"tok": {Bid: 0.50, Ask: 0.55, HasBid: true, HasAsk: true},
	}}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: SELL, Amount: 20.0,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 0.50, result.ExecutedPrice)
	// SELL amount is a share count, passed through unchanged.
	assert.Equal(t, 20.0, result.ExecutedSize)
	assert.Equal(t, "SELL", exchange.placements[0].Order.Side)
}

func TestExecuteMarketOrder_RejectsNonPositiveAmountBeforeNetwork(t *testing.T) {
	exchange := &fakeExchange{}
	quotes := &fakeQuotes{}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: BUY, Amount: 0,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid amount")
	assert.Zero(t, quotes.calls)
	assert.Empty(t, exchange.placements)
}

func TestExecuteMarketOrder_RequiresSession(t *testing.T) {
	session := NewSession(&fakeCreds{}, func(auth *client.L2Auth) Exchange {
		return &fakeExchange{}
	}, logger.Nop())
	quotes := &fakeQuotes{}
	exec := NewExecutor(session, quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: BUY, Amount: 5,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not authenticated")
	assert.Zero(t, quotes.calls)
}

func TestExecuteMarketOrder_EmptyAskSideIsNoLiquidity(t *testing.T) {
	exchange := &fakeExchange{}
	quotes := &fakeQuotes{quotes: map[string]Quote{
		"tok": {Bid: 0.50, HasBid: true},
	}}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: BUY, Amount: 5,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no liquidity")
	assert.Empty(t, exchange.placements)
}

func TestExecuteMarketOrder_ExchangeErrorPassedThroughVerbatim(t *testing.T) {
	exchange := &fakeExchange{placeErr: errors.New("not enough balance / allowance")}
	quotes := &fakeQuotes{quotes: map[string]Quote{
		"tok": {Ask: 0.55, HasAsk: true},
	}}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	result := exec.ExecuteMarketOrder(context.Background(), MarketOrderRequest{
		TokenID: "tok", Side: BUY, Amount: 5,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not enough balance / allowance")
}

func TestSubmitLimitOrder_InvalidPriceFailsWithoutNetwork(t *testing.T) {
	exchange := &fakeExchange{}
	quotes := &fakeQuotes{}
	exec := NewExecutor(newEstablishedSession(t, exchange), quotes, nil, logger.Nop())

	for _, price := range []float64{0, 1.0, -0.2, 1.5} {
		result := exec.SubmitLimitOrder(context.Background(), LimitOrderRequest{
			TokenID: "tok", Side: BUY, Price: price, Size: 10,
		})
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "invalid price")
	}

	assert.Empty(t, exchange.placements)
	assert.Zero(t, quotes.calls)
}

func TestSubmitLimitOrder_RestsAtCallerPrice(t *testing.T) {
	exchange := &fakeExchange{}
	exec := NewExecutor(newEstablishedSession(t, exchange), &fakeQuotes{}, nil, logger.Nop())

	result := exec.SubmitLimitOrder(context.Background(), LimitOrderRequest{
		TokenID: "tok", Side: SELL, Price: 0.62, Size: 40,
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "exch-1", result.OrderID)
	require.Len(t, exchange.placements, 1)
	assert.Equal(t, "GTC", exchange.placements[0].OrderType)
}

func TestCancelOrder_DelegatesToExchange(t *testing.T) {
	exchange := &fakeExchange{}
	exec := NewExecutor(newEstablishedSession(t, exchange), &fakeQuotes{}, nil, logger.Nop())

	err := exec.CancelOrder(context.Background(), "exch-9")
	require.NoError(t, err)
	assert.Equal(t, []string{"exch-9"}, exchange.cancels)
}
