package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// TradeClient covers the authenticated order endpoints.
type TradeClient struct {
	*Client
	auth *L2Auth
}

func NewTradeClient(baseUrl string, auth *L2Auth) *TradeClient {
	if baseUrl == "" {
		baseUrl = DefaultClobURL
	}
	c := NewClient(baseUrl)
	c.SetAuth(auth)
	return &TradeClient{Client: c, auth: auth}
}

// PlaceOrder submits a signed order. The body must be encoded without HTML
// escaping so the HMAC matches what the exchange hashes.
func (tc *TradeClient) PlaceOrder(ctx context.Context, req OrderPlacement) (*OrderResponse, error) {
	if tc.auth == nil {
		return nil, errors.New("auth required: missing L2 credentials")
	}

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(req); err != nil {
		return nil, err
	}
	bodyBytes := bytes.TrimSpace(buf.Bytes())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseUrl+"/order", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := tc.auth.SignWithBody(httpReq, string(bodyBytes)); err != nil {
		return nil, err
	}

	resp, err := tc.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errBody.String())
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if !result.Success {
		return &result, fmt.Errorf("order placement failed: %s", result.ErrorMsg)
	}

	return &result, nil
}

func (tc *TradeClient) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	if tc.auth == nil {
		return nil, errors.New("auth required: missing L2 credentials")
	}

	var result CancelResponse
	if err := tc.delete(ctx, fmt.Sprintf("/order/%s", orderID), &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return &result, fmt.Errorf("cancel failed: %s", result.ErrorMsg)
	}

	return &result, nil
}

// GetBalance returns the collateral balance backing the funding address.
func (tc *TradeClient) GetBalance(ctx context.Context) (float64, error) {
	if tc.auth == nil {
		return 0, errors.New("auth required: missing L2 credentials")
	}

	params := url.Values{}
	params.Set("asset_type", "COLLATERAL")

	var response BalanceResponse
	if err := tc.get(ctx, "/balance-allowance", params, &response); err != nil {
		return 0, fmt.Errorf("balance request failed: %w", err)
	}

	balance, err := strconv.ParseFloat(response.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance: %w", err)
	}

	return balance, nil
}
