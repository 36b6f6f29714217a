package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const DefaultClobURL = "https://clob.polymarket.com"

// ClobClient covers the unauthenticated read endpoints plus API-key
// derivation.
type ClobClient struct {
	*Client
}

func NewClobClient(baseUrl string) *ClobClient {
	if baseUrl == "" {
		baseUrl = DefaultClobURL
	}
	return &ClobClient{Client: NewClient(baseUrl)}
}

func (c *ClobClient) GetBook(ctx context.Context, tokenId string) (*BookResponse, error) {
	params := url.Values{}
	params.Set("token_id", tokenId)

	response := &BookResponse{}
	if err := c.get(ctx, "/book", params, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *ClobClient) GetFeeRateBps(ctx context.Context, tokenId string) (int, error) {
	params := url.Values{}
	params.Set("token_id", tokenId)

	var resp FeeRateResponse
	if err := c.get(ctx, "/fee-rate", params, &resp); err != nil {
		return 0, err
	}
	return resp.FeeRateBps, nil
}

// CreateOrDeriveApiKey exchanges an L1 attestation signature for L2 API
// credentials. Deriving is deterministic per key, so repeat calls return the
// same credentials.
func (c *ClobClient) CreateOrDeriveApiKey(ctx context.Context, signer OrderSigner) (*ApiKeyResponse, error) {
	address := signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := 0

	signature, err := signer.SignAuth(timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth signature: %w", err)
	}

	headers := map[string]string{
		"POLY_ADDRESS":   address,
		"POLY_SIGNATURE": signature,
		"POLY_TIMESTAMP": strconv.FormatInt(timestamp, 10),
		"POLY_NONCE":     strconv.Itoa(nonce),
	}

	response := &ApiKeyResponse{}
	if err := c.getWithHeaders(ctx, "/auth/derive-api-key", headers, response); err != nil {
		return nil, err
	}

	return response, nil
}
