package client

import (
	"strconv"
	"strings"
	"time"
)

// StringFloat64 decodes the CLOB's string-quoted decimal fields.
type StringFloat64 float64

// UnixTimestamp decodes the CLOB's string-quoted unix-second fields.
type UnixTimestamp time.Time

// =============================
// REST types
// =============================

type PriceLevel struct {
	Price StringFloat64 `json:"price"`
	Size  StringFloat64 `json:"size"`
}

type BookResponse struct {
	Market         string        `json:"market"`
	AssetID        string        `json:"asset_id"`
	Timestamp      string        `json:"timestamp"`
	Hash           string        `json:"hash"`
	Bids           []PriceLevel  `json:"bids"`
	Asks           []PriceLevel  `json:"asks"`
	MinOrderSize   string        `json:"min_order_size"`
	TickSize       StringFloat64 `json:"tick_size"`
	NegRisk        bool          `json:"neg_risk"`
	LastTradePrice string        `json:"last_trade_price"`
}

type FeeRateResponse struct {
	FeeRateBps int `json:"base_fee"`
}

type ApiKeyResponse struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// SignedOrder is the EIP-712 signed order object the exchange accepts.
type SignedOrder struct {
	Salt          uint64 `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"` // "BUY" or "SELL"
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// OrderPlacement is the top-level order placement payload.
type OrderPlacement struct {
	Order     SignedOrder `json:"order"`
	Owner     string      `json:"owner"`     // API key UUID
	OrderType string      `json:"orderType"` // "FOK", "GTC", "GTD"
}

type OrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

type CancelResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	Status   string `json:"status"`
}

type BalanceResponse struct {
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

// =============================
// WebSocket types
// =============================

type WSSubscribeMessage struct {
	Type    string   `json:"type"`
	Markets []string `json:"markets,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

type WSMessage struct {
	EventType string `json:"event_type"`
}

type BookMessage struct {
	EventType string       `json:"event_type"` // "book"
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
}

type BestBidAskMessage struct {
	EventType string        `json:"event_type"` // "best_bid_ask"
	Market    string        `json:"market"`
	AssetID   string        `json:"asset_id"`
	BestBid   StringFloat64 `json:"best_bid"`
	BestAsk   StringFloat64 `json:"best_ask"`
	Spread    StringFloat64 `json:"spread"`
	Timestamp UnixTimestamp `json:"timestamp"`
}

// =============================
// JSON unmarshal helpers
// =============================

func (sf *StringFloat64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*sf = StringFloat64(f)
	return nil
}

func (ut *UnixTimestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*ut = UnixTimestamp(time.Unix(sec, 0))
	return nil
}

func (ut UnixTimestamp) Time() time.Time {
	return time.Time(ut)
}
