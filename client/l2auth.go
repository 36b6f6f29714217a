package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// L2Auth signs requests with the derived API credentials. The exchange
// expects an HMAC over timestamp+method+path+body with URL-safe base64 on
// both the decoded secret and the encoded signature.
type L2Auth struct {
	Address    string // signing wallet address
	APIKey     string
	Secret     string // base64 encoded HMAC secret
	Passphrase string
}

func (a L2Auth) Apply(req *http.Request) error {
	return a.sign(req, "")
}

func (a L2Auth) SignWithBody(req *http.Request, body string) error {
	return a.sign(req, body)
}

func (a L2Auth) sign(req *http.Request, body string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	message := timestamp + req.Method + req.URL.Path + body

	secretBytes, err := base64.URLEncoding.DecodeString(a.Secret)
	if err != nil {
		return fmt.Errorf("failed to decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("POLY_ADDRESS", a.Address)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_API_KEY", a.APIKey)
	req.Header.Set("POLY_PASSPHRASE", a.Passphrase)

	return nil
}
