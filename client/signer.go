package client

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// OrderSigner is the narrow signing capability the engine needs: it can
// produce a signed exchange order, attest wallet control for credential
// derivation, and it knows which address it signs for. The concrete key
// mechanism (raw key, custodial service, contract wallet) stays behind this
// interface.
type OrderSigner interface {
	SignOrder(params OrderSignParams) (*SignedOrder, error)
	SignAuth(timestamp int64, nonce int) (string, error)
	Address() common.Address
}

type OrderSignParams struct {
	TokenID       string
	Side          string  // "BUY" or "SELL"
	Price         float64 // decimal price in (0,1)
	Size          float64 // quantity in shares
	Maker         string  // funding address
	Signer        string  // signing address
	Taker         string  // zero address for open orders
	Nonce         string
	FeeRateBps    string
	Expiration    int64 // unix seconds, 0 for none
	SignatureType int   // 0=EOA, 1=POLY_PROXY, 2=GNOSIS_SAFE
}

// EIP712Signer signs CTF Exchange orders with a local private key.
type EIP712Signer struct {
	privateKey *ecdsa.PrivateKey
	chainID    int64
	verifier   string
}

func NewEIP712Signer(privateKeyHex string, chainID int64, verifierContract string) (*EIP712Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &EIP712Signer{
		privateKey: privateKey,
		chainID:    chainID,
		verifier:   verifierContract,
	}, nil
}

func (s *EIP712Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

func (s *EIP712Signer) SignOrder(params OrderSignParams) (*SignedOrder, error) {
	now := float64(time.Now().UTC().Unix())
	salt := big.NewInt(int64(now * rand.Float64()))

	priceScaled := new(big.Float).Mul(big.NewFloat(params.Price), big.NewFloat(1e6))
	sizeScaled := new(big.Float).Mul(big.NewFloat(params.Size), big.NewFloat(1e6))

	// Amounts are 1e6-scaled collateral/share units. BUY spends collateral
	// (price*size) for shares; SELL is the mirror.
	var makerAmount, takerAmount *big.Int
	if params.Side == "BUY" {
		totalCost := new(big.Float).Mul(priceScaled, big.NewFloat(params.Size))
		makerAmount, _ = totalCost.Int(nil)
		takerAmount, _ = sizeScaled.Int(nil)
	} else {
		makerAmount, _ = sizeScaled.Int(nil)
		totalReceived := new(big.Float).Mul(priceScaled, big.NewFloat(params.Size))
		takerAmount, _ = totalReceived.Int(nil)
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": []apitypes.Type{
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: s.verifier,
		},
		Message: apitypes.TypedDataMessage{
			"salt":          salt.String(),
			"maker":         strings.ToLower(params.Maker),
			"signer":        strings.ToLower(params.Signer),
			"taker":         strings.ToLower(params.Taker),
			"tokenId":       params.TokenID,
			"makerAmount":   makerAmount.String(),
			"takerAmount":   takerAmount.String(),
			"expiration":    strconv.FormatInt(params.Expiration, 10),
			"nonce":         params.Nonce,
			"feeRateBps":    params.FeeRateBps,
			"side":          strconv.Itoa(sideToInt(params.Side)),
			"signatureType": strconv.Itoa(params.SignatureType),
		},
	}

	digest, err := hashTypedData(typedData)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27

	return &SignedOrder{
		Salt:          salt.Uint64(),
		Maker:         params.Maker,
		Signer:        params.Signer,
		Taker:         params.Taker,
		TokenID:       params.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Expiration:    strconv.FormatInt(params.Expiration, 10),
		Nonce:         params.Nonce,
		FeeRateBps:    params.FeeRateBps,
		Side:          params.Side,
		SignatureType: params.SignatureType,
		Signature:     "0x" + hex.EncodeToString(signature),
	}, nil
}

// SignAuth produces the L1 "ClobAuth" attestation used to derive API
// credentials. One user-visible signature prompt per derivation.
func (s *EIP712Signer) SignAuth(timestamp int64, nonce int) (string, error) {
	address := s.Address().Hex()

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": []apitypes.Type{
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(s.chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     math.NewHexOrDecimal256(int64(nonce)),
			"message":   "This message attests that I control the given wallet",
		},
	}

	digest, err := hashTypedData(typedData)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27

	return "0x" + hex.EncodeToString(signature), nil
}

func hashTypedData(typedData apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, messageHash...)
	return crypto.Keccak256Hash(rawData), nil
}

func sideToInt(side string) int {
	if side == "BUY" {
		return 0
	}
	return 1 // SELL
}
