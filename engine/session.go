package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"stopbot/client"
	"stopbot/logger"
)

// Exchange is the authenticated order surface the engine submits against.
type Exchange interface {
	PlaceOrder(ctx context.Context, req client.OrderPlacement) (*client.OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) (*client.CancelResponse, error)
	GetBalance(ctx context.Context) (float64, error)
}

// CredentialSource derives L2 API credentials from an L1 attestation.
type CredentialSource interface {
	CreateOrDeriveApiKey(ctx context.Context, signer client.OrderSigner) (*client.ApiKeyResponse, error)
}

// ExchangeFactory builds the authenticated client once credentials exist.
type ExchangeFactory func(auth *client.L2Auth) Exchange

type sessionState struct {
	signer   client.OrderSigner
	funder   string
	owner    string // API key UUID, the order "owner" field
	exchange Exchange
}

// Session holds the authenticated signing context and funding address. All
// order submission is gated on it being established. Deriving credentials
// costs a user-visible signature prompt, so re-establishing with the same
// (signer, funder) pair is a no-op; a different pair fully replaces the
// session.
type Session struct {
	creds       CredentialSource
	newExchange ExchangeFactory
	log         *logger.Logger

	mu    sync.RWMutex
	state *sessionState
}

func NewSession(creds CredentialSource, newExchange ExchangeFactory, log *logger.Logger) *Session {
	return &Session{
		creds:       creds,
		newExchange: newExchange,
		log:         log,
	}
}

func (s *Session) Establish(ctx context.Context, signer client.OrderSigner, funderAddress string) error {
	address := signer.Address().Hex()

	s.mu.RLock()
	cur := s.state
	s.mu.RUnlock()

	if cur != nil && cur.signer.Address().Hex() == address && strings.EqualFold(cur.funder, funderAddress) {
		s.log.Debug("session_reuse", "address", address)
		return nil
	}

	apiKey, err := s.creds.CreateOrDeriveApiKey(ctx, signer)
	if err != nil {
		return fmt.Errorf("failed to derive API credentials: %w", err)
	}

	auth := &client.L2Auth{
		Address:    address,
		APIKey:     apiKey.ApiKey,
		Secret:     apiKey.Secret,
		Passphrase: apiKey.Passphrase,
	}

	next := &sessionState{
		signer:   signer,
		funder:   funderAddress,
		owner:    apiKey.ApiKey,
		exchange: s.newExchange(auth),
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.log.Info("session_established", "address", address, "funder", funderAddress)
	return nil
}

func (s *Session) IsEstablished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil
}

// Invalidate drops the session entirely, e.g. on logout.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.state = nil
	s.mu.Unlock()
}

// snapshot returns a consistent view of the current session, or nil.
func (s *Session) snapshot() *sessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Balance reads the collateral balance backing the funding address.
func (s *Session) Balance(ctx context.Context) (float64, error) {
	st := s.snapshot()
	if st == nil {
		return 0, ErrNotAuthenticated
	}
	return st.exchange.GetBalance(ctx)
}
