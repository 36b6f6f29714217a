package stops

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stopbot/engine"
	"stopbot/storage"
)

const tableKey = "stopbot/stop-orders"

// tableVersion guards the persisted shape; an unknown version fails the
// load instead of being silently reinterpreted.
const tableVersion = 1

type table struct {
	Version int     `json:"version"`
	Orders  []Order `json:"orders"`
}

// Store owns the authoritative conditional-order table. All status
// transitions go through it under one mutex, and transitions out of PENDING
// are one-way. The monitor claims an order before executing so a concurrent
// Cancel cannot race a promotion in flight.
type Store struct {
	kv  storage.KV
	now func() time.Time

	mu      sync.Mutex
	orders  []Order
	index   map[string]int
	claimed map[string]bool
}

func NewStore(kv storage.KV) (*Store, error) {
	s := &Store{
		kv:      kv,
		now:     time.Now,
		index:   make(map[string]int),
		claimed: make(map[string]bool),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, ok, err := s.kv.Get(tableKey)
	if err != nil {
		return fmt.Errorf("failed to load stop orders: %w", err)
	}
	if !ok {
		return nil
	}

	var t table
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("failed to decode stop orders: %w", err)
	}
	if t.Version != tableVersion {
		return fmt.Errorf("unsupported stop order table version %d", t.Version)
	}

	s.orders = t.Orders
	for i, o := range s.orders {
		s.index[o.ID] = i
	}
	return nil
}

func (s *Store) persistLocked() error {
	raw, err := json.Marshal(table{Version: tableVersion, Orders: s.orders})
	if err != nil {
		return err
	}
	return s.kv.Set(tableKey, raw)
}

// Create adds a new PENDING order. The trigger direction is derived from
// the side, never chosen by the caller.
func (s *Store) Create(tokenID string, side engine.Side, triggerPrice, amount float64) (Order, error) {
	if triggerPrice <= 0 || triggerPrice >= 1 {
		return Order{}, engine.ErrInvalidPrice
	}
	if amount <= 0 {
		return Order{}, engine.ErrInvalidAmount
	}

	order := Order{
		ID:           newOrderID(),
		TokenID:      tokenID,
		Side:         side,
		TriggerPrice: triggerPrice,
		Amount:       amount,
		Direction:    directionForSide(side),
		Status:       StatusPending,
		CreatedAt:    s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = append(s.orders, order)
	s.index[order.ID] = len(s.orders) - 1

	if err := s.persistLocked(); err != nil {
		return Order{}, fmt.Errorf("failed to persist stop order: %w", err)
	}
	return order, nil
}

// Cancel transitions PENDING to CANCELLED. It reports false for unknown,
// already-terminal, or currently-executing orders; repeating a cancel is a
// no-op.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok || s.orders[i].Status != StatusPending || s.claimed[id] {
		return false
	}

	s.orders[i].Status = StatusCancelled
	s.persistLocked()
	return true
}

// ListPending returns the orders eligible for monitoring.
func (s *Store) ListPending() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []Order
	for _, o := range s.orders {
		if o.Status == StatusPending {
			pending = append(pending, o)
		}
	}
	return pending
}

// ListAll returns the full history including terminal orders.
func (s *Store) ListAll() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// Get returns one order by id.
func (s *Store) Get(id string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Order{}, false
	}
	return s.orders[i], true
}

// claim reserves a PENDING order for execution. It is the compare-and-swap
// that keeps the terminal transition at-most-once: a claimed order cannot
// be cancelled or claimed again until a terminal mark releases it.
func (s *Store) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok || s.orders[i].Status != StatusPending || s.claimed[id] {
		return false
	}
	s.claimed[id] = true
	return true
}

func (s *Store) markTriggered(id, exchangeOrderID string) error {
	return s.finish(id, StatusTriggered, exchangeOrderID, "")
}

func (s *Store) markFailed(id, reason string) error {
	return s.finish(id, StatusFailed, "", reason)
}

func (s *Store) finish(id string, status Status, exchangeOrderID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("unknown stop order %s", id)
	}
	if s.orders[i].Status != StatusPending {
		return fmt.Errorf("stop order %s already %s", id, s.orders[i].Status)
	}

	s.orders[i].Status = status
	s.orders[i].OrderID = exchangeOrderID
	s.orders[i].Reason = reason
	delete(s.claimed, id)

	return s.persistLocked()
}
