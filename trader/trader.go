// Package trader is the surface the UI talks to. It delegates to the
// executor, the stop order store and the monitor; no trading logic of its
// own.
package trader

import (
	"context"

	"stopbot/engine"
	"stopbot/stops"
)

type Trader struct {
	session  *engine.Session
	executor *engine.Executor
	store    *stops.Store
	monitor  *stops.Monitor
}

func New(session *engine.Session, executor *engine.Executor, store *stops.Store, monitor *stops.Monitor) *Trader {
	return &Trader{
		session:  session,
		executor: executor,
		store:    store,
		monitor:  monitor,
	}
}

func (t *Trader) PlaceMarketOrder(ctx context.Context, req engine.MarketOrderRequest) engine.OrderResult {
	return t.executor.ExecuteMarketOrder(ctx, req)
}

func (t *Trader) PlaceLimitOrder(ctx context.Context, req engine.LimitOrderRequest) engine.OrderResult {
	return t.executor.SubmitLimitOrder(ctx, req)
}

// CancelExchangeOrder cancels a resting exchange order (not a stop order).
func (t *Trader) CancelExchangeOrder(ctx context.Context, orderID string) error {
	return t.executor.CancelOrder(ctx, orderID)
}

// CreateStopOrder records a conditional order for monitoring. Nothing is
// sent to the exchange until the trigger fires.
func (t *Trader) CreateStopOrder(tokenID string, side engine.Side, triggerPrice, amount float64) (stops.Order, error) {
	return t.store.Create(tokenID, side, triggerPrice, amount)
}

func (t *Trader) CancelStopOrder(id string) bool {
	return t.store.Cancel(id)
}

func (t *Trader) ListPendingStopOrders() []stops.Order {
	return t.store.ListPending()
}

func (t *Trader) ListStopOrders() []stops.Order {
	return t.store.ListAll()
}

func (t *Trader) StartMonitoring() {
	t.monitor.Start()
}

func (t *Trader) StopMonitoring() {
	t.monitor.Stop()
}

func (t *Trader) Monitoring() bool {
	return t.monitor.Running()
}

func (t *Trader) Balance(ctx context.Context) (float64, error) {
	return t.session.Balance(ctx)
}
