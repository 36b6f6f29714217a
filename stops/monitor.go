package stops

import (
	"context"
	"sync"
	"time"

	"stopbot/engine"
	"stopbot/logger"
)

// DefaultInterval is how often pending orders are re-evaluated.
const DefaultInterval = 5 * time.Second

// MarketExecutor promotes a fired stop order into a real market order.
type MarketExecutor interface {
	ExecuteMarketOrder(ctx context.Context, req engine.MarketOrderRequest) engine.OrderResult
}

// Report is the outcome of one evaluation pass. Triggered[i] corresponds to
// Results[i]; it includes orders that fired and failed execution (FAILED).
type Report struct {
	Triggered []Order
	Results   []engine.OrderResult
}

// Monitor polls quotes for every PENDING order and promotes each at most
// once when its trigger condition is met. One pass runs at a time; stopping
// is cooperative between passes.
type Monitor struct {
	store    *Store
	quotes   engine.QuoteSource
	executor MarketExecutor
	log      *logger.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(store *Store, quotes engine.QuoteSource, executor MarketExecutor, log *logger.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		store:    store,
		quotes:   quotes,
		executor: executor,
		log:      log,
		interval: interval,
	}
}

// CheckAll evaluates every PENDING order once. Orders are independent: a
// quote failure skips that order until the next pass, and an execution
// failure never aborts the rest of the pass.
func (m *Monitor) CheckAll(ctx context.Context) Report {
	var report Report

	for _, order := range m.store.ListPending() {
		quote, err := m.quotes.GetQuote(ctx, order.TokenID)
		if err != nil {
			// Transient; the order stays PENDING and is retried next cycle.
			m.log.Debug("quote_unavailable", "stop_id", order.ID, "token", order.TokenID, "err", err)
			continue
		}

		price, ok := comparisonPrice(order.Side, quote)
		if !ok {
			continue
		}
		if !triggered(order.Direction, price, order.TriggerPrice) {
			continue
		}

		// Lost claims mean the order was cancelled between listing and now.
		if !m.store.claim(order.ID) {
			continue
		}

		m.log.Info("stop_triggered", "stop_id", order.ID, "token", order.TokenID,
			"side", order.Side, "trigger", order.TriggerPrice, "price", price)

		// Execute first, then mark terminal: marking before executing could
		// silently drop the order if the process dies between the two steps.
		result := m.executor.ExecuteMarketOrder(ctx, engine.MarketOrderRequest{
			TokenID: order.TokenID,
			Side:    order.Side,
			Amount:  order.Amount,
		})

		if result.Success {
			if err := m.store.markTriggered(order.ID, result.OrderID); err != nil {
				m.log.Error("stop_mark_failed", "stop_id", order.ID, "err", err)
			}
		} else {
			m.log.Warn("stop_execution_failed", "stop_id", order.ID, "err", result.Error)
			if err := m.store.markFailed(order.ID, result.Error); err != nil {
				m.log.Error("stop_mark_failed", "stop_id", order.ID, "err", err)
			}
		}

		if updated, ok := m.store.Get(order.ID); ok {
			report.Triggered = append(report.Triggered, updated)
			report.Results = append(report.Results, result)
		}
	}

	return report
}

// comparisonPrice picks the side of the book the eventual market order
// would execute against: BUY pays the ask, SELL receives the bid.
func comparisonPrice(side engine.Side, quote engine.Quote) (float64, bool) {
	if side == engine.BUY {
		return quote.Ask, quote.HasAsk
	}
	return quote.Bid, quote.HasBid
}

func triggered(direction TriggerDirection, price, triggerPrice float64) bool {
	if direction == Above {
		return price >= triggerPrice
	}
	return price <= triggerPrice
}

// Run evaluates on a fixed interval until ctx is cancelled. CheckAll runs
// inline with the ticker, so at most one pass is ever in flight.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("monitor_started", "interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitor_stopped")
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// Start launches Run on its own goroutine. No-op when already running.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		m.Run(ctx)
	}(m.done)
}

// Stop halts further passes and waits for an in-flight pass to complete.
// Pending orders are untouched; only automatic promotion stops.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}
