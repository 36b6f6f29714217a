// Package stops implements client-side conditional ("stop") orders: the
// exchange only offers market and limit primitives, so trigger conditions
// are watched locally and promoted to market orders when price crosses.
package stops

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"stopbot/engine"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusTriggered Status = "TRIGGERED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// Terminal statuses are never left; a terminal order is never re-evaluated.
func (s Status) Terminal() bool {
	return s == StatusTriggered || s == StatusCancelled || s == StatusFailed
}

type TriggerDirection string

const (
	Above TriggerDirection = "ABOVE"
	Below TriggerDirection = "BELOW"
)

// directionForSide is fixed policy, not user-selectable: a BUY stop is a
// breakout buy (fires when price rises to the trigger), a SELL stop is a
// stop-loss (fires when price falls to it).
func directionForSide(side engine.Side) TriggerDirection {
	if side == engine.SELL {
		return Below
	}
	return Above
}

// Order is one conditional order. Records are retained after reaching a
// terminal status for audit history.
type Order struct {
	ID           string           `json:"id"`
	TokenID      string           `json:"tokenId"`
	Side         engine.Side      `json:"side"`
	TriggerPrice float64          `json:"triggerPrice"`
	Amount       float64          `json:"amount"` // USDC for BUY, shares for SELL
	Direction    TriggerDirection `json:"direction"`
	Status       Status           `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	OrderID      string           `json:"orderId,omitempty"` // exchange order id once triggered
	Reason       string           `json:"reason,omitempty"`  // failure reason when FAILED
}

func newOrderID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
