package models

import "time"

// TradeAction represents the side of a recommended trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// SignalStatus represents the lifecycle state of a trade signal.
type SignalStatus string

const (
	SignalPending   SignalStatus = "PENDING"
	SignalActive    SignalStatus = "ACTIVE"
	SignalTargetHit SignalStatus = "TARGET_HIT"
	SignalSLHit     SignalStatus = "SL_HIT"
	SignalClosed    SignalStatus = "CLOSED"
)

// TradeSignal represents an AI-generated option trade recommendation.
// Signals are created by the advisory client with status PENDING; the
// caller assigns the ID and timestamp and promotes the signal to ACTIVE.
type TradeSignal struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	Instrument   string       `json:"instrument"`
	Action       TradeAction  `json:"action"`
	EntryPrice   float64      `json:"entryPrice"`
	TargetPrice  float64      `json:"targetPrice"`
	StopLoss     float64      `json:"stopLossPrice"`
	Status       SignalStatus `json:"status"`
	Reasoning    string       `json:"reasoning,omitempty"`
	AIConfidence float64      `json:"aiConfidence,omitempty"`
}
