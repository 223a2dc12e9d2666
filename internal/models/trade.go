package models

import (
	"time"

	"github.com/google/uuid"
)

// TradeDirection represents the side of a position (LONG or SHORT)
type TradeDirection string

const (
	TradeDirectionLong  TradeDirection = "LONG"
	TradeDirectionShort TradeDirection = "SHORT"
)

// PositionStatus represents the lifecycle state of a position
type PositionStatus string

// Entries fill at the decision bar's close, so a position is born open;
// there is no pending state between signal and fill.
const (
	PositionStatusOpen            PositionStatus = "open"
	PositionStatusPartiallyClosed PositionStatus = "partially_closed"
	PositionStatusClosed          PositionStatus = "closed"
)

// CloseReason describes why a position (or part of it) was closed
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonTimeExit   CloseReason = "time_exit"
	CloseReasonPartial    CloseReason = "partial_close"
	CloseReasonEndOfData  CloseReason = "end_of_data"
)

// PartialClose records one partial exit of an open position
type PartialClose struct {
	Time     time.Time `json:"time"`
	BarIndex int       `json:"bar_index"`
	Price    float64   `json:"price"`
	Volume   float64   `json:"volume"`
	Profit   float64   `json:"profit"`
}

// Position is a live position owned by the execution engine during a run.
// Once fully closed it is converted into an immutable Trade and never touched
// again.
type Position struct {
	ID             uuid.UUID
	Direction      TradeDirection
	Status         PositionStatus
	OpenTime       time.Time
	OpenBar        int
	EntryPrice     float64
	Volume         float64 // remaining lots
	InitialVolume  float64
	StopLoss       float64 // 0 means no stop
	TakeProfit     float64 // 0 means no target
	Commission     float64 // accumulated, both sides
	RealizedProfit float64 // from partial closes
	Partials       []PartialClose

	// management bookkeeping, applied at most once per position
	BreakevenDone  bool
	LockProfitDone bool
}

// Trade is the immutable record of a fully closed position
type Trade struct {
	ID         uuid.UUID      `json:"id"`
	Direction  TradeDirection `json:"direction"`
	OpenTime   time.Time      `json:"open_time"`
	CloseTime  time.Time      `json:"close_time"`
	OpenBar    int            `json:"open_bar"`
	CloseBar   int            `json:"close_bar"`
	EntryPrice float64        `json:"entry_price"`
	ClosePrice float64        `json:"close_price"`
	Volume     float64        `json:"volume"`
	Profit     float64        `json:"profit"`
	Commission float64        `json:"commission"`
	Reason     CloseReason    `json:"reason"`
	Partials   []PartialClose `json:"partials,omitempty"`
}
