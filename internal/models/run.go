package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunState is the persisted lifecycle state of a backtest run
type RunState string

const (
	RunStateQueued    RunState = "queued"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// StrategyDocument is a stored strategy graph with metadata. The graph body
// is kept as raw JSON so older documents survive schema evolution untouched.
type StrategyDocument struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Version   int             `db:"version" json:"version"`
	Body      json.RawMessage `db:"body" json:"body"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// BacktestRun is the persisted record of one backtest execution
type BacktestRun struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	DocumentID   uuid.UUID       `db:"document_id" json:"document_id"`
	Symbol       string          `db:"symbol" json:"symbol"`
	Timeframe    string          `db:"timeframe" json:"timeframe"`
	State        RunState        `db:"state" json:"state"`
	Config       json.RawMessage `db:"config" json:"config"`
	Statistics   json.RawMessage `db:"statistics" json:"statistics,omitempty"`
	FinalBalance float64         `db:"final_balance" json:"final_balance"`
	TotalTrades  int             `db:"total_trades" json:"total_trades"`
	Error        *string         `db:"error" json:"error,omitempty"`
	StartedAt    *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
