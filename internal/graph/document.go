// Package graph models the user-authored strategy graph document and
// evaluates it bar by bar into trading signals.
package graph

import (
	"encoding/json"
	"fmt"
)

// DocumentVersion is the only schema version this build can replay
const DocumentVersion = 1

// NodeKind enumerates the closed set of node variants. Evaluation switches
// over this set exhaustively; adding a kind means touching every switch.
type NodeKind string

const (
	NodeKindTiming          NodeKind = "timing"
	NodeKindIndicator       NodeKind = "indicator"
	NodeKindPriceAction     NodeKind = "price_action"
	NodeKindEntryStrategy   NodeKind = "entry_strategy"
	NodeKindOrderPlacement  NodeKind = "order_placement"
	NodeKindRiskManagement  NodeKind = "risk_management"
	NodeKindTradeManagement NodeKind = "trade_management"
)

// ConditionMode controls how multiple timing filters combine
type ConditionMode string

const (
	ConditionModeAnd ConditionMode = "and"
	ConditionModeOr  ConditionMode = "or"
)

// Node is one vertex of the strategy graph. Params stay raw until the
// kind-specific decode so unknown cosmetic fields survive a round trip.
type Node struct {
	ID     string          `json:"id"`
	Kind   NodeKind        `json:"kind"`
	Label  string          `json:"label,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Sweep  []string        `json:"sweep,omitempty"`
}

// Edge connects a signal source node to the node consuming it
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Settings carries the graph-global trading constraints
type Settings struct {
	MagicID         int           `json:"magic_id"`
	MaxOpenTrades   int           `json:"max_open_trades" validate:"gte=0"`
	MaxLongTrades   int           `json:"max_long_trades" validate:"gte=0"`
	MaxShortTrades  int           `json:"max_short_trades" validate:"gte=0"`
	AllowHedging    bool          `json:"allow_hedging"`
	ConditionMode   ConditionMode `json:"condition_mode,omitempty"`
	DailyLossCap    float64       `json:"daily_loss_cap" validate:"gte=0"`
	DailyProfitCap  float64       `json:"daily_profit_cap" validate:"gte=0"`
	MaxTradesPerDay int           `json:"max_trades_per_day" validate:"gte=0"`
}

// Document is the versioned strategy graph. Metadata (viewport, editor
// state) is cosmetic: preserved verbatim, ignored by evaluation.
type Document struct {
	Version  int             `json:"version"`
	Nodes    []Node          `json:"nodes"`
	Edges    []Edge          `json:"edges"`
	Settings Settings        `json:"settings"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Parse decodes and validates a strategy graph document
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed strategy graph: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Marshal re-encodes the document. Combined with Parse this round-trips
// byte-for-byte for canonically encoded documents.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// NodesOfKind returns the nodes matching kind in document order
func (d *Document) NodesOfKind(kind NodeKind) []Node {
	var out []Node
	for _, n := range d.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// NodeByID returns the node with the given id, or nil
func (d *Document) NodeByID(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Inputs returns the ids of nodes with an edge into the given node
func (d *Document) Inputs(id string) []string {
	var out []string
	for _, e := range d.Edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}
