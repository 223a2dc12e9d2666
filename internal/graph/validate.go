package graph

import (
	"fmt"
)

// ValidationError reports a structural problem in a strategy graph document
type ValidationError struct {
	NodeID string
	Reason string
}

func (e ValidationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("strategy graph: node %q: %s", e.NodeID, e.Reason)
	}
	return fmt.Sprintf("strategy graph: %s", e.Reason)
}

// Validate checks document structure before any simulation: supported
// version, unique node ids, edges that reference known nodes, decodable
// in-range params for every node kind.
func (d *Document) Validate() error {
	if d.Version != DocumentVersion {
		return ValidationError{Reason: fmt.Sprintf("unsupported version %d, expected %d", d.Version, DocumentVersion)}
	}
	if len(d.Nodes) == 0 {
		return ValidationError{Reason: "document has no nodes"}
	}

	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return ValidationError{Reason: "node with empty id"}
		}
		if seen[n.ID] {
			return ValidationError{NodeID: n.ID, Reason: "duplicate node id"}
		}
		seen[n.ID] = true
		if err := validateNodeParams(n); err != nil {
			return err
		}
	}

	for _, e := range d.Edges {
		if !seen[e.From] {
			return ValidationError{NodeID: e.From, Reason: "edge references unknown source node"}
		}
		if !seen[e.To] {
			return ValidationError{NodeID: e.To, Reason: "edge references unknown target node"}
		}
	}

	switch d.Settings.ConditionMode {
	case "", ConditionModeAnd, ConditionModeOr:
	default:
		return ValidationError{Reason: fmt.Sprintf("unknown condition_mode %q", d.Settings.ConditionMode)}
	}
	if err := paramValidator.Struct(&d.Settings); err != nil {
		return ValidationError{Reason: fmt.Sprintf("settings out of range: %v", err)}
	}
	return nil
}

func validateNodeParams(n Node) error {
	var err error
	switch n.Kind {
	case NodeKindTiming:
		err = decodeParams(n, &TimingParams{})
	case NodeKindIndicator:
		err = decodeParams(n, &IndicatorParams{})
	case NodeKindPriceAction:
		err = decodeParams(n, &PriceActionParams{})
	case NodeKindEntryStrategy:
		err = decodeParams(n, &EntryStrategyParams{})
	case NodeKindOrderPlacement:
		err = decodeParams(n, &OrderPlacementParams{})
	case NodeKindRiskManagement:
		err = decodeParams(n, &RiskManagementParams{})
	case NodeKindTradeManagement:
		err = decodeParams(n, &TradeManagementParams{})
	default:
		return ValidationError{NodeID: n.ID, Reason: fmt.Sprintf("unknown node kind %q", n.Kind)}
	}
	if err != nil {
		return ValidationError{NodeID: n.ID, Reason: err.Error()}
	}
	return nil
}
