package graph

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/graphtrader/internal/models"
)

func testBars(closes []float64, start time.Time, step time.Duration) []models.Bar {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Time: start.Add(time.Duration(i) * step),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100,
		}
	}
	return bars
}

func breakoutDocument(extraNodes []Node, extraEdges []Edge) *Document {
	doc := &Document{
		Version: DocumentVersion,
		Nodes: []Node{
			{ID: "entry", Kind: NodeKindEntryStrategy, Params: json.RawMessage(`{"strategy":"range_breakout","period":3}`)},
			{ID: "orders", Kind: NodeKindOrderPlacement, Params: json.RawMessage(`{"mode":"fixed_lot","lots":0.2,"stop_loss_points":100,"take_profit_points":200}`)},
		},
		Edges:    []Edge{{From: "entry", To: "orders"}},
		Settings: Settings{MaxOpenTrades: 1},
	}
	doc.Nodes = append(doc.Nodes, extraNodes...)
	doc.Edges = append(doc.Edges, extraEdges...)
	return doc
}

func TestRangeBreakoutSignal(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110}
	bars := testBars(closes, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), time.Hour)
	ev, err := NewEvaluator(breakoutDocument(nil, nil), bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		sig := ev.Evaluate(i)
		if sig.LongEntry || sig.ShortEntry {
			t.Fatalf("unexpected signal at bar %d", i)
		}
	}
	sig := ev.Evaluate(5)
	if !sig.LongEntry {
		t.Fatal("expected long breakout signal at bar 5")
	}
	if sig.ShortEntry {
		t.Fatal("unexpected short signal")
	}
	if sig.StopLossPoints != 100 || sig.TakeProfitPoints != 200 {
		t.Fatalf("expected SL/TP from order node, got %v/%v", sig.StopLossPoints, sig.TakeProfitPoints)
	}
	if sig.Sizing.Lots != 0.2 {
		t.Fatalf("expected 0.2 lots, got %v", sig.Sizing.Lots)
	}
}

func TestTimingFilterBlocksBar(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110}
	// bars run 02:00-07:00, session allows 08:00-17:00
	bars := testBars(closes, time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC), time.Hour)
	doc := breakoutDocument([]Node{
		{ID: "session", Kind: NodeKindTiming, Params: json.RawMessage(`{"mode":"session","start":"08:00","end":"17:00"}`)},
	}, nil)
	ev, err := NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	sig := ev.Evaluate(5)
	if !sig.Filtered {
		t.Fatal("expected bar to be filtered outside the session")
	}
	// the breakout itself still computes; the engine decides to skip entry
	if !sig.LongEntry {
		t.Fatal("expected underlying breakout signal to remain visible")
	}
}

func TestTimingConditionModeOr(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110}
	bars := testBars(closes, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	doc := breakoutDocument([]Node{
		{ID: "s1", Kind: NodeKindTiming, Params: json.RawMessage(`{"mode":"session","start":"00:00","end":"01:00"}`)},
		{ID: "s2", Kind: NodeKindTiming, Params: json.RawMessage(`{"mode":"session","start":"08:00","end":"17:00"}`)},
	}, nil)

	// AND of the two windows blocks every bar
	ev, err := NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	if !ev.Evaluate(5).Filtered {
		t.Fatal("AND mode should block when any window misses")
	}

	doc.Settings.ConditionMode = ConditionModeOr
	ev, err = NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	if ev.Evaluate(5).Filtered {
		t.Fatal("OR mode should pass when one window matches")
	}
}

func TestMaxSpreadFilter(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110}
	bars := testBars(closes, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	doc := breakoutDocument([]Node{
		{ID: "spread", Kind: NodeKindTiming, Params: json.RawMessage(`{"mode":"max_spread","max_spread_points":5}`)},
	}, nil)

	wide, err := NewEvaluator(doc, bars, 20)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	if !wide.Evaluate(5).Filtered {
		t.Fatal("expected wide spread to be filtered")
	}
	tight, err := NewEvaluator(doc, bars, 3)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	if tight.Evaluate(5).Filtered {
		t.Fatal("expected tight spread to pass")
	}
}

func TestIndicatorConfirmationGatesEntry(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 110}
	bars := testBars(closes, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	doc := breakoutDocument([]Node{
		// RSI(3) threshold nobody can clear: gate always fails
		{ID: "rsi", Kind: NodeKindIndicator, Params: json.RawMessage(`{"indicator":"rsi","period":3,"condition":"above","threshold":101}`)},
	}, []Edge{{From: "rsi", To: "entry"}})
	ev, err := NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	if sig := ev.Evaluate(5); sig.LongEntry {
		t.Fatal("expected confirmation gate to suppress the entry")
	}
}

func TestWarmupShortfallBecomesWarning(t *testing.T) {
	closes := []float64{100, 101}
	bars := testBars(closes, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	doc := &Document{
		Version: DocumentVersion,
		Nodes: []Node{
			{ID: "entry", Kind: NodeKindEntryStrategy, Params: json.RawMessage(`{"strategy":"ema_crossover","fast_period":10,"slow_period":20}`)},
		},
		Settings: Settings{MaxOpenTrades: 1},
	}
	ev, err := NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("warmup shortfall must not be fatal: %v", err)
	}
	found := false
	for _, w := range ev.Warnings() {
		if strings.Contains(w, "warmup") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a warmup warning")
	}
	for i := range bars {
		sig := ev.Evaluate(i)
		if sig.LongEntry || sig.ShortEntry {
			t.Fatal("not-yet-valid buffers must yield no signal")
		}
	}
}

func TestEvaluatorDoesNotMutateDocument(t *testing.T) {
	doc := breakoutDocument(nil, nil)
	before, _ := doc.Marshal()
	bars := testBars([]float64{100, 100, 100, 100, 100, 110}, time.Now().UTC(), time.Hour)
	ev, err := NewEvaluator(doc, bars, 10)
	if err != nil {
		t.Fatalf("evaluator failed: %v", err)
	}
	for i := range bars {
		ev.Evaluate(i)
	}
	after, _ := doc.Marshal()
	if string(before) != string(after) {
		t.Fatal("evaluation mutated the document")
	}
}
