package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/graphtrader/internal/indicators"
	"github.com/yourusername/graphtrader/internal/models"
)

// SignalSet is the interpreter's per-bar output
type SignalSet struct {
	Filtered         bool
	LongEntry        bool
	ShortEntry       bool
	StopLossPoints   float64
	TakeProfitPoints float64
	Sizing           OrderPlacementParams
}

// Evaluator evaluates a validated strategy graph against a bar series. It
// precomputes every indicator buffer once, then answers Evaluate(i) with
// O(1) lookups. The evaluator never mutates the document or the bars.
type Evaluator struct {
	doc          *Document
	bars         []models.Bar
	spreadPoints float64

	closes []float64
	highs  []float64
	lows   []float64

	timing   []TimingParams
	entries  []compiledEntry
	mgmt     TradeManagementParams
	risk     RiskManagementParams
	warnings []string
}

type compiledEntry struct {
	id       string
	params   EntryStrategyParams
	order    OrderPlacementParams
	confirms []compiledConfirm

	fast   indicators.Buffer
	slow   indicators.Buffer
	rsi    indicators.Buffer
	macd   indicators.MACDResult
	trend  indicators.Buffer
	osc    indicators.Buffer
	period int
}

type compiledConfirm struct {
	kind    NodeKind
	ind     IndicatorParams
	pattern PriceActionParams
	buffer  indicators.Buffer
}

// defaultOrder is used when the graph carries no order placement node
var defaultOrder = OrderPlacementParams{Mode: SizingFixedLot, Lots: 0.1}

// NewEvaluator compiles the graph against the bar series. Warmup
// shortfalls become warnings, not errors; the affected signals simply never
// fire.
func NewEvaluator(doc *Document, bars []models.Bar, spreadPoints float64) (*Evaluator, error) {
	if doc == nil {
		return nil, fmt.Errorf("strategy graph is required")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	e := &Evaluator{
		doc:          doc,
		bars:         bars,
		spreadPoints: spreadPoints,
		closes:       indicators.Closes(bars),
		highs:        indicators.Highs(bars),
		lows:         indicators.Lows(bars),
	}

	for _, n := range doc.NodesOfKind(NodeKindTiming) {
		var p TimingParams
		if err := decodeParams(n, &p); err != nil {
			return nil, err
		}
		e.timing = append(e.timing, p)
	}

	orders := doc.NodesOfKind(NodeKindOrderPlacement)
	fallbackOrder := defaultOrder
	if len(orders) > 0 {
		if err := decodeParams(orders[0], &fallbackOrder); err != nil {
			return nil, err
		}
	} else {
		e.warn("no order placement node; defaulting to %.2f lot entries", defaultOrder.Lots)
	}

	for _, n := range doc.NodesOfKind(NodeKindEntryStrategy) {
		entry, err := e.compileEntry(n, fallbackOrder)
		if err != nil {
			return nil, err
		}
		e.entries = append(e.entries, entry)
	}
	if len(e.entries) == 0 {
		e.warn("graph has no entry strategy node; no entries will be generated")
	}

	for _, n := range doc.NodesOfKind(NodeKindTradeManagement) {
		if err := decodeParams(n, &e.mgmt); err != nil {
			return nil, err
		}
		break // a single trade management node governs the run
	}
	e.risk = RiskManagementParams{
		DailyLossCap:    doc.Settings.DailyLossCap,
		DailyProfitCap:  doc.Settings.DailyProfitCap,
		MaxTradesPerDay: doc.Settings.MaxTradesPerDay,
	}
	for _, n := range doc.NodesOfKind(NodeKindRiskManagement) {
		var p RiskManagementParams
		if err := decodeParams(n, &p); err != nil {
			return nil, err
		}
		if p.DailyLossCap > 0 {
			e.risk.DailyLossCap = p.DailyLossCap
		}
		if p.DailyProfitCap > 0 {
			e.risk.DailyProfitCap = p.DailyProfitCap
		}
		if p.MaxTradesPerDay > 0 {
			e.risk.MaxTradesPerDay = p.MaxTradesPerDay
		}
	}
	return e, nil
}

func (e *Evaluator) compileEntry(n Node, fallbackOrder OrderPlacementParams) (compiledEntry, error) {
	entry := compiledEntry{id: n.ID, order: fallbackOrder}
	if err := decodeParams(n, &entry.params); err != nil {
		return entry, err
	}
	p := &entry.params

	switch p.Strategy {
	case EntryEMACrossover:
		fast, slow := defaultInt(p.FastPeriod, 12), defaultInt(p.SlowPeriod, 26)
		entry.fast = e.buffer(indicators.EMA(e.closes, fast), "ema", fast)
		entry.slow = e.buffer(indicators.EMA(e.closes, slow), "ema", slow)
	case EntryRangeBreakout:
		entry.period = defaultInt(p.Period, 20)
	case EntryRSIReversal:
		period := defaultInt(p.Period, 14)
		entry.rsi = e.buffer(indicators.RSI(e.closes, period), "rsi", period)
		if p.Oversold == 0 {
			p.Oversold = 30
		}
		if p.Overbought == 0 {
			p.Overbought = 70
		}
	case EntryTrendPullback:
		fast, slow := defaultInt(p.FastPeriod, 20), defaultInt(p.SlowPeriod, 50)
		entry.fast = e.buffer(indicators.EMA(e.closes, fast), "ema", fast)
		entry.slow = e.buffer(indicators.EMA(e.closes, slow), "ema", slow)
	case EntryMACDCrossover:
		fast, slow := defaultInt(p.FastPeriod, 12), defaultInt(p.SlowPeriod, 26)
		signal := defaultInt(p.SignalPeriod, 9)
		entry.macd = indicators.MACD(e.closes, fast, slow, signal)
		e.buffer(entry.macd.Signal, "macd", slow+signal-1)
	}

	if p.TrendFilter {
		period := defaultInt(p.TrendPeriod, 200)
		entry.trend = e.buffer(indicators.EMA(e.closes, period), "trend ema", period)
	}
	if p.OscillatorConfirm {
		period := defaultInt(p.OscillatorPeriod, 14)
		entry.osc = e.buffer(indicators.RSI(e.closes, period), "rsi confirm", period)
	}

	for _, inputID := range e.doc.Inputs(n.ID) {
		input := e.doc.NodeByID(inputID)
		if input == nil {
			continue
		}
		switch input.Kind {
		case NodeKindIndicator:
			var p IndicatorParams
			if err := decodeParams(*input, &p); err != nil {
				return entry, err
			}
			entry.confirms = append(entry.confirms, compiledConfirm{
				kind:   NodeKindIndicator,
				ind:    p,
				buffer: e.indicatorBuffer(p),
			})
		case NodeKindPriceAction:
			var p PriceActionParams
			if err := decodeParams(*input, &p); err != nil {
				return entry, err
			}
			entry.confirms = append(entry.confirms, compiledConfirm{kind: NodeKindPriceAction, pattern: p})
		case NodeKindOrderPlacement:
			var p OrderPlacementParams
			if err := decodeParams(*input, &p); err != nil {
				return entry, err
			}
			entry.order = p
		}
	}
	// an order node wired downstream of the entry also binds to it
	for _, e2 := range e.doc.Edges {
		if e2.From != n.ID {
			continue
		}
		target := e.doc.NodeByID(e2.To)
		if target != nil && target.Kind == NodeKindOrderPlacement {
			if err := decodeParams(*target, &entry.order); err != nil {
				return entry, err
			}
		}
	}
	return entry, nil
}

// indicatorBuffer resolves a confirmation node's params to one line
func (e *Evaluator) indicatorBuffer(p IndicatorParams) indicators.Buffer {
	period := defaultInt(p.Period, 14)
	switch p.Indicator {
	case "sma", "ema", "smma", "lwma":
		src := indicators.Apply(e.bars, p.AppliedPrice)
		return e.buffer(indicators.MovingAverage(src, period, indicators.MAMethod(p.Indicator)), p.Indicator, period)
	case "rsi":
		return e.buffer(indicators.RSI(e.closes, period), "rsi", period)
	case "atr":
		return e.buffer(indicators.ATR(e.bars, period), "atr", period)
	case "cci":
		return e.buffer(indicators.CCI(e.bars, period), "cci", period)
	case "obv":
		return indicators.OBV(e.bars)
	case "adx":
		return e.buffer(indicators.ADX(e.bars, period).ADX, "adx", period)
	case "stochastic":
		k := defaultInt(p.KPeriod, 5)
		d := defaultInt(p.DPeriod, 3)
		slowing := defaultInt(p.Slowing, 3)
		return e.buffer(indicators.Stochastic(e.bars, k, d, slowing).K, "stochastic", k+slowing+d)
	case "macd":
		fast := defaultInt(p.FastPeriod, 12)
		slow := defaultInt(p.SlowPeriod, 26)
		signal := defaultInt(p.SignalPeriod, 9)
		return e.buffer(indicators.MACD(e.closes, fast, slow, signal).MACD, "macd", slow)
	case "bollinger":
		dev := p.Deviation
		if dev == 0 {
			dev = 2
		}
		return e.buffer(indicators.Bollinger(e.closes, period, dev).Middle, "bollinger", period)
	case "squeeze":
		dev := p.Deviation
		if dev == 0 {
			dev = 2
		}
		return e.buffer(indicators.Squeeze(e.bars, period, dev, 1.5), "squeeze", period)
	}
	return indicators.NewBuffer(len(e.bars))
}

// buffer records a warmup warning when the series is too short for the
// indicator to ever become valid
func (e *Evaluator) buffer(b indicators.Buffer, name string, period int) indicators.Buffer {
	if b.FirstValid() == -1 {
		e.warn("%s(%d): insufficient bars for warmup (%d bars)", name, period, len(e.bars))
	}
	return b
}

func (e *Evaluator) warn(format string, args ...interface{}) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns non-fatal conditions collected during compilation
func (e *Evaluator) Warnings() []string {
	return e.warnings
}

// Management returns the run's trade management rules
func (e *Evaluator) Management() TradeManagementParams {
	return e.mgmt
}

// Risk returns the run's effective daily risk caps
func (e *Evaluator) Risk() RiskManagementParams {
	return e.risk
}

// Evaluate produces the signal set at bar i. Signals depending on a
// not-yet-valid buffer value resolve to "no signal".
func (e *Evaluator) Evaluate(i int) SignalSet {
	out := SignalSet{Sizing: defaultOrder}
	if i < 0 || i >= len(e.bars) {
		return out
	}
	out.Filtered = !e.timingAllows(i)

	for _, entry := range e.entries {
		long, short := e.baseSignal(entry, i)
		if !long && !short {
			continue
		}
		long = long && e.togglesAllow(entry, i, models.TradeDirectionLong)
		short = short && e.togglesAllow(entry, i, models.TradeDirectionShort)
		long = long && e.confirmsAllow(entry, i, models.TradeDirectionLong)
		short = short && e.confirmsAllow(entry, i, models.TradeDirectionShort)
		if !long && !short {
			continue
		}
		out.LongEntry = out.LongEntry || long
		out.ShortEntry = out.ShortEntry || short
		out.Sizing = entry.order
		out.StopLossPoints = entry.order.StopLossPoints
		out.TakeProfitPoints = entry.order.TakeProfitPoints
	}
	return out
}

func (e *Evaluator) baseSignal(entry compiledEntry, i int) (long, short bool) {
	switch entry.params.Strategy {
	case EntryEMACrossover:
		return crossAbove(entry.fast, entry.slow, i), crossBelow(entry.fast, entry.slow, i)
	case EntryRangeBreakout:
		period := entry.period
		if i < period {
			return false, false
		}
		hh := rangeHigh(e.highs, i-1, period)
		ll := rangeLow(e.lows, i-1, period)
		return e.closes[i] > hh, e.closes[i] < ll
	case EntryRSIReversal:
		if !entry.rsi.Valid(i) || !entry.rsi.Valid(i-1) {
			return false, false
		}
		long = entry.rsi[i-1] < entry.params.Oversold && entry.rsi[i] >= entry.params.Oversold
		short = entry.rsi[i-1] > entry.params.Overbought && entry.rsi[i] <= entry.params.Overbought
		return long, short
	case EntryTrendPullback:
		if !entry.fast.Valid(i) || !entry.slow.Valid(i) {
			return false, false
		}
		uptrend := entry.fast[i] > entry.slow[i]
		downtrend := entry.fast[i] < entry.slow[i]
		long = uptrend && e.lows[i] <= entry.fast[i] && e.closes[i] > entry.fast[i]
		short = downtrend && e.highs[i] >= entry.fast[i] && e.closes[i] < entry.fast[i]
		return long, short
	case EntryMACDCrossover:
		return crossAbove(entry.macd.MACD, entry.macd.Signal, i), crossBelow(entry.macd.MACD, entry.macd.Signal, i)
	}
	return false, false
}

func (e *Evaluator) togglesAllow(entry compiledEntry, i int, dir models.TradeDirection) bool {
	p := entry.params
	if p.TrendFilter {
		if !entry.trend.Valid(i) {
			return false
		}
		if dir == models.TradeDirectionLong && e.closes[i] <= entry.trend[i] {
			return false
		}
		if dir == models.TradeDirectionShort && e.closes[i] >= entry.trend[i] {
			return false
		}
	}
	if p.SessionRestriction && !inWindow(e.bars[i].Time, p.SessionStart, p.SessionEnd) {
		return false
	}
	if p.OscillatorConfirm {
		if !entry.osc.Valid(i) {
			return false
		}
		if dir == models.TradeDirectionLong && entry.osc[i] <= 50 {
			return false
		}
		if dir == models.TradeDirectionShort && entry.osc[i] >= 50 {
			return false
		}
	}
	return true
}

func (e *Evaluator) confirmsAllow(entry compiledEntry, i int, dir models.TradeDirection) bool {
	for _, c := range entry.confirms {
		switch c.kind {
		case NodeKindIndicator:
			if !e.indicatorConditionHolds(c, i) {
				return false
			}
		case NodeKindPriceAction:
			if !e.patternHolds(c.pattern, i, dir) {
				return false
			}
		}
	}
	return true
}

func (e *Evaluator) indicatorConditionHolds(c compiledConfirm, i int) bool {
	if !c.buffer.Valid(i) {
		return false
	}
	ref := c.ind.Threshold
	if c.ind.ComparePrice {
		ref = e.closes[i]
	}
	switch c.ind.Condition {
	case CondAbove:
		return c.buffer[i] > ref
	case CondBelow:
		return c.buffer[i] < ref
	case CondCrossAbove, CondCrossBelow:
		if !c.buffer.Valid(i - 1) {
			return false
		}
		prevRef := c.ind.Threshold
		if c.ind.ComparePrice {
			prevRef = e.closes[i-1]
		}
		if c.ind.Condition == CondCrossAbove {
			return c.buffer[i-1] <= prevRef && c.buffer[i] > ref
		}
		return c.buffer[i-1] >= prevRef && c.buffer[i] < ref
	}
	return false
}

func (e *Evaluator) patternHolds(p PriceActionParams, i int, dir models.TradeDirection) bool {
	if i < 1 {
		return false
	}
	cur, prev := e.bars[i], e.bars[i-1]
	switch p.Pattern {
	case PatternEngulfing:
		bullish := cur.Close > cur.Open && prev.Close < prev.Open &&
			cur.Open <= prev.Close && cur.Close >= prev.Open
		bearish := cur.Close < cur.Open && prev.Close > prev.Open &&
			cur.Open >= prev.Close && cur.Close <= prev.Open
		if dir == models.TradeDirectionLong {
			return bullish
		}
		return bearish
	case PatternPinBar:
		ratio := p.MinWickRatio
		if ratio == 0 {
			ratio = 2
		}
		body := math.Abs(cur.Close - cur.Open)
		if body == 0 {
			return false
		}
		lowerWick := math.Min(cur.Open, cur.Close) - cur.Low
		upperWick := cur.High - math.Max(cur.Open, cur.Close)
		if dir == models.TradeDirectionLong {
			return lowerWick >= ratio*body
		}
		return upperWick >= ratio*body
	case PatternInsideBar:
		return cur.High <= prev.High && cur.Low >= prev.Low
	case PatternDoji:
		maxBody := p.MaxBodyRatio
		if maxBody == 0 {
			maxBody = 0.1
		}
		spread := cur.High - cur.Low
		if spread == 0 {
			return false
		}
		return math.Abs(cur.Close-cur.Open)/spread <= maxBody
	}
	return false
}

func (e *Evaluator) timingAllows(i int) bool {
	if len(e.timing) == 0 {
		return true
	}
	orMode := e.doc.Settings.ConditionMode == ConditionModeOr
	anyPassed := false
	for _, t := range e.timing {
		passed := e.timingPasses(t, i)
		if orMode {
			anyPassed = anyPassed || passed
		} else if !passed {
			return false
		}
	}
	if orMode {
		return anyPassed
	}
	return true
}

func (e *Evaluator) timingPasses(t TimingParams, i int) bool {
	switch t.Mode {
	case TimingModeSession, TimingModeWindow:
		return inWindow(e.bars[i].Time, t.Start, t.End)
	case TimingModeMaxSpread:
		return e.spreadPoints <= t.MaxSpreadPoints
	}
	return true
}

// inWindow checks HH:MM bounds, wrapping midnight when start > end.
// Malformed or missing bounds do not restrict.
func inWindow(t time.Time, start, end string) bool {
	startMin, okS := parseClock(start)
	endMin, okE := parseClock(end)
	if !okS || !okE {
		return true
	}
	cur := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return cur >= startMin && cur < endMin
	}
	return cur >= startMin || cur < endMin
}

func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func crossAbove(a, b indicators.Buffer, i int) bool {
	if !a.Valid(i) || !b.Valid(i) || !a.Valid(i-1) || !b.Valid(i-1) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

func crossBelow(a, b indicators.Buffer, i int) bool {
	if !a.Valid(i) || !b.Valid(i) || !a.Valid(i-1) || !b.Valid(i-1) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

func rangeHigh(values []float64, end, period int) float64 {
	h := values[end]
	for j := end - period + 1; j < end; j++ {
		if values[j] > h {
			h = values[j]
		}
	}
	return h
}

func rangeLow(values []float64, end, period int) float64 {
	l := values[end]
	for j := end - period + 1; j < end; j++ {
		if values[j] < l {
			l = values[j]
		}
	}
	return l
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
