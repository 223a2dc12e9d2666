package backtest

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/graph"
	"github.com/yourusername/graphtrader/internal/models"
)

// progressInterval is how often the engine polls for cancellation and
// reports progress
const progressInterval = 1000

// ProgressFunc receives periodic progress callbacks during a run
type ProgressFunc func(processed, total int)

// BacktestResult is the complete outcome of one run
type BacktestResult struct {
	Config       BacktestConfig `json:"config"`
	Trades       []models.Trade `json:"trades"`
	EquityCurve  EquityCurve    `json:"equity_curve"`
	FinalBalance float64        `json:"final_balance"`
	Statistics   Statistics     `json:"statistics"`
	Warnings     []string       `json:"warnings,omitempty"`
}

// Engine replays a strategy graph bar by bar over a historical series.
// Entries are decided on bar close; an opened position is managed starting
// from the following bar. When a stop loss and take profit both fall inside
// one bar's range the stop fills first.
type Engine struct {
	config    BacktestConfig
	bars      []models.Bar
	evaluator *graph.Evaluator
	settings  graph.Settings
	logger    *logrus.Logger
	progress  ProgressFunc

	sizingWarned bool
}

// NewEngine validates the configuration and compiles the strategy graph
func NewEngine(cfg BacktestConfig, doc *graph.Document, bars []models.Bar) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars to backtest")
	}
	ev, err := graph.NewEvaluator(doc, bars, cfg.SpreadPoints)
	if err != nil {
		return nil, fmt.Errorf("compiling strategy graph: %w", err)
	}
	return &Engine{
		config:    cfg,
		bars:      bars,
		evaluator: ev,
		settings:  doc.Settings,
		logger:    logrus.StandardLogger(),
	}, nil
}

// SetLogger overrides the engine's logger
func (e *Engine) SetLogger(l *logrus.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetProgressFunc registers a progress callback
func (e *Engine) SetProgressFunc(fn ProgressFunc) {
	e.progress = fn
}

// Run executes the backtest. It is deterministic: the same config, graph
// and bars always produce the same result. Cancellation via ctx aborts the
// run with no partial result.
func (e *Engine) Run(ctx context.Context) (*BacktestResult, error) {
	state := NewBacktestState(e.config.InitialBalance)
	state.Warnings = append(state.Warnings, e.evaluator.Warnings()...)
	mgmt := e.evaluator.Management()
	risk := e.evaluator.Risk()
	point := e.config.Point()
	total := len(e.bars)

	e.logger.WithFields(logrus.Fields{
		"symbol":          e.config.Symbol,
		"bars":            total,
		"initial_balance": e.config.InitialBalance,
	}).Info("Starting backtest run")

	for i := 0; i < total; i++ {
		if i%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("backtest cancelled at bar %d: %w", i, err)
			}
			if e.progress != nil {
				e.progress(i, total)
			}
		}

		bar := e.bars[i]
		if bar.High < bar.Low {
			return nil, fmt.Errorf("bar %d: inverted range high=%v low=%v", i, bar.High, bar.Low)
		}
		state.RollDay(bar.Time)

		// manage positions opened on earlier bars
		for _, pos := range append([]*models.Position(nil), state.OpenPositions...) {
			if pos.OpenBar >= i {
				continue
			}
			if err := e.managePosition(state, pos, i, mgmt, point); err != nil {
				return nil, err
			}
		}

		// entries are decided on bar close; nothing opens on the final bar
		if i < total-1 {
			sig := e.evaluator.Evaluate(i)
			if !sig.Filtered && e.dailyAllows(state, risk) {
				if sig.LongEntry && e.capsAllow(state, models.TradeDirectionLong) {
					e.openPosition(state, i, models.TradeDirectionLong, sig, point)
				}
				if sig.ShortEntry && e.capsAllow(state, models.TradeDirectionShort) {
					e.openPosition(state, i, models.TradeDirectionShort, sig, point)
				}
			}
		} else {
			// end of data closes everything at the last close
			for _, pos := range append([]*models.Position(nil), state.OpenPositions...) {
				e.closePosition(state, pos, i, e.exitPrice(pos.Direction, bar.Close, point), models.CloseReasonEndOfData)
			}
		}

		unrealized := 0.0
		for _, pos := range state.OpenPositions {
			unrealized += e.pricePnL(pos.Direction, pos.EntryPrice, e.exitPrice(pos.Direction, bar.Close, point), pos.Volume, point)
		}
		state.MarkToMarket(i, bar.Time, unrealized)

		if math.IsNaN(state.Balance) || math.IsInf(state.Balance, 0) {
			return nil, fmt.Errorf("bar %d: balance became non-finite", i)
		}
	}

	if e.progress != nil {
		e.progress(total, total)
	}

	result := &BacktestResult{
		Config:       e.config,
		Trades:       state.Trades,
		EquityCurve:  state.Curve,
		FinalBalance: state.Balance,
		Statistics:   ComputeStatistics(e.config.InitialBalance, state.Trades, state.Curve),
		Warnings:     state.Warnings,
	}
	e.logger.WithFields(logrus.Fields{
		"trades":        len(result.Trades),
		"final_balance": result.FinalBalance,
	}).Info("Backtest run complete")
	return result, nil
}

// dailyAllows checks the daily risk caps. Caps only suppress new entries;
// open positions continue to be managed.
func (e *Engine) dailyAllows(state *BacktestState, risk graph.RiskManagementParams) bool {
	if risk.DailyLossCap > 0 && state.DailyProfit() <= -risk.DailyLossCap {
		return false
	}
	if risk.DailyProfitCap > 0 && state.DailyProfit() >= risk.DailyProfitCap {
		return false
	}
	if risk.MaxTradesPerDay > 0 && state.DailyEntries() >= risk.MaxTradesPerDay {
		return false
	}
	return true
}

// capsAllow checks the open-position limits and the hedging rule. A zero
// limit means unlimited.
func (e *Engine) capsAllow(state *BacktestState, dir models.TradeDirection) bool {
	total, long, short := state.CountOpen()
	if e.settings.MaxOpenTrades > 0 && total >= e.settings.MaxOpenTrades {
		return false
	}
	if dir == models.TradeDirectionLong {
		if e.settings.MaxLongTrades > 0 && long >= e.settings.MaxLongTrades {
			return false
		}
		if !e.settings.AllowHedging && short > 0 {
			return false
		}
	} else {
		if e.settings.MaxShortTrades > 0 && short >= e.settings.MaxShortTrades {
			return false
		}
		if !e.settings.AllowHedging && long > 0 {
			return false
		}
	}
	return true
}

// openPosition enters at the bar close: longs pay the spread on entry,
// shorts pay it on exit
func (e *Engine) openPosition(state *BacktestState, i int, dir models.TradeDirection, sig graph.SignalSet, point float64) {
	bar := e.bars[i]
	entry := bar.Close
	if dir == models.TradeDirectionLong {
		entry = bar.Close + e.config.SpreadPoints*point
	}

	lots := e.computeLots(state, sig)
	if lots <= 0 {
		return
	}

	pos := &models.Position{
		ID:            uuid.New(),
		Direction:     dir,
		Status:        models.PositionStatusOpen,
		OpenTime:      bar.Time,
		OpenBar:       i,
		EntryPrice:    entry,
		Volume:        lots,
		InitialVolume: lots,
		Commission:    lots * e.config.CommissionPerLot,
	}
	if sig.StopLossPoints > 0 {
		if dir == models.TradeDirectionLong {
			pos.StopLoss = entry - sig.StopLossPoints*point
		} else {
			pos.StopLoss = entry + sig.StopLossPoints*point
		}
	}
	if sig.TakeProfitPoints > 0 {
		if dir == models.TradeDirectionLong {
			pos.TakeProfit = entry + sig.TakeProfitPoints*point
		} else {
			pos.TakeProfit = entry - sig.TakeProfitPoints*point
		}
	}

	state.OpenPositions = append(state.OpenPositions, pos)
	state.RecordEntry()
	e.logger.WithFields(logrus.Fields{
		"bar":       i,
		"direction": dir,
		"entry":     entry,
		"lots":      lots,
	}).Debug("Opened position")
}

// computeLots sizes the entry. Risk-percent sizing risks a fraction of
// current equity against the stop distance; without a stop it falls back
// to the fixed lot size.
func (e *Engine) computeLots(state *BacktestState, sig graph.SignalSet) float64 {
	sz := sig.Sizing
	lots := sz.Lots
	if sz.Mode == graph.SizingRiskPercent {
		if sig.StopLossPoints > 0 && sz.RiskPercent > 0 {
			riskCash := state.Equity * sz.RiskPercent / 100
			lots = riskCash / (sig.StopLossPoints * e.config.PointValue)
		} else if !e.sizingWarned {
			state.Warnings = append(state.Warnings, "risk_percent sizing without stop loss; using fixed lots")
			e.sizingWarned = true
		}
	}
	// broker lot step
	lots = math.Floor(lots*100) / 100
	if lots > 0 && lots < 0.01 {
		lots = 0.01
	}
	return lots
}

// managePosition applies the in-trade rules at bar i, in a fixed order:
// breakeven, trailing, partial close, lock profit, time exit, then stop and
// target fills. The stop wins a same-bar tie with the target.
func (e *Engine) managePosition(state *BacktestState, pos *models.Position, i int, mgmt graph.TradeManagementParams, point float64) error {
	bar := e.bars[i]
	long := pos.Direction == models.TradeDirectionLong

	// best favourable excursion within the bar, in points
	var favourable float64
	if long {
		favourable = (bar.High - pos.EntryPrice) / point
	} else {
		favourable = (pos.EntryPrice - (bar.Low + e.config.SpreadPoints*point)) / point
	}

	if mgmt.BreakevenTriggerPoints > 0 && !pos.BreakevenDone && favourable >= mgmt.BreakevenTriggerPoints {
		e.raiseStop(pos, pos.EntryPrice, mgmt.BreakevenOffsetPoints, point)
		pos.BreakevenDone = true
	}
	if mgmt.TrailingStartPoints > 0 && mgmt.TrailingDistancePoints > 0 && favourable >= mgmt.TrailingStartPoints {
		if long {
			e.tightenStop(pos, bar.High-mgmt.TrailingDistancePoints*point)
		} else {
			e.tightenStop(pos, bar.Low+e.config.SpreadPoints*point+mgmt.TrailingDistancePoints*point)
		}
	}
	if mgmt.PartialClosePercent > 0 && mgmt.PartialCloseTriggerPoints > 0 &&
		len(pos.Partials) == 0 && favourable >= mgmt.PartialCloseTriggerPoints {
		e.partialClose(state, pos, i, mgmt, point)
	}
	if mgmt.LockProfitTriggerPoints > 0 && !pos.LockProfitDone && favourable >= mgmt.LockProfitTriggerPoints {
		e.raiseStop(pos, pos.EntryPrice, mgmt.LockProfitPoints, point)
		pos.LockProfitDone = true
	}

	if mgmt.MaxBarsOpen > 0 && i-pos.OpenBar >= mgmt.MaxBarsOpen {
		e.closePosition(state, pos, i, e.exitPrice(pos.Direction, bar.Close, point), models.CloseReasonTimeExit)
		return nil
	}

	// stop and target fills against the bar range
	var slHit, tpHit bool
	if long {
		slHit = pos.StopLoss > 0 && bar.Low <= pos.StopLoss
		tpHit = pos.TakeProfit > 0 && bar.High >= pos.TakeProfit
	} else {
		askHigh := bar.High + e.config.SpreadPoints*point
		askLow := bar.Low + e.config.SpreadPoints*point
		slHit = pos.StopLoss > 0 && askHigh >= pos.StopLoss
		tpHit = pos.TakeProfit > 0 && askLow <= pos.TakeProfit
	}
	switch {
	case slHit:
		e.closePosition(state, pos, i, pos.StopLoss, models.CloseReasonStopLoss)
	case tpHit:
		e.closePosition(state, pos, i, pos.TakeProfit, models.CloseReasonTakeProfit)
	}
	return nil
}

// raiseStop moves the stop to base plus an offset in the profitable
// direction, never loosening it
func (e *Engine) raiseStop(pos *models.Position, base, offsetPoints, point float64) {
	if pos.Direction == models.TradeDirectionLong {
		e.tightenStop(pos, base+offsetPoints*point)
	} else {
		e.tightenStop(pos, base-offsetPoints*point)
	}
}

// tightenStop updates the stop only when the candidate is strictly better
func (e *Engine) tightenStop(pos *models.Position, candidate float64) {
	if pos.Direction == models.TradeDirectionLong {
		if candidate > pos.StopLoss {
			pos.StopLoss = candidate
		}
	} else {
		if pos.StopLoss == 0 || candidate < pos.StopLoss {
			pos.StopLoss = candidate
		}
	}
}

// partialClose exits a percentage of the initial volume at the trigger
// price. It fires at most once per position.
func (e *Engine) partialClose(state *BacktestState, pos *models.Position, i int, mgmt graph.TradeManagementParams, point float64) {
	volume := math.Floor(pos.InitialVolume*mgmt.PartialClosePercent) / 100
	if volume < 0.01 {
		return
	}
	if volume >= pos.Volume {
		volume = pos.Volume
	}
	var price float64
	if pos.Direction == models.TradeDirectionLong {
		price = pos.EntryPrice + mgmt.PartialCloseTriggerPoints*point
	} else {
		price = pos.EntryPrice - mgmt.PartialCloseTriggerPoints*point
	}
	commission := volume * e.config.CommissionPerLot
	profit := e.pricePnL(pos.Direction, pos.EntryPrice, price, volume, point) - commission

	pos.Volume -= volume
	pos.Commission += commission
	pos.RealizedProfit += profit
	pos.Status = models.PositionStatusPartiallyClosed
	pos.Partials = append(pos.Partials, models.PartialClose{
		Time:     e.bars[i].Time,
		BarIndex: i,
		Price:    price,
		Volume:   volume,
		Profit:   profit,
	})
	state.Balance += profit
	state.RecordDailyProfit(profit)

	if pos.Volume < 0.01 {
		// nothing meaningful left; settle the remainder at the same price
		e.closePosition(state, pos, i, price, models.CloseReasonPartial)
	}
}

// closePosition settles the remaining volume, updates the balance and
// converts the position into an immutable trade
func (e *Engine) closePosition(state *BacktestState, pos *models.Position, i int, price float64, reason models.CloseReason) {
	closeCommission := pos.Volume * e.config.CommissionPerLot
	openCommission := pos.InitialVolume * e.config.CommissionPerLot
	profit := e.pricePnL(pos.Direction, pos.EntryPrice, price, pos.Volume, e.config.Point()) -
		closeCommission - openCommission
	pos.Commission += closeCommission

	state.Balance += profit
	state.RecordDailyProfit(profit)
	pos.Status = models.PositionStatusClosed

	state.Trades = append(state.Trades, models.Trade{
		ID:         pos.ID,
		Direction:  pos.Direction,
		OpenTime:   pos.OpenTime,
		CloseTime:  e.bars[i].Time,
		OpenBar:    pos.OpenBar,
		CloseBar:   i,
		EntryPrice: pos.EntryPrice,
		ClosePrice: price,
		Volume:     pos.InitialVolume,
		Profit:     pos.RealizedProfit + profit,
		Commission: pos.Commission,
		Reason:     reason,
		Partials:   pos.Partials,
	})
	state.RemovePosition(pos)
	e.logger.WithFields(logrus.Fields{
		"bar":    i,
		"reason": reason,
		"profit": pos.RealizedProfit + profit,
	}).Debug("Closed position")
}

// exitPrice is the price a position would close at given the bar's bid
// close: longs sell at bid, shorts buy back at ask
func (e *Engine) exitPrice(dir models.TradeDirection, bidClose, point float64) float64 {
	if dir == models.TradeDirectionShort {
		return bidClose + e.config.SpreadPoints*point
	}
	return bidClose
}

// pricePnL converts a price move into cash for the given volume
func (e *Engine) pricePnL(dir models.TradeDirection, entry, exit, lots, point float64) float64 {
	points := (exit - entry) / point
	if dir == models.TradeDirectionShort {
		points = -points
	}
	return points * e.config.PointValue * lots
}
