// Package worker hosts backtest execution behind a queue with progress
// reporting and per-run cancellation.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/graphtrader/internal/backtest"
	"github.com/yourusername/graphtrader/internal/config"
	"github.com/yourusername/graphtrader/internal/graph"
	"github.com/yourusername/graphtrader/internal/logger"
	"github.com/yourusername/graphtrader/internal/metrics"
	"github.com/yourusername/graphtrader/internal/models"
)

// RunStatus represents the lifecycle state of a submitted run
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunRequest is one backtest submission
type RunRequest struct {
	RunID      uuid.UUID
	Config     backtest.BacktestConfig
	Document   *graph.Document
	Bars       []models.Bar
	MonteCarlo *backtest.MonteCarloConfig // optional post-run analysis
}

// ProgressUpdate is a throttled progress notification for one run
type ProgressUpdate struct {
	RunID     uuid.UUID
	Processed int
	Total     int
}

// RunOutcome is the terminal event of one run
type RunOutcome struct {
	RunID      uuid.UUID
	Status     RunStatus
	Result     *backtest.BacktestResult
	MonteCarlo *backtest.MonteCarloResult
	Err        error
	Duration   time.Duration
}

// Host owns a pool of workers draining the run queue. Submitting is
// non-blocking; outcomes and progress arrive on channels.
type Host struct {
	cfg      config.WorkerConfig
	queue    chan RunRequest
	progress chan ProgressUpdate
	results  chan RunOutcome

	cancels map[uuid.UUID]context.CancelFunc
	mu      sync.Mutex

	log    *logrus.Logger
	runLog *logger.RunLogger

	wg      sync.WaitGroup
	started bool
}

// NewHost creates an execution host with the configured concurrency and
// queue depth
func NewHost(cfg config.WorkerConfig, log *logrus.Logger) *Host {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Host{
		cfg:      cfg,
		queue:    make(chan RunRequest, cfg.QueueSize),
		progress: make(chan ProgressUpdate, cfg.QueueSize),
		results:  make(chan RunOutcome, cfg.QueueSize),
		cancels:  make(map[uuid.UUID]context.CancelFunc),
		log:      log,
		runLog:   logger.NewRunLogger(log),
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled and the queue is closed via Stop.
func (h *Host) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	for i := 0; i < h.cfg.Concurrency; i++ {
		h.wg.Add(1)
		go h.workerLoop(ctx)
	}
}

// Stop closes the queue and waits for in-flight runs to finish
func (h *Host) Stop() {
	close(h.queue)
	h.wg.Wait()
	close(h.progress)
	close(h.results)
}

// Submit enqueues a run request. It fails when the queue is full rather
// than blocking the caller.
func (h *Host) Submit(req RunRequest) error {
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	select {
	case h.queue <- req:
		metrics.UpdateQueuedRuns(float64(len(h.queue)))
		return nil
	default:
		return fmt.Errorf("run queue is full (%d pending)", len(h.queue))
	}
}

// Cancel aborts an executing run. It reports whether the run was executing
// at the time of the call.
func (h *Host) Cancel(runID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	cancel, ok := h.cancels[runID]
	if ok {
		cancel()
	}
	return ok
}

// Progress returns the throttled progress channel
func (h *Host) Progress() <-chan ProgressUpdate {
	return h.progress
}

// Results returns the terminal outcome channel
func (h *Host) Results() <-chan RunOutcome {
	return h.results
}

func (h *Host) workerLoop(ctx context.Context) {
	defer h.wg.Done()
	for req := range h.queue {
		metrics.UpdateQueuedRuns(float64(len(h.queue)))
		h.execute(ctx, req)
	}
}

func (h *Host) execute(ctx context.Context, req RunRequest) {
	runCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancels[req.RunID] = cancel
	h.mu.Unlock()
	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.cancels, req.RunID)
		h.mu.Unlock()
	}()

	started := time.Now()
	metrics.RecordRunStarted()
	h.runLog.LogRunStarted(req.RunID.String(), req.Config.Symbol, len(req.Bars), req.Config.InitialBalance)

	engine, err := backtest.NewEngine(req.Config, req.Document, req.Bars)
	if err != nil {
		metrics.RecordRunFailed()
		metrics.RecordGraphValidationFailure()
		h.runLog.LogRunFailed(req.RunID.String(), err.Error())
		h.emit(RunOutcome{RunID: req.RunID, Status: RunStatusFailed, Err: err, Duration: time.Since(started)})
		return
	}
	engine.SetLogger(h.log)
	engine.SetProgressFunc(h.progressFunc(req.RunID, len(req.Bars)))

	result, err := engine.Run(runCtx)
	duration := time.Since(started)
	if err != nil {
		if runCtx.Err() != nil {
			metrics.RecordRunCancelled()
			h.runLog.LogRunCancelled(req.RunID.String(), -1)
			h.emit(RunOutcome{RunID: req.RunID, Status: RunStatusCancelled, Err: err, Duration: duration})
			return
		}
		metrics.RecordRunFailed()
		h.runLog.LogRunFailed(req.RunID.String(), err.Error())
		h.emit(RunOutcome{RunID: req.RunID, Status: RunStatusFailed, Err: err, Duration: duration})
		return
	}

	outcome := RunOutcome{RunID: req.RunID, Status: RunStatusCompleted, Result: result, Duration: duration}
	if req.MonteCarlo != nil && len(result.Trades) > 0 {
		mcStarted := time.Now()
		mc, mcErr := backtest.RunMonteCarlo(*req.MonteCarlo, req.Config.InitialBalance, result.Trades)
		if mcErr != nil {
			h.log.WithError(mcErr).WithField("run_id", req.RunID).Warn("Monte carlo analysis failed")
		} else {
			outcome.MonteCarlo = mc
			metrics.RecordMonteCarloDuration(time.Since(mcStarted).Seconds())
			h.runLog.LogMonteCarlo(req.RunID.String(), mc.Iterations, mc.Seed, mc.ProbabilityOfRuin)
		}
	}

	metrics.RecordRunCompleted(duration.Seconds(), len(req.Bars))
	h.runLog.LogRunCompleted(req.RunID.String(), len(result.Trades), result.FinalBalance,
		result.Statistics.NetProfit, result.Statistics.MaxDrawdown, float64(duration.Milliseconds()))
	h.emit(outcome)
}

// progressFunc throttles engine callbacks to the configured interval. The
// completion callback always goes through.
func (h *Host) progressFunc(runID uuid.UUID, total int) backtest.ProgressFunc {
	interval := time.Duration(h.cfg.ProgressIntervalMilli) * time.Millisecond
	var lastSent time.Time
	return func(processed, totalBars int) {
		now := time.Now()
		if processed < totalBars && now.Sub(lastSent) < interval {
			return
		}
		lastSent = now
		select {
		case h.progress <- ProgressUpdate{RunID: runID, Processed: processed, Total: totalBars}:
		default:
			// slow consumers drop updates rather than stalling the run
		}
	}
}

func (h *Host) emit(outcome RunOutcome) {
	select {
	case h.results <- outcome:
	default:
		h.log.WithField("run_id", outcome.RunID).Warn("Result channel full; outcome dropped")
	}
}
