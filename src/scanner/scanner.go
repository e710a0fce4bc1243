package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/engine"
	"signalscanner/src/marketdata"
	"signalscanner/src/model"
	"signalscanner/src/risk"
	"signalscanner/src/strategy"
)

// ErrScanInProgress is returned when a scan cycle is requested while the
// previous one is still running.
var ErrScanInProgress = errors.New("a scan cycle is already running")

// ErrAlreadyRunning is returned when Start is called on a running scanner.
var ErrAlreadyRunning = errors.New("scanner is already running")

type StrategyStore interface {
	FindByID(ctx context.Context, id uint) (*model.Strategy, error)
}

type WatchlistStore interface {
	FindActive(ctx context.Context) ([]model.WatchlistItem, error)
}

type SignalStore interface {
	FindAllActive(ctx context.Context) ([]model.Signal, error)
}

// ScanStateStore persists the scan cadence and last-scan marker. Optional.
type ScanStateStore interface {
	Load(ctx context.Context) (*model.ScannerConfig, error)
	TouchLastScan(ctx context.Context, at time.Time) error
}

// ExceptionStore keeps failed ticker scans for post-mortem inspection.
// Optional.
type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Scanner periodically evaluates every active watchlist item against its
// strategy and feeds the results into the engine. One cycle runs at a time;
// ticks that arrive mid-cycle are skipped.
type Scanner struct {
	Log    *logger.Entry
	Config *Config

	engine     *engine.Engine
	source     marketdata.Source
	strategies StrategyStore
	watchlist  WatchlistStore
	signals    SignalStore
	scanState  ScanStateStore
	exceptions ExceptionStore
	caster     engine.Broadcaster
	nowFn      func() time.Time

	mu         sync.Mutex
	running    bool
	isScanning bool
	allClosed  bool
	interval   time.Duration
	lastScanAt *time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	cleanupDay string
}

func New(
	cfg *Config,
	eng *engine.Engine,
	source marketdata.Source,
	strategies StrategyStore,
	watchlist WatchlistStore,
	signals SignalStore,
	scanState ScanStateStore,
	caster engine.Broadcaster,
) *Scanner {
	return &Scanner{
		Log:        logger.WithField("component", "scanner"),
		Config:     cfg,
		engine:     eng,
		source:     source,
		strategies: strategies,
		watchlist:  watchlist,
		signals:    signals,
		scanState:  scanState,
		caster:     caster,
		nowFn:      func() time.Time { return time.Now().UTC() },
		interval:   cfg.ScanInterval,
	}
}

// WithClock overrides the scanner's clock. Replays pass the virtual one.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.nowFn = now
	return s
}

// WithExceptionStore enables persisting failed ticker scans.
func (s *Scanner) WithExceptionStore(store ExceptionStore) *Scanner {
	s.exceptions = store
	return s
}

func (s *Scanner) now() time.Time { return s.nowFn() }

// Start launches the periodic scan loop. The persisted interval, when set,
// overrides the environment default.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	interval := s.Config.ScanInterval
	if s.scanState != nil {
		if persisted, err := s.scanState.Load(ctx); err == nil && persisted.ScanIntervalMinutes > 0 {
			interval = time.Duration(persisted.ScanIntervalMinutes) * time.Minute
		}
	}

	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.loop(runCtx, interval)
	}()
	return nil
}

// Stop halts the loop and waits for the in-flight cycle to finish, so a
// shutdown never proceeds under a half-applied scan.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scanner) loop(ctx context.Context, interval time.Duration) {
	s.Log.WithField("interval", interval).Info("scanner started")
	s.broadcast("scanner_started", s.Status())

	runCycle := func() {
		if err := s.ScanAll(ctx); err != nil {
			switch {
			case errors.Is(err, ErrScanInProgress):
				s.Log.Warn("previous scan still running, skipping tick")
			case errors.Is(err, context.Canceled):
			default:
				s.Log.WithError(err).Error("scan cycle failed")
			}
		}
	}

	runCycle()
	timer := time.NewTimer(s.nextWake(interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("scanner stopped")
			s.broadcast("scanner_stopped", s.Status())
			return
		case <-timer.C:
			runCycle()
			timer.Reset(s.nextWake(interval))
		}
	}
}

// nextWake stretches the cadence while every watched session is closed, so
// the loop does not poll a closed market overnight at full speed.
func (s *Scanner) nextWake(interval time.Duration) time.Duration {
	s.mu.Lock()
	idle := s.allClosed
	s.mu.Unlock()
	if idle && s.Config.OffHoursInterval > interval {
		return s.Config.OffHoursInterval
	}
	return interval
}

// ScanAll runs one full scan cycle over the active watchlist. Only one cycle
// runs at a time.
func (s *Scanner) ScanAll(ctx context.Context) error {
	s.mu.Lock()
	if s.isScanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	s.isScanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isScanning = false
		s.mu.Unlock()
	}()

	cycleID := uuid.NewString()
	startedAt := s.now()

	s.maybeCleanupDayEnd(ctx)

	items, err := s.watchlist.FindActive(ctx)
	if err != nil {
		return err
	}

	open := !s.Config.SessionGating || len(items) == 0
	if !open {
		for _, item := range items {
			if risk.IsMarketOpen(item.Market, startedAt) {
				open = true
				break
			}
		}
	}
	s.mu.Lock()
	s.allClosed = !open
	s.mu.Unlock()

	s.Log.WithFields(logger.Fields{
		"cycle_id": cycleID,
		"tickers":  len(items),
	}).Info("scan cycle started")
	s.broadcast("scan_started", map[string]interface{}{
		"cycle_id": cycleID,
		"tickers":  len(items),
	})

	var scanned, failed int64
	var countMu sync.Mutex

	jobs := make(chan model.WatchlistItem)
	var wg sync.WaitGroup

	workers := s.Config.Workers
	if workers <= 0 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				tctx, cancel := context.WithTimeout(ctx, s.Config.TickerTimeout)
				err := s.ScanTicker(tctx, item)
				cancel()

				countMu.Lock()
				if err != nil {
					failed++
				} else {
					scanned++
				}
				countMu.Unlock()

				if err != nil {
					s.Log.WithError(err).WithFields(logger.Fields{
						"cycle_id": cycleID,
						"ticker":   item.Ticker,
					}).Error("ticker scan failed")
					s.recordException(ctx, "ScanTicker", item.Ticker, err)
				}
			}
		}()
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			// Stop feeding; drain below.
		case jobs <- item:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	finishedAt := s.now()
	s.mu.Lock()
	s.lastScanAt = &finishedAt
	s.mu.Unlock()

	if s.scanState != nil {
		if err := s.scanState.TouchLastScan(ctx, finishedAt); err != nil {
			s.Log.WithError(err).Warn("failed to persist last scan time")
		}
	}

	s.Log.WithFields(logger.Fields{
		"cycle_id": cycleID,
		"scanned":  scanned,
		"failed":   failed,
		"elapsed":  finishedAt.Sub(startedAt).String(),
	}).Info("scan cycle completed")
	s.broadcast("scan_completed", map[string]interface{}{
		"cycle_id": cycleID,
		"scanned":  scanned,
		"failed":   failed,
	})

	return ctx.Err()
}

// ScanTicker evaluates one watchlist item and advances its signal. A closed
// market or an inactive strategy is a silent skip, not an error.
func (s *Scanner) ScanTicker(ctx context.Context, item model.WatchlistItem) error {
	now := s.now()

	if s.Config.SessionGating && !risk.IsMarketOpen(item.Market, now) {
		return nil
	}

	strat, err := s.strategies.FindByID(ctx, item.StrategyID)
	if err != nil {
		return err
	}
	if strat == nil || !strat.Active {
		return nil
	}

	eval, err := strategy.FromConfig(strat)
	if err != nil {
		return err
	}

	lookback := time.Duration(s.Config.LookbackBars) * strat.Horizon.BarDuration()
	candles, err := s.source.GetCandles(ctx, item.Ticker, item.Market, strat.Horizon, now.Add(-lookback), now)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		s.Log.WithField("ticker", item.Ticker).Debug("no candles returned, skipping")
		return nil
	}

	res := eval.Evaluate(candles)
	sig, err := s.engine.ProcessResult(ctx, strat, item, res, candles[len(candles)-1])
	if err != nil {
		return err
	}
	if sig != nil && sig.Status == model.SignalEntered {
		return s.engine.TrailStop(ctx, sig, candles)
	}
	return nil
}

// maybeCleanupDayEnd cancels stale pending and triggered equity signals once
// per day after the session closes. Entered positions are carried overnight.
// Pre-open hours must not consume the day's slot, or signals from that day
// would only be swept the next morning.
func (s *Scanner) maybeCleanupDayEnd(ctx context.Context) {
	now := s.now()
	if !risk.SessionOver(model.MarketBIST, now) {
		return
	}

	day := now.Format("2006-01-02")
	s.mu.Lock()
	if s.cleanupDay == day {
		s.mu.Unlock()
		return
	}
	s.cleanupDay = day
	s.mu.Unlock()

	active, err := s.signals.FindAllActive(ctx)
	if err != nil {
		s.Log.WithError(err).Error("day-end cleanup: failed to list active signals")
		return
	}

	for i := range active {
		sig := active[i]
		if sig.Market != model.MarketBIST {
			continue
		}
		if sig.Status != model.SignalPending && sig.Status != model.SignalTriggered {
			continue
		}
		if err := s.engine.Cancel(ctx, &sig, "cancelled at end of trading day"); err != nil {
			s.Log.WithError(err).WithField("signal_id", sig.ID).Error("day-end cancel failed")
		}
	}
}

func (s *Scanner) recordException(ctx context.Context, op, ticker string, scanErr error) {
	if s.exceptions == nil {
		return
	}
	exc := &model.Exception{
		Component: "scanner",
		Op:        op,
		Message:   scanErr.Error(),
		Level:     "error",
		Context:   fmt.Sprintf(`{"ticker":%q}`, ticker),
	}
	if err := s.exceptions.Create(ctx, exc); err != nil {
		s.Log.WithError(err).Warn("failed to persist scan exception")
	}
}

// Status is a point-in-time snapshot for the control API.
type Status struct {
	Running    bool       `json:"running"`
	Scanning   bool       `json:"scanning"`
	Interval   string     `json:"interval"`
	LastScanAt *time.Time `json:"last_scan_at"`
}

func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:    s.running,
		Scanning:   s.isScanning,
		Interval:   s.interval.String(),
		LastScanAt: s.lastScanAt,
	}
}

func (s *Scanner) broadcast(event string, data interface{}) {
	if s.caster != nil {
		s.caster.Broadcast(event, data)
	}
}
