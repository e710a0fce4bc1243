package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/engine"
	"signalscanner/src/model"
	"signalscanner/src/scanner"
)

// ErrReplayFinished is returned by Step once the clock has run past the
// configured end date.
var ErrReplayFinished = errors.New("replay has reached its end date")

// ErrReplayRunning is returned when a replay is reconfigured mid-run.
var ErrReplayRunning = errors.New("replay is already running")

// CycleRunner runs one scan cycle at the current virtual time. Satisfied by
// the scanner.
type CycleRunner interface {
	ScanAll(ctx context.Context) error
}

// DayCache is the candle cache invalidated on day rollover. Satisfied by
// marketdata.ReplaySource.
type DayCache interface {
	ClearDay()
}

type SignalStore interface {
	FindAllActive(ctx context.Context) ([]model.Signal, error)
}

// Wiper wipes one table when the replay data is reset.
type Wiper interface {
	DeleteAll(ctx context.Context) error
}

// Replayer drives a historical replay: one scan cycle per virtual hour, a
// cleanup pass at every day end, and a stats summary when the end date is
// reached. It supports both manual stepping and an automated run.
type Replayer struct {
	Log    *logger.Entry
	Config *Config

	clock   *Clock
	engine  *engine.Engine
	cycles  CycleRunner
	cache   DayCache
	signals SignalStore
	wipers  []Wiper
	caster  engine.Broadcaster

	mu        sync.Mutex
	backtest  bool
	stepDelay time.Duration
}

// StartParams reshape a replay before a run. Zero values keep the configured
// default for that field.
type StartParams struct {
	StartDate      time.Time
	EndDate        time.Time
	SecondsPerHour float64
	InitialBalance float64
	Backtest       bool
}

func NewReplayer(
	cfg *Config,
	clock *Clock,
	eng *engine.Engine,
	cycles CycleRunner,
	cache DayCache,
	signals SignalStore,
	caster engine.Broadcaster,
	wipers ...Wiper,
) *Replayer {
	var delay time.Duration
	if cfg != nil {
		delay = cfg.StepDelay
	}
	return &Replayer{
		Log:       logger.WithField("component", "replayer"),
		Config:    cfg,
		clock:     clock,
		engine:    eng,
		cycles:    cycles,
		cache:     cache,
		signals:   signals,
		caster:    caster,
		wipers:    wipers,
		stepDelay: delay,
	}
}

func (r *Replayer) Clock() *Clock { return r.clock }

// Backtest reports whether entries fill automatically. In manual mode the
// user confirms each entry against the simulated balance.
func (r *Replayer) Backtest() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backtest
}

func (r *Replayer) stepPause() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stepDelay
}

// Configure rebinds the replay to a new date range, pacing, starting balance
// and mode, wiping the previous run's data. It refuses to touch a running
// replay.
func (r *Replayer) Configure(ctx context.Context, p StartParams) error {
	if r.clock.Running() {
		return ErrReplayRunning
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			p.EndDate.Format("2006-01-02"), p.StartDate.Format("2006-01-02"))
	}

	for _, w := range r.wipers {
		if err := w.DeleteAll(ctx); err != nil {
			return err
		}
	}
	if r.cache != nil {
		r.cache.ClearDay()
	}

	r.clock.Configure(p.StartDate, p.EndDate, p.InitialBalance)
	r.engine.SetAutoEnter(p.Backtest)

	r.mu.Lock()
	r.backtest = p.Backtest
	if p.SecondsPerHour > 0 {
		r.stepDelay = time.Duration(p.SecondsPerHour * float64(time.Second))
	}
	r.mu.Unlock()

	r.Log.WithFields(logger.Fields{
		"from":     r.clock.Now().Format("2006-01-02"),
		"backtest": p.Backtest,
	}).Info("replay configured")
	r.broadcast("simulation_configured", r.clock.Stats())
	return nil
}

// Step advances the replay by one virtual hour: scan, advance, and when the
// day completes, clean up and jump to the next trading day. Returns true once
// the replay is finished.
func (r *Replayer) Step(ctx context.Context) (bool, error) {
	if r.clock.Done() {
		return true, ErrReplayFinished
	}

	if err := r.cycles.ScanAll(ctx); err != nil && !errors.Is(err, scanner.ErrScanInProgress) {
		return false, err
	}

	_, dayDone := r.clock.AdvanceHour()
	if !dayDone {
		return false, nil
	}

	if err := r.finishDay(ctx); err != nil {
		return false, err
	}
	r.clock.NextDay()
	if r.cache != nil {
		r.cache.ClearDay()
	}

	if r.clock.Done() {
		r.finalize()
		return true, nil
	}
	return false, nil
}

// Run executes the replay to completion. Pausing the clock suspends stepping
// without losing state.
func (r *Replayer) Run(ctx context.Context) error {
	r.clock.Start()
	r.broadcast("simulation_started", r.clock.Stats())

	for {
		select {
		case <-ctx.Done():
			r.clock.Stop()
			return ctx.Err()
		default:
		}

		if !r.clock.Running() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		done, err := r.Step(ctx)
		if err != nil && !errors.Is(err, ErrReplayFinished) {
			r.clock.Stop()
			return err
		}
		if done {
			r.clock.Stop()
			return nil
		}

		if delay := r.stepPause(); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// finishDay force-closes entered positions at their last seen price and
// cancels everything still waiting. A replay never carries state overnight.
func (r *Replayer) finishDay(ctx context.Context) error {
	active, err := r.signals.FindAllActive(ctx)
	if err != nil {
		return err
	}

	for i := range active {
		sig := active[i]
		switch sig.Status {
		case model.SignalEntered:
			price := lastKnownPrice(&sig)
			if err := r.engine.CloseLots(ctx, &sig, price, sig.RemainingLots, model.SignalClosed, "closed at end of day"); err != nil {
				r.Log.WithError(err).WithField("signal_id", sig.ID).Error("day-end close failed")
			}
		case model.SignalPending, model.SignalTriggered:
			if err := r.engine.Cancel(ctx, &sig, "cancelled at end of day"); err != nil {
				r.Log.WithError(err).WithField("signal_id", sig.ID).Error("day-end cancel failed")
			}
		}
	}

	r.Log.WithField("day", r.clock.Now().Format("2006-01-02")).Info("simulation day finished")
	return nil
}

func lastKnownPrice(sig *model.Signal) float64 {
	if sig.CurrentPrice != nil {
		return *sig.CurrentPrice
	}
	if sig.ActualEntryPrice != nil {
		return *sig.ActualEntryPrice
	}
	return 0
}

func (r *Replayer) finalize() {
	stats := r.clock.Stats()
	r.Log.WithFields(logger.Fields{
		"trades":       stats.Trades,
		"wins":         stats.Wins,
		"losses":       stats.Losses,
		"win_rate":     stats.WinRate,
		"total_profit": stats.TotalProfit,
		"balance":      stats.Balance,
	}).Info("replay completed")
	r.broadcast("simulation_completed", stats)
}

// Reset rewinds the clock and wipes the replay's signals and trades.
func (r *Replayer) Reset(ctx context.Context) error {
	for _, w := range r.wipers {
		if err := w.DeleteAll(ctx); err != nil {
			return err
		}
	}
	if r.cache != nil {
		r.cache.ClearDay()
	}
	r.clock.Reset()
	r.broadcast("simulation_reset", r.clock.Stats())
	return nil
}

func (r *Replayer) broadcast(event string, data interface{}) {
	if r.caster != nil {
		r.caster.Broadcast(event, data)
	}
}
