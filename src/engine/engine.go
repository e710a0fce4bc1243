package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
	"signalscanner/src/strategy"
)

// SignalStore is the persistence surface the engine needs for signals.
type SignalStore interface {
	FindActive(ctx context.Context, ticker string, strategyID uint) (*model.Signal, error)
	Create(ctx context.Context, signal *model.Signal) error
	Update(ctx context.Context, signal *model.Signal) error
}

// TradeStore records completed exits.
type TradeStore interface {
	Create(ctx context.Context, trade *model.TradeHistory) error
}

// Broadcaster pushes lifecycle events to connected clients. Fire and forget.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Notifier delivers user-facing alerts on signal transitions.
type Notifier interface {
	Notify(event string, signal *model.Signal)
}

// Ledger is the balance account used for automatic entries. Nil in live mode,
// where entries are confirmed manually.
type Ledger interface {
	TryDebit(amount decimal.Decimal) bool
	Credit(amount decimal.Decimal)
	RecordTrade(result model.TradeResult, profit decimal.Decimal)
}

// Options tune how the engine advances signals.
type Options struct {
	// StopPriority resolves a bar that spans both stop and target in favor of
	// the stop. On by default via DefaultOptions.
	StopPriority bool
	// Backtest checks entries and exits against the bar's high/low range
	// instead of the close.
	Backtest bool
	// AutoEnter opens positions without manual confirmation, funded from the
	// Ledger.
	AutoEnter bool
	// FixedLots is the position size for automatic entries.
	FixedLots float64
	// TrailStops ratchets the protective stop of entered positions toward
	// price as new bars confirm the move.
	TrailStops bool
	// TrailLookback is the bar window for the trailing stop average.
	TrailLookback int
	// Now supplies the clock, virtual during replays.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{StopPriority: true, FixedLots: 1}
}

// Engine advances persisted signals through their lifecycle from strategy
// evaluations. One engine instance serves both live scans and replays; the
// Options decide the mode.
type Engine struct {
	Log     *logger.Entry
	signals SignalStore
	trades  TradeStore
	caster  Broadcaster
	notify  Notifier
	ledger  Ledger
	opts    Options
}

func New(signals SignalStore, trades TradeStore, caster Broadcaster, notify Notifier, ledger Ledger, opts Options) *Engine {
	if opts.FixedLots <= 0 {
		opts.FixedLots = 1
	}
	return &Engine{
		Log:     logger.WithField("component", "engine"),
		signals: signals,
		trades:  trades,
		caster:  caster,
		notify:  notify,
		ledger:  ledger,
		opts:    opts,
	}
}

// SetAutoEnter switches automatic entries on or off. Call it only between
// runs; the replayer reconfigures before starting.
func (e *Engine) SetAutoEnter(enabled bool) {
	e.opts.AutoEnter = enabled
}

func (e *Engine) now() time.Time {
	if e.opts.Now != nil {
		return e.opts.Now()
	}
	return time.Now().UTC()
}

// ProcessResult reconciles one strategy evaluation with the persisted signal
// for the ticker. It returns the signal it created or advanced, or nil when
// nothing tracked the ticker and nothing was worth creating.
func (e *Engine) ProcessResult(
	ctx context.Context,
	strat *model.Strategy,
	item model.WatchlistItem,
	res strategy.Result,
	lastBar model.Candle,
) (*model.Signal, error) {

	sig, err := e.signals.FindActive(ctx, item.Ticker, strat.ID)
	if err != nil {
		return nil, err
	}

	if sig == nil {
		switch {
		case res.MainConditionMet && res.EntryPrice != nil:
			return e.createSignal(ctx, strat, item, res, model.SignalTriggered)
		case res.PreconditionMet:
			return e.createSignal(ctx, strat, item, res, model.SignalPending)
		default:
			return nil, nil
		}
	}

	sig.CurrentPrice = res.CurrentPrice

	switch sig.Status {
	case model.SignalPending:
		return sig, e.advancePending(ctx, sig, res)
	case model.SignalTriggered:
		return e.advanceTriggered(ctx, strat, item, sig, res, lastBar)
	case model.SignalEntered:
		return sig, e.advanceEntered(ctx, sig, lastBar)
	default:
		e.Log.WithFields(logger.Fields{
			"signal_id": sig.ID,
			"status":    sig.Status,
		}).Warn("active query returned a terminal signal")
		return sig, nil
	}
}

func (e *Engine) createSignal(
	ctx context.Context,
	strat *model.Strategy,
	item model.WatchlistItem,
	res strategy.Result,
	status model.SignalStatus,
) (*model.Signal, error) {

	now := e.now()
	sig := &model.Signal{
		Ticker:       item.Ticker,
		Market:       item.Market,
		StrategyID:   strat.ID,
		Status:       status,
		Direction:    res.Direction,
		CurrentPrice: res.CurrentPrice,
		LastPeak:     res.LastPeak,
		LastTrough:   res.LastTrough,
		CreatedAt:    now,
		Notes:        res.Notes,
		ExtraData:    res.ExtraData,
	}
	if status == model.SignalTriggered {
		sig.EntryPrice = res.EntryPrice
		sig.StopLoss = res.StopLoss
		sig.TakeProfit = res.TakeProfit
		sig.TriggeredAt = &now
	}

	if err := e.signals.Create(ctx, sig); err != nil {
		return nil, err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"status":    sig.Status,
		"direction": sig.Direction,
	}).Info("signal created")

	e.broadcast("signal_created", sig)
	e.notifyEvent(string(status), sig)
	return sig, nil
}

func (e *Engine) advancePending(ctx context.Context, sig *model.Signal, res strategy.Result) error {
	switch {
	case res.MainConditionMet && res.EntryPrice != nil:
		now := e.now()
		sig.Status = model.SignalTriggered
		sig.Direction = res.Direction
		sig.EntryPrice = res.EntryPrice
		sig.StopLoss = res.StopLoss
		sig.TakeProfit = res.TakeProfit
		sig.LastPeak = res.LastPeak
		sig.LastTrough = res.LastTrough
		sig.TriggeredAt = &now
		sig.Notes = appendNote(sig.Notes, res.Notes)

		if err := e.signals.Update(ctx, sig); err != nil {
			return err
		}
		e.broadcast("signal_updated", sig)
		e.notifyEvent("triggered", sig)
		return nil

	case !res.PreconditionMet:
		return e.Cancel(ctx, sig, "precondition no longer holds")

	default:
		// Still waiting. Refresh the market view so watchers see live data.
		sig.LastPeak = res.LastPeak
		sig.LastTrough = res.LastTrough
		if err := e.signals.Update(ctx, sig); err != nil {
			return err
		}
		e.broadcast("signal_updated", sig)
		return nil
	}
}

func (e *Engine) advanceTriggered(
	ctx context.Context,
	strat *model.Strategy,
	item model.WatchlistItem,
	sig *model.Signal,
	res strategy.Result,
	lastBar model.Candle,
) (*model.Signal, error) {

	// A fresh trigger in the opposite direction supersedes the stale one.
	if res.MainConditionMet && res.EntryPrice != nil && res.Direction != sig.Direction {
		if err := e.Cancel(ctx, sig, "replaced by opposite signal"); err != nil {
			return sig, err
		}
		return e.createSignal(ctx, strat, item, res, model.SignalTriggered)
	}

	// Price can run through the levels before the entry ever fills. The setup
	// is then settled terminally; no position existed, so no trade is recorded.
	stopHit, targetHit := e.exitsTouched(sig, lastBar)
	if stopHit && targetHit {
		if e.opts.StopPriority {
			targetHit = false
		} else {
			stopHit = false
		}
	}
	switch {
	case stopHit:
		return sig, e.voidTriggered(ctx, sig, model.SignalStopped, "stop breached before entry")
	case targetHit:
		return sig, e.voidTriggered(ctx, sig, model.SignalTargetHit, "target reached before entry")
	}

	if !res.PreconditionMet {
		return sig, e.Cancel(ctx, sig, "precondition no longer holds")
	}

	if sig.EntryPrice != nil && e.entryTouched(sig, lastBar) {
		sig.EntryReached = true

		if e.opts.AutoEnter {
			if e.tryEnter(sig) {
				if err := e.signals.Update(ctx, sig); err != nil {
					return sig, err
				}
				e.Log.WithFields(logger.Fields{
					"signal_id": sig.ID,
					"ticker":    sig.Ticker,
					"entry":     *sig.ActualEntryPrice,
					"lots":      sig.Lots,
				}).Info("position opened")
				e.broadcast("signal_updated", sig)
				e.notifyEvent("entered", sig)
				return sig, nil
			}
			sig.Notes = appendNote(sig.Notes, "entry reached but balance insufficient, will retry")
		} else {
			sig.Notes = appendNote(sig.Notes, "entry price reached, awaiting confirmation")
		}
	}

	if err := e.signals.Update(ctx, sig); err != nil {
		return sig, err
	}
	e.broadcast("signal_updated", sig)
	return sig, nil
}

func (e *Engine) advanceEntered(ctx context.Context, sig *model.Signal, lastBar model.Candle) error {
	stopHit, targetHit := e.exitsTouched(sig, lastBar)

	if stopHit && targetHit {
		// The bar spans both levels and the intrabar path is unknowable.
		if e.opts.StopPriority {
			targetHit = false
		} else {
			stopHit = false
		}
	}

	switch {
	case stopHit:
		return e.CloseLots(ctx, sig, *sig.StopLoss, sig.RemainingLots, model.SignalStopped, "stop loss hit")
	case targetHit:
		return e.CloseLots(ctx, sig, *sig.TakeProfit, sig.RemainingLots, model.SignalTargetHit, "take profit hit")
	default:
		if err := e.signals.Update(ctx, sig); err != nil {
			return err
		}
		e.broadcast("signal_updated", sig)
		return nil
	}
}

// entryTouched checks the entry level against the bar. Replays honor the full
// bar range; live scans only trust the close.
func (e *Engine) entryTouched(sig *model.Signal, bar model.Candle) bool {
	entry := *sig.EntryPrice
	if sig.Direction == model.DirectionLong {
		if e.opts.Backtest {
			return bar.High >= entry
		}
		return bar.Close >= entry
	}
	if e.opts.Backtest {
		return bar.Low <= entry
	}
	return bar.Close <= entry
}

func (e *Engine) exitsTouched(sig *model.Signal, bar model.Candle) (stopHit, targetHit bool) {
	if sig.Direction == model.DirectionLong {
		if sig.StopLoss != nil {
			if e.opts.Backtest {
				stopHit = bar.Low <= *sig.StopLoss
			} else {
				stopHit = bar.Close <= *sig.StopLoss
			}
		}
		if sig.TakeProfit != nil {
			if e.opts.Backtest {
				targetHit = bar.High >= *sig.TakeProfit
			} else {
				targetHit = bar.Close >= *sig.TakeProfit
			}
		}
		return stopHit, targetHit
	}

	if sig.StopLoss != nil {
		if e.opts.Backtest {
			stopHit = bar.High >= *sig.StopLoss
		} else {
			stopHit = bar.Close >= *sig.StopLoss
		}
	}
	if sig.TakeProfit != nil {
		if e.opts.Backtest {
			targetHit = bar.Low <= *sig.TakeProfit
		} else {
			targetHit = bar.Close <= *sig.TakeProfit
		}
	}
	return stopHit, targetHit
}

func (e *Engine) broadcast(event string, data interface{}) {
	if e.caster != nil {
		e.caster.Broadcast(event, data)
	}
}

func (e *Engine) notifyEvent(event string, sig *model.Signal) {
	if e.notify != nil {
		e.notify.Notify(event, sig)
	}
}

func appendNote(existing, note string) string {
	const maxNotes = 512
	if note == "" {
		return existing
	}
	if existing == "" {
		if len(note) > maxNotes {
			return note[:maxNotes]
		}
		return note
	}
	combined := existing + "; " + note
	if len(combined) > maxNotes {
		combined = combined[len(combined)-maxNotes:]
	}
	return combined
}
