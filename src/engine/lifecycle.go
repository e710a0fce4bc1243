package engine

import (
	"context"
	"fmt"
	"math"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
	"signalscanner/src/risk"
	"signalscanner/src/tp_sl"
)

// tryEnter funds and opens the position on sig. Returns false when the ledger
// cannot cover the cost; the signal then stays triggered and retries on the
// next cycle.
func (e *Engine) tryEnter(sig *model.Signal) bool {
	entry := *sig.EntryPrice
	lots := e.opts.FixedLots

	if e.ledger != nil && !e.ledger.TryDebit(risk.PositionCost(entry, lots)) {
		e.Log.WithFields(logger.Fields{
			"signal_id": sig.ID,
			"ticker":    sig.Ticker,
			"cost":      entry * lots,
		}).Warn("entry skipped, balance insufficient")
		return false
	}

	now := e.now()
	sig.Status = model.SignalEntered
	sig.ActualEntryPrice = &entry
	sig.Lots = lots
	sig.RemainingLots = lots
	sig.EnteredAt = &now
	return true
}

// ConfirmEntry opens the position manually at the actually filled price.
// Only a triggered signal can be confirmed.
func (e *Engine) ConfirmEntry(ctx context.Context, sig *model.Signal, actualPrice, lots float64) error {
	if sig.Status != model.SignalTriggered {
		return fmt.Errorf("cannot confirm entry on %s signal %d", sig.Status, sig.ID)
	}
	if actualPrice <= 0 || lots <= 0 {
		return fmt.Errorf("invalid fill for signal %d: price=%v lots=%v", sig.ID, actualPrice, lots)
	}

	if e.ledger != nil && !e.ledger.TryDebit(risk.PositionCost(actualPrice, lots)) {
		return fmt.Errorf("balance insufficient to enter signal %d", sig.ID)
	}

	now := e.now()
	sig.Status = model.SignalEntered
	sig.EntryReached = true
	sig.ActualEntryPrice = &actualPrice
	sig.Lots = lots
	sig.RemainingLots = lots
	sig.EnteredAt = &now
	sig.Notes = appendNote(sig.Notes, "entry confirmed manually")

	if err := e.signals.Update(ctx, sig); err != nil {
		return err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"entry":     actualPrice,
		"lots":      lots,
	}).Info("entry confirmed")

	e.broadcast("signal_updated", sig)
	e.notifyEvent("entered", sig)
	return nil
}

// CloseLots exits part or all of an entered position at exitPrice, records
// the trade and settles the ledger. status is the terminal state applied once
// no lots remain.
func (e *Engine) CloseLots(
	ctx context.Context,
	sig *model.Signal,
	exitPrice, lots float64,
	status model.SignalStatus,
	note string,
) error {

	if sig.Status != model.SignalEntered {
		return fmt.Errorf("cannot close %s signal %d", sig.Status, sig.ID)
	}
	if sig.ActualEntryPrice == nil {
		return fmt.Errorf("signal %d entered without a fill price", sig.ID)
	}
	if lots <= 0 {
		return fmt.Errorf("invalid lot count %v closing signal %d", lots, sig.ID)
	}
	if lots > sig.RemainingLots {
		lots = sig.RemainingLots
	}

	entry := *sig.ActualEntryPrice
	now := e.now()

	profit := risk.PositionProfit(sig.Direction, entry, exitPrice, lots)
	profitF, _ := profit.Float64()

	trade := &model.TradeHistory{
		SignalID:   sig.ID,
		Ticker:     sig.Ticker,
		Market:     sig.Market,
		StrategyID: sig.StrategyID,
		Direction:  sig.Direction,
		EntryPrice: entry,
		ExitPrice:  exitPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Result:     classifyTrade(profitF),
		Profit:     profitF,
		Lots:       lots,
		ClosedAt:   now,
		Notes:      note,
	}
	if sig.EnteredAt != nil {
		trade.EnteredAt = *sig.EnteredAt
	} else {
		trade.EnteredAt = now
	}
	if entry != 0 {
		trade.ProfitPercent = profitF / (entry * lots) * 100
	}
	if sig.StopLoss != nil {
		if riskPerUnit := math.Abs(entry - *sig.StopLoss); riskPerUnit > 0 {
			trade.RiskRewardAchieved = profitF / lots / riskPerUnit
		}
	}

	if err := e.trades.Create(ctx, trade); err != nil {
		return err
	}

	if e.ledger != nil {
		// Return the capital for the closed lots plus the realized profit.
		e.ledger.Credit(risk.PositionCost(entry, lots).Add(profit))
		e.ledger.RecordTrade(trade.Result, profit)
	}

	sig.RemainingLots -= lots
	sig.CurrentPrice = &exitPrice
	sig.Notes = appendNote(sig.Notes, note)

	if sig.RemainingLots <= 1e-9 {
		sig.RemainingLots = 0
		sig.Status = status
		sig.ClosedAt = &now
	}

	if err := e.signals.Update(ctx, sig); err != nil {
		return err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"exit":      exitPrice,
		"lots":      lots,
		"profit":    profitF,
		"result":    trade.Result,
		"status":    sig.Status,
	}).Info("position closed")

	e.broadcast("trade_closed", trade)
	e.broadcast("signal_updated", sig)
	if sig.Status.Terminal() {
		e.notifyEvent(string(sig.Status), sig)
	}
	return nil
}

// TrailStop moves the protective stop of an entered position in the trade's
// favor, never against it. A no-op unless trailing is enabled.
func (e *Engine) TrailStop(ctx context.Context, sig *model.Signal, candles []model.Candle) error {
	if !e.opts.TrailStops || sig.Status != model.SignalEntered || sig.StopLoss == nil {
		return nil
	}

	newSL, moved := tp_sl.ComputeNextStopLossDirectional(sig.Direction, *sig.StopLoss, candles, e.opts.TrailLookback)
	if !moved {
		return nil
	}

	sig.StopLoss = &newSL
	if err := e.signals.Update(ctx, sig); err != nil {
		return err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"stop":      newSL,
	}).Info("stop trailed")

	e.broadcast("signal_updated", sig)
	return nil
}

// voidTriggered retires a triggered signal whose stop or target was crossed
// before the entry filled. Nothing was ever bought, so the trade history
// stays untouched.
func (e *Engine) voidTriggered(ctx context.Context, sig *model.Signal, status model.SignalStatus, note string) error {
	now := e.now()
	sig.Status = status
	sig.ClosedAt = &now
	sig.Notes = appendNote(sig.Notes, note)

	if err := e.signals.Update(ctx, sig); err != nil {
		return err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"status":    status,
	}).Info("signal settled before entry")

	e.broadcast("signal_updated", sig)
	e.notifyEvent(string(status), sig)
	return nil
}

// Cancel moves a pending or triggered signal to cancelled. Entered positions
// must be closed, not cancelled.
func (e *Engine) Cancel(ctx context.Context, sig *model.Signal, reason string) error {
	if sig.Status != model.SignalPending && sig.Status != model.SignalTriggered {
		return fmt.Errorf("cannot cancel %s signal %d", sig.Status, sig.ID)
	}

	now := e.now()
	sig.Status = model.SignalCancelled
	sig.ClosedAt = &now
	sig.Notes = appendNote(sig.Notes, reason)

	if err := e.signals.Update(ctx, sig); err != nil {
		return err
	}

	e.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"reason":    reason,
	}).Info("signal cancelled")

	e.broadcast("signal_updated", sig)
	e.notifyEvent("cancelled", sig)
	return nil
}

func classifyTrade(profit float64) model.TradeResult {
	switch {
	case profit > 0:
		return model.TradeWin
	case profit < 0:
		return model.TradeLoss
	default:
		return model.TradeBreakeven
	}
}
