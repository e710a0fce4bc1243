package controller

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/engine"
	"signalscanner/src/model"
)

// ErrSignalNotFound is returned when the referenced signal does not exist.
var ErrSignalNotFound = errors.New("signal not found")

type signalFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Signal, error)
}

// SignalController executes the manual signal operations: confirming entries
// at the real fill price, closing positions in full or in part, and cancelling
// signals that have not entered yet. All state rules live in the engine; the
// controller resolves the signal and applies defaults.
type SignalController struct {
	Log    *logger.Entry
	Config Config

	signals signalFinder
	engine  *engine.Engine
}

func NewSignalController(cfg Config, signals signalFinder, eng *engine.Engine) *SignalController {
	return &SignalController{
		Log:     logger.WithField("component", "SignalController"),
		Config:  cfg,
		signals: signals,
		engine:  eng,
	}
}

func (c *SignalController) find(ctx context.Context, id uint) (*model.Signal, error) {
	sig, err := c.signals.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, fmt.Errorf("%w: id %d", ErrSignalNotFound, id)
	}
	return sig, nil
}

// ConfirmEntry records a manual fill on a triggered signal. A zero lot count
// falls back to the configured default.
func (c *SignalController) ConfirmEntry(ctx context.Context, id uint, actualPrice, lots float64) (*model.Signal, error) {
	sig, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if lots <= 0 {
		lots = c.Config.DefaultLots
	}

	if err := c.engine.ConfirmEntry(ctx, sig, actualPrice, lots); err != nil {
		return nil, err
	}

	c.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"entry":     actualPrice,
		"lots":      lots,
	}).Info("manual entry confirmed")

	return sig, nil
}

// ClosePosition exits lots of an entered position at exitPrice. A zero lot
// count closes everything that remains.
func (c *SignalController) ClosePosition(ctx context.Context, id uint, exitPrice, lots float64) (*model.Signal, error) {
	sig, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if exitPrice <= 0 {
		return nil, fmt.Errorf("invalid exit price %v for signal %d", exitPrice, id)
	}

	note := "position closed manually"
	if lots <= 0 {
		lots = sig.RemainingLots
	} else if lots < sig.RemainingLots {
		note = "partial exit"
	}

	if err := c.engine.CloseLots(ctx, sig, exitPrice, lots, model.SignalClosed, note); err != nil {
		return nil, err
	}

	c.Log.WithFields(logger.Fields{
		"signal_id": sig.ID,
		"ticker":    sig.Ticker,
		"exit":      exitPrice,
		"lots":      lots,
		"remaining": sig.RemainingLots,
	}).Info("manual close executed")

	return sig, nil
}

// CancelSignal cancels a pending or triggered signal.
func (c *SignalController) CancelSignal(ctx context.Context, id uint, reason string) (*model.Signal, error) {
	sig, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "cancelled manually"
	}

	if err := c.engine.Cancel(ctx, sig, reason); err != nil {
		return nil, err
	}

	return sig, nil
}
