package server

import (
	"github.com/shopspring/decimal"

	"signalscanner/src/broadcast"
	"signalscanner/src/controller"
	"signalscanner/src/engine"
	"signalscanner/src/marketdata"
	"signalscanner/src/notify"
	"signalscanner/src/repository"
	"signalscanner/src/scanner"
	"signalscanner/src/simulation"
)

// BuildDependencies wires the live scan stack and the replay stack against
// the shared repositories. Both engines write to the same tables; the replay
// one settles against the virtual clock and checks full bar ranges.
func BuildDependencies() Dependencies {
	mdCfg := marketdata.GetConfig()
	source := marketdata.NewMultiSource(mdCfg)

	hub := broadcast.NewHub()
	signals := repository.NewSignalRepository()
	strategies := repository.NewStrategyRepository()
	watchlist := repository.NewWatchlistRepository()
	trades := repository.NewTradeHistoryRepository()
	scanState := repository.NewScannerConfigRepository()

	engCfg := engine.GetConfig()
	liveOpts := engine.DefaultOptions()
	liveOpts.TrailStops = engCfg.TrailStops
	liveOpts.TrailLookback = engCfg.TrailLookback
	liveEngine := engine.New(signals, trades, hub, notify.NewLogNotifier(), nil, liveOpts)
	liveScanner := scanner.New(scanner.GetConfig(), liveEngine, source, strategies, watchlist, signals, scanState, hub).
		WithExceptionStore(repository.NewExceptionRepository())
	signalCtl := controller.NewSignalController(controller.GetConfig(), signals, liveEngine)

	simCfg := simulation.GetConfig()
	clock := simulation.NewClock(simCfg.StartDate, simCfg.EndDate, decimal.NewFromFloat(simCfg.InitialBalance))
	replaySource := marketdata.NewReplaySource(source)
	// Entries stay manual until a start request selects backtest mode.
	replayEngine := engine.New(signals, trades, hub, notify.NewMutedNotifier(), clock, engine.Options{
		StopPriority:  true,
		Backtest:      true,
		AutoEnter:     false,
		FixedLots:     simCfg.FixedLots,
		TrailStops:    engCfg.TrailStops,
		TrailLookback: engCfg.TrailLookback,
		Now:           clock.Now,
	})
	simSignalCtl := controller.NewSignalController(controller.GetConfig(), signals, replayEngine)

	// The virtual clock only ticks inside session hours, so the replay
	// scanner runs ungated.
	replayScanCfg := scanner.GetConfig()
	replayScanCfg.SessionGating = false
	replayScanner := scanner.New(replayScanCfg, replayEngine, replaySource, strategies, watchlist, signals, nil, nil).
		WithClock(clock.Now)

	replayer := simulation.NewReplayer(simCfg, clock, replayEngine, replayScanner, replaySource, signals, hub, signals, trades)

	return Dependencies{
		Hub:          hub,
		Scanner:      liveScanner,
		Replayer:     replayer,
		SignalCtl:    signalCtl,
		SimSignalCtl: simSignalCtl,
		Source:       source,
		Signals:      signals,
		Strategies:   strategies,
		Watchlist:    watchlist,
		Trades:       trades,
		ScanState:    scanState,
	}
}
