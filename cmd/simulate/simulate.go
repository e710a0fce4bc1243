package simulate

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"signalscanner/src/database"
	"signalscanner/src/server"
	"signalscanner/src/simulation"
)

// Simulate runs one full historical replay and prints the scoreboard.
type Simulate struct{}

func (s *Simulate) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	deps := server.BuildDependencies()

	// Headless runs are always automated backtests.
	if err := deps.Replayer.Configure(ctx, simulation.StartParams{Backtest: true}); err != nil {
		logrus.WithError(err).Error("Failed to configure replay")
		return err
	}

	if err := deps.Replayer.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Error("Replay failed")
		return err
	}

	stats := deps.Replayer.Clock().Stats()
	logrus.WithFields(logrus.Fields{
		"trades":       stats.Trades,
		"wins":         stats.Wins,
		"losses":       stats.Losses,
		"win_rate":     stats.WinRate,
		"total_profit": stats.TotalProfit,
		"balance":      stats.Balance,
	}).Info("replay finished")

	return nil
}
