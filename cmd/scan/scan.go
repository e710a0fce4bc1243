package scan

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"signalscanner/src/database"
	"signalscanner/src/server"
)

// Scan runs the live scanner headless, without the HTTP surface.
type Scan struct{}

func (s *Scan) Start() error {
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
	if err := deps.Scanner.Start(ctx); err != nil {
		logrus.WithError(err).Error("Failed to start scanner loop")
		return err
	}

	logrus.Info("scanner running, waiting for shutdown signal")
	<-ctx.Done()

	deps.Scanner.Stop()
	return nil
}
