package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/broadcast"
	"signalscanner/src/controller"
	"signalscanner/src/handler"
	"signalscanner/src/marketdata"
	"signalscanner/src/repository"
	"signalscanner/src/scanner"
	"signalscanner/src/simulation"
)

// Dependencies carries everything the HTTP surface exposes.
type Dependencies struct {
	Hub          *broadcast.Hub
	Scanner      *scanner.Scanner
	Replayer     *simulation.Replayer
	SignalCtl    *controller.SignalController
	SimSignalCtl *controller.SignalController
	Source       marketdata.Source

	Signals    *repository.SignalRepository
	Strategies *repository.StrategyRepository
	Watchlist  *repository.WatchlistRepository
	Trades     *repository.TradeHistoryRepository
	ScanState  *repository.ScannerConfigRepository
}

// NewRouter builds the full route table.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write failed")
		}
	})

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.HandleWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/signals", func(r chi.Router) {
			r.Get("/", handler.SearchSignalsHandler(deps.Signals))
			r.Get("/{id}", handler.GetSignalHandler(deps.Signals))
			r.Get("/{id}/trades", handler.TradesBySignalHandler(deps.Trades))
			r.Post("/{id}/confirm", handler.ConfirmEntryHandler(deps.SignalCtl))
			r.Post("/{id}/close", handler.ClosePositionHandler(deps.SignalCtl))
			r.Post("/{id}/cancel", handler.CancelSignalHandler(deps.SignalCtl))
		})

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", handler.ListStrategiesHandler(deps.Strategies))
			r.Post("/", handler.CreateStrategyHandler(deps.Strategies))
			r.Get("/{id}", handler.GetStrategyHandler(deps.Strategies))
			r.Put("/{id}", handler.UpdateStrategyHandler(deps.Strategies))
			r.Patch("/{id}/active", handler.SetStrategyActiveHandler(deps.Strategies))
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", handler.ListWatchlistHandler(deps.Watchlist))
			r.Post("/", handler.AddWatchlistItemHandler(deps.Watchlist))
			r.Delete("/{id}", handler.RemoveWatchlistItemHandler(deps.Watchlist))
		})

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", handler.ListTradesHandler(deps.Trades))
			r.Get("/performance", handler.TradePerformanceHandler(deps.Trades))
		})

		r.Get("/levels", handler.ComputeLevelsHandler(deps.Source))

		r.Route("/scanner", func(r chi.Router) {
			r.Post("/start", handler.StartScannerHandler(deps.Scanner))
			r.Post("/stop", handler.StopScannerHandler(deps.Scanner))
			r.Get("/status", handler.ScannerStatusHandler(deps.Scanner))
			r.Post("/scan", handler.TriggerScanHandler(deps.Scanner))
			r.Put("/interval", handler.UpdateScanIntervalHandler(deps.ScanState))
		})

		r.Route("/simulation", func(r chi.Router) {
			r.Post("/start", handler.StartSimulationHandler(deps.Replayer))
			r.Post("/step", handler.StepSimulationHandler(deps.Replayer))
			r.Get("/status", handler.SimulationStatusHandler(deps.Replayer))
			r.Post("/pause", handler.PauseSimulationHandler(deps.Replayer))
			r.Post("/resume", handler.ResumeSimulationHandler(deps.Replayer))
			r.Post("/reset", handler.ResetSimulationHandler(deps.Replayer))
			// Manual-mode fills settle against the simulated balance.
			r.Post("/signals/{id}/confirm", handler.ConfirmEntryHandler(deps.SimSignalCtl))
			r.Post("/signals/{id}/close", handler.ClosePositionHandler(deps.SimSignalCtl))
		})
	})

	return r
}

func StartServer(port string, deps Dependencies) {
	r := NewRouter(deps)

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")

	if deps.Scanner != nil {
		deps.Scanner.Stop()
	}
	if deps.Replayer != nil {
		deps.Replayer.Clock().Stop()
	}
	if deps.Hub != nil {
		deps.Hub.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
