package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/simulation"
)

type startSimulationRequest struct {
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	SecondsPerHour float64 `json:"seconds_per_hour"`
	InitialBalance float64 `json:"initial_balance"`
	IsBacktest     bool    `json:"is_backtest"`
}

func parseSimDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// StartSimulationHandler reconfigures the replay from the request and runs it
// in the background. Without a body the configured defaults apply; backtests
// auto-enter, manual replays wait for the user to confirm each entry.
func StartSimulationHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.Clock().Running() {
			http.Error(w, "simulation already running", http.StatusConflict)
			return
		}

		var body startSimulationRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		start, err := parseSimDate(body.StartDate)
		if err != nil {
			http.Error(w, "invalid start_date", http.StatusBadRequest)
			return
		}
		end, err := parseSimDate(body.EndDate)
		if err != nil {
			http.Error(w, "invalid end_date", http.StatusBadRequest)
			return
		}

		params := simulation.StartParams{
			StartDate:      start,
			EndDate:        end,
			SecondsPerHour: body.SecondsPerHour,
			InitialBalance: body.InitialBalance,
			Backtest:       body.IsBacktest,
		}
		if err := r.Configure(req.Context(), params); err != nil {
			if errors.Is(err, simulation.ErrReplayRunning) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		go func() {
			if err := r.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("simulation run failed")
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"is_backtest": r.Backtest(),
			"clock":       r.Clock().Stats(),
		})
	}
}

// StepSimulationHandler advances the replay by one virtual hour.
func StepSimulationHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		done, err := r.Step(req.Context())
		if err != nil && !errors.Is(err, simulation.ErrReplayFinished) {
			logger.WithError(err).Error("simulation step failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		stats := r.Clock().Stats()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"done":  done,
			"stats": stats,
		})
	}
}

// SimulationStatusHandler reports the mode, virtual clock and account
// snapshot.
func SimulationStatusHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"is_backtest": r.Backtest(),
			"clock":       r.Clock().Stats(),
		})
	}
}

// PauseSimulationHandler suspends a running replay without losing state.
func PauseSimulationHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.Clock().Pause()
		writeJSON(w, http.StatusOK, r.Clock().Stats())
	}
}

// ResumeSimulationHandler continues a paused replay.
func ResumeSimulationHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.Clock().Resume()
		writeJSON(w, http.StatusOK, r.Clock().Stats())
	}
}

// ResetSimulationHandler rewinds the clock and wipes replay data.
func ResetSimulationHandler(r *simulation.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.Clock().Running() {
			http.Error(w, "stop the simulation before resetting", http.StatusConflict)
			return
		}

		if err := r.Reset(req.Context()); err != nil {
			logger.WithError(err).Error("simulation reset failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, r.Clock().Stats())
	}
}
