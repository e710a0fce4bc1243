package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/scanner"
)

type intervalUpdater interface {
	UpdateInterval(ctx context.Context, minutes int) error
}

// StartScannerHandler launches the periodic scan loop.
func StartScannerHandler(s *scanner.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The loop must outlive this request.
		if err := s.Start(context.Background()); err != nil {
			if errors.Is(err, scanner.ErrAlreadyRunning) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.WithError(err).Error("failed to start scanner")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, s.Status())
	}
}

// StopScannerHandler halts the scan loop.
func StopScannerHandler(s *scanner.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Stop()
		writeJSON(w, http.StatusOK, s.Status())
	}
}

// ScannerStatusHandler reports the loop state and last scan time.
func ScannerStatusHandler(s *scanner.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Status())
	}
}

// TriggerScanHandler runs one scan cycle on demand, outside the schedule.
func TriggerScanHandler(s *scanner.Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := s.ScanAll(context.Background()); err != nil && !errors.Is(err, scanner.ErrScanInProgress) {
				logger.WithError(err).Error("manual scan cycle failed")
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan started"})
	}
}

type updateIntervalRequest struct {
	Minutes int `json:"minutes"`
}

// UpdateScanIntervalHandler persists a new scan cadence. Applied on the next
// scanner start.
func UpdateScanIntervalHandler(repo intervalUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateIntervalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Minutes <= 0 {
			http.Error(w, "minutes must be positive", http.StatusBadRequest)
			return
		}

		if err := repo.UpdateInterval(r.Context(), req.Minutes); err != nil {
			logger.WithError(err).Error("failed to update scan interval")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{"scan_interval_minutes": req.Minutes})
	}
}
