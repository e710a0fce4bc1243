package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/controller"
	"signalscanner/src/model"
	"signalscanner/src/repository"
)

type signalSearcher interface {
	Search(ctx context.Context, opts repository.SignalSearchOptions) ([]model.Signal, error)
	FindByID(ctx context.Context, id uint) (*model.Signal, error)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func parseIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// SearchSignalsHandler lists signals with pagination and filters
// (ticker, strategyId, status as a comma separated list).
func SearchSignalsHandler(repo signalSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := repository.SignalSearchOptions{
			Ticker: controller.NormalizeTicker(r.URL.Query().Get("ticker")),
		}

		if strategyParam := r.URL.Query().Get("strategyId"); strategyParam != "" {
			id, err := strconv.ParseUint(strategyParam, 10, 64)
			if err != nil {
				http.Error(w, "invalid strategyId", http.StatusBadRequest)
				return
			}
			opts.StrategyID = uint(id)
		}

		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			for _, s := range strings.Split(statusParam, ",") {
				opts.Statuses = append(opts.Statuses, model.SignalStatus(strings.TrimSpace(s)))
			}
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsed, err := strconv.Atoi(pageParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsed
		}

		pageSize := 20
		if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
			parsed, err := strconv.Atoi(sizeParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsed
		}

		opts.Limit = pageSize
		opts.Offset = (page - 1) * pageSize

		signals, err := repo.Search(r.Context(), opts)
		if err != nil {
			logger.WithError(err).Error("failed to search signals")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if signals == nil {
			signals = []model.Signal{}
		}

		writeJSON(w, http.StatusOK, signals)
	}
}

// GetSignalHandler returns one signal by ID.
func GetSignalHandler(repo signalSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		sig, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to fetch signal")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if sig == nil {
			http.Error(w, "signal not found", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, sig)
	}
}

type confirmEntryRequest struct {
	ActualPrice float64 `json:"actual_price"`
	Lots        float64 `json:"lots"`
}

// ConfirmEntryHandler records a manual fill on a triggered signal.
func ConfirmEntryHandler(ctl *controller.SignalController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req confirmEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		sig, err := ctl.ConfirmEntry(r.Context(), id, req.ActualPrice, req.Lots)
		if err != nil {
			respondSignalOpError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sig)
	}
}

type closePositionRequest struct {
	ExitPrice float64 `json:"exit_price"`
	Lots      float64 `json:"lots"`
}

// ClosePositionHandler exits an entered position, fully or partially.
func ClosePositionHandler(ctl *controller.SignalController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req closePositionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		sig, err := ctl.ClosePosition(r.Context(), id, req.ExitPrice, req.Lots)
		if err != nil {
			respondSignalOpError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sig)
	}
}

type cancelSignalRequest struct {
	Reason string `json:"reason"`
}

// CancelSignalHandler cancels a pending or triggered signal.
func CancelSignalHandler(ctl *controller.SignalController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req cancelSignalRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		sig, err := ctl.CancelSignal(r.Context(), id, req.Reason)
		if err != nil {
			respondSignalOpError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sig)
	}
}

// respondSignalOpError maps controller errors onto HTTP statuses. Invalid
// transitions are client errors, not server faults.
func respondSignalOpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrSignalNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case strings.Contains(err.Error(), "cannot") || strings.Contains(err.Error(), "invalid") || strings.Contains(err.Error(), "insufficient"):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.WithError(err).Error("signal operation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
