package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/controller"
	"signalscanner/src/model"
	"signalscanner/src/repository"
)

type watchlistStore interface {
	Add(ctx context.Context, item *model.WatchlistItem) error
	FindActive(ctx context.Context) ([]model.WatchlistItem, error)
	FindActiveByMarket(ctx context.Context, market model.Market) ([]model.WatchlistItem, error)
	Deactivate(ctx context.Context, id uint) error
}

type addWatchlistRequest struct {
	Ticker     string       `json:"ticker"`
	Market     model.Market `json:"market"`
	StrategyID uint         `json:"strategy_id"`
}

// AddWatchlistItemHandler puts a ticker under scan for a strategy. Crypto
// symbols are normalized to the exchange pair form.
func AddWatchlistItemHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addWatchlistRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Ticker == "" || req.StrategyID == 0 {
			http.Error(w, "ticker and strategy_id are required", http.StatusBadRequest)
			return
		}

		switch req.Market {
		case model.MarketBIST:
			req.Ticker = controller.NormalizeTicker(req.Ticker)
		case model.MarketBinance:
			req.Ticker = controller.NormalizeCryptoPair(req.Ticker)
		default:
			http.Error(w, "unknown market", http.StatusBadRequest)
			return
		}

		item := &model.WatchlistItem{
			Ticker:     req.Ticker,
			Market:     req.Market,
			StrategyID: req.StrategyID,
			Active:     true,
		}

		if err := repo.Add(r.Context(), item); err != nil {
			if errors.Is(err, repository.ErrDuplicateWatchlistItem) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.WithError(err).Error("failed to add watchlist item")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, item)
	}
}

// ListWatchlistHandler returns the active scan universe, optionally filtered
// by market.
func ListWatchlistHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			items []model.WatchlistItem
			err   error
		)

		if marketParam := r.URL.Query().Get("market"); marketParam != "" {
			items, err = repo.FindActiveByMarket(r.Context(), model.Market(marketParam))
		} else {
			items, err = repo.FindActive(r.Context())
		}

		if err != nil {
			logger.WithError(err).Error("failed to list watchlist")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if items == nil {
			items = []model.WatchlistItem{}
		}

		writeJSON(w, http.StatusOK, items)
	}
}

// RemoveWatchlistItemHandler deactivates an item so future scans skip it.
func RemoveWatchlistItemHandler(repo watchlistStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		if err := repo.Deactivate(r.Context(), id); err != nil {
			logger.WithError(err).Error("failed to deactivate watchlist item")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "active": false})
	}
}
