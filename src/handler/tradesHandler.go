package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

type tradeReader interface {
	FindAll(ctx context.Context) ([]model.TradeHistory, error)
	FindClosedBetween(ctx context.Context, from, to time.Time) ([]model.TradeHistory, error)
	FindBySignalID(ctx context.Context, signalID uint) ([]model.TradeHistory, error)
}

func tradesInRange(r *http.Request, repo tradeReader) ([]model.TradeHistory, string) {
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")

	if fromParam == "" && toParam == "" {
		trades, err := repo.FindAll(r.Context())
		if err != nil {
			return nil, "query failed"
		}
		return trades, ""
	}

	from := time.Time{}
	if fromParam != "" {
		parsed, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return nil, "invalid from"
		}
		from = parsed
	}

	to := time.Now().UTC()
	if toParam != "" {
		parsed, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			return nil, "invalid to"
		}
		to = parsed
	}

	trades, err := repo.FindClosedBetween(r.Context(), from, to)
	if err != nil {
		return nil, "query failed"
	}
	return trades, ""
}

// ListTradesHandler returns completed trades, optionally bounded by
// from/to (RFC3339) on the close time.
func ListTradesHandler(repo tradeReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, msg := tradesInRange(r, repo)
		if msg == "query failed" {
			logger.Error("failed to list trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		if trades == nil {
			trades = []model.TradeHistory{}
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// TradesBySignalHandler lists the exits of one signal, oldest first.
func TradesBySignalHandler(repo tradeReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		trades, err := repo.FindBySignalID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to list trades for signal")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if trades == nil {
			trades = []model.TradeHistory{}
		}
		writeJSON(w, http.StatusOK, trades)
	}
}

// TradePerformance aggregates closed trades into a scoreboard.
type TradePerformance struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Breakevens  int     `json:"breakevens"`
	WinRate     float64 `json:"win_rate"`
	TotalProfit float64 `json:"total_profit"`
	AvgProfit   float64 `json:"avg_profit"`
	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
}

func summarize(trades []model.TradeHistory) TradePerformance {
	perf := TradePerformance{Trades: len(trades)}
	for i, trade := range trades {
		switch trade.Result {
		case model.TradeWin:
			perf.Wins++
		case model.TradeLoss:
			perf.Losses++
		default:
			perf.Breakevens++
		}
		perf.TotalProfit += trade.Profit
		if i == 0 || trade.Profit > perf.BestTrade {
			perf.BestTrade = trade.Profit
		}
		if i == 0 || trade.Profit < perf.WorstTrade {
			perf.WorstTrade = trade.Profit
		}
	}
	if decided := perf.Wins + perf.Losses; decided > 0 {
		perf.WinRate = float64(perf.Wins) / float64(decided) * 100
	}
	if perf.Trades > 0 {
		perf.AvgProfit = perf.TotalProfit / float64(perf.Trades)
	}
	return perf
}

// TradePerformanceHandler aggregates trades over an optional from/to window.
func TradePerformanceHandler(repo tradeReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, msg := tradesInRange(r, repo)
		if msg == "query failed" {
			logger.Error("failed to aggregate trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, summarize(trades))
	}
}
