package handler

import (
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/controller"
	"signalscanner/src/levels"
	"signalscanner/src/marketdata"
	"signalscanner/src/model"
)

const (
	levelsLookbackBars = 300
	levelsPivotBars    = 5
)

// LevelsResponse is the computed trade geometry for one ticker right now.
type LevelsResponse struct {
	Ticker     string          `json:"ticker"`
	Market     model.Market    `json:"market"`
	Horizon    model.Horizon   `json:"horizon"`
	Direction  model.Direction `json:"direction"`
	LastPrice  float64         `json:"last_price"`
	LastPeak   *float64        `json:"last_peak"`
	LastTrough *float64        `json:"last_trough"`
	Entry      *float64        `json:"entry"`
	StopLoss   *float64        `json:"stop_loss"`
	TakeProfit *float64        `json:"take_profit"`
}

// ComputeLevelsHandler previews entry, stop and target for a ticker without
// creating a signal. Levels require both confirmed pivots; without them only
// the pivot view is returned.
func ComputeLevelsHandler(source marketdata.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		market := model.Market(r.URL.Query().Get("market"))
		if market != model.MarketBIST && market != model.MarketBinance {
			http.Error(w, "unknown market", http.StatusBadRequest)
			return
		}

		ticker := r.URL.Query().Get("ticker")
		if market == model.MarketBinance {
			ticker = controller.NormalizeCryptoPair(ticker)
		} else {
			ticker = controller.NormalizeTicker(ticker)
		}
		if ticker == "" {
			http.Error(w, "ticker is required", http.StatusBadRequest)
			return
		}

		horizon := model.Horizon(r.URL.Query().Get("horizon"))
		if horizon == "" {
			horizon = model.HorizonShort
		}
		if !validHorizon(horizon) {
			http.Error(w, "horizon must be short, medium or long", http.StatusBadRequest)
			return
		}

		direction := model.Direction(r.URL.Query().Get("direction"))
		if direction == "" {
			direction = model.DirectionLong
		}
		if direction != model.DirectionLong && direction != model.DirectionShort {
			http.Error(w, "direction must be long or short", http.StatusBadRequest)
			return
		}

		now := time.Now().UTC()
		candles, err := source.GetCandles(r.Context(), ticker, market, horizon, now.Add(-levelsLookbackBars*horizon.BarDuration()), now)
		if err != nil {
			logger.WithError(err).WithField("ticker", ticker).Error("failed to fetch candles for levels")
			http.Error(w, "failed to fetch candles", http.StatusBadGateway)
			return
		}
		if len(candles) == 0 {
			http.Error(w, "no candles available", http.StatusNotFound)
			return
		}

		params := levels.DefaultParams()
		peak, trough := levels.LastPivots(candles, levelsPivotBars)

		resp := LevelsResponse{
			Ticker:     ticker,
			Market:     market,
			Horizon:    horizon,
			Direction:  direction,
			LastPrice:  candles[len(candles)-1].Close,
			LastPeak:   peak,
			LastTrough: trough,
		}

		if peak != nil && trough != nil {
			entry, stop, target := levels.ComputeLevels(candles, direction, *peak, *trough, params)
			resp.Entry = &entry
			resp.StopLoss = &stop
			resp.TakeProfit = &target
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
