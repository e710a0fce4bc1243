package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

// BISTSource pulls OHLCV history for Istanbul equities from a UDF-style
// history endpoint (GET /history?symbol=...&resolution=...&from=...&to=...).
type BISTSource struct {
	Log    *logger.Entry
	Config *Config
	http   *resty.Client
}

type bistHistoryResponse struct {
	Status  string    `json:"s"`
	ErrMsg  string    `json:"errmsg,omitempty"`
	Times   []int64   `json:"t"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
}

func NewBISTSource(cfg *Config) *BISTSource {
	httpClient := resty.New().
		SetBaseURL(cfg.BISTBaseURL).
		SetTimeout(cfg.BISTTimeout).
		SetRetryCount(cfg.RetryAttempts - 1).
		SetRetryWaitTime(cfg.RetryBaseDelay).
		SetRetryMaxWaitTime(cfg.RetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &BISTSource{
		Log:    logger.WithField("source", "bist"),
		Config: cfg,
		http:   httpClient,
	}
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return r.StatusCode() == 429 || r.StatusCode() >= 500
}

func (s *BISTSource) GetCandles(ctx context.Context, ticker string, market model.Market, horizon model.Horizon, start, end time.Time) ([]model.Candle, error) {
	resolution, err := bistResolution(horizon)
	if err != nil {
		return nil, err
	}

	var out bistHistoryResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"symbol":     ticker,
			"resolution": resolution,
			"from":       strconv.FormatInt(start.Unix(), 10),
			"to":         strconv.FormatInt(end.Unix(), 10),
		}).
		SetResult(&out).
		Get("/history")
	if err != nil {
		s.Log.WithError(err).WithField("ticker", ticker).Error("history request failed")
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	switch out.Status {
	case "ok":
	case "no_data":
		return nil, nil
	default:
		if out.ErrMsg != "" {
			return nil, fmt.Errorf("history error for %s: %s", ticker, out.ErrMsg)
		}
		return nil, fmt.Errorf("history returned status %q for %s", out.Status, ticker)
	}

	n := len(out.Times)
	if len(out.Opens) != n || len(out.Highs) != n || len(out.Lows) != n || len(out.Closes) != n {
		return nil, fmt.Errorf("history arrays misaligned for %s: %d timestamps", ticker, n)
	}

	candles := make([]model.Candle, 0, n)
	for i := 0; i < n; i++ {
		ts := time.Unix(out.Times[i], 0).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		c := model.Candle{
			Time:  ts,
			Open:  out.Opens[i],
			High:  out.Highs[i],
			Low:   out.Lows[i],
			Close: out.Closes[i],
		}
		if i < len(out.Volumes) {
			c.Volume = out.Volumes[i]
		}
		candles = append(candles, c)
	}

	s.Log.WithFields(logger.Fields{
		"ticker":  ticker,
		"horizon": horizon,
		"bars":    len(candles),
	}).Debug("fetched bist history")

	return candles, nil
}

func bistResolution(horizon model.Horizon) (string, error) {
	switch horizon {
	case model.HorizonShort:
		return "60", nil
	case model.HorizonMedium:
		return "240", nil
	case model.HorizonLong:
		return "1D", nil
	default:
		return "", fmt.Errorf("unknown horizon %q", horizon)
	}
}
