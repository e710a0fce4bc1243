package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

// BinanceSource pulls spot klines from Binance. Tickers are base symbols
// ("BTC") quoted against the configured quote currency, or explicit pairs
// ("BTC_USDT").
type BinanceSource struct {
	Log      *logger.Entry
	Config   *Config
	exchange goex.API
}

func NewBinanceSource(cfg *Config) *BinanceSource {
	endpoint := cfg.BinanceEndpoint
	if endpoint == "" {
		endpoint = binance.GLOBAL_API_BASE_URL
	}
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   endpoint,
	}
	return &BinanceSource{
		Log:      logger.WithField("source", "binance"),
		Config:   cfg,
		exchange: binance.NewWithConfig(apiConfig),
	}
}

func (s *BinanceSource) GetCandles(ctx context.Context, ticker string, market model.Market, horizon model.Horizon, start, end time.Time) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	period, err := klinePeriod(horizon)
	if err != nil {
		return nil, err
	}

	base, quote := splitPair(ticker, s.Config.BinanceQuote)
	targetSymbol := goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})

	const millis = 1000
	klines, err := s.exchange.GetKlineRecords(
		targetSymbol,
		period,
		s.Config.CandleLimit,
		goex.OptionalParameter{}.
			Optional("startTime", start.Unix()*millis).
			Optional("endTime", end.Unix()*millis),
	)
	if err != nil {
		s.Log.WithError(err).WithField("ticker", ticker).Error("GetKlineRecords failed")
		return nil, err
	}

	out := make([]model.Candle, 0, len(klines))
	for i := range klines {
		k := klines[i]
		ts := time.Unix(k.Timestamp, 0).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, model.Candle{
			Time:   ts,
			Open:   k.Open,
			High:   k.High,
			Low:    k.Low,
			Close:  k.Close,
			Volume: k.Vol,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	s.Log.WithFields(logger.Fields{
		"ticker":  ticker,
		"horizon": horizon,
		"bars":    len(out),
	}).Debug("fetched binance klines")

	return out, nil
}

func klinePeriod(horizon model.Horizon) (goex.KlinePeriod, error) {
	switch horizon {
	case model.HorizonShort:
		return goex.KLINE_PERIOD_1H, nil
	case model.HorizonMedium:
		return goex.KLINE_PERIOD_4H, nil
	case model.HorizonLong:
		return goex.KLINE_PERIOD_1DAY, nil
	default:
		return 0, fmt.Errorf("unknown horizon %q", horizon)
	}
}

func splitPair(ticker, defaultQuote string) (base, quote string) {
	if i := strings.IndexByte(ticker, '_'); i > 0 {
		return ticker[:i], ticker[i+1:]
	}
	return ticker, defaultQuote
}
