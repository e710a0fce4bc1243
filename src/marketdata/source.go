package marketdata

import (
	"context"
	"fmt"
	"time"

	"signalscanner/src/model"
)

// Source delivers OHLCV history for one ticker on one market. Candles come
// back in ascending time order, bounded by [start, end].
type Source interface {
	GetCandles(ctx context.Context, ticker string, market model.Market, horizon model.Horizon, start, end time.Time) ([]model.Candle, error)
}

// MultiSource routes candle requests to the per-market source.
type MultiSource struct {
	BIST    Source
	Binance Source
}

func NewMultiSource(cfg *Config) *MultiSource {
	return &MultiSource{
		BIST:    NewBISTSource(cfg),
		Binance: NewBinanceSource(cfg),
	}
}

func (m *MultiSource) GetCandles(ctx context.Context, ticker string, market model.Market, horizon model.Horizon, start, end time.Time) ([]model.Candle, error) {
	switch market {
	case model.MarketBIST:
		return m.BIST.GetCandles(ctx, ticker, market, horizon, start, end)
	case model.MarketBinance:
		return m.Binance.GetCandles(ctx, ticker, market, horizon, start, end)
	default:
		return nil, fmt.Errorf("unknown market %q", market)
	}
}
