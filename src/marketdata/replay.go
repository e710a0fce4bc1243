package marketdata

import (
	"context"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

// ReplaySource wraps another Source and caches one trading day of candles per
// ticker. Replays step the virtual clock hour by hour through a day, so every
// step after the first is served from memory, truncated to the virtual "now".
type ReplaySource struct {
	Log      *logger.Entry
	upstream Source

	mu    sync.Mutex
	cache map[replayKey]*replayEntry
}

type replayKey struct {
	Ticker  string
	Market  model.Market
	Horizon model.Horizon
}

type replayEntry struct {
	day     time.Time
	start   time.Time
	candles []model.Candle
}

func NewReplaySource(upstream Source) *ReplaySource {
	return &ReplaySource{
		Log:      logger.WithField("source", "replay"),
		upstream: upstream,
		cache:    map[replayKey]*replayEntry{},
	}
}

func (r *ReplaySource) GetCandles(ctx context.Context, ticker string, market model.Market, horizon model.Horizon, start, end time.Time) ([]model.Candle, error) {
	key := replayKey{Ticker: ticker, Market: market, Horizon: horizon}
	day := end.UTC().Truncate(24 * time.Hour)

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()

	if ok && entry.day.Equal(day) && !entry.start.After(start) {
		return filterCandles(entry.candles, start, end), nil
	}

	// Fetch through the end of the virtual day so later steps hit the cache.
	candles, err := r.upstream.GetCandles(ctx, ticker, market, horizon, start, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = &replayEntry{day: day, start: start, candles: candles}
	r.mu.Unlock()

	r.Log.WithFields(logger.Fields{
		"ticker": ticker,
		"day":    day.Format("2006-01-02"),
		"bars":   len(candles),
	}).Debug("replay cache filled")

	return filterCandles(candles, start, end), nil
}

// ClearDay drops all cached candles. Called when the virtual clock rolls over
// to a new trading day.
func (r *ReplaySource) ClearDay() {
	r.mu.Lock()
	r.cache = map[replayKey]*replayEntry{}
	r.mu.Unlock()
	r.Log.Debug("replay cache cleared")
}

func filterCandles(candles []model.Candle, start, end time.Time) []model.Candle {
	out := make([]model.Candle, 0, len(candles))
	for i := range candles {
		t := candles[i].Time
		if t.Before(start) || t.After(end) {
			continue
		}
		out = append(out, candles[i])
	}
	return out
}
