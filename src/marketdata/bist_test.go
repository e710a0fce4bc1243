package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalscanner/src/model"
)

func testConfig(baseURL string) *Config {
	return &Config{
		BISTBaseURL:     baseURL,
		BISTTimeout:     5 * time.Second,
		RetryAttempts:   1,
		RetryBaseDelay:  10 * time.Millisecond,
		RetryMaxBackoff: 50 * time.Millisecond,
		BinanceQuote:    "USDT",
		CandleLimit:     1000,
	}
}

func TestBISTSourceParsesHistory(t *testing.T) {
	var gotSymbol, gotResolution string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbol")
		gotResolution = r.URL.Query().Get("resolution")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"s":"ok",
			"t":[1709539200,1709542800,1709546400],
			"o":[10.0,10.2,10.1],
			"h":[10.3,10.4,10.5],
			"l":[9.9,10.1,10.0],
			"c":[10.2,10.1,10.4],
			"v":[1000,1200,900]
		}`))
	}))
	defer srv.Close()

	s := NewBISTSource(testConfig(srv.URL))
	start := time.Unix(1709539200, 0).UTC()
	end := start.Add(3 * time.Hour)

	candles, err := s.GetCandles(context.Background(), "THYAO", model.MarketBIST, model.HorizonShort, start, end)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if gotSymbol != "THYAO" || gotResolution != "60" {
		t.Fatalf("unexpected query: symbol=%q resolution=%q", gotSymbol, gotResolution)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	if candles[0].Close != 10.2 || candles[2].High != 10.5 || candles[1].Volume != 1200 {
		t.Fatalf("candles misparsed: %+v", candles)
	}
	if !candles[0].Time.Equal(start) {
		t.Fatalf("first candle time %v, want %v", candles[0].Time, start)
	}
}

func TestBISTSourceNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"no_data"}`))
	}))
	defer srv.Close()

	s := NewBISTSource(testConfig(srv.URL))
	candles, err := s.GetCandles(context.Background(), "GARAN", model.MarketBIST, model.HorizonMedium, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("no_data must not be an error: %v", err)
	}
	if len(candles) != 0 {
		t.Fatalf("expected no candles, got %d", len(candles))
	}
}

func TestBISTSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"error","errmsg":"unknown symbol"}`))
	}))
	defer srv.Close()

	s := NewBISTSource(testConfig(srv.URL))
	_, err := s.GetCandles(context.Background(), "NOPE", model.MarketBIST, model.HorizonLong, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("error status must surface as an error")
	}
}

func TestBISTResolutionMapping(t *testing.T) {
	cases := []struct {
		horizon model.Horizon
		want    string
	}{
		{model.HorizonShort, "60"},
		{model.HorizonMedium, "240"},
		{model.HorizonLong, "1D"},
	}
	for _, tc := range cases {
		got, err := bistResolution(tc.horizon)
		if err != nil {
			t.Fatalf("bistResolution(%s) failed: %v", tc.horizon, err)
		}
		if got != tc.want {
			t.Fatalf("bistResolution(%s) = %q, want %q", tc.horizon, got, tc.want)
		}
	}
	if _, err := bistResolution(model.Horizon("weekly")); err == nil {
		t.Fatal("unknown horizon must error")
	}
}
