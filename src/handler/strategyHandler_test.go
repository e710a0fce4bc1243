package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"signalscanner/src/model"
)

type fakeStrategyRepo struct {
	rows map[uint]*model.Strategy
}

func newFakeStrategyRepo() *fakeStrategyRepo {
	return &fakeStrategyRepo{rows: map[uint]*model.Strategy{}}
}

func (f *fakeStrategyRepo) Create(_ context.Context, strat *model.Strategy) error {
	strat.ID = uint(len(f.rows) + 1)
	stored := *strat
	f.rows[strat.ID] = &stored
	return nil
}

func (f *fakeStrategyRepo) FindByID(_ context.Context, id uint) (*model.Strategy, error) {
	strat, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *strat
	return &clone, nil
}

func (f *fakeStrategyRepo) FindActive(_ context.Context) ([]model.Strategy, error) {
	var out []model.Strategy
	for _, strat := range f.rows {
		if strat.Active {
			out = append(out, *strat)
		}
	}
	return out, nil
}

func (f *fakeStrategyRepo) Update(_ context.Context, strat *model.Strategy) error {
	stored := *strat
	f.rows[strat.ID] = &stored
	return nil
}

func (f *fakeStrategyRepo) SetActive(_ context.Context, id uint, active bool) error {
	if strat, ok := f.rows[id]; ok {
		strat.Active = active
	}
	return nil
}

func TestCreateStrategyValidatesType(t *testing.T) {
	repo := newFakeStrategyRepo()
	h := CreateStrategyHandler(repo)

	body := bytes.NewBufferString(`{"name": "bogus", "strategy_type": "no_such_strategy", "horizon": "short"}`)
	req := httptest.NewRequest(http.MethodPost, "/strategies", body)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown strategy type must be rejected, got %d", rec.Code)
	}
	if len(repo.rows) != 0 {
		t.Fatal("rejected strategy must not be stored")
	}
}

func TestCreateStrategyAcceptsRegisteredType(t *testing.T) {
	repo := newFakeStrategyRepo()
	h := CreateStrategyHandler(repo)

	body := bytes.NewBufferString(`{"name": "hourly momentum", "strategy_type": "ema_macd", "horizon": "short"}`)
	req := httptest.NewRequest(http.MethodPost, "/strategies", body)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", rec.Code, rec.Body.String())
	}
	strat := repo.rows[1]
	if strat == nil || !strat.Active {
		t.Fatalf("stored strategy must be active: %+v", strat)
	}
	if strat.RiskRewardRatio != 2 {
		t.Fatalf("missing ratio must default to 2, got %v", strat.RiskRewardRatio)
	}
}

func TestCreateStrategyRejectsBadHorizon(t *testing.T) {
	h := CreateStrategyHandler(newFakeStrategyRepo())

	body := bytes.NewBufferString(`{"name": "x", "strategy_type": "ema_macd", "horizon": "weekly"}`)
	req := httptest.NewRequest(http.MethodPost, "/strategies", body)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad horizon must be rejected, got %d", rec.Code)
	}
}

func TestSummarizeTrades(t *testing.T) {
	trades := []model.TradeHistory{
		{Result: model.TradeWin, Profit: 100},
		{Result: model.TradeLoss, Profit: -40},
		{Result: model.TradeWin, Profit: 60},
		{Result: model.TradeBreakeven, Profit: 0},
	}

	perf := summarize(trades)
	if perf.Trades != 4 || perf.Wins != 2 || perf.Losses != 1 || perf.Breakevens != 1 {
		t.Fatalf("counters wrong: %+v", perf)
	}
	if perf.TotalProfit != 120 || perf.AvgProfit != 30 {
		t.Fatalf("profit aggregation wrong: %+v", perf)
	}
	if perf.BestTrade != 100 || perf.WorstTrade != -40 {
		t.Fatalf("extremes wrong: %+v", perf)
	}
	if want := 2.0 / 3.0 * 100; perf.WinRate < want-0.001 || perf.WinRate > want+0.001 {
		t.Fatalf("win rate must ignore breakevens, got %v", perf.WinRate)
	}
}
