package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"signalscanner/src/controller"
	"signalscanner/src/engine"
	"signalscanner/src/model"
	"signalscanner/src/repository"
)

func fp(v float64) *float64 { return &v }

type fakeSignalRepo struct {
	rows     map[uint]*model.Signal
	lastOpts repository.SignalSearchOptions
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{rows: map[uint]*model.Signal{}}
}

func (f *fakeSignalRepo) Search(_ context.Context, opts repository.SignalSearchOptions) ([]model.Signal, error) {
	f.lastOpts = opts
	var out []model.Signal
	for _, sig := range f.rows {
		if opts.Ticker != "" && sig.Ticker != opts.Ticker {
			continue
		}
		out = append(out, *sig)
	}
	return out, nil
}

func (f *fakeSignalRepo) FindByID(_ context.Context, id uint) (*model.Signal, error) {
	sig, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *sig
	return &clone, nil
}

func (f *fakeSignalRepo) FindActive(_ context.Context, ticker string, strategyID uint) (*model.Signal, error) {
	for _, sig := range f.rows {
		if sig.Ticker == ticker && sig.StrategyID == strategyID && !sig.Status.Terminal() {
			clone := *sig
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSignalRepo) Create(_ context.Context, sig *model.Signal) error {
	sig.ID = uint(len(f.rows) + 1)
	stored := *sig
	f.rows[sig.ID] = &stored
	return nil
}

func (f *fakeSignalRepo) Update(_ context.Context, sig *model.Signal) error {
	stored := *sig
	f.rows[sig.ID] = &stored
	return nil
}

type noTrades struct{}

func (noTrades) Create(_ context.Context, _ *model.TradeHistory) error { return nil }

func newSignalRouter(repo *fakeSignalRepo) http.Handler {
	eng := engine.New(repo, noTrades{}, nil, nil, nil, engine.DefaultOptions())
	ctl := controller.NewSignalController(controller.Config{DefaultLots: 1}, repo, eng)

	r := chi.NewRouter()
	r.Get("/signals", SearchSignalsHandler(repo))
	r.Get("/signals/{id}", GetSignalHandler(repo))
	r.Post("/signals/{id}/confirm", ConfirmEntryHandler(ctl))
	r.Post("/signals/{id}/close", ClosePositionHandler(ctl))
	r.Post("/signals/{id}/cancel", CancelSignalHandler(ctl))
	return r
}

func TestSearchSignalsNormalizesTicker(t *testing.T) {
	repo := newFakeSignalRepo()
	repo.rows[1] = &model.Signal{ID: 1, Ticker: "THYAO", Status: model.SignalTriggered}
	router := newSignalRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/signals?ticker=thyao&page=2&pageSize=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if repo.lastOpts.Ticker != "THYAO" {
		t.Fatalf("ticker must be normalized, got %q", repo.lastOpts.Ticker)
	}
	if repo.lastOpts.Limit != 5 || repo.lastOpts.Offset != 5 {
		t.Fatalf("pagination wrong: %+v", repo.lastOpts)
	}
}

func TestGetSignalNotFound(t *testing.T) {
	router := newSignalRouter(newFakeSignalRepo())

	req := httptest.NewRequest(http.MethodGet, "/signals/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestConfirmThenCloseOverHTTP(t *testing.T) {
	repo := newFakeSignalRepo()
	repo.rows[1] = &model.Signal{
		ID: 1, Ticker: "THYAO", StrategyID: 1,
		Status: model.SignalTriggered, Direction: model.DirectionLong,
		EntryPrice: fp(100), StopLoss: fp(95), TakeProfit: fp(110),
	}
	router := newSignalRouter(repo)

	body := bytes.NewBufferString(`{"actual_price": 100.5, "lots": 10}`)
	req := httptest.NewRequest(http.MethodPost, "/signals/1/confirm", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("confirm failed: %d %s", rec.Code, rec.Body.String())
	}
	var sig model.Signal
	if err := json.Unmarshal(rec.Body.Bytes(), &sig); err != nil {
		t.Fatal(err)
	}
	if sig.Status != model.SignalEntered || sig.Lots != 10 {
		t.Fatalf("unexpected signal after confirm: %+v", sig)
	}

	body = bytes.NewBufferString(`{"exit_price": 104, "lots": 0}`)
	req = httptest.NewRequest(http.MethodPost, "/signals/1/close", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("close failed: %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sig); err != nil {
		t.Fatal(err)
	}
	if sig.Status != model.SignalClosed || sig.RemainingLots != 0 {
		t.Fatalf("unexpected signal after close: %+v", sig)
	}
}

func TestConfirmOnPendingIsConflict(t *testing.T) {
	repo := newFakeSignalRepo()
	repo.rows[1] = &model.Signal{ID: 1, Ticker: "GARAN", StrategyID: 1, Status: model.SignalPending}
	router := newSignalRouter(repo)

	body := bytes.NewBufferString(`{"actual_price": 100, "lots": 1}`)
	req := httptest.NewRequest(http.MethodPost, "/signals/1/confirm", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("invalid transition must be 409, got %d", rec.Code)
	}
}

func TestCancelSignalOverHTTP(t *testing.T) {
	repo := newFakeSignalRepo()
	repo.rows[1] = &model.Signal{ID: 1, Ticker: "GARAN", StrategyID: 1, Status: model.SignalPending}
	router := newSignalRouter(repo)

	body := bytes.NewBufferString(`{"reason": "changed my mind"}`)
	req := httptest.NewRequest(http.MethodPost, "/signals/1/cancel", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d %s", rec.Code, rec.Body.String())
	}
	if got := repo.rows[1].Status; got != model.SignalCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
}
