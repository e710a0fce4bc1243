package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalscanner/src/engine"
	"signalscanner/src/model"
	"signalscanner/src/strategy"
)

func fp(v float64) *float64 { return &v }

type memSignals struct {
	mu     sync.Mutex
	nextID uint
	rows   []*model.Signal
}

func (m *memSignals) FindActive(_ context.Context, ticker string, strategyID uint) (*model.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		sig := m.rows[i]
		if sig.Ticker == ticker && sig.StrategyID == strategyID && !sig.Status.Terminal() {
			clone := *sig
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memSignals) Create(_ context.Context, sig *model.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sig.ID = m.nextID
	stored := *sig
	m.rows = append(m.rows, &stored)
	return nil
}

func (m *memSignals) Update(_ context.Context, sig *model.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == sig.ID {
			stored := *sig
			m.rows[i] = &stored
			return nil
		}
	}
	return nil
}

func (m *memSignals) FindAllActive(_ context.Context) ([]model.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Signal
	for _, sig := range m.rows {
		if !sig.Status.Terminal() {
			out = append(out, *sig)
		}
	}
	return out, nil
}

func (m *memSignals) get(id uint) *model.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sig := range m.rows {
		if sig.ID == id {
			clone := *sig
			return &clone
		}
	}
	return nil
}

type memTrades struct {
	mu   sync.Mutex
	rows []model.TradeHistory
}

func (m *memTrades) Create(_ context.Context, trade *model.TradeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *trade)
	return nil
}

func (m *memTrades) all() []model.TradeHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TradeHistory, len(m.rows))
	copy(out, m.rows)
	return out
}

type noopRunner struct{ calls int }

func (r *noopRunner) ScanAll(_ context.Context) error {
	r.calls++
	return nil
}

type fakeCache struct{ clears int }

func (f *fakeCache) ClearDay() { f.clears++ }

type fakeWiper struct{ wiped bool }

func (f *fakeWiper) DeleteAll(_ context.Context) error {
	f.wiped = true
	return nil
}

func testConfig() *Config {
	return &Config{
		StartDate:      time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		InitialBalance: 100000,
		FixedLots:      10,
	}
}

func newTestEngine(clock *Clock, store *memSignals, trades *memTrades, lots float64) *engine.Engine {
	return engine.New(store, trades, nil, nil, clock, engine.Options{
		StopPriority: true,
		Backtest:     true,
		AutoEnter:    true,
		FixedLots:    lots,
		Now:          clock.Now,
	})
}

func TestStepAdvancesOneHour(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	trades := &memTrades{}
	runner := &noopRunner{}
	r := NewReplayer(cfg, clock, newTestEngine(clock, store, trades, 10), runner, nil, store, nil)

	before := clock.Now()
	done, err := r.Step(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("first step must not finish the replay")
	}
	if runner.calls != 1 {
		t.Fatalf("expected one scan cycle, got %d", runner.calls)
	}
	if got := clock.Now().Sub(before); got != time.Hour {
		t.Fatalf("clock must advance exactly one hour, moved %s", got)
	}
}

func TestStepAfterEndReturnsFinished(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	r := NewReplayer(cfg, clock, newTestEngine(clock, store, &memTrades{}, 10), &noopRunner{}, nil, store, nil)

	ctx := context.Background()
	for {
		done, err := r.Step(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			break
		}
	}

	if done, err := r.Step(ctx); !done || !errors.Is(err, ErrReplayFinished) {
		t.Fatalf("stepping past the end must report finished, got done=%v err=%v", done, err)
	}
}

func TestDayEndClosesAndCancels(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	trades := &memTrades{}
	cache := &fakeCache{}

	enteredAt := time.Date(2024, time.January, 2, 11, 30, 0, 0, time.UTC)
	entered := &model.Signal{
		Ticker: "THYAO", Market: model.MarketBIST, StrategyID: 1,
		Status: model.SignalEntered, Direction: model.DirectionLong,
		EntryPrice: fp(50), StopLoss: fp(48), TakeProfit: fp(60),
		ActualEntryPrice: fp(50), CurrentPrice: fp(52),
		Lots: 10, RemainingLots: 10, EnteredAt: &enteredAt,
	}
	waiting := &model.Signal{
		Ticker: "GARAN", Market: model.MarketBIST, StrategyID: 1,
		Status: model.SignalTriggered, Direction: model.DirectionLong,
		EntryPrice: fp(100),
	}
	ctx := context.Background()
	for _, sig := range []*model.Signal{entered, waiting} {
		if err := store.Create(ctx, sig); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReplayer(cfg, clock, newTestEngine(clock, store, trades, 10), &noopRunner{}, cache, store, nil)
	for {
		done, err := r.Step(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			break
		}
	}

	closed := store.get(entered.ID)
	if closed.Status != model.SignalClosed {
		t.Fatalf("entered position must be force-closed at day end, got %s", closed.Status)
	}
	if closed.RemainingLots != 0 {
		t.Fatalf("force close must exit all lots, %v remain", closed.RemainingLots)
	}

	cancelled := store.get(waiting.ID)
	if cancelled.Status != model.SignalCancelled {
		t.Fatalf("triggered signal must be cancelled at day end, got %s", cancelled.Status)
	}

	all := trades.all()
	if len(all) != 1 {
		t.Fatalf("expected one day-end trade, got %d", len(all))
	}
	if all[0].ExitPrice != 52 || all[0].Profit != 20 {
		t.Fatalf("close must use the last seen price: %+v", all[0])
	}

	if cache.clears == 0 {
		t.Fatal("candle cache must be cleared on day rollover")
	}
}

// scriptedRunner replays a fixed sequence of strategy evaluations against the
// engine, one per virtual hour.
type scriptedRunner struct {
	eng   *engine.Engine
	strat *model.Strategy
	item  model.WatchlistItem
	steps []struct {
		res strategy.Result
		bar model.Candle
	}
	call int
}

func (r *scriptedRunner) ScanAll(ctx context.Context) error {
	idx := r.call
	r.call++
	if idx >= len(r.steps) {
		idx = len(r.steps) - 1
	}
	step := r.steps[idx]
	_, err := r.eng.ProcessResult(ctx, r.strat, r.item, step.res, step.bar)
	return err
}

func TestRunConservesBalance(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	trades := &memTrades{}
	eng := newTestEngine(clock, store, trades, 10)

	triggered := strategy.Result{
		PreconditionMet:  true,
		MainConditionMet: true,
		Direction:        model.DirectionLong,
		EntryPrice:       fp(100),
		StopLoss:         fp(95),
		TakeProfit:       fp(110),
		CurrentPrice:     fp(99),
	}
	idle := strategy.Result{}

	runner := &scriptedRunner{
		eng:   eng,
		strat: &model.Strategy{ID: 1, Name: "scripted", Active: true, Horizon: model.HorizonShort},
		item:  model.WatchlistItem{ID: 1, Ticker: "THYAO", Market: model.MarketBIST, StrategyID: 1},
		steps: []struct {
			res strategy.Result
			bar model.Candle
		}{
			// Trigger, then touch the entry, then run through the target.
			{triggered, model.Candle{Open: 99, High: 99.5, Low: 98.5, Close: 99}},
			{triggered, model.Candle{Open: 99.5, High: 100.5, Low: 99, Close: 100.2}},
			{triggered, model.Candle{Open: 101, High: 110.5, Low: 101, Close: 109}},
			{idle, model.Candle{Open: 109, High: 109.5, Low: 108, Close: 109}},
		},
	}

	r := NewReplayer(cfg, clock, eng, runner, &fakeCache{}, store, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	all := trades.all()
	if len(all) != 1 {
		t.Fatalf("expected exactly one trade, got %d", len(all))
	}
	if all[0].ExitPrice != 110 || all[0].Profit != 100 {
		t.Fatalf("target exit must settle at the target price: %+v", all[0])
	}

	// Every debit must come back as credit plus realized profit.
	wantBalance := decimal.NewFromFloat(cfg.InitialBalance)
	for _, trade := range all {
		wantBalance = wantBalance.Add(decimal.NewFromFloat(trade.Profit))
	}
	if got := clock.Balance(); !got.Equal(wantBalance) {
		t.Fatalf("balance must equal initial plus total profit: got %s want %s", got, wantBalance)
	}

	stats := clock.Stats()
	if stats.Trades != 1 || stats.Wins != 1 || stats.Losses != 0 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
	if !stats.TotalProfit.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total profit mismatch: %s", stats.TotalProfit)
	}
}

func TestConfigureReshapesReplay(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	cache := &fakeCache{}
	sigWiper, tradeWiper := &fakeWiper{}, &fakeWiper{}
	r := NewReplayer(cfg, clock, newTestEngine(clock, store, &memTrades{}, 10), &noopRunner{}, cache, store, nil, sigWiper, tradeWiper)

	clock.AdvanceHour()
	clock.TryDebit(decimal.NewFromInt(500))

	ctx := context.Background()
	err := r.Configure(ctx, StartParams{
		StartDate:      time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, time.February, 9, 0, 0, 0, 0, time.UTC),
		SecondsPerHour: 2,
		InitialBalance: 5000,
		Backtest:       true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !sigWiper.wiped || !tradeWiper.wiped {
		t.Fatal("configure must wipe the previous run's data")
	}
	if cache.clears == 0 {
		t.Fatal("configure must drop the candle cache")
	}
	if got := clock.Now(); got.Day() != 5 || got.Month() != time.February || got.Hour() != DayStartHour {
		t.Fatalf("clock must rewind to the new start session, got %s", got)
	}
	if !clock.Balance().Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance must adopt the new starting amount, got %s", clock.Balance())
	}
	if !r.Backtest() {
		t.Fatal("backtest mode must be selectable per run")
	}
	if got := r.stepPause(); got != 2*time.Second {
		t.Fatalf("pacing must follow seconds per hour, got %s", got)
	}

	reversed := StartParams{
		StartDate: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := r.Configure(ctx, reversed); err == nil {
		t.Fatal("a reversed date range must be rejected")
	}

	clock.Start()
	if err := r.Configure(ctx, StartParams{}); !errors.Is(err, ErrReplayRunning) {
		t.Fatalf("a running replay must not be reconfigured, got %v", err)
	}
}

func TestManualReplayAwaitsConfirmation(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	trades := &memTrades{}
	eng := newTestEngine(clock, store, trades, 10)

	triggered := strategy.Result{
		PreconditionMet:  true,
		MainConditionMet: true,
		Direction:        model.DirectionLong,
		EntryPrice:       fp(100),
		StopLoss:         fp(95),
		TakeProfit:       fp(110),
		CurrentPrice:     fp(99),
	}
	runner := &scriptedRunner{
		eng:   eng,
		strat: &model.Strategy{ID: 1, Name: "scripted", Active: true, Horizon: model.HorizonShort},
		item:  model.WatchlistItem{ID: 1, Ticker: "THYAO", Market: model.MarketBIST, StrategyID: 1},
		steps: []struct {
			res strategy.Result
			bar model.Candle
		}{
			{triggered, model.Candle{Open: 99, High: 99.5, Low: 98.5, Close: 99}},
			{triggered, model.Candle{Open: 99.5, High: 100.5, Low: 99, Close: 100.2}},
		},
	}

	r := NewReplayer(cfg, clock, eng, runner, &fakeCache{}, store, nil)
	ctx := context.Background()
	if err := r.Configure(ctx, StartParams{Backtest: false}); err != nil {
		t.Fatal(err)
	}

	// Trigger, then touch the entry. Without backtest mode nothing may fill.
	for i := 0; i < 2; i++ {
		if _, err := r.Step(ctx); err != nil {
			t.Fatal(err)
		}
	}

	sig := store.get(1)
	if sig.Status != model.SignalTriggered {
		t.Fatalf("manual mode must not auto-enter, got %s", sig.Status)
	}
	if !sig.EntryReached {
		t.Fatal("the entry touch must still be recorded")
	}
	if !clock.Balance().Equal(decimal.NewFromFloat(cfg.InitialBalance)) {
		t.Fatalf("no fill, no debit: balance %s", clock.Balance())
	}

	// The user confirms the fill; it settles against the simulated account.
	if err := eng.ConfirmEntry(ctx, sig, 100, 10); err != nil {
		t.Fatal(err)
	}
	want := decimal.NewFromFloat(cfg.InitialBalance).Sub(decimal.NewFromInt(1000))
	if got := clock.Balance(); !got.Equal(want) {
		t.Fatalf("confirmed entry must debit the simulated balance: got %s want %s", got, want)
	}
	if store.get(1).Status != model.SignalEntered {
		t.Fatalf("confirmed signal must be entered, got %s", store.get(1).Status)
	}
}

func TestResetWipesStateAndRewinds(t *testing.T) {
	cfg := testConfig()
	clock := NewClock(cfg.StartDate, cfg.EndDate, decimal.NewFromFloat(cfg.InitialBalance))
	store := &memSignals{}
	cache := &fakeCache{}
	sigWiper, tradeWiper := &fakeWiper{}, &fakeWiper{}

	r := NewReplayer(cfg, clock, newTestEngine(clock, store, &memTrades{}, 10), &noopRunner{}, cache, store, nil, sigWiper, tradeWiper)

	clock.AdvanceHour()
	clock.TryDebit(decimal.NewFromInt(500))

	if err := r.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !sigWiper.wiped || !tradeWiper.wiped {
		t.Fatal("reset must wipe signals and trades")
	}
	if cache.clears == 0 {
		t.Fatal("reset must drop the candle cache")
	}
	if got := clock.Now(); got.Hour() != DayStartHour || got.Day() != 2 {
		t.Fatalf("reset must rewind the clock, got %s", got)
	}
	if !clock.Balance().Equal(decimal.NewFromFloat(cfg.InitialBalance)) {
		t.Fatal("reset must restore the balance")
	}
}
