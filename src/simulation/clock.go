package simulation

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalscanner/src/model"
)

const (
	DayStartHour   = 9
	DayStartMinute = 30
	DayEndHour     = 18
)

// Clock is the virtual time and balance account of a replay. It advances in
// whole hours through a trading day, completes the day at the end hour, and
// skips weekends. It also implements engine.Ledger, so automatic entries and
// exits settle against the simulated balance.
type Clock struct {
	Log *logger.Entry

	mu      sync.Mutex
	running bool
	paused  bool

	current   time.Time
	startDate time.Time
	endDate   time.Time

	initialBalance decimal.Decimal
	balance        decimal.Decimal

	trades      int
	wins        int
	losses      int
	totalProfit decimal.Decimal
}

func NewClock(startDate, endDate time.Time, initialBalance decimal.Decimal) *Clock {
	c := &Clock{
		Log:            logger.WithField("component", "simclock"),
		startDate:      startDate,
		endDate:        endDate,
		initialBalance: initialBalance,
		balance:        initialBalance,
	}
	c.current = sessionStart(skipWeekend(startDate))
	return c
}

func sessionStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), DayStartHour, DayStartMinute, 0, 0, day.Location())
}

func skipWeekend(day time.Time) time.Time {
	switch day.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	default:
		return day
	}
}

func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.paused = false
	c.Log.WithField("at", c.current).Info("simulation clock started")
}

func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.Log.WithField("at", c.current).Info("simulation clock stopped")
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && !c.paused
}

// Now is the virtual instant. Safe for use as the scanner's clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AdvanceHour moves one hour forward and reports whether the trading day is
// now complete.
func (c *Clock) AdvanceHour() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Hour)
	return c.current, c.current.Hour() >= DayEndHour
}

// NextDay jumps to the session start of the next weekday.
func (c *Clock) NextDay() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := skipWeekend(c.current.AddDate(0, 0, 1))
	c.current = sessionStart(next)
	c.Log.WithField("day", c.current.Format("2006-01-02")).Info("simulation advanced to next trading day")
	return c.current
}

// Done reports whether the virtual clock has run past the configured end.
func (c *Clock) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.After(c.endDate)
}

// ----- engine.Ledger -----

func (c *Clock) TryDebit(amount decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balance.LessThan(amount) {
		return false
	}
	c.balance = c.balance.Sub(amount)
	return true
}

func (c *Clock) Credit(amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance = c.balance.Add(amount)
}

func (c *Clock) RecordTrade(result model.TradeResult, profit decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades++
	switch result {
	case model.TradeWin:
		c.wins++
	case model.TradeLoss:
		c.losses++
	}
	c.totalProfit = c.totalProfit.Add(profit)
}

func (c *Clock) Balance() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Stats is a snapshot of the replay accounting.
type Stats struct {
	CurrentTime    time.Time       `json:"current_time"`
	Running        bool            `json:"running"`
	Paused         bool            `json:"paused"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Balance        decimal.Decimal `json:"balance"`
	Trades         int             `json:"trades"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	WinRate        float64         `json:"win_rate"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
}

func (c *Clock) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	winRate := 0.0
	if decided := c.wins + c.losses; decided > 0 {
		winRate = float64(c.wins) / float64(decided) * 100
	}
	return Stats{
		CurrentTime:    c.current,
		Running:        c.running,
		Paused:         c.paused,
		InitialBalance: c.initialBalance,
		Balance:        c.balance,
		Trades:         c.trades,
		Wins:           c.wins,
		Losses:         c.losses,
		WinRate:        winRate,
		TotalProfit:    c.totalProfit,
	}
}

// Configure rebinds the range and starting balance, then rewinds. Zero
// values keep the current setting.
func (c *Clock) Configure(start, end time.Time, balance float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !start.IsZero() {
		c.startDate = start
	}
	if !end.IsZero() {
		c.endDate = end
	}
	if balance > 0 {
		c.initialBalance = decimal.NewFromFloat(balance)
	}
	c.current = sessionStart(skipWeekend(c.startDate))
	c.balance = c.initialBalance
	c.trades, c.wins, c.losses = 0, 0, 0
	c.totalProfit = decimal.Zero
	c.running = false
	c.paused = false
	c.Log.WithFields(logger.Fields{
		"start":   c.startDate.Format("2006-01-02"),
		"end":     c.endDate.Format("2006-01-02"),
		"balance": c.initialBalance,
	}).Info("simulation clock configured")
}

// Reset rewinds the clock and the account to the configured start.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = sessionStart(skipWeekend(c.startDate))
	c.balance = c.initialBalance
	c.trades, c.wins, c.losses = 0, 0, 0
	c.totalProfit = decimal.Zero
	c.running = false
	c.paused = false
	c.Log.Info("simulation clock reset")
}
