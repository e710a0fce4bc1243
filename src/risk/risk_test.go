package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signalscanner/src/model"
)

func istDate(year int, month time.Month, day, hour, minute int) time.Time {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		// fallback. still deterministic. hours will be interpreted as UTC
		return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc)
}

func TestDetectSessionBIST(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want Session
	}{
		{
			name: "Tuesday mid-session",
			at:   istDate(2025, time.March, 4, 11, 0),
			want: SessionOpen,
		},
		{
			name: "Tuesday before the open",
			at:   istDate(2025, time.March, 4, 9, 15),
			want: SessionClosed,
		},
		{
			name: "Tuesday exactly at the open",
			at:   istDate(2025, time.March, 4, 9, 30),
			want: SessionOpen,
		},
		{
			name: "Tuesday at the close",
			at:   istDate(2025, time.March, 4, 18, 0),
			want: SessionClosed,
		},
		{
			name: "Saturday",
			at:   istDate(2025, time.March, 8, 12, 0),
			want: SessionWeekendHoliday,
		},
		{
			name: "Sunday",
			at:   istDate(2025, time.March, 9, 12, 0),
			want: SessionWeekendHoliday,
		},
		{
			name: "Republic Day",
			at:   istDate(2025, time.October, 29, 12, 0),
			want: SessionWeekendHoliday,
		},
		{
			name: "May Day",
			at:   istDate(2025, time.May, 1, 12, 0),
			want: SessionWeekendHoliday,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectSession(model.MarketBIST, tt.at)
			if got != tt.want {
				t.Fatalf("DetectSession(%v) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestDetectSessionCryptoAlwaysOpen(t *testing.T) {
	instants := []time.Time{
		istDate(2025, time.March, 8, 3, 0),   // Saturday
		istDate(2025, time.October, 29, 2, 0), // holiday
		istDate(2025, time.March, 4, 23, 0),  // after equity close
	}
	for _, at := range instants {
		if !IsMarketOpen(model.MarketBinance, at) {
			t.Fatalf("crypto market must be open at %v", at)
		}
	}
}

func TestNextSessionOpen(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "before the open on a weekday",
			at:   istDate(2025, time.March, 4, 8, 0),
			want: istDate(2025, time.March, 4, 9, 30),
		},
		{
			name: "mid-session rolls to next day",
			at:   istDate(2025, time.March, 4, 11, 0),
			want: istDate(2025, time.March, 5, 9, 30),
		},
		{
			name: "Friday evening skips the weekend",
			at:   istDate(2025, time.March, 7, 19, 0),
			want: istDate(2025, time.March, 10, 9, 30),
		},
		{
			name: "holiday eve skips the holiday",
			at:   istDate(2025, time.October, 28, 19, 0),
			want: istDate(2025, time.October, 30, 9, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextSessionOpen(model.MarketBIST, tt.at)
			if !got.Equal(tt.want) {
				t.Fatalf("NextSessionOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	now := istDate(2025, time.March, 8, 12, 0)
	if got := NextSessionOpen(model.MarketBinance, now); !got.Equal(now) {
		t.Fatalf("crypto NextSessionOpen must be now, got %v", got)
	}
}

func TestPositionCostAndAffordability(t *testing.T) {
	cost := PositionCost(10.25, 4)
	if !cost.Equal(decimal.RequireFromString("41")) {
		t.Fatalf("PositionCost(10.25, 4) = %s, want 41", cost)
	}

	balance := decimal.RequireFromString("100")
	if !CanAfford(balance, 10.25, 4) {
		t.Fatal("41 must be affordable with 100")
	}
	if CanAfford(balance, 10.25, 10) {
		t.Fatal("102.5 must not be affordable with 100")
	}
	if CanAfford(balance, 10.25, 0) || CanAfford(balance, -1, 4) {
		t.Fatal("degenerate sizes must not be affordable")
	}

	if got := MaxAffordableLots(balance, 10.25); got != 9 {
		t.Fatalf("MaxAffordableLots(100, 10.25) = %d, want 9", got)
	}
	if got := MaxAffordableLots(balance, 0); got != 0 {
		t.Fatalf("MaxAffordableLots with zero price = %d, want 0", got)
	}
}

func TestPositionProfit(t *testing.T) {
	tests := []struct {
		name      string
		direction model.Direction
		entry     float64
		exit      float64
		lots      float64
		want      string
	}{
		{"long gain", model.DirectionLong, 100, 104, 10, "40"},
		{"long loss", model.DirectionLong, 100, 98, 10, "-20"},
		{"short gain", model.DirectionShort, 100, 96, 5, "20"},
		{"short loss", model.DirectionShort, 100, 103, 5, "-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionProfit(tt.direction, tt.entry, tt.exit, tt.lots)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("PositionProfit = %s, want %s", got, tt.want)
			}
		})
	}
}
