package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"signalscanner/src/model"
)

// ----- session labels -----

type Session string

const (
	SessionOpen           Session = "open"
	SessionClosed         Session = "closed"
	SessionWeekendHoliday Session = "weekend_holiday"

	MarketOpenHour    = 9
	MarketOpenMinute  = 30
	MarketCloseHour   = 18
	DaysPerWeek       = 7
	OffsetForSunday   = 1
	NewYearDay        = 1
	RepublicDay       = 29
	VictoryDay        = 30
	NationalChildrens = 23
)

// DetectSession classifies an instant for a market. Crypto trades around the
// clock; Istanbul equities trade 09:30 to 18:00 local time on non-holiday
// weekdays.
func DetectSession(market model.Market, now time.Time) Session {
	if market == model.MarketBinance {
		return SessionOpen
	}

	ist := istanbulTime(now)

	if ist.Weekday() == time.Saturday || ist.Weekday() == time.Sunday || isBISTHoliday(ist) {
		return SessionWeekendHoliday
	}
	if withinSessionHours(ist) {
		return SessionOpen
	}
	return SessionClosed
}

// IsMarketOpen reports whether orders on the market would fill right now.
func IsMarketOpen(market model.Market, now time.Time) bool {
	return DetectSession(market, now) == SessionOpen
}

// SessionOver reports whether the market's trading day is behind us: the
// close has passed, or the day never had a session. Pre-open hours return
// false. A market that never closes has no day end.
func SessionOver(market model.Market, now time.Time) bool {
	if market == model.MarketBinance {
		return false
	}

	ist := istanbulTime(now)
	if ist.Weekday() == time.Saturday || ist.Weekday() == time.Sunday || isBISTHoliday(ist) {
		return true
	}
	return ist.Hour() >= MarketCloseHour
}

// NextSessionOpen returns the next instant the market accepts orders. For a
// market that never closes it returns now unchanged.
func NextSessionOpen(market model.Market, now time.Time) time.Time {
	if market == model.MarketBinance {
		return now
	}

	ist := istanbulTime(now)
	candidate := time.Date(ist.Year(), ist.Month(), ist.Day(), MarketOpenHour, MarketOpenMinute, 0, 0, ist.Location())
	if !ist.Before(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for candidate.Weekday() == time.Saturday || candidate.Weekday() == time.Sunday || isBISTHoliday(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// ----- position sizing -----

// PositionCost is price times lot count, computed in decimal so balance
// arithmetic never drifts.
func PositionCost(price, lots float64) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(lots))
}

// CanAfford reports whether the balance covers the position cost.
func CanAfford(balance decimal.Decimal, price, lots float64) bool {
	if lots <= 0 || price <= 0 {
		return false
	}
	return balance.GreaterThanOrEqual(PositionCost(price, lots))
}

// MaxAffordableLots is the largest lot count the balance covers at the given
// price. Zero when the price is not positive.
func MaxAffordableLots(balance decimal.Decimal, price float64) int {
	if price <= 0 || balance.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	lots := balance.Div(decimal.NewFromFloat(price)).IntPart()
	if lots < 0 {
		return 0
	}
	return int(lots)
}

// PositionProfit is the signed profit of closing lots at exitPrice against
// actualEntry, long gaining on rises and short on falls.
func PositionProfit(direction model.Direction, actualEntry, exitPrice, lots float64) decimal.Decimal {
	delta := decimal.NewFromFloat(exitPrice).Sub(decimal.NewFromFloat(actualEntry))
	if direction == model.DirectionShort {
		delta = delta.Neg()
	}
	return delta.Mul(decimal.NewFromFloat(lots))
}

// ----- helpers -----

func istanbulTime(t time.Time) time.Time {
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

func withinSessionHours(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	if h < MarketOpenHour || h >= MarketCloseHour {
		return false
	}
	if h == MarketOpenHour && m < MarketOpenMinute {
		return false
	}
	return true
}

// isBISTHoliday covers the fixed national holidays. Religious holidays move
// with the lunar calendar and are not modeled here.
func isBISTHoliday(t time.Time) bool {
	year := t.Year()

	holidays := []time.Time{
		time.Date(year, time.January, NewYearDay, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.April, NationalChildrens, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.May, 19, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.July, 15, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.August, VictoryDay, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.October, RepublicDay, 0, 0, 0, 0, time.UTC),
	}
	return isDateAmong(t, holidays)
}

// isDateAmong checks if the given date matches any date in the list.
func isDateAmong(t time.Time, dates []time.Time) bool {
	for _, d := range dates {
		if t.Format("2006-01-02") == d.Format("2006-01-02") {
			return true
		}
	}
	return false
}
