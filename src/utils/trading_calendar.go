package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading days using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// Yahoo-style suffix to MIC code (ISO 10383). Symbols without a known
// suffix trade on NYSE.
var suffixMICs = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".BR": "xbru",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".CO": "xcse",
	".HE": "xhel",
	".VI": "xwbo",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

// -----------------------------------------------------------------------------

// MICForSymbol maps a ticker to the exchange calendar it trades on.
func MICForSymbol(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if mic, ok := suffixMICs[strings.ToUpper(symbol[i:])]; ok {
			return mic
		}
	}
	return "xnys"
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		return NewFallbackCalendar()
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// NewFallbackCalendar trades Mon-Fri 09:30-16:00 in New York.
func NewFallbackCalendar() *TradingCalendar {
	nyLoc, err := time.LoadLocation("America/New_York")
	if err != nil {
		nyLoc = time.UTC
	}
	return &TradingCalendar{Fallback: true, Timezone: nyLoc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour := t.Hour()
		minute := t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// PreviousTradingDay returns midnight of the last trading day strictly before
// the day of now, in the calendar's timezone.
func (tc *TradingCalendar) PreviousTradingDay(now time.Time) time.Time {
	if tc.Timezone != nil {
		now = now.In(tc.Timezone)
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i < 14; i++ {
		day = day.AddDate(0, 0, -1)
		if tc.IsTradingDay(day.Add(12 * time.Hour)) {
			return day
		}
	}
	return day
}

// -----------------------------------------------------------------------------

// SessionHours finds the regular session of a trading day as fractional hours
// in the calendar's timezone, e.g. (9.5, 16). ok is false when the market
// never opens that day.
func (tc *TradingCalendar) SessionHours(day time.Time) (open float64, close float64, ok bool) {
	if tc.Timezone != nil {
		day = day.In(tc.Timezone)
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	first, last := -1, -1
	for minute := 0; minute < 24*60; minute++ {
		if tc.IsOpenOnMinute(midnight.Add(time.Duration(minute) * time.Minute)) {
			if first < 0 {
				first = minute
			}
			last = minute
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return float64(first) / 60, float64(last+1) / 60, true
}

// -----------------------------------------------------------------------------

// IsSameTradingDate reports whether date and now fall on the same calendar
// day in the calendar's timezone.
func (tc *TradingCalendar) IsSameTradingDate(date, now time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
		now = now.In(tc.Timezone)
	}
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
