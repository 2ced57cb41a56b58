package utils

import (
	"raindrop-charts/src/logger"
	"sync"
	"time"
)

// MarketScheduler caches one trading calendar per exchange and answers the
// questions the dashboard asks about a symbol's session.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar // keyed by MIC
	Logger    *logger.Logger
	Now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(l *logger.Logger) *MarketScheduler {
	return &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		Now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// CalendarFor returns the calendar of symbol's exchange, loading it on first
// use.
func (ms *MarketScheduler) CalendarFor(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	ms.mu.RLock()
	cal, ok := ms.Calendars[mic]
	ms.mu.RUnlock()
	if ok {
		return cal
	}

	cal = GetCalendar(symbol)

	ms.mu.Lock()
	if cached, ok := ms.Calendars[mic]; ok {
		cal = cached
	} else {
		ms.Calendars[mic] = cal
	}
	count := len(ms.Calendars)
	ms.mu.Unlock()

	ms.Logger.Debug("MarketScheduler: Mapped %s to %s (%d exchanges cached)", symbol, mic, count)
	return cal
}

// -----------------------------------------------------------------------------

// DefaultDate is the previous trading day of symbol's exchange.
func (ms *MarketScheduler) DefaultDate(symbol string) time.Time {
	return ms.CalendarFor(symbol).PreviousTradingDay(ms.Now())
}

// -----------------------------------------------------------------------------

// IsLive reports whether a chart for date should keep refreshing: the date is
// today on the symbol's exchange and the market is open right now.
func (ms *MarketScheduler) IsLive(symbol string, date time.Time) bool {
	cal := ms.CalendarFor(symbol)
	now := ms.Now()
	return cal.IsSameTradingDate(date, now) && cal.IsOpenOnMinute(now)
}

// -----------------------------------------------------------------------------

// IsToday reports whether date is today on the symbol's exchange.
func (ms *MarketScheduler) IsToday(symbol string, date time.Time) bool {
	return ms.CalendarFor(symbol).IsSameTradingDate(date, ms.Now())
}

// -----------------------------------------------------------------------------

// Location is the exchange timezone of symbol.
func (ms *MarketScheduler) Location(symbol string) *time.Location {
	cal := ms.CalendarFor(symbol)
	if cal.Timezone == nil {
		return time.UTC
	}
	return cal.Timezone
}
