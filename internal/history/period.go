package history

import (
	"sort"
	"time"
)

// Period is a concrete [Start, End] window, both dates inclusive.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodTable maps an event year to its window.
type PeriodTable struct {
	periods  map[int]Period
	fallback Period
}

// NewPeriodTable copies periods into an immutable table. Unknown years resolve to fallback.
func NewPeriodTable(periods map[int]Period, fallback Period) *PeriodTable {
	t := &PeriodTable{periods: make(map[int]Period, len(periods)), fallback: fallback}
	for y, p := range periods {
		t.periods[y] = p
	}
	return t
}

// DefaultPeriods returns the built-in event windows. 2025 ("current
// challenges") uses 2023 data, the latest complete year when it was defined.
func DefaultPeriods() *PeriodTable {
	return NewPeriodTable(map[int]Period{
		1990: calendarYear(1990),
		2000: calendarYear(2000),
		2008: calendarYear(2008),
		2020: calendarYear(2020),
		2025: calendarYear(2023),
	}, calendarYear(1990))
}

// PeriodFor returns the window for year, or the fallback window.
func (t *PeriodTable) PeriodFor(year int) (start, end time.Time) {
	p, ok := t.periods[year]
	if !ok {
		p = t.fallback
	}
	return p.Start, p.End
}

// Known reports whether year has an explicit entry.
func (t *PeriodTable) Known(year int) bool {
	_, ok := t.periods[year]
	return ok
}

// Years lists the explicit event years in ascending order.
func (t *PeriodTable) Years() []int {
	years := make([]int, 0, len(t.periods))
	for y := range t.periods {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func calendarYear(y int) Period {
	return Period{
		Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
}
