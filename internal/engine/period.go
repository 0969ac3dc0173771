package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"market-engine/internal/history"
	"market-engine/internal/model"
	"market-engine/internal/synth"
)

// firstYear is the earliest year of the "max" window.
const firstYear = 1990

// MaxWindowDays bounds any requested window, inclusive of both ends. It fits
// 200 calendar years.
const MaxWindowDays = 200 * 366

// ParsePeriod resolves a period token against now:
//
//	"" | "max"   1990-01-01 .. Dec 31 of now's year
//	"ytd"        Jan 1 of now's year .. now
//	"<N>y"       N years back .. now
//	"<N>mo"      N months back .. now
//	"<N>d"       N days back .. now
//	"<YYYY>"     the event window for that year (unknown years use the fallback window)
//
// Both bounds are inclusive UTC days. Windows longer than MaxWindowDays are
// rejected with ErrBadPeriod.
func ParsePeriod(token string, now time.Time, periods *history.PeriodTable) (start, end time.Time, err error) {
	token = strings.ToLower(strings.TrimSpace(token))
	today := model.Day(now)

	switch {
	case token == "" || token == "max":
		return time.Date(firstYear, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC), nil
	case token == "ytd":
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today, nil
	case len(token) == 4 && isDigits(token):
		year, _ := strconv.Atoi(token)
		start, end = periods.PeriodFor(year)
		return start, end, nil
	}

	for _, u := range []struct {
		suffix string
		limit  int
		back   func(n int) time.Time
	}{
		{"mo", 200 * 12, func(n int) time.Time { return today.AddDate(0, -n, 0) }},
		{"y", 200, func(n int) time.Time { return today.AddDate(-n, 0, 0) }},
		{"d", MaxWindowDays - 1, func(n int) time.Time { return today.AddDate(0, 0, -n) }},
	} {
		num, ok := strings.CutSuffix(token, u.suffix)
		if !ok || !isDigits(num) {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil || n <= 0 || n > u.limit {
			break
		}
		return u.back(n), today, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadPeriod, token)
}

// checkWindow rejects windows longer than MaxWindowDays.
func checkWindow(start, end time.Time) error {
	if days := synth.DaysBetween(start, end) + 1; days > MaxWindowDays {
		return fmt.Errorf("%w: %d days", ErrWindowTooLong, days)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
