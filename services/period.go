package services

import (
	"strings"
	"time"

	"github.com/LovationAdmin/family-budget-api/models"
)

// PeriodStart returns the inclusive lower boundary of the period of the given
// kind that contains now, at 00:00 in now's location. The upper boundary is now.
//
// Weeks start on Sunday. Any kind other than week or year, including unknown
// values, resolves to the first day of the month.
func PeriodStart(kind models.PeriodKind, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()

	switch kind {
	case models.PeriodWeek:
		return time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, loc)
	case models.PeriodYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	}
}

// NormalizePeriod maps user input onto week, month or year. Anything else is month.
func NormalizePeriod(raw string) models.PeriodKind {
	switch kind := models.PeriodKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case models.PeriodWeek, models.PeriodYear:
		return kind
	default:
		return models.PeriodMonth
	}
}

// inclusiveEnd turns a date-only end, exactly midnight in its own location,
// into the last instant of that day. Any other time is kept as is.
func inclusiveEnd(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}

// ThreadWindow returns the aggregation window of a budget thread. Custom
// threads use their stored dates, with a date-only end covering its whole
// day; every other kind starts at PeriodStart and has no upper bound.
func ThreadWindow(b models.Budget, now time.Time) (start, end *time.Time) {
	if b.IsCustom {
		if b.EndDate == nil {
			return b.StartDate, nil
		}
		e := inclusiveEnd(*b.EndDate)
		return b.StartDate, &e
	}
	s := PeriodStart(b.Kind, now)
	return &s, nil
}
