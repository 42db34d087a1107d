package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATE - Calendar date (day granularity, UTC)
// =============================================================================

// Date is a calendar date. The time-of-day component is always midnight UTC.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.normalize().Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) IsWorkday() bool { return !d.IsWeekend() }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// =============================================================================
// DATE RANGE - Inclusive [Start, End]
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange validates that start is not after end.
func NewDateRange(start, end Date) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Overlaps reports whether two inclusive ranges intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(r.End)
}

// Days returns every date in the range.
func (r DateRange) Days() []Date {
	var days []Date
	for d := r.Start; d.BeforeOrEqual(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// HOLIDAY CALENDAR - Injectable predicate for extensions
// =============================================================================

// HolidayCalendar excludes company holidays from chargeable days. The core
// engine ships only the no-op calendar; weekends are always excluded.
type HolidayCalendar interface {
	IsHoliday(d Date) bool
}

type noHolidays struct{}

func (noHolidays) IsHoliday(Date) bool { return false }

// NoHolidays returns the calendar that declares no holidays.
func NoHolidays() HolidayCalendar { return noHolidays{} }

// =============================================================================
// BUSINESS-DAY CALCULATOR
// =============================================================================

var halfDay = decimal.NewFromFloat(0.5)

// ChargeableDays computes how many working days a request consumes.
//
// Each Monday-Friday date in the range that is not a holiday counts as 1.
// After the full count, 0.5 is subtracted per half-day flag, each only when
// the full count is positive, and the result is floored at zero.
//
// Pure function: no clock, no I/O.
func ChargeableDays(rng DateRange, halfDayStart, halfDayEnd bool, cal HolidayCalendar) decimal.Decimal {
	if cal == nil {
		cal = NoHolidays()
	}

	workdays := 0
	for d := rng.Start; d.BeforeOrEqual(rng.End); d = d.AddDays(1) {
		if d.IsWorkday() && !cal.IsHoliday(d) {
			workdays++
		}
	}

	days := decimal.NewFromInt(int64(workdays))
	if workdays > 0 {
		if halfDayStart {
			days = days.Sub(halfDay)
		}
		if halfDayEnd {
			days = days.Sub(halfDay)
		}
	}
	if days.IsNegative() {
		days = decimal.Zero
	}
	return days
}
