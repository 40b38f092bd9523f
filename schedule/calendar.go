package schedule

import (
	"time"
)

// =============================================================================
// DATE - Day-granular calendar value (always UTC)
// =============================================================================

// Date is a calendar day with no time-of-day component. All calendar
// arithmetic in the engine runs on Date values in a single consistent
// calendar; instants (shift starts/ends) are time.Time in UTC derived
// from a Date plus a minute-of-day offset.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// AtMinute returns the instant minute-of-day minutes after midnight of d.
// minute may exceed 1439; the instant simply rolls into the next day.
func (d Date) AtMinute(minute int) time.Time {
	return d.Time.Add(time.Duration(minute) * time.Minute)
}

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// =============================================================================
// CALENDAR MATH - Pure, total functions. No state, no errors.
// =============================================================================

// StartOfWeek returns the Monday of the week containing d.
func StartOfWeek(d Date) Date {
	// time.Weekday has Sunday == 0; shift so Monday == 0.
	offset := FloorMod(int(d.Weekday())-1, 7)
	return d.AddDays(-offset)
}

func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

func EndOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1).AddMonths(1).AddDays(-1)
}

// DaysBetween returns b - a in whole days. Negative when b precedes a.
func DaysBetween(a, b Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}

// FloorMod returns n mod m in [0, m) for any sign of n. The built-in %
// truncates toward zero, which would misindex rotation cycles for dates
// before the anchor.
func FloorMod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}

// FloorDiv returns n / m rounded toward negative infinity.
func FloorDiv(n, m int) int {
	q := n / m
	if (n%m != 0) && ((n < 0) != (m < 0)) {
		q--
	}
	return q
}
