/*
Package payroll provides hours computation, pay-period management, and
overtime projection on top of the schedule package.

PURPOSE:
  Groups shift occurrences into payroll windows that tile the timeline
  without gaps or overlaps, computes paid/premium/regular minutes and
  projected pay, and classifies overtime risk for the in-progress window.

KEY CONCEPTS:
  - Cadence: weekly, biweekly, or monthly payroll windows
  - PayPeriod: one aggregation window; a shift belongs to exactly one
  - Summary / RateGroup: aggregate minutes and per-rate pay breakdown
  - Prediction: linear end-of-window projection with a warning ladder

MONEY:
  All pay amounts are integer minor-currency units (cents). Intermediate
  math uses decimal.Decimal; rounding happens once per shift, never on
  aggregates, because the rate multiplier varies per shift.

SEE ALSO:
  - hours.go: The canonical paid/premium-minutes rules
  - period.go: Window bounds, find-or-create, assignment
  - overtime.go: Projection and warning ladder
  - store.go: Persistence contract consumed by the engine
*/
package payroll

import (
	"time"

	"github.com/shiftwise/payroll-engine/schedule"
)

// =============================================================================
// CADENCE & PROFILE
// =============================================================================

// Cadence is the payroll window type.
type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
)

// Profile is the read-only owner configuration consumed by the engine:
// cadence, the reference date anchoring biweekly windows, and an optional
// base hourly rate. It is supplied by an external collaborator and passed
// explicitly into every call that needs it, never read from globals.
type Profile struct {
	OwnerID       string
	Cadence       Cadence
	ReferenceDate schedule.Date // biweekly anchor
	BaseRateCents *int64        // nil when the owner has no rate configured
}

// =============================================================================
// PAY PERIOD
// =============================================================================

// PayPeriod is one payroll aggregation window for one owner.
//
// INVARIANTS:
//   - For a given owner and cadence, periods tile the timeline: no gaps,
//     no overlaps
//   - Bounds are inclusive on both ends
//   - Aggregates are recomputed from linked shifts, never incremented
type PayPeriod struct {
	ID      string
	OwnerID string
	Start   schedule.Date
	End     schedule.Date

	PaidMinutes       int
	PremiumMinutes    int
	EstimatedPayCents int64

	CreatedAt time.Time
	DeletedAt *time.Time
}

func (p *PayPeriod) Deleted() bool { return p.DeletedAt != nil }

// Contains reports whether d falls within [Start, End].
func (p *PayPeriod) Contains(d schedule.Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// LengthDays is the inclusive window length in days.
func (p *PayPeriod) LengthDays() int {
	return schedule.DaysBetween(p.Start, p.End) + 1
}

// =============================================================================
// AGGREGATES
// =============================================================================

// Summary is the aggregate result over a collection of shifts.
// regular + premium == total paid, exactly.
type Summary struct {
	TotalPaidMinutes  int
	PremiumMinutes    int
	RegularMinutes    int
	EstimatedPayCents int64
}

// RateGroup is one (multiplier, label) bucket of a rate breakdown.
type RateGroup struct {
	Multiplier        string // decimal string, e.g. "1.5"
	Label             string
	Minutes           int
	PercentOfTotal    float64
	EstimatedPayCents int64
}

// =============================================================================
// OVERTIME PROJECTION
// =============================================================================

// Thresholds configures the warning ladder, in hours.
type Thresholds struct {
	WarningHours  float64
	CriticalHours float64
}

// WarningLevel classifies overtime risk. Levels are checked in order;
// the first matching rung wins.
type WarningLevel string

const (
	LevelExceeded    WarningLevel = "exceeded"
	LevelCritical    WarningLevel = "critical"
	LevelWarning     WarningLevel = "warning"
	LevelApproaching WarningLevel = "approaching"
	LevelNone        WarningLevel = "none"
)

// Prediction is the projector's output for one period.
type Prediction struct {
	PeriodID string

	// Complete is set when the period is not the current one; no
	// projection is produced in that case.
	Complete bool

	CurrentHours   float64
	AveragePerDay  float64
	ProjectedHours float64
	DaysElapsed    int
	DaysRemaining  int

	Level WarningLevel

	// RecommendedDailyHours is nil when no days remain.
	RecommendedDailyHours *float64
}

// =============================================================================
// CLOCK - Injected "current instant" collaborator
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock pins "now" for tests and replays.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
