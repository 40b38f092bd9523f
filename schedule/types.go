/*
Package schedule provides the core scheduling engine.

PURPOSE:
  This package turns recurring schedule definitions (weekly masks or
  rotating cycles) into concrete shift occurrences using nothing but
  calendar arithmetic. Generation is deterministic: the same pattern and
  date range always produce the same occurrences, which is what makes
  downstream payroll aggregation reproducible under repeated mutation.

KEY CONCEPTS IN THIS FILE (types.go):
  - SchedulePattern: A recurring-schedule template (weekly or rotating)
  - RotationDay: One position in a rotating pattern's cycle
  - Shift: One concrete occurrence, with cached computed pay fields
  - Date: A day-granular calendar value (calendar.go)

DESIGN PRINCIPLES:
  1. Determinism: generation is a pure function of pattern + range
  2. Soft delete: entities are marked deleted, never removed; every
     consumer filters on DeletedAt
  3. Tagged values over inheritance: a shift's rate is a
     (multiplier, label) pair, not a subclass per rate type
  4. Precision: pay math uses decimal.Decimal, never float

SEE ALSO:
  - calendar.go: Date type and pure calendar math
  - pattern.go: Validation, construction, and shift generation
  - preview.go: Lazy projection sequence for UI preview
*/
package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE PATTERN
// =============================================================================

type PatternKind string

const (
	PatternWeekly   PatternKind = "weekly"
	PatternRotating PatternKind = "rotating"
)

// WeekdaySet is the set of weekdays a weekly pattern fires on.
type WeekdaySet map[time.Weekday]bool

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	s := make(WeekdaySet, len(days))
	for _, d := range days {
		s[d] = true
	}
	return s
}

func (s WeekdaySet) Contains(d time.Weekday) bool { return s[d] }
func (s WeekdaySet) IsEmpty() bool                { return len(s) == 0 }

// Days returns the members in Sunday..Saturday order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s[d] {
			days = append(days, d)
		}
	}
	return days
}

// SchedulePattern is a recurring-schedule template owned by one profile.
//
// INVARIANTS:
//   - rotating: Rotation indices are a contiguous 0..N-1 range, N >= 1
//   - weekly: a usable pattern has a non-empty weekday set
//
// Validate enforces these at creation time; generation treats a violating
// pattern as producing no occurrences rather than failing.
type SchedulePattern struct {
	ID      string
	OwnerID string
	Name    string
	Kind    PatternKind

	// Defaults applied to every generated occurrence unless a rotation
	// day overrides them.
	StartMinute     int // minute of day, 0..1439
	DurationMinutes int

	// Weekly only.
	Weekdays WeekdaySet

	// Rotating only.
	Anchor   Date
	Rotation []RotationDay

	Active    bool
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (p *SchedulePattern) Deleted() bool { return p.DeletedAt != nil }

// CycleLength returns the rotation cycle length, 0 for weekly patterns.
func (p *SchedulePattern) CycleLength() int { return len(p.Rotation) }

// RotationDay is one position in a rotating pattern's cycle. It is
// exclusively owned by its pattern: created and destroyed with it.
type RotationDay struct {
	Index int
	Work  bool

	// Optional overrides; nil means "use the pattern default".
	Name            string
	StartMinute     *int
	DurationMinutes *int
}

// =============================================================================
// PATTERN DEFINITION - Caller-supplied input, validated before construction
// =============================================================================

// PatternDefinition is the raw input to Validate/BuildPattern/Preview.
type PatternDefinition struct {
	Name            string
	Kind            PatternKind
	StartMinute     int
	DurationMinutes int
	Weekdays        WeekdaySet
	Anchor          Date
	Rotation        []RotationDayDefinition
}

type RotationDayDefinition struct {
	Work            bool
	Name            string
	StartMinute     *int
	DurationMinutes *int
}

// =============================================================================
// SHIFT - One concrete occurrence
// =============================================================================

type ShiftStatus string

const (
	StatusScheduled  ShiftStatus = "scheduled"
	StatusInProgress ShiftStatus = "in_progress"
	StatusCompleted  ShiftStatus = "completed"
	StatusCancelled  ShiftStatus = "cancelled" // terminal
)

// Shift is one concrete work occurrence. PaidMinutes and PremiumMinutes
// are cached derived values: every mutation that touches duration, break,
// or rate must re-run the hours calculator before the shift is persisted.
//
// INVARIANTS:
//   - ScheduledEnd > ScheduledStart
//   - 0 <= BreakMinutes < scheduled duration in minutes
//   - 0 <= PremiumMinutes <= PaidMinutes <= effective duration
type Shift struct {
	ID      string
	OwnerID string

	// Optional provenance / linkage.
	PatternID string // pattern that generated this shift, if any
	PeriodID  string // covering pay period, set by assignment

	ScheduledStart time.Time
	ScheduledEnd   time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time

	BreakMinutes   int
	RateMultiplier decimal.Decimal // >= 1.0
	RateLabel      string

	// Cached, recomputed on every mutation.
	PaidMinutes    int
	PremiumMinutes int

	Status    ShiftStatus
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (s *Shift) Deleted() bool { return s.DeletedAt != nil }

// EffectiveDurationMinutes is the actual clocked duration when both clock
// events exist, otherwise the scheduled duration.
func (s *Shift) EffectiveDurationMinutes() int {
	if s.ActualStart != nil && s.ActualEnd != nil {
		return int(s.ActualEnd.Sub(*s.ActualStart).Minutes())
	}
	return int(s.ScheduledEnd.Sub(s.ScheduledStart).Minutes())
}

// Overlaps reports whether the scheduled windows of two shifts intersect.
func (s *Shift) Overlaps(other *Shift) bool {
	return s.ScheduledStart.Before(other.ScheduledEnd) && other.ScheduledStart.Before(s.ScheduledEnd)
}

// ClockIn records the actual start and moves the shift to in-progress.
// Only a scheduled shift can clock in.
func (s *Shift) ClockIn(at time.Time) error {
	if s.Status != StatusScheduled {
		return &ValidationError{Code: CodeInvalidStatusTransition,
			Message: "clock-in requires a scheduled shift, have " + string(s.Status)}
	}
	t := at.UTC()
	s.ActualStart = &t
	s.Status = StatusInProgress
	return nil
}

// ClockOut records the actual end and completes the shift. The caller must
// re-run the hours calculator afterwards.
func (s *Shift) ClockOut(at time.Time) error {
	if s.Status != StatusInProgress {
		return &ValidationError{Code: CodeInvalidStatusTransition,
			Message: "clock-out requires an in-progress shift, have " + string(s.Status)}
	}
	t := at.UTC()
	if s.ActualStart != nil && !t.After(*s.ActualStart) {
		return &ValidationError{Code: CodeInvalidDuration,
			Message: "clock-out must be after clock-in"}
	}
	s.ActualEnd = &t
	s.Status = StatusCompleted
	return nil
}

// Cancel moves the shift to the terminal cancelled state.
func (s *Shift) Cancel() error {
	switch s.Status {
	case StatusCancelled, StatusCompleted:
		return &ValidationError{Code: CodeInvalidStatusTransition,
			Message: "cannot cancel a " + string(s.Status) + " shift"}
	}
	s.Status = StatusCancelled
	return nil
}

// NewID mints an identifier for any engine entity.
func NewID() string { return uuid.NewString() }
