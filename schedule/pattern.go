/*
pattern.go - Pattern validation, construction, and shift generation

PURPOSE:
  Turns a schedule definition into concrete shift occurrences over a date
  range. Generation is a pure walk over calendar days: weekly patterns
  test weekday membership, rotating patterns index into their cycle via
  floor-modulo day arithmetic from the anchor date.

GENERATION CONTRACT:
  - The range is half-open: [from, to)
  - An inactive, soft-deleted, or degenerate pattern generates nothing;
    Validate is the enforcement point for creation-time errors
  - End time is always start + duration, so overnight shifts need no
    day-boundary special case

SEE ALSO:
  - calendar.go: FloorMod / DaysBetween used for cycle indexing
  - preview.go: Same walk, lightweight non-persisted records
*/
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const minutesPerDay = 24 * 60

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks a definition against creation-time rules and returns
// every violation found, empty when the definition is usable.
func Validate(def PatternDefinition) []error {
	var errs []error

	if def.DurationMinutes <= 0 || def.DurationMinutes > minutesPerDay {
		errs = append(errs, &ValidationError{
			Code:    CodeInvalidDuration,
			Message: fmt.Sprintf("duration must be in (0, %d] minutes, got %d", minutesPerDay, def.DurationMinutes),
		})
	}

	switch def.Kind {
	case PatternWeekly:
		if def.Weekdays.IsEmpty() {
			errs = append(errs, &ValidationError{
				Code:    CodeEmptyWeekdaySet,
				Message: "weekly pattern needs at least one weekday",
			})
		}
	case PatternRotating:
		if len(def.Rotation) == 0 {
			errs = append(errs, &ValidationError{
				Code:    CodeEmptyRotationCycle,
				Message: "rotating pattern needs at least one rotation day",
			})
		}
	}

	return errs
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

// BuildPattern constructs a pattern and its rotation days from a
// definition. It does not generate shifts and does not persist anything.
// Callers should Validate first; BuildPattern assumes a usable definition.
func BuildPattern(def PatternDefinition, ownerID string) *SchedulePattern {
	p := &SchedulePattern{
		ID:              NewID(),
		OwnerID:         ownerID,
		Name:            def.Name,
		Kind:            def.Kind,
		StartMinute:     def.StartMinute,
		DurationMinutes: def.DurationMinutes,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}

	switch def.Kind {
	case PatternWeekly:
		p.Weekdays = def.Weekdays
	case PatternRotating:
		p.Anchor = def.Anchor
		p.Rotation = make([]RotationDay, len(def.Rotation))
		for i, rd := range def.Rotation {
			p.Rotation[i] = RotationDay{
				Index:           i,
				Work:            rd.Work,
				Name:            rd.Name,
				StartMinute:     rd.StartMinute,
				DurationMinutes: rd.DurationMinutes,
			}
		}
	}

	return p
}

// =============================================================================
// GENERATION
// =============================================================================

// RotationIndex returns the cycle position of date d for pattern p.
// Correct for dates before the anchor: FloorMod keeps the index in
// [0, cycleLength) for negative day counts.
func RotationIndex(p *SchedulePattern, d Date) int {
	return FloorMod(DaysBetween(p.Anchor, d), p.CycleLength())
}

// GenerateShifts emits one draft shift per working day of the pattern
// over [from, to), ordered by date. Drafts carry a 1.0 rate multiplier,
// no break, and paid minutes equal to their duration; they are not
// persisted and not yet linked to a pay period.
//
// A pattern that cannot generate (inactive, soft-deleted, weekly with an
// empty weekday set) yields an empty list rather than an error.
func GenerateShifts(p *SchedulePattern, from, to Date, ownerID string) []*Shift {
	if !p.Active || p.Deleted() {
		return nil
	}

	var shifts []*Shift
	for d := from; d.Before(to); d = d.AddDays(1) {
		start, duration, ok := occurrenceAt(p, d)
		if !ok {
			continue
		}
		shifts = append(shifts, &Shift{
			ID:             NewID(),
			OwnerID:        ownerID,
			PatternID:      p.ID,
			ScheduledStart: start,
			ScheduledEnd:   start.Add(time.Duration(duration) * time.Minute),
			RateMultiplier: decimal.NewFromInt(1),
			PaidMinutes:    duration,
			Status:         StatusScheduled,
			CreatedAt:      time.Now().UTC(),
		})
	}
	return shifts
}

// occurrenceAt resolves whether pattern p works on day d and with which
// start instant and duration. Shared by generation and preview.
func occurrenceAt(p *SchedulePattern, d Date) (start time.Time, duration int, ok bool) {
	switch p.Kind {
	case PatternWeekly:
		if !p.Weekdays.Contains(d.Weekday()) {
			return time.Time{}, 0, false
		}
		return d.AtMinute(p.StartMinute), p.DurationMinutes, true

	case PatternRotating:
		if p.CycleLength() == 0 {
			return time.Time{}, 0, false
		}
		rd := p.Rotation[RotationIndex(p, d)]
		if !rd.Work {
			return time.Time{}, 0, false
		}
		minute := p.StartMinute
		if rd.StartMinute != nil {
			minute = *rd.StartMinute
		}
		duration = p.DurationMinutes
		if rd.DurationMinutes != nil {
			duration = *rd.DurationMinutes
		}
		return d.AtMinute(minute), duration, true
	}

	return time.Time{}, 0, false
}
