/*
period.go - Pay-period boundaries, find-or-create, and shift assignment

PURPOSE:
  Computes payroll-window boundaries for a cadence, lazily creates the
  window covering a date, links shifts to windows, and keeps window
  aggregates consistent by recomputing them from linked shifts.

TILING:
  For a given owner and cadence, periods tile the timeline: consecutive
  windows satisfy end + 1 day == next start, with no gaps or overlaps.
  Weekly windows are Monday-based; biweekly windows are anchored on the
  profile's reference date via floor division (correct before the
  reference date too); monthly windows cover exact calendar months.

CONCURRENCY:
  Find-or-create is a check-then-act sequence, so the engine serializes
  all mutating operations per owner with an owner-scoped mutex. Without
  it, two concurrent calls could create overlapping windows and break
  the tiling invariant.

RECALCULATION:
  Aggregates are always recomputed from the full set of non-deleted
  linked shifts, never incremented. That makes AssignToPeriod idempotent:
  a second call with an unchanged shift produces the same linkage and
  numerically identical aggregates.
*/
package payroll

import (
	"context"
	"sync"
	"time"

	"github.com/shiftwise/payroll-engine/schedule"
)

// =============================================================================
// PERIOD BOUNDS - Pure cadence arithmetic
// =============================================================================

// PeriodBounds returns the inclusive [start, end] of the payroll window
// containing date. reference is only consulted for biweekly cadence.
func PeriodBounds(date schedule.Date, cadence Cadence, reference schedule.Date) (schedule.Date, schedule.Date) {
	switch cadence {
	case CadenceBiweekly:
		// Floor division keeps alignment for dates before the reference.
		n := schedule.FloorDiv(schedule.DaysBetween(reference, date), 14)
		start := reference.AddDays(14 * n)
		return start, start.AddDays(13)

	case CadenceMonthly:
		return schedule.StartOfMonth(date), schedule.EndOfMonth(date)

	default: // weekly
		start := schedule.StartOfWeek(date)
		return start, start.AddDays(6)
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns pay-period lifecycle and shift-to-period assignment. It is
// stateless apart from the per-owner serialization locks; all durable
// state lives behind the Store.
type Engine struct {
	store Store

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store:  store,
		owners: make(map[string]*sync.Mutex),
	}
}

// ownerLock returns the serialization lock for one owner, creating it on
// first use. Single-writer-per-owner is what keeps find-or-create safe.
func (e *Engine) ownerLock(ownerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.owners[ownerID]
	if !ok {
		l = &sync.Mutex{}
		e.owners[ownerID] = l
	}
	return l
}

// FindOrCreatePeriod returns the owner's live period covering date,
// creating and persisting one with the profile's cadence when none
// exists yet.
func (e *Engine) FindOrCreatePeriod(ctx context.Context, date schedule.Date, profile Profile) (*PayPeriod, error) {
	lock := e.ownerLock(profile.OwnerID)
	lock.Lock()
	defer lock.Unlock()
	return e.findOrCreateLocked(ctx, date, profile)
}

func (e *Engine) findOrCreateLocked(ctx context.Context, date schedule.Date, profile Profile) (*PayPeriod, error) {
	period, err := e.store.FindPeriodCovering(ctx, profile.OwnerID, date)
	if err == nil {
		return period, nil
	}
	if !IsNotFound(err) {
		return nil, &PersistenceError{Op: "find period", Err: err}
	}

	start, end := PeriodBounds(date, profile.Cadence, profile.ReferenceDate)
	period = &PayPeriod{
		ID:        schedule.NewID(),
		OwnerID:   profile.OwnerID,
		Start:     start,
		End:       end,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.SavePeriod(ctx, period); err != nil {
		return nil, &PersistenceError{Op: "create period", Err: err}
	}
	return period, nil
}

// AssignToPeriod links a shift to the period covering its scheduled
// start, recomputes the shift's cached fields, and refreshes the
// aggregates of every period touched. Re-linking unhooks the shift from
// its previous period and recalculates that one too.
//
// Idempotent: repeating the call with an unchanged shift yields the same
// linkage and identical aggregates.
func (e *Engine) AssignToPeriod(ctx context.Context, shift *schedule.Shift, profile Profile) error {
	lock := e.ownerLock(profile.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	newPeriod, err := e.findOrCreateLocked(ctx, schedule.DateOf(shift.ScheduledStart), profile)
	if err != nil {
		return err
	}

	oldPeriodID := shift.PeriodID
	shift.PeriodID = newPeriod.ID
	UpdateCalculatedFields(shift)
	if err := e.store.SaveShift(ctx, shift); err != nil {
		return &PersistenceError{Op: "link shift", Err: err}
	}

	if err := e.recalcPeriod(ctx, newPeriod, profile.BaseRateCents); err != nil {
		return err
	}
	if oldPeriodID != "" && oldPeriodID != newPeriod.ID {
		old, err := e.store.GetPeriod(ctx, oldPeriodID)
		if err != nil {
			if IsNotFound(err) {
				return nil
			}
			return &PersistenceError{Op: "load previous period", Err: err}
		}
		return e.recalcPeriod(ctx, old, profile.BaseRateCents)
	}
	return nil
}

// Recalculate refreshes one period's aggregates from its linked shifts.
// Used after a shift edit or soft delete that did not move the shift.
func (e *Engine) Recalculate(ctx context.Context, periodID string, profile Profile) error {
	lock := e.ownerLock(profile.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	period, err := e.store.GetPeriod(ctx, periodID)
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return &PersistenceError{Op: "load period", Err: err}
	}
	return e.recalcPeriod(ctx, period, profile.BaseRateCents)
}

// RecalculateAll recomputes every live period of an owner from scratch.
// Used after bulk rate changes or data import, where incremental updates
// could drift from ground truth.
func (e *Engine) RecalculateAll(ctx context.Context, profile Profile) error {
	lock := e.ownerLock(profile.OwnerID)
	lock.Lock()
	defer lock.Unlock()

	periods, err := e.store.ListPeriods(ctx, profile.OwnerID)
	if err != nil {
		return &PersistenceError{Op: "list periods", Err: err}
	}
	for _, p := range periods {
		if err := e.recalcPeriod(ctx, p, profile.BaseRateCents); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) recalcPeriod(ctx context.Context, period *PayPeriod, baseRateCents *int64) error {
	shifts, err := e.store.ListShiftsByPeriod(ctx, period.ID)
	if err != nil {
		return &PersistenceError{Op: "load period shifts", Err: err}
	}

	sum := CalculateSummary(shifts, baseRateCents)
	period.PaidMinutes = sum.TotalPaidMinutes
	period.PremiumMinutes = sum.PremiumMinutes
	period.EstimatedPayCents = sum.EstimatedPayCents

	if err := e.store.SavePeriod(ctx, period); err != nil {
		return &PersistenceError{Op: "save period", Err: err}
	}
	return nil
}
