/*
store.go - Persistence contract consumed by the pay-period engine

PURPOSE:
  Defines the boundary between the engine and storage. The engine never
  retries and never partially commits: any storage failure is wrapped in
  a PersistenceError and propagated unmodified to the caller.

SOFT-DELETE CONTRACT:
  Every read transparently excludes soft-deleted rows. Generation and
  aggregation logic must never see a deleted entity.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go:  SQLite, for production
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shiftwise/payroll-engine/schedule"
)

// ErrNotFound is returned by lookups when no live (non-deleted) entity
// matches.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator. Save is an upsert: create on
// first call, full-row update after. Each Save call is all-or-nothing
// for the entity it touches.
type Store interface {
	// Patterns
	SavePattern(ctx context.Context, p *schedule.SchedulePattern) error
	GetPattern(ctx context.Context, id string) (*schedule.SchedulePattern, error)
	ListPatterns(ctx context.Context, ownerID string) ([]*schedule.SchedulePattern, error)

	// Shifts
	SaveShift(ctx context.Context, s *schedule.Shift) error
	// SaveShifts persists a batch atomically: all rows or none.
	SaveShifts(ctx context.Context, shifts []*schedule.Shift) error
	GetShift(ctx context.Context, id string) (*schedule.Shift, error)
	// ListShiftsInRange returns the owner's shifts whose scheduled start
	// falls in [from, to), ordered by scheduled start.
	ListShiftsInRange(ctx context.Context, ownerID string, from, to time.Time) ([]*schedule.Shift, error)
	// ListShiftsByPeriod returns all shifts linked to a period, ordered
	// by scheduled start.
	ListShiftsByPeriod(ctx context.Context, periodID string) ([]*schedule.Shift, error)

	// Pay periods
	SavePeriod(ctx context.Context, p *PayPeriod) error
	GetPeriod(ctx context.Context, id string) (*PayPeriod, error)
	// FindPeriodCovering returns the owner's period whose [Start, End]
	// contains date, or ErrNotFound.
	FindPeriodCovering(ctx context.Context, ownerID string, date schedule.Date) (*PayPeriod, error)
	// ListPeriods returns the owner's periods ordered by start date.
	ListPeriods(ctx context.Context, ownerID string) ([]*PayPeriod, error)
}

// PersistenceError wraps an underlying storage failure. The engine adds
// the operation for context and nothing else; the cause is reachable via
// errors.Unwrap.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("payroll: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
